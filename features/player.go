package features

import (
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ftlext/dom"
	"github.com/hazyhaar/ftlext/hostevent"
)

const (
	videoPlayerID      = "hls-stream-player"
	videoAttachDelay   = 500 * time.Millisecond
	listenerAttribute  = "data-listener-attached"
	hideChatClass      = "ftl-ext-hide-chat-button"
	theatreButtonClass = "ftl-ext-settings-theatre-mode-button"
	fullscreenShow     = "ftl-ext-fullscreen-button-show"
	theatreChatClass   = "ftl-ext-theatre-mode-chat-box"
)

// checkForPlayer follows the stream being watched. Entering a stream may
// switch the chat filter to it; leaving one switches back to "All".
func (f *Features) checkForPlayer(panel *html.Node) {
	player := f.eng.Find("live-stream-player_live-stream-player", panel)
	title := f.eng.Find("live-stream-player_name", panel)

	if player == nil && f.watchingVideo {
		f.watchingVideo = false
		f.lastVideoTitle = ""
		if f.st.Bool("autoApplyChatFilters") {
			f.currentFilter = "All"
			f.updateActiveClass()
			f.applyChatFilterToAll()
		}
		return
	}
	if player == nil || title == nil {
		return
	}
	current := strings.TrimSpace(dom.TextContent(title))
	if current == "" || (f.watchingVideo && current == f.lastVideoTitle) {
		return
	}
	f.watchingVideo = true
	f.lastVideoTitle = current
	f.debug("features: watching stream", "stream", current)
	if f.st.Bool("autoApplyChatFilters") {
		f.currentFilter = current
		f.appendFilterOptions(f.filterOptions)
		f.updateActiveClass()
		f.applyChatFilterToAll()
	}
	f.eng.Poke(videoAttachDelay, func() { f.attachVideoEvent(panel) })
}

// attachVideoEvent listens for the stream starting to play, at most once
// per video element.
func (f *Features) attachVideoEvent(panel *html.Node) {
	video := f.doc.GetElementByID(videoPlayerID)
	if video == nil {
		return
	}
	if _, ok := dom.Attr(video, listenerAttribute); ok {
		return
	}
	f.doc.SetAttr(video, listenerAttribute, "true")
	f.doc.On(video, "playing", func(dom.Event) { f.videoPlaying(panel) })
}

// videoPlaying surfaces hidden clickable zones.
func (f *Features) videoPlaying(panel *html.Node) {
	if f.st.Bool("disableUnhidingClickableZones") {
		return
	}
	zone := f.eng.Find("clickable-zones_clickable-zones", panel)
	if zone == nil {
		return
	}
	if f.st.Bool("clickableZoneAlerts") {
		t := hostevent.AdminToast("Clickable zone detected", "", "ftl-ext-clickable-zone", f.eng.Loop.Now())
		if err := hostevent.OpenToast(f.doc, t); err != nil {
			f.logger.Warn("features: clickable zone toast", "error", err)
		}
	}
	// Redraw so zones measured at zero size get real bounds.
	f.host.DispatchWindow("resize")
	if f.st.Bool("clickableZoneUnhide") {
		f.doc.SetStyle(zone, "cursor", "pointer")
	}
}

// theatreModeCheck follows the host's cinema class on the chat box.
func (f *Features) theatreModeCheck(chat *html.Node) {
	if !f.st.Bool("theatreModeImproved") {
		return
	}
	if f.eng.ContainsPrefix("chat_cinema", chat, false) {
		f.debug("features: theatre mode detected")
		f.doc.AddClass(chat, theatreChatClass)
	} else {
		f.doc.RemoveClass(chat, theatreChatClass)
	}
	f.resizeVideo()
	f.host.DispatchWindow("resize")
}

const (
	openChatIcon  = `<svg viewBox="0 0 24 24" xmlns="http://www.w3.org/2000/svg" fill="#F8EC94" width="24" height="24"><rect x="4" y="5" width="16" height="2"></rect><rect x="4" y="11" width="16" height="2"></rect><rect x="4" y="17" width="10" height="2"></rect></svg>`
	closeChatIcon = `<svg viewBox="0 0 24 24" xmlns="http://www.w3.org/2000/svg" fill="#F8EC94" width="24" height="24"><rect x="5" y="11" width="14" height="2"></rect></svg>`
)

// resizeVideo lays the player out for theatre mode: the video fills the
// width left by the chat, or the whole width when chat is hidden behind it.
func (f *Features) resizeVideo() {
	cinema := f.eng.Find("live-stream-player_cinema", nil)
	video := f.eng.Find("live-stream-player_container", nil)
	fullscreen := f.eng.Find("live-stream-controls_live-stream-fullscreen", nil)
	chat := f.eng.Find("chat_chat", nil)
	root := f.doc.Root()
	hideChat := dom.QueryFirst(root, dom.ByClass(hideChatClass))
	extButton := dom.QueryFirst(root, dom.ByClass(theatreButtonClass))

	if fullscreen != nil {
		f.doc.ToggleClass(fullscreen, fullscreenShow, f.st.Bool("alwaysShowFullscreenButton"))
	}

	if f.st.Bool("theatreModeImproved") && cinema != nil && fullscreen != nil && chat != nil && video != nil {
		if hideChat == nil {
			hideChat = f.cloneControl(fullscreen, hideChatClass, chatIcon(chat))
			f.doc.On(hideChat, "click", func(dom.Event) { f.toggleChat(chat, hideChat) })
			f.doc.After(fullscreen, hideChat)
		}
		f.doc.SetStyle(hideChat, "display", "block !important")

		if extButton == nil && f.st.Bool("theatreModeFtlExtButton") {
			extButton = f.cloneControl(fullscreen, theatreButtonClass, settingsIcon)
			f.doc.On(extButton, "click", func(dom.Event) { f.openSettings() })
			f.doc.After(fullscreen, extButton)
		}
		if extButton != nil {
			if f.st.Bool("theatreModeFtlExtButton") {
				f.doc.SetStyle(extButton, "display", "block !important")
			} else {
				f.doc.SetStyle(extButton, "display", "none")
			}
		}
		f.doc.AddClass(chat, theatreChatClass)

		chatWidth := f.host.Width(chat)
		if dom.Style(chat, "z-index") == "2" {
			chatWidth = 0
		}
		vw, vh := f.host.Viewport()
		available := math.Max(0, vw-chatWidth)
		ratio := 16.0 / 9.0
		if el := dom.QueryFirst(video, dom.ByTag("video")); el != nil {
			if w, h := f.host.VideoSize(el); w > 0 && h > 0 {
				ratio = w / h
			}
		}
		if !f.cfg.Mobile {
			if cls, ok := f.eng.Resolve("live-stream-player_cinema", nil, true); ok {
				f.letterboxFix(cls)
			}
		}
		width := strconv.Itoa(int(math.Round(available))) + "px"
		if dom.Style(video, "width") != width {
			f.debug("features: video resized", "width", width, "aspect", ratio, "viewport_height", vh)
			f.doc.SetStyle(video, "width", width)
		}
		return
	}

	if video != nil {
		if dom.Style(video, "width") != "100%" {
			f.debug("features: video sizing reset")
			f.doc.SetStyle(video, "width", "100%")
		}
		f.doc.SetStyle(video, "margin", "")
		if hideChat != nil {
			f.doc.SetStyle(hideChat, "display", "none")
		}
		if extButton != nil {
			f.doc.SetStyle(extButton, "display", "none")
		}
		if chat != nil {
			f.doc.RemoveClass(chat, theatreChatClass)
		}
	}
}

func chatIcon(chat *html.Node) string {
	if dom.Style(chat, "z-index") == "2" {
		return openChatIcon
	}
	return closeChatIcon
}

func (f *Features) toggleChat(chat, button *html.Node) {
	z := "2"
	if dom.Style(chat, "z-index") == "2" {
		z = "7"
	}
	f.doc.SetStyle(chat, "z-index", z)
	if holder := f.iconHolder(button); holder != nil {
		if err := f.doc.SetInnerHTML(holder, chatIcon(chat)); err != nil {
			f.logger.Warn("features: chat icon", "error", err)
		}
	}
	f.resizeVideo()
}

// cloneControl copies the fullscreen button into a new player control.
func (f *Features) cloneControl(fullscreen *html.Node, class, icon string) *html.Node {
	btn := dom.Clone(fullscreen)
	var classes []string
	for _, c := range dom.ClassList(btn) {
		if c != fullscreenShow {
			classes = append(classes, c)
		}
	}
	classes = append(classes, class)
	setRawAttr(btn, "class", strings.Join(classes, " "))
	if holder := f.iconHolder(btn); holder != nil {
		holder.FirstChild, holder.LastChild = nil, nil
		if nodes, err := f.doc.ParseFragment(holder, icon); err == nil {
			dom.Append(holder, nodes...)
		}
	}
	return btn
}

func (f *Features) iconHolder(btn *html.Node) *html.Node {
	return dom.QueryFirst(btn, dom.And(dom.ByTag("div"), dom.ByClassSubstring("icon_icon")))
}

// letterboxFix keeps the video letterboxed inside the cinema container.
func (f *Features) letterboxFix(cinemaClass string) {
	css := "." + cinemaClass + " video {\n\twidth: 100% !important;\n\theight: auto !important;\n\tobject-fit: contain !important;\n}"
	if f.letterbox != nil && f.doc.Contains(f.letterbox) {
		if dom.TextContent(f.letterbox) != css {
			f.doc.SetText(f.letterbox, css)
		}
		return
	}
	head := f.doc.Head()
	if head == nil {
		return
	}
	f.letterbox = dom.Append(dom.Element("style", "class", "ftl-ext-letterbox"), dom.Text(css))
	f.doc.AppendChild(head, f.letterbox)
}

func setRawAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
