package features

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ftlext/dom"
	"github.com/hazyhaar/ftlext/engine"
	"github.com/hazyhaar/ftlext/hostevent"
)

// Requests returns the anchors the feature set waits for at page load.
func (f *Features) Requests() []engine.WatchRequest {
	return []engine.WatchRequest{
		{Name: "username", ParentPrefix: "top-bar_top-bar", TargetPrefix: "top-bar-user_display-name", Then: f.recordUsername},
		{Name: "settings-button", ParentPrefix: "top-bar_top-bar", TargetPrefix: "top-bar-user_dropdown", Then: f.createSettingsButton, StopAfterFirst: true},
		{Name: "chat", ParentPrefix: "chat_chat", TargetPrefix: "chat-messages_chat-messages", Then: f.observeChatMessages, StopAfterFirst: true},
		{Name: "dropdown-options", ParentPrefix: "chat-room-selector_chat-room-selector", TargetPrefix: "select_options", Then: f.saveDropdownOptions, StopAfterFirst: true},
		{Name: "dropdown-open", ParentPrefix: "chat-room-selector_chat-room-selector", TargetPrefix: "select_options", Then: f.observeDropdownOpen},
		{Name: "stream-grid", ParentPrefix: "main-panel_main-panel", TargetPrefix: "live-streams_live-streams-grid", Then: f.observeStreamGrid},
		{Name: "player", ParentPrefix: "main-panel_main-panel", TargetPrefix: "live-stream-player_live-stream-player", Then: f.checkForPlayer},
	}
}

func (f *Features) recordUsername(el *html.Node) {
	name := dom.InnerHTML(el)
	if name == "" {
		return
	}
	if name != f.username {
		f.debug("features: username recorded", "username", name)
	}
	f.username = name
	f.userID = dom.AttrOr(el, "data-user-id", "")
}

const settingsIcon = `<svg viewBox="0 0 24 24" xmlns="http://www.w3.org/2000/svg" fill="#F8EC94" width="24" height="24"><rect x="7" y="6" width="10" height="2"></rect><rect x="6" y="8" width="12" height="6"></rect><rect x="9" y="16" width="6" height="2"></rect></svg>`

// createSettingsButton adds the extension entry to the user dropdown,
// before "Billing" when present.
func (f *Features) createSettingsButton(dropdown *html.Node) {
	if dom.QueryFirst(dropdown, dom.ByClass("ftl-ext-settings-button")) != nil {
		return
	}
	iconClass, _ := f.eng.Resolve("icon_icon", nil, true)
	btn := dom.Element("button", "class", "ftl-ext-settings-button", "data-plugin-button", "true")
	nodes, err := f.doc.ParseFragment(btn, `<span><div class="`+html.EscapeString(iconClass)+`">`+settingsIcon+`</div></span>FTL Extended`)
	if err != nil {
		f.logger.Warn("features: settings button markup", "error", err)
		return
	}
	dom.Append(btn, nodes...)
	f.doc.On(btn, "click", func(dom.Event) { f.openSettings() })

	var billing *html.Node
	for _, b := range dom.QueryAll(dropdown, dom.ByTag("button")) {
		if strings.TrimSpace(dom.TextContent(b)) == "Billing" {
			billing = b
			break
		}
	}
	f.doc.InsertBefore(dropdown, btn, billing)
}

func (f *Features) openSettings() {
	if open := f.eng.Find("top-bar-user_show", nil); open != nil {
		if cls, ok := f.eng.Resolve("top-bar-user_show", nil, true); ok {
			f.doc.RemoveClass(open, cls)
		}
	}
	if err := f.doc.Dispatch(hostevent.ModalOpen, `{"modal":"Tip","data":[]}`); err != nil {
		f.logger.Warn("features: open settings modal", "error", err)
	}
	if f.onSettings != nil {
		f.onSettings()
	}
}

// observeChatMessages starts the per-message pipeline on the chat list and
// the theatre mode watcher on the chat box.
func (f *Features) observeChatMessages(target *html.Node) {
	list := f.chatMessages()
	if list == nil {
		list = target
	}
	f.eng.OnChildrenAdded(list, f.chatMessageAdded, engine.AddedOptions{})
	f.doc.On(list, "click", f.chatClicked)

	if chat := f.eng.Find("chat_chat", nil); chat != nil {
		f.eng.Registry.Track(engine.Key{Node: chat, Tag: "theatre"},
			engine.WatchOptions{Attributes: true, PauseDuringCallback: true},
			func(w *engine.Watcher, _ []dom.Record) { f.theatreModeCheck(w.Target()) })
	}
}

// chatMessageAdded runs every chat feature on a new message.
func (f *Features) chatMessageAdded(msg *html.Node) {
	f.applyAntiSpam(msg)
	f.applyChatFilter(msg)
	f.logStaffMessage(msg)
	f.logPing(msg)
	f.logTTS(msg)
	f.logSFX(msg)
	f.contributors(msg)
}
