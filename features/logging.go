package features

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ftlext/activitylog"
	"github.com/hazyhaar/ftlext/dom"
	"github.com/hazyhaar/ftlext/hostevent"
)

var staffAvatars = []string{
	"https://cdn.fishtank.live/avatars/staff.png",
	"https://cdn.fishtank.live/avatars/wes.png",
}

func (f *Features) appendLog(c activitylog.Category, e activitylog.Entry) {
	if err := f.logs.Append(f.ctx, c, e); err != nil {
		f.logger.Error("features: failed to save log", "category", c, "error", err)
	}
}

// logStaffMessage keeps messages from staff: the admin or wes style plus a
// staff avatar.
func (f *Features) logStaffMessage(msg *html.Node) {
	if !f.logs.Enabled(activitylog.Staff) {
		return
	}
	if !f.eng.ContainsPrefix("chat-message-default_admin", msg, false) &&
		!f.eng.ContainsPrefix("chat-message-default_wes", msg, false) {
		return
	}
	avatar := false
	for _, src := range staffAvatars {
		if dom.QueryFirst(msg, dom.And(dom.ByTag("img"), dom.ByAttr("src", src))) != nil {
			avatar = true
			break
		}
	}
	if !avatar {
		return
	}
	f.appendLog(activitylog.Staff, activitylog.Entry{HTML: dom.OuterHTML(msg)})
}

// logPing keeps messages mentioning the logged-in user.
func (f *Features) logPing(msg *html.Node) {
	if !f.logs.Enabled(activitylog.Mentions) || f.username == "" {
		return
	}
	if !f.eng.ContainsPrefix("chat-message-default_mention", msg, false) || !f.mentionsUser(msg) {
		return
	}
	f.appendLog(activitylog.Mentions, activitylog.Entry{HTML: dom.OuterHTML(msg)})
}

func (f *Features) logTTS(msg *html.Node) {
	f.logRoomMessage(msg, activitylog.TTS, "chat-message-tts")
}

func (f *Features) logSFX(msg *html.Node) {
	f.logRoomMessage(msg, activitylog.SFX, "chat-message-sfx")
}

// logRoomMessage keeps TTS and SFX messages: sender, room and text.
func (f *Features) logRoomMessage(msg *html.Node, c activitylog.Category, module string) {
	if !f.logs.Enabled(c) || !f.eng.ContainsPrefix(module+"_"+module, msg, false) {
		return
	}
	from := f.eng.Find(module+"_from", msg)
	room := f.eng.Find(module+"_room", msg)
	text := f.eng.Find(module+"_message", msg)
	if from == nil || room == nil || text == nil {
		return
	}
	f.appendLog(c, activitylog.Entry{
		From:    dom.InnerHTML(from),
		Room:    dom.InnerHTML(room),
		Message: dom.InnerHTML(text),
	})
}

// logAdminMessage keeps host toasts, minus the noise the user opted out of.
func (f *Features) logAdminMessage(t hostevent.Toast) {
	if !f.logs.Enabled(activitylog.Admin) || f.skipAdminMessage(t) {
		return
	}
	f.appendLog(activitylog.Admin, activitylog.Entry{
		ID:      t.ID,
		Header:  strings.ToLower(string(t.Header)),
		Message: strings.ToLower(string(t.Message)),
	})
}

func (f *Features) skipAdminMessage(t hostevent.Toast) bool {
	header := strings.ToLower(string(t.Header))
	message := strings.ToLower(string(t.Message))

	switch {
	case strings.HasPrefix(t.ID, "ftl-ext"):
		return true
	case message != "" && (t.ID == seasonPassID || message == seasonPassID):
		return true
	case message == "forbidden":
		return true
	case t.Type == "error":
		return true
	}
	if !f.st.Bool("logAdminMessagesLevelUpsMissionsMedals") {
		if strings.Contains(header, "level up") || strings.Contains(header, "mission complete") ||
			strings.HasPrefix(message, "mission complete") || strings.HasPrefix(message, "mission accepted") ||
			strings.Contains(header, "medal earned") {
			return true
		}
	}
	if !f.st.Bool("logAdminMessagesFoundItem") && header != "" && message != "" &&
		(strings.Contains(header, "found an item") || strings.Contains(message, "added to your inventory")) {
		return true
	}
	if !f.st.Bool("logAdminMessagesNewPollStarted") && strings.Contains(message, "new poll has started") {
		return true
	}
	if !f.st.Bool("logAdminMessagesTips") &&
		(strings.HasPrefix(message, "you spent ₣") || strings.HasPrefix(message, "you received ₣")) {
		return true
	}
	if !f.st.Bool("logAdminMessagesGiftedSeasonPasses") &&
		strings.Contains(header, "gifted") && strings.HasSuffix(header, "season passes!") {
		return true
	}
	if !f.st.Bool("logAdminMessagesFishToy") &&
		(strings.Contains(header, "fishtoy") || strings.Contains(header, "fish toy") || strings.Contains(message, "fishtoy")) {
		return true
	}
	return false
}
