package features

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ftlext/dom"
	"github.com/hazyhaar/ftlext/engine"
)

const spamClass = "ftl-ext-spam"

// spamKinds maps a message type prefix to the setting hiding it.
var spamKinds = []struct{ prefix, setting string }{
	{"chat-message-happening_item", "hideItemConsumption"},
	{"chat-message-happening_catastrophe", "hideGrenades"},
	{"chat-message-emote_chat-message-emote", "hideEmotes"},
	{"chat-message-stocks_chat-message-stocks", "hideStocks"},
	{"chat-message-sfx_chat-message-sfx", "hideSfx"},
	{"chat-message-tts_chat-message-tts", "hideTts"},
	{"chat-message-default_free", "hidePoors"},
	{"chat-message-clan_chat-message-clan", "hideClans"},
}

func (f *Features) markAsSpam(msg *html.Node) {
	f.doc.SetStyle(msg, "display", "none")
	f.doc.AddClass(msg, spamClass)
}

// applyAntiSpam hides msg when its text or its type is filtered.
func (f *Features) applyAntiSpam(msg *html.Node) {
	if f.st.Bool("disableAntiSpam") {
		return
	}
	for _, k := range spamKinds {
		if _, ok := f.eng.Cache.Get(k.prefix); !ok {
			f.eng.MatchPrefix(k.prefix, msg, true)
		}
	}

	if span := f.eng.Find("chat-message-default_message", msg); span != nil {
		if text := strings.ToLower(dom.TextContent(span)); text != "" && f.textIsSpam(text) {
			f.markAsSpam(msg)
		}
	}

	for _, k := range spamKinds {
		if !f.st.Bool(k.setting) {
			continue
		}
		if cls, ok := f.eng.Cache.Get(k.prefix); ok && engine.ContainsClass(msg, cls) {
			f.markAsSpam(msg)
		}
	}
}

func (f *Features) textIsSpam(text string) bool {
	if utf8.RuneCountInString(text) > f.st.Clamp("hideChatMessageLength") {
		return true
	}
	for _, kw := range f.st.Strings("filterChatMessagesContaining") {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	for _, kw := range f.st.Strings("filterChatMessagesExact") {
		if strings.ToLower(kw) == text {
			return true
		}
	}
	return false
}

// resetAntiSpam re-evaluates every message in chat against the current
// settings, then re-applies the chat filter.
func (f *Features) resetAntiSpam() {
	list := f.chatMessages()
	if list == nil {
		return
	}
	f.debug("features: resetting anti-spam")
	for _, msg := range dom.Children(list) {
		f.doc.SetStyle(msg, "display", "")
		f.doc.RemoveClass(msg, spamClass)
		f.applyAntiSpam(msg)
	}
	f.resetChatFilter()
	f.host.ScrollToBottom(list)
}
