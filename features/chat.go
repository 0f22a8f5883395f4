package features

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ftlext/dom"
)

const pulserClass = "ftl-ext-text-pulser"

// contributors wraps a contributor's username in the pulser span. The clan
// tag next to it is left alone.
func (f *Features) contributors(msg *html.Node) {
	user := f.eng.Find("chat-message-default_user", msg)
	if user == nil {
		return
	}
	var text *html.Node
	for c := user.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			text = c
			break
		}
	}
	if text == nil {
		return
	}
	name := strings.TrimSpace(text.Data)
	if !f.isContributor(name) {
		return
	}
	pulse := dom.Append(dom.Element("span", "class", pulserClass), dom.Text(name))
	f.doc.InsertBefore(user, pulse, text)
	f.doc.Remove(text)
}

func (f *Features) isContributor(name string) bool {
	for _, c := range f.cfg.Contributors {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// usernameFromMessage returns the sender of msg, looking inside the pulser
// span when the name was restyled.
func (f *Features) usernameFromMessage(msg *html.Node) string {
	user := f.eng.Find("chat-message-default_user", msg)
	if user == nil {
		return ""
	}
	var b strings.Builder
	for c := user.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(c.Data))
		}
	}
	if b.Len() > 0 {
		return b.String()
	}
	if p := dom.QueryFirst(msg, dom.ByClass(pulserClass)); p != nil {
		return strings.TrimSpace(dom.TextContent(p))
	}
	return ""
}

// chatClicked handles clicks anywhere in the chat list. A click on a
// username mentions that user in the chat input.
func (f *Features) chatClicked(ev dom.Event) {
	cls, ok := f.eng.Resolve("chat-message-default_user", nil, true)
	if !ok || ev.Target == nil {
		return
	}
	user := dom.Closest(ev.Target, dom.ByClass(cls))
	if user == nil {
		return
	}
	list := f.chatMessages()
	msg := user
	for msg.Parent != nil && msg.Parent != list {
		msg = msg.Parent
	}
	if name := f.usernameFromMessage(msg); name != "" {
		f.usernameClicked(name)
	}
}

func (f *Features) usernameClicked(name string) {
	f.debug("features: username clicked", "username", name)
	if f.doc.GetElementByID("chat-input") == nil {
		return
	}
	f.host.TypeText("chat-input", "@"+name+" ")
}

// mentionsUser reports whether one of the mentions in msg is the logged-in
// user.
func (f *Features) mentionsUser(msg *html.Node) bool {
	if f.username == "" {
		return false
	}
	want := "@" + strings.ToLower(f.username)
	for _, m := range f.eng.FindAll("chat-message-default_mention", msg) {
		if strings.ToLower(dom.TextContent(m)) == want {
			return true
		}
	}
	return false
}
