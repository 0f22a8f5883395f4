package session

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/ftlext/activitylog"
	"github.com/hazyhaar/ftlext/eventloop"
	"github.com/hazyhaar/ftlext/idgen"
	"github.com/hazyhaar/ftlext/kvstore"
	"github.com/hazyhaar/ftlext/mirror"
	"github.com/hazyhaar/ftlext/mutation"
	"github.com/hazyhaar/ftlext/settings"
)

const page = `<html><head></head><body><div class="chat_chat__C"><div id="chat-messages" class="chat-messages_chat-messages__Ab9"></div><div id="chat-input" contenteditable="true"></div></div></body></html>`

type harness struct {
	r     *Runner
	loop  *eventloop.Loop
	page  *StaticPage
	st    *settings.Settings
	snap  *mutation.Snapshot
	store kvstore.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	clk := eventloop.NewManualClock(time.Unix(1700000000, 0))
	loop := eventloop.New(eventloop.WithClock(clk))
	store := kvstore.NewMemory()
	st := settings.Load(ctx, store, nil)
	p := &StaticPage{ViewportWidth: 1920, ViewportHeight: 1080}
	r := NewRunner(ctx, loop, p, Deps{Settings: st, Logs: activitylog.New(store, st)}, WithNodeIDs(idgen.Sequence("g")))
	snap, err := mirror.ParseSnapshot(strings.NewReader(page), "https://www.fishtank.live")
	if err != nil {
		t.Fatal(err)
	}
	return &harness{r: r, loop: loop, page: p, st: st, snap: snap, store: store}
}

// findID returns the wire id of the element carrying the id attribute.
func findID(n mutation.Node, id string) string {
	for _, a := range n.Attrs {
		if a[0] == "id" && a[1] == id {
			return n.ID
		}
	}
	for _, c := range n.Children {
		if got := findID(c, id); got != "" {
			return got
		}
	}
	return ""
}

func message(id, text string) mutation.Node {
	return mutation.Node{ID: id, Type: mutation.ElementNode, Tag: "div",
		Attrs: [][2]string{{"class", "chat-message-default_chat-message-default__M"}},
		Children: []mutation.Node{
			{ID: id + "u", Type: mutation.ElementNode, Tag: "span",
				Attrs:    [][2]string{{"class", "chat-message-default_user__U"}},
				Children: []mutation.Node{{ID: id + "n", Type: mutation.TextNode, Data: "fishfan"}}},
			{ID: id + "m", Type: mutation.ElementNode, Tag: "span",
				Attrs:    [][2]string{{"class", "chat-message-default_message__B"}},
				Children: []mutation.Node{{ID: id + "t", Type: mutation.TextNode, Data: text}}},
		}}
}

func TestRunner_SnapshotThenBatches(t *testing.T) {
	h := newHarness(t)
	if err := h.st.Set(context.Background(), "filterChatMessagesExact", []string{"buy now"}); err != nil {
		t.Fatal(err)
	}
	list := findID(h.snap.Root, "chat-messages")

	h.r.Snapshot(h.snap)
	h.loop.RunPending()
	st := h.r.stats()
	if st.Sessions != 1 || st.URL != "https://www.fishtank.live" {
		t.Fatalf("stats after snapshot: %+v", st)
	}

	// The first message wakes the chat anchor, the second goes through the pipeline.
	h.r.Batch(&mutation.Batch{Seq: 1, Records: []mutation.Record{{Op: mutation.OpInsert, Target: list, Nodes: []mutation.Node{message("p100", "hello")}}}})
	h.r.Batch(&mutation.Batch{Seq: 2, Records: []mutation.Record{{Op: mutation.OpInsert, Target: list, Nodes: []mutation.Node{message("p101", "BUY NOW")}}}})
	h.loop.RunPending()

	var style, class bool
	for _, r := range h.page.Records() {
		if r.Target == "p100" {
			t.Errorf("plain message touched: %+v", r)
		}
		if r.Target == "p101" && r.Op == mutation.OpAttr && r.Name == "style" && r.Value == "display: none;" {
			style = true
		}
		if r.Target == "p101" && r.Op == mutation.OpAttr && r.Name == "class" && strings.Contains(r.Value, "ftl-ext-spam") {
			class = true
		}
	}
	if !style || !class {
		t.Errorf("spam message not hidden on the page: %+v", h.page.Records())
	}

	st = h.r.stats()
	if st.InboundBatches != 2 || st.RecordsApplied != 2 || st.OutboundBatches == 0 {
		t.Errorf("counters: %+v", st)
	}
}

func TestRunner_NewSnapshotReplacesSession(t *testing.T) {
	h := newHarness(t)
	h.r.Snapshot(h.snap)
	h.loop.RunPending()
	first := h.r.cur

	h.r.Snapshot(h.snap)
	h.loop.RunPending()
	if h.r.cur == first || h.r.stats().Sessions != 2 {
		t.Fatal("second snapshot did not start a new session")
	}

	// WHAT: settings hooks of the replaced session are gone.
	// WHY: the old document is dead; its hooks would rewrite it on every change.
	if err := h.st.Set(context.Background(), "hideChatMessageLength", 3); err != nil {
		t.Fatal(err)
	}
	h.loop.RunPending()
	if got := h.page.Actions(); len(got) > 1 {
		t.Errorf("anti-spam reset ran %d times: %v", len(got), got)
	}
}

func TestRunner_BatchBeforeSnapshot(t *testing.T) {
	h := newHarness(t)
	h.r.Batch(&mutation.Batch{Seq: 1, Records: []mutation.Record{{Op: mutation.OpAttr, Target: "p1", Name: "x", Value: "y"}}})
	h.loop.RunPending()
	if st := h.r.stats(); st.InboundBatches != 0 || st.Sessions != 0 {
		t.Errorf("stats: %+v", st)
	}
}

func TestRunner_HostActionsUseWireIDs(t *testing.T) {
	h := newHarness(t)
	list := findID(h.snap.Root, "chat-messages")
	input := findID(h.snap.Root, "chat-input")

	h.r.Snapshot(h.snap)
	h.r.Batch(&mutation.Batch{Seq: 1, Records: []mutation.Record{{Op: mutation.OpInsert, Target: list, Nodes: []mutation.Node{message("p100", "hello")}}}})
	h.loop.RunPending()
	h.r.Batch(&mutation.Batch{Seq: 2, Records: []mutation.Record{{Op: mutation.OpEvent, Target: "p100u", Name: "click"}}})
	h.loop.RunPending()

	want := fmt.Sprintf("type %s %q", input, "@fishfan ")
	acts := h.page.Actions()
	if len(acts) == 0 || acts[len(acts)-1] != want {
		t.Errorf("actions: got %v, want last %q", acts, want)
	}
	for _, r := range h.page.Records() {
		if r.Op == mutation.OpEvent && r.Name == "click" {
			t.Errorf("inbound click echoed: %+v", r)
		}
	}
}

func TestStaticPage_Width(t *testing.T) {
	p := &StaticPage{Widths: map[string]float64{"p7": 320}}
	if got := p.Width("p7"); got != 320 {
		t.Errorf("Width: got %v, want 320", got)
	}
	p.Click("p7")
	p.DispatchWindow("resize")
	if got := p.Actions(); len(got) != 2 || got[0] != "click p7" || got[1] != "window resize" {
		t.Errorf("Actions: got %v", got)
	}
}
