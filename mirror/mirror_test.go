package mirror

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/hazyhaar/ftlext/dom"
	"github.com/hazyhaar/ftlext/idgen"
	"github.com/hazyhaar/ftlext/mutation"
)

const markup = `<html><head></head><body><div id="a">x</div></body></html>`

func newMirror(t *testing.T) *Mirror {
	t.Helper()
	m, err := FromHTML(strings.NewReader(markup), "https://www.fishtank.live", WithIDGenerator(idgen.Sequence("g")))
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}
	return m
}

func TestFromHTML_Numbering(t *testing.T) {
	m := newMirror(t)
	if m.Len() != 5 {
		t.Fatalf("Len: got %d, want 5", m.Len())
	}
	div := m.Node("p4")
	if dom.AttrOr(div, "id", "") != "a" {
		t.Errorf("p4: got %s, want div#a", dom.OuterHTML(div))
	}
	if m.Node("p3") != m.Doc().Body() {
		t.Error("p3 is not the body")
	}
	if id, _ := m.ID(div.FirstChild); id != "p5" {
		t.Errorf("text id: got %q, want %q", id, "p5")
	}
}

func TestApply_NotEchoed(t *testing.T) {
	m := newMirror(t)
	doc := m.Doc()
	var seen []dom.RecordType
	obs := doc.NewObserver(func(recs []dom.Record, _ *dom.Observer) {
		for _, r := range recs {
			seen = append(seen, r.Type)
		}
	})
	if err := obs.Observe(doc.Body(), dom.ObserveOptions{ChildList: true, Subtree: true, Attributes: true, CharacterData: true}); err != nil {
		t.Fatal(err)
	}

	m.Apply(&mutation.Batch{Seq: 1, Records: []mutation.Record{
		{Op: mutation.OpInsert, Target: "p3", Nodes: []mutation.Node{{ID: "p6", Type: mutation.ElementNode, Tag: "SPAN", Children: []mutation.Node{{ID: "p7", Type: mutation.TextNode, Data: "hi"}}}}},
		{Op: mutation.OpAttr, Target: "p4", Name: "class", Value: "chat_chat__C"},
		{Op: mutation.OpText, Target: "p5", Value: "y"},
		{Op: mutation.OpRemove, Target: "p3", Removed: []string{"p4"}},
	}})
	doc.Flush()

	if got := dom.InnerHTML(doc.Body()); got != "<span>hi</span>" {
		t.Errorf("body: got %q, want %q", got, "<span>hi</span>")
	}
	if len(seen) != 4 {
		t.Errorf("observer records: got %v, want 4", seen)
	}
	if b := m.Drain(); b != nil {
		t.Errorf("Drain: inbound changes echoed: %+v", b.Records)
	}
	if m.Node("p4") != nil || m.Node("p5") != nil {
		t.Error("removed subtree still addressable")
	}
	if applied, skipped := m.Counters(); applied != 4 || skipped != 0 {
		t.Errorf("Counters: got %d/%d, want 4/0", applied, skipped)
	}
}

func TestApply_MoveKeepsIdentity(t *testing.T) {
	m := newMirror(t)
	div := m.Node("p4")
	m.Apply(&mutation.Batch{Seq: 1, Records: []mutation.Record{
		{Op: mutation.OpRemove, Target: "p3", Removed: []string{"p4"}},
		{Op: mutation.OpInsert, Target: "p2", Nodes: []mutation.Node{{ID: "p4", Type: mutation.ElementNode, Tag: "div", Attrs: [][2]string{{"id", "a"}}, Children: []mutation.Node{{ID: "p5", Type: mutation.TextNode, Data: "x"}}}}},
	}})
	if m.Node("p4") != div || div.Parent != m.Doc().Head() {
		t.Errorf("moved node: identity lost or wrong parent")
	}
}

func TestApply_UnknownTarget(t *testing.T) {
	m := newMirror(t)
	m.Apply(&mutation.Batch{Seq: 3, Records: []mutation.Record{
		{Op: mutation.OpAttr, Target: "p99", Name: "class", Value: "x"},
		{Op: mutation.OpEvent, Target: "p98", Name: "click"},
		{Op: mutation.OpAttr, Target: "p4", Name: "class", Value: "x"},
	}})
	if applied, skipped := m.Counters(); applied != 1 || skipped != 2 {
		t.Errorf("Counters: got %d/%d, want 1/2", applied, skipped)
	}
}

func TestJournal_Outbound(t *testing.T) {
	m := newMirror(t)
	doc := m.Doc()

	detached := dom.Element("i")
	doc.SetAttr(detached, "class", "ignored")
	btn := dom.Append(dom.Element("button", "class", "ftl-ext-settings-button"), dom.Text("Settings"))
	doc.InsertBefore(doc.Body(), btn, m.Node("p4"))
	doc.SetStyle(btn, "display", "none")
	doc.Remove(m.Node("p4"))

	b := m.Drain()
	if b == nil {
		t.Fatal("Drain: got nil")
	}
	if b.Seq != 1 || b.PageURL != "https://www.fishtank.live" {
		t.Errorf("batch header: seq=%d url=%q", b.Seq, b.PageURL)
	}
	if len(b.Records) != 3 {
		t.Fatalf("Records: got %+v, want 3", b.Records)
	}
	ins := b.Records[0]
	if ins.Op != mutation.OpInsert || ins.Target != "p3" || ins.Before != "p4" {
		t.Errorf("insert: got %+v", ins)
	}
	if n := ins.Nodes[0]; n.ID != "g1" || n.Tag != "button" || n.Children[0].Data != "Settings" || n.Children[0].ID != "g2" {
		t.Errorf("inserted node: got %+v", n)
	}
	if r := b.Records[1]; r.Op != mutation.OpAttr || r.Target != "g1" || r.Name != "style" || r.Value != "display: none;" {
		t.Errorf("style: got %+v", r)
	}
	if r := b.Records[2]; r.Op != mutation.OpRemove || len(r.Removed) != 1 || r.Removed[0] != "p4" {
		t.Errorf("remove: got %+v", r)
	}
	if m.Drain() != nil {
		t.Error("second Drain: want nil")
	}
}

func TestJournal_EventsFromListeners(t *testing.T) {
	// WHAT: an inbound click whose listener dispatches a custom event.
	// WHY: the click must not return to the page but the listener's event must.
	m := newMirror(t)
	doc := m.Doc()
	doc.On(doc.Body(), "click", func(ev dom.Event) {
		if ev.Target == m.Node("p4") {
			_ = doc.Dispatch("modalopen", `{"modal":"Tip"}`)
		}
	})
	m.Apply(&mutation.Batch{Seq: 1, Records: []mutation.Record{{Op: mutation.OpEvent, Target: "p4", Name: "click"}}})

	b := m.Drain()
	if b == nil || len(b.Records) != 1 {
		t.Fatalf("Drain: got %+v, want one event", b)
	}
	r := b.Records[0]
	if r.Op != mutation.OpEvent || r.Name != "modalopen" || r.Target != "" {
		t.Errorf("event: got %+v", r)
	}
	var detail string
	if err := json.Unmarshal(r.Detail, &detail); err != nil || detail != `{"modal":"Tip"}` {
		t.Errorf("detail: got %s (%v)", r.Detail, err)
	}
}
