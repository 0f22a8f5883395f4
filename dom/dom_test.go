package dom

import "testing"

const page = `<html><head></head><body>
<div id="app" class="top-bar_top-bar__x1 wide">
  <span class="top-bar-user_display-name__a9">alice</span>
</div>
<ul id="list"></ul>
</body></html>`

func mustParse(t *testing.T, opts ...Option) *Document {
	t.Helper()
	d, err := ParseString(page, opts...)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	return d
}

type captureJournal struct {
	records []Record
	events  []Event
}

func (c *captureJournal) Mutated(r Record)   { c.records = append(c.records, r) }
func (c *captureJournal) Dispatched(e Event) { c.events = append(c.events, e) }

func TestQueries(t *testing.T) {
	d := mustParse(t)

	app := d.GetElementByID("app")
	if app == nil {
		t.Fatal("GetElementByID(app): got nil")
	}
	if !HasClass(app, "wide") {
		t.Error("HasClass(wide): got false")
	}
	n := QueryFirst(d.Root(), ByClassSubstring("top-bar-user_display-name__"))
	if n == nil || TextContent(n) != "alice" {
		t.Fatalf("ByClassSubstring: got %v", n)
	}
	if QueryFirst(n, ByTag("span")) != nil {
		t.Error("QueryFirst must not return the scope itself")
	}
	if got := len(QueryAll(d.Body(), ByTag("div"))); got != 1 {
		t.Errorf("QueryAll(div): got %d, want 1", got)
	}
}

func TestContains(t *testing.T) {
	d := mustParse(t)
	el := d.CreateElement("div")
	if d.Contains(el) {
		t.Error("detached element reported as contained")
	}
	d.AppendChild(d.Body(), el)
	if !d.Contains(el) {
		t.Error("attached element reported as detached")
	}
	d.Remove(el)
	if d.Contains(el) {
		t.Error("removed element reported as contained")
	}
}

func TestObserver_ChildListSubtree(t *testing.T) {
	d := mustParse(t)
	var got []Record
	obs := d.NewObserver(func(recs []Record, _ *Observer) { got = append(got, recs...) })
	if err := obs.Observe(d.Body(), ObserveOptions{ChildList: true, Subtree: true}); err != nil {
		t.Fatalf("Observe: %v", err)
	}

	li := d.CreateElement("li")
	d.AppendChild(d.GetElementByID("list"), li)
	d.SetAttr(li, "class", "x")

	if len(got) != 0 {
		t.Fatal("records delivered before Flush")
	}
	if calls := d.Flush(); calls != 1 {
		t.Errorf("Flush: got %d callbacks, want 1", calls)
	}
	if len(got) != 1 {
		t.Fatalf("records: got %d, want 1 (attribute change not observed)", len(got))
	}
	if got[0].Type != ChildList || len(got[0].Added) != 1 || got[0].Added[0] != li {
		t.Errorf("record: got %+v", got[0])
	}
}

func TestObserver_NoSubtree(t *testing.T) {
	d := mustParse(t)
	n := 0
	obs := d.NewObserver(func(recs []Record, _ *Observer) { n += len(recs) })
	_ = obs.Observe(d.Body(), ObserveOptions{ChildList: true})

	d.AppendChild(d.GetElementByID("list"), d.CreateElement("li"))
	d.Flush()
	if n != 0 {
		t.Errorf("grandchild insert seen without subtree: %d records", n)
	}
	d.AppendChild(d.Body(), d.CreateElement("p"))
	d.Flush()
	if n != 1 {
		t.Errorf("direct child insert: got %d records, want 1", n)
	}
}

func TestObserver_AttributeFilterAndOldValue(t *testing.T) {
	d := mustParse(t)
	app := d.GetElementByID("app")
	var got []Record
	obs := d.NewObserver(func(recs []Record, _ *Observer) { got = append(got, recs...) })
	_ = obs.Observe(app, ObserveOptions{AttributeFilter: []string{"class"}, AttributeOldValue: true})

	d.SetAttr(app, "data-x", "1")
	d.AddClass(app, "open")
	d.Flush()

	if len(got) != 1 {
		t.Fatalf("records: got %d, want 1", len(got))
	}
	if got[0].AttributeName != "class" {
		t.Errorf("AttributeName: got %q, want %q", got[0].AttributeName, "class")
	}
	if got[0].OldValue != "top-bar_top-bar__x1 wide" {
		t.Errorf("OldValue: got %q", got[0].OldValue)
	}
}

func TestObserver_DisconnectDropsPending(t *testing.T) {
	d := mustParse(t)
	n := 0
	obs := d.NewObserver(func(recs []Record, _ *Observer) { n++ })
	_ = obs.Observe(d.Body(), ObserveOptions{ChildList: true, Subtree: true})

	d.AppendChild(d.Body(), d.CreateElement("p"))
	obs.Disconnect()
	d.Flush()
	if n != 0 {
		t.Errorf("callback ran after Disconnect: %d", n)
	}
	if obs.Observing() {
		t.Error("Observing: got true after Disconnect")
	}
}

func TestObserver_RequiresKind(t *testing.T) {
	d := mustParse(t)
	obs := d.NewObserver(nil)
	if err := obs.Observe(d.Body(), ObserveOptions{Subtree: true}); err == nil {
		t.Error("Observe without kinds: expected error")
	}
}

func TestFlush_CascadesCallbackMutations(t *testing.T) {
	d := mustParse(t)
	list := d.GetElementByID("list")
	seen := 0
	obs := d.NewObserver(func(recs []Record, _ *Observer) {
		seen += len(recs)
		if seen < 3 {
			d.AppendChild(list, d.CreateElement("li"))
		}
	})
	_ = obs.Observe(list, ObserveOptions{ChildList: true})
	d.AppendChild(list, d.CreateElement("li"))

	if calls := d.Flush(); calls != 3 {
		t.Errorf("Flush: got %d callbacks, want 3", calls)
	}
	if d.Pending() {
		t.Error("Pending after Flush")
	}
}

func TestFlush_PanicIsContained(t *testing.T) {
	d := mustParse(t)
	ok := false
	bad := d.NewObserver(func([]Record, *Observer) { panic("boom") })
	good := d.NewObserver(func([]Record, *Observer) { ok = true })
	_ = bad.Observe(d.Body(), ObserveOptions{ChildList: true})
	_ = good.Observe(d.Body(), ObserveOptions{ChildList: true})
	d.AppendChild(d.Body(), d.CreateElement("p"))
	d.Flush()
	if !ok {
		t.Error("second observer not called after first panicked")
	}
}

func TestStyle(t *testing.T) {
	d := mustParse(t)
	el := d.CreateElement("div")
	d.SetStyle(el, "display", "none")
	d.SetStyle(el, "cursor", "pointer")
	if got := Style(el, "display"); got != "none" {
		t.Errorf("Style(display): got %q, want none", got)
	}
	d.SetStyle(el, "display", "")
	if got := AttrOr(el, "style", ""); got != "cursor: pointer;" {
		t.Errorf("style attr: got %q", got)
	}
	d.SetStyle(el, "cursor", "")
	if _, ok := Attr(el, "style"); ok {
		t.Error("empty style attribute not removed")
	}
}

func TestSetInnerHTMLAndText(t *testing.T) {
	d := mustParse(t)
	list := d.GetElementByID("list")
	if err := d.SetInnerHTML(list, `<li>a</li><li>b</li>`); err != nil {
		t.Fatalf("SetInnerHTML: %v", err)
	}
	if got := len(Children(list)); got != 2 {
		t.Fatalf("children: got %d, want 2", got)
	}
	d.SetText(list, "plain")
	if got := InnerHTML(list); got != "plain" {
		t.Errorf("InnerHTML: got %q, want plain", got)
	}
}

func TestJournal_InboundSuppressed(t *testing.T) {
	j := &captureJournal{}
	d := mustParse(t, WithJournal(j))

	d.Inbound(func() {
		d.AppendChild(d.Body(), d.CreateElement("p"))
		d.DispatchEvent(Event{Type: "modalopen"})
	})
	if len(j.records) != 0 || len(j.events) != 0 {
		t.Fatalf("inbound changes journaled: %d records, %d events", len(j.records), len(j.events))
	}

	d.AppendChild(d.Body(), d.CreateElement("p"))
	_ = d.Dispatch("toastopen", map[string]string{"id": "x"})
	if len(j.records) != 1 || len(j.events) != 1 {
		t.Fatalf("local changes: got %d records, %d events, want 1 and 1", len(j.records), len(j.events))
	}
	if string(j.events[0].Detail) != `{"id":"x"}` {
		t.Errorf("Detail: got %s", j.events[0].Detail)
	}
}

func TestEvents_Bubble(t *testing.T) {
	d := mustParse(t)
	app := d.GetElementByID("app")
	span := QueryFirst(app, ByTag("span"))

	var trace []string
	d.On(app, "click", func(Event) { trace = append(trace, "app") })
	off := d.On(span, "click", func(Event) { trace = append(trace, "span") })
	d.AddEventListener("click", func(Event) { trace = append(trace, "window") })

	d.DispatchEvent(Event{Type: "click", Target: span})
	if len(trace) != 3 || trace[0] != "span" || trace[1] != "app" || trace[2] != "window" {
		t.Fatalf("bubble order: got %v", trace)
	}

	off()
	trace = nil
	d.DispatchEvent(Event{Type: "click", Target: span})
	if len(trace) != 2 {
		t.Errorf("after remove: got %v", trace)
	}
}

func TestInsertNodes_MovesExisting(t *testing.T) {
	d := mustParse(t)
	list := d.GetElementByID("list")
	a, b := d.CreateElement("li"), d.CreateElement("li")
	d.AppendChild(list, a)
	d.AppendChild(list, b)
	d.Before(a, b)
	if list.FirstChild != b || b.NextSibling != a {
		t.Error("Before did not move b ahead of a")
	}
}
