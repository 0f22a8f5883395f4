package engine

import (
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ftlext/dom"
	"github.com/hazyhaar/ftlext/eventloop"
)

type session struct {
	ctx   *Context
	doc   *dom.Document
	loop  *eventloop.Loop
	clock *eventloop.ManualClock
}

func newSession(t *testing.T, markup string) *session {
	t.Helper()
	doc, err := dom.ParseString(markup)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	clk := eventloop.NewManualClock(time.Unix(1700000000, 0))
	loop := eventloop.New(eventloop.WithClock(clk))
	loop.OnCheckpoint(func() { doc.Flush() })
	return &session{ctx: New(doc, loop), doc: doc, loop: loop, clock: clk}
}

// advance moves the clock and runs whatever became due.
func (s *session) advance(d time.Duration) {
	s.clock.Advance(d)
	s.loop.RunPending()
}

func (s *session) el(tag, class string) *html.Node {
	n := s.doc.CreateElement(tag)
	if class != "" {
		s.doc.SetAttr(n, "class", class)
	}
	return n
}

const chatPage = `<html><head></head><body>
<div class="chat_chat__Xy12">
  <div id="chat-messages" class="chat-messages_chat-messages__Ab9"></div>
</div>
<div class="top-bar_top-bar__T1"><span class="top-bar-user_display-name__Q"><b class="icon_icon__I">x</b></span></div>
</body></html>`

func TestResolve_AbsentNotCached(t *testing.T) {
	s := newSession(t, chatPage)
	for i := 0; i < 3; i++ {
		if cls, ok := s.ctx.Resolve("no-such_region", nil, true); ok {
			t.Fatalf("Resolve(no-such_region): got %q, want absent", cls)
		}
	}
	if s.ctx.Cache.Len() != 0 {
		t.Errorf("cache: got %d entries, want 0", s.ctx.Cache.Len())
	}
}

func TestResolve_CacheMonotonic(t *testing.T) {
	s := newSession(t, chatPage)
	cls, ok := s.ctx.Resolve("chat-messages_chat-messages", nil, true)
	if !ok || cls != "chat-messages_chat-messages__Ab9" {
		t.Fatalf("Resolve: got %q %v", cls, ok)
	}

	s.doc.Remove(s.doc.GetElementByID("chat-messages"))

	if got, _ := s.ctx.Resolve("chat-messages_chat-messages", nil, true); got != cls {
		t.Errorf("cached Resolve after removal: got %q, want %q", got, cls)
	}
	if _, ok := s.ctx.Resolve("chat-messages_chat-messages", nil, false); ok {
		t.Error("uncached Resolve after removal: want absent")
	}
	if got, _ := s.ctx.Cache.Get("chat-messages_chat-messages"); got != cls {
		t.Errorf("cache entry: got %q, want %q", got, cls)
	}
}

func TestResolve_PrefixMustStartClass(t *testing.T) {
	s := newSession(t, `<html><body><div class="x-chat_chat__Z"></div></body></html>`)
	if _, ok := s.ctx.Resolve("chat_chat", nil, true); ok {
		t.Error("Resolve matched a class that only contains the prefix")
	}
}

func TestMatchPrefix(t *testing.T) {
	s := newSession(t, chatPage)
	chat := s.ctx.Find("chat_chat", nil)
	if chat == nil {
		t.Fatal("Find(chat_chat): got nil")
	}

	cls, ok := s.ctx.MatchPrefix("chat-messages_chat-messages", chat, false)
	if !ok || cls != "chat-messages_chat-messages__Ab9" {
		t.Fatalf("MatchPrefix via inner markup: got %q %v", cls, ok)
	}
	topBar := s.ctx.Find("top-bar_top-bar", nil)
	if !s.ctx.ContainsPrefix("chat-messages_chat-messages", topBar, true) {
		t.Error("cache hit must short-circuit regardless of element")
	}
	if s.ctx.ContainsPrefix("chat-messages_chat-messages", topBar, false) {
		t.Error("uncached ContainsPrefix on unrelated element: got true")
	}
	if !ContainsClass(topBar, "icon_icon__I") {
		t.Error("ContainsClass(descendant): got false")
	}
}

func TestFindAll_Scoped(t *testing.T) {
	s := newSession(t, `<html><body>
<ul class="list_list__1"><li class="item_item__a">1</li><li class="item_item__a">2</li></ul>
<li class="item_item__a">outside</li>
</body></html>`)
	list := s.ctx.Find("list_list", nil)
	if got := len(s.ctx.FindAll("item_item", list)); got != 2 {
		t.Errorf("FindAll scoped: got %d, want 2", got)
	}
	if got := len(s.ctx.FindAll("item_item", nil)); got != 3 {
		t.Errorf("FindAll document: got %d, want 3", got)
	}
	if got := s.ctx.FindAll("missing_missing", nil); len(got) != 0 {
		t.Errorf("FindAll missing: got %d", len(got))
	}
}

func TestTrack_TwiceGivesOneCallback(t *testing.T) {
	s := newSession(t, chatPage)
	msgs := s.doc.GetElementByID("chat-messages")
	key := Key{Node: msgs}

	first, second := 0, 0
	s.ctx.Registry.Track(key, WatchOptions{}, func(*Watcher, []dom.Record) { first++ })
	s.ctx.Registry.Track(key, WatchOptions{}, func(*Watcher, []dom.Record) { second++ })

	s.doc.AppendChild(msgs, s.el("div", "m"))
	s.doc.Flush()

	if first+second != 1 || second != 1 {
		t.Errorf("callbacks: first=%d second=%d, want 0 and 1", first, second)
	}
	if s.ctx.Registry.Len() != 1 || s.ctx.Registry.Active() != 1 {
		t.Errorf("registry: len=%d active=%d, want 1 and 1", s.ctx.Registry.Len(), s.ctx.Registry.Active())
	}
	if s.ctx.Stats().WatchersReplaced != 1 {
		t.Errorf("WatchersReplaced: got %d, want 1", s.ctx.Stats().WatchersReplaced)
	}
}

func TestUntrack_Idempotent(t *testing.T) {
	s := newSession(t, chatPage)
	msgs := s.doc.GetElementByID("chat-messages")
	key := Key{Node: msgs, Tag: "t"}
	n := 0
	s.ctx.Registry.Track(key, WatchOptions{}, func(*Watcher, []dom.Record) { n++ })
	s.ctx.Registry.Untrack(key)
	s.ctx.Registry.Untrack(key)
	s.ctx.Registry.Untrack(Key{Node: s.doc.Body()})

	s.doc.AppendChild(msgs, s.el("div", ""))
	s.doc.Flush()
	if n != 0 {
		t.Errorf("callback after Untrack: %d", n)
	}
	if s.ctx.Registry.Active() != 0 {
		t.Errorf("Active: got %d, want 0", s.ctx.Registry.Active())
	}
}

func TestPauseDuringCallback(t *testing.T) {
	s := newSession(t, chatPage)
	msgs := s.doc.GetElementByID("chat-messages")

	n := 0
	w := s.ctx.Registry.Track(Key{Node: msgs}, WatchOptions{PauseDuringCallback: true}, func(w *Watcher, _ []dom.Record) {
		n++
		s.doc.AppendChild(msgs, s.el("p", "self"))
	})

	s.doc.AppendChild(msgs, s.el("div", ""))
	s.doc.Flush()
	if n != 1 {
		t.Fatalf("callback count: got %d, want 1 (own mutation re-triggered)", n)
	}
	if !w.Active() {
		t.Fatal("watcher not reconnected after callback")
	}

	s.doc.AppendChild(msgs, s.el("div", ""))
	s.doc.Flush()
	if n != 2 {
		t.Errorf("after reconnect: got %d, want 2", n)
	}
}

func TestPauseDuringCallback_PanicReconnects(t *testing.T) {
	s := newSession(t, chatPage)
	msgs := s.doc.GetElementByID("chat-messages")

	n := 0
	w := s.ctx.Registry.Track(Key{Node: msgs}, WatchOptions{PauseDuringCallback: true}, func(*Watcher, []dom.Record) {
		n++
		panic("handler bug")
	})
	s.doc.AppendChild(msgs, s.el("div", ""))
	s.doc.Flush()
	if !w.Active() {
		t.Fatal("watcher lost after panicking callback")
	}
	s.doc.AppendChild(msgs, s.el("div", ""))
	s.doc.Flush()
	if n != 2 {
		t.Errorf("callback count: got %d, want 2", n)
	}
	if s.ctx.Stats().CallbackPanics != 2 {
		t.Errorf("CallbackPanics: got %d, want 2", s.ctx.Stats().CallbackPanics)
	}
}

func TestAttributeWatcher(t *testing.T) {
	s := newSession(t, chatPage)
	chat := s.ctx.Find("chat_chat", nil)
	var old []string
	s.ctx.Registry.Track(Key{Node: chat, Tag: "theatre"}, WatchOptions{Attributes: true}, func(_ *Watcher, recs []dom.Record) {
		for _, r := range recs {
			old = append(old, r.OldValue)
		}
	})
	s.doc.AppendChild(chat, s.el("div", ""))
	s.doc.SetAttr(chat, "style", "z-index: 2;")
	s.doc.AddClass(chat, "cinema")
	s.doc.Flush()
	if len(old) != 1 || old[0] != "chat_chat__Xy12" {
		t.Errorf("class records: got %v", old)
	}
}

func TestOnChildrenAdded_Once(t *testing.T) {
	s := newSession(t, chatPage)
	msgs := s.doc.GetElementByID("chat-messages")

	var got []*html.Node
	w := s.ctx.OnChildrenAdded(msgs, func(n *html.Node) { got = append(got, n) }, AddedOptions{Once: true})

	a, b := s.el("div", "a"), s.el("div", "b")
	s.doc.AppendChild(msgs, a)
	s.doc.AppendChild(msgs, b)
	s.doc.Flush()

	if len(got) != 1 || got[0] != a {
		t.Fatalf("callbacks: got %d, want 1 for the first node", len(got))
	}
	if w.Active() {
		t.Error("watcher still active after once")
	}

	s.doc.AppendChild(msgs, s.el("div", "c"))
	s.doc.Flush()
	if len(got) != 1 {
		t.Errorf("callbacks after later batch: got %d, want 1", len(got))
	}
}

func TestOnChildrenAdded_ElementsOnlyNoDedup(t *testing.T) {
	s := newSession(t, chatPage)
	msgs := s.doc.GetElementByID("chat-messages")

	var got []string
	s.ctx.OnChildrenAdded(msgs, func(n *html.Node) { got = append(got, dom.ClassName(n)) }, AddedOptions{})

	s.doc.AppendChild(msgs, s.doc.CreateText("hello"))
	transient := s.el("div", "transient")
	s.doc.AppendChild(msgs, transient)
	s.doc.Remove(transient)
	s.doc.AppendChild(msgs, s.el("div", "kept"))
	s.doc.Flush()

	if len(got) != 2 || got[0] != "transient" || got[1] != "kept" {
		t.Errorf("added: got %v, want [transient kept]", got)
	}
}

func TestOnChildrenAdded_Subtree(t *testing.T) {
	s := newSession(t, chatPage)
	chat := s.ctx.Find("chat_chat", nil)
	msgs := s.doc.GetElementByID("chat-messages")

	direct, deep := 0, 0
	s.ctx.OnChildrenAdded(chat, func(*html.Node) { direct++ }, AddedOptions{})
	s.ctx.OnChildrenAdded(chat, func(*html.Node) { deep++ }, AddedOptions{Subtree: true})
	s.doc.AppendChild(msgs, s.el("div", ""))
	s.doc.Flush()
	if direct != 0 || deep != 1 {
		t.Errorf("direct=%d deep=%d, want 0 and 1", direct, deep)
	}
}

func TestWaitFor_FiresOnce(t *testing.T) {
	s := newSession(t, `<html><body><section class="panel_panel__P"></section></body></html>`)
	root := s.ctx.Find("panel_panel", nil)

	var found []*html.Node
	w := s.ctx.WaitFor(root, "player_player", func(n *html.Node) { found = append(found, n) }, true)

	s.doc.AppendChild(root, s.el("div", "unrelated"))
	s.doc.Flush()
	if len(found) != 0 {
		t.Fatal("callback fired without a target")
	}

	first := s.el("div", "player_player__H1")
	s.doc.AppendChild(root, first)
	s.doc.Flush()
	s.doc.AppendChild(root, s.el("div", "player_player__H1"))
	s.doc.Flush()

	if len(found) != 1 || found[0] != first {
		t.Fatalf("found: got %d, want exactly the first target", len(found))
	}
	if w.Active() {
		t.Error("watcher still active after stopAfterFirst")
	}
}

func TestWaitFor_KeepsFiringWithoutStop(t *testing.T) {
	s := newSession(t, `<html><body><section class="panel_panel__P"><div class="player_player__H1"></div></section></body></html>`)
	root := s.ctx.Find("panel_panel", nil)
	n := 0
	s.ctx.WaitFor(root, "player_player", func(*html.Node) { n++ }, false)
	for i := 0; i < 3; i++ {
		s.doc.AppendChild(root, s.el("span", ""))
		s.doc.Flush()
	}
	if n != 3 {
		t.Errorf("callbacks: got %d, want 3", n)
	}
}

func TestWaitFor_DetachedRootDisconnects(t *testing.T) {
	s := newSession(t, `<html><body><main><section class="panel_panel__P"></section></main></body></html>`)
	root := s.ctx.Find("panel_panel", nil)
	w := s.ctx.WaitFor(root, "player_player", func(*html.Node) {}, true)

	s.doc.Remove(root)
	s.doc.AppendChild(root, s.el("div", "late"))
	s.doc.Flush()

	if w.Active() {
		t.Error("watcher on detached root still active")
	}
	if _, ok := s.ctx.Registry.Lookup(Key{Node: root, Tag: "player_player"}); ok {
		t.Error("detached watcher still registered")
	}
}

func TestWaitFor_SameRootReplaces(t *testing.T) {
	s := newSession(t, `<html><body><section class="panel_panel__P"></section></body></html>`)
	root := s.ctx.Find("panel_panel", nil)
	a, b := 0, 0
	s.ctx.WaitFor(root, "player_player", func(*html.Node) { a++ }, true)
	s.ctx.WaitFor(root, "player_player", func(*html.Node) { b++ }, true)
	s.doc.AppendChild(root, s.el("div", "player_player__1"))
	s.doc.Flush()
	if a != 0 || b != 1 {
		t.Errorf("a=%d b=%d, want 0 and 1", a, b)
	}
}

func TestBootstrap_DelayedParent(t *testing.T) {
	s := newSession(t, `<html><body><header class="top-bar_top-bar__T"></header></body></html>`)
	body := s.doc.Body()

	var user, player *html.Node
	b := s.ctx.Bootstrap([]WatchRequest{
		{ParentPrefix: "top-bar_top-bar", TargetPrefix: "top-bar-user_display-name", Then: func(n *html.Node) { user = n }},
		{ParentPrefix: "main-panel_main-panel", TargetPrefix: "live-stream-player_live-stream-player", Then: func(n *html.Node) { player = n }, StopAfterFirst: true},
	}, DefaultBootstrapTimeout)

	if got := b.Resolved(); len(got) != 1 {
		t.Fatalf("resolved at start: got %v, want the top bar only", got)
	}
	if !b.Watching() {
		t.Fatal("body watcher not installed")
	}

	var panel *html.Node
	s.loop.AfterFunc(5*time.Second, func() {
		panel = s.el("div", "main-panel_main-panel__M")
		s.doc.AppendChild(body, panel)
	})
	s.advance(5 * time.Second)

	if !b.Done() || b.Watching() {
		t.Fatal("body watcher not retired after all parents resolved")
	}
	if len(b.Pending()) != 0 {
		t.Errorf("pending: %v", b.Pending())
	}

	s.loop.Post(func() {
		s.doc.AppendChild(panel, s.el("div", "live-stream-player_live-stream-player__L"))
		s.doc.AppendChild(s.ctx.Find("top-bar_top-bar", nil), s.el("span", "top-bar-user_display-name__U"))
	})
	s.advance(time.Minute)

	if player == nil || user == nil {
		t.Errorf("targets: player=%v user=%v, want both found", player != nil, user != nil)
	}
	if b.TimedOut() {
		t.Error("timeout fired after completion")
	}
	if s.loop.Len() != 0 {
		t.Errorf("loop still holds %d tasks or timers", s.loop.Len())
	}
}

func TestBootstrap_SharedParentNames(t *testing.T) {
	s := newSession(t, `<html><body><div class="select_select__S"></div></body></html>`)
	a, b := 0, 0
	bs := s.ctx.Bootstrap([]WatchRequest{
		{Name: "snapshot", ParentPrefix: "select_select", TargetPrefix: "select_options", Then: func(*html.Node) { a++ }, StopAfterFirst: true},
		{Name: "open", ParentPrefix: "select_select", TargetPrefix: "select_options", Then: func(*html.Node) { b++ }},
	}, time.Second)
	if !bs.Done() {
		t.Fatal("bootstrap should finish immediately")
	}
	parent := s.ctx.Find("select_select", nil)
	s.doc.AppendChild(parent, s.el("ul", "select_options__O"))
	s.doc.Flush()
	if a != 1 || b != 1 {
		t.Errorf("a=%d b=%d, want both requests to fire", a, b)
	}
}

func TestBootstrap_Timeout(t *testing.T) {
	s := newSession(t, `<html><body><header class="top-bar_top-bar__T"></header></body></html>`)
	var timedOut bool
	b := s.ctx.Bootstrap([]WatchRequest{
		{ParentPrefix: "top-bar_top-bar", TargetPrefix: "top-bar-user_display-name"},
		{Name: "never", ParentPrefix: "gone_gone", TargetPrefix: "x_x"},
	}, 30*time.Second)
	b.OnDone(func(to bool) { timedOut = to })

	s.advance(29 * time.Second)
	if b.Done() {
		t.Fatal("retired before timeout")
	}
	s.advance(time.Second)
	if !b.Done() || !b.TimedOut() || !timedOut {
		t.Fatal("timeout did not retire the coordinator")
	}
	if p := b.Pending(); len(p) != 1 || p[0] != "never" {
		t.Errorf("pending: got %v, want [never]", p)
	}
	if w := b.Waiter("top-bar_top-bar>top-bar-user_display-name"); !w.Active() {
		t.Error("resolved request lost its target watcher at timeout")
	}

	s.doc.AppendChild(s.doc.Body(), s.el("div", "gone_gone__G"))
	s.doc.Flush()
	if len(b.Resolved()) != 1 {
		t.Error("request resolved after timeout")
	}
}

func TestPokeFind(t *testing.T) {
	s := newSession(t, `<html><body><div id="modal"></div></body></html>`)
	modal := s.doc.GetElementByID("modal")

	var hit *html.Node
	s.ctx.PokeFind(100*time.Millisecond, "recipe_table", modal, func(n *html.Node) { hit = n })
	s.loop.AfterFunc(50*time.Millisecond, func() {
		s.doc.AppendChild(modal, s.el("table", "recipe_table__R"))
	})
	s.advance(100 * time.Millisecond)
	if hit == nil {
		t.Fatal("success path: element not delivered")
	}

	missed := false
	s.ctx.PokeFind(100*time.Millisecond, "never_there", modal, func(*html.Node) { missed = true })
	s.advance(100 * time.Millisecond)
	if missed {
		t.Error("still-absent path: callback must not run")
	}

	cancelled := false
	tm := s.ctx.Poke(time.Second, func() { cancelled = true })
	tm.Stop()
	s.advance(time.Second)
	if cancelled {
		t.Error("stopped poke still ran")
	}
}

func TestModuleMap(t *testing.T) {
	s := newSession(t, `<html><head><style>.chat_chat__Xy12 .chat-messages_list__9a{color:red}</style></head><body></body></html>`)
	m := s.ctx.ModuleMap()
	if m["chat_chat"] != "chat_chat__Xy12" || m["chat-messages_list"] != "chat-messages_list__9a" {
		t.Errorf("ModuleMap: got %v", m)
	}
}
