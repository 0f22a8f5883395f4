package bridge

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/ftlext/mutation"
)

type fakeTarget struct {
	mu     sync.Mutex
	calls  []string
	result string
}

func (f *fakeTarget) Eval(_ context.Context, js string, args ...any) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := js
	if i := strings.Index(js, "__ftlext."); i >= 0 {
		name = js[i+len("__ftlext."):]
		name = name[:strings.Index(name, "(")]
	}
	f.calls = append(f.calls, name)
	if f.result != "" {
		return []byte(f.result), nil
	}
	return []byte("true"), nil
}

func (f *fakeTarget) InsertText(_ context.Context, text string) error {
	f.mu.Lock()
	f.calls = append(f.calls, "insert "+text)
	f.mu.Unlock()
	return nil
}

func (f *fakeTarget) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestBridge(t *testing.T, tgt target) *Bridge {
	t.Helper()
	b := New(NewManager(Config{ReadTimeout: 200 * time.Millisecond}), "https://www.fishtank.live")
	b.target = tgt
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go b.send(ctx)
	return b
}

func waitCalls(t *testing.T, f *fakeTarget, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := f.Calls(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("calls: got %v, want %d", f.Calls(), n)
	return nil
}

func TestBridge_CallsKeepOrder(t *testing.T) {
	f := &fakeTarget{}
	b := newTestBridge(t, f)

	b.Commit(&mutation.Batch{Seq: 1})
	b.Click("p12")
	b.TypeText("p40", "@fishfan ")
	b.ScrollToBottom("p9")
	b.DispatchWindow("resize")

	got := waitCalls(t, f, 6)
	want := []string{"apply", "click", "caretToEnd", "insert @fishfan ", "scrollToBottom", "dispatchWindow"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls: got %v, want %v", got, want)
		}
	}
}

func TestBridge_Read(t *testing.T) {
	f := &fakeTarget{result: "[1920,1080]"}
	b := newTestBridge(t, f)
	if w, h := b.Viewport(); w != 1920 || h != 1080 {
		t.Errorf("Viewport: got %vx%v, want 1920x1080", w, h)
	}
}

func TestBridge_ReadWithoutTab(t *testing.T) {
	b := newTestBridge(t, nil)
	if w := b.Width("p3"); w != 0 {
		t.Errorf("Width: got %v, want 0", w)
	}
}

type captureSink struct {
	snaps   []*mutation.Snapshot
	batches []*mutation.Batch
}

func (c *captureSink) Snapshot(s *mutation.Snapshot) bool { c.snaps = append(c.snaps, s); return true }
func (c *captureSink) Batch(b *mutation.Batch) bool      { c.batches = append(c.batches, b); return true }

func TestBridge_Handle(t *testing.T) {
	b := New(NewManager(Config{}), "https://www.fishtank.live")
	sink := &captureSink{}
	b.sink = sink
	tab := &Tab{ID: "T1"}

	b.handle(tab, `{"type":"snapshot","data":{"id":"","page_url":"https://www.fishtank.live/","root":{"id":"p1","type":1,"tag":"html"},"timestamp":1}}`)
	b.handle(tab, `{"type":"batch","data":{"id":"","seq":1,"records":[{"op":"event","name":"modalopen","detail":"{}"}],"timestamp":2,"snapshot_ref":"s1"}}`)
	b.handle(tab, `not json`)
	b.handle(tab, `{"type":"other","data":{}}`)

	if len(sink.snaps) != 1 || sink.snaps[0].ID == "" || sink.snaps[0].PageID != "T1" || sink.snaps[0].Root.ID != "p1" {
		t.Errorf("snapshots: got %+v", sink.snaps)
	}
	if len(sink.batches) != 1 || sink.batches[0].SnapshotRef != "s1" || len(sink.batches[0].Events()) != 1 {
		t.Errorf("batches: got %+v", sink.batches)
	}
}

func TestShouldBlock(t *testing.T) {
	set := map[string]bool{"images": true, "media": true, "script": true}
	cases := map[string]bool{
		"Image":      true,
		"Media":      true,
		"Font":       false,
		"Stylesheet": false,
		"Script":     false,
		"Document":   false,
	}
	for typ, want := range cases {
		if got := shouldBlock(set, typ); got != want {
			t.Errorf("shouldBlock(%q): got %v, want %v", typ, got, want)
		}
	}
}

func TestRelayScript(t *testing.T) {
	// WHAT: the embedded relay talks to the binding this package registers.
	// WHY: a renamed binding silently cuts the page off.
	if !strings.Contains(relayJS, `"`+binding+`"`) {
		t.Errorf("relay does not reference binding %q", binding)
	}
	for _, fn := range []string{"apply(", "viewport:", "width:", "videoSize:", "click:", "caretToEnd:", "scrollToBottom:", "dispatchWindow:"} {
		if !strings.Contains(relayJS, fn) {
			t.Errorf("relay lacks %s", fn)
		}
	}
}
