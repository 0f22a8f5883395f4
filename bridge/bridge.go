package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/ftlext/idgen"
	"github.com/hazyhaar/ftlext/mutation"
	"github.com/hazyhaar/ftlext/telemetry"
)

// Sink receives what the page reports. session.Runner is one.
type Sink interface {
	Snapshot(*mutation.Snapshot) bool
	Batch(*mutation.Batch) bool
}

// target is where relay calls are evaluated.
type target interface {
	Eval(ctx context.Context, js string, args ...any) ([]byte, error)
	InsertText(ctx context.Context, text string) error
}

type rodTarget struct{ page *rod.Page }

func (r rodTarget) Eval(ctx context.Context, js string, args ...any) ([]byte, error) {
	res, err := r.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return nil, err
	}
	return json.Marshal(res.Value)
}

func (r rodTarget) InsertText(ctx context.Context, text string) error {
	return r.page.Context(ctx).InsertText(text)
}

const writeTimeout = 10 * time.Second

type op struct {
	name    string
	timeout time.Duration
	run     func(ctx context.Context, t target) error
}

// Bridge is the live page of a session runner. Commits and actions are
// queued in call order and sent by one goroutine; layout reads wait for
// the calls queued before them.
type Bridge struct {
	mgr    *Manager
	cfg    Config
	url    string
	logger *slog.Logger

	mu     sync.Mutex
	tab    *Tab
	target target
	sink   Sink
	queue  []op
	wake   chan struct{}
}

// New creates a Bridge that opens pageURL in the manager's browser.
func New(mgr *Manager, pageURL string) *Bridge {
	return &Bridge{
		mgr:    mgr,
		cfg:    mgr.cfg,
		url:    pageURL,
		logger: mgr.cfg.Logger,
		wake:   make(chan struct{}, 1),
	}
}

// Run starts Chrome, opens the page and relays until ctx is done. The
// tab is reopened whenever Chrome is recycled.
func (b *Bridge) Run(ctx context.Context, sink Sink) error {
	b.mu.Lock()
	b.sink = sink
	b.mu.Unlock()

	if _, err := b.mgr.Start(ctx); err != nil {
		return err
	}
	defer b.mgr.Close()

	b.mgr.OnRecycle(func(*rod.Browser) {
		if err := b.open(ctx); err != nil {
			b.logger.Error("bridge: reopen after recycle", "error", err)
		}
	})
	if err := b.open(ctx); err != nil {
		return err
	}
	b.send(ctx)

	b.mu.Lock()
	tab := b.tab
	b.tab, b.target = nil, nil
	b.mu.Unlock()
	if tab != nil {
		_ = tab.Close()
	}
	return nil
}

func (b *Bridge) open(ctx context.Context) error {
	tab, err := OpenTab(ctx, b.mgr, b.url, b.handle)
	if err != nil {
		return err
	}
	b.mu.Lock()
	old := b.tab
	b.tab, b.target = tab, rodTarget{page: tab.Page}
	b.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	b.logger.Info("bridge: tab open", "url", b.url, "tab", tab.ID)
	return nil
}

// handle decodes one relay payload and passes it on.
func (b *Bridge) handle(tab *Tab, payload string) {
	var env mutation.Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		telemetry.RelayErrors.Inc()
		b.logger.Warn("bridge: bad relay payload", "error", err)
		return
	}
	snap, batch, err := env.Decode()
	if err != nil {
		telemetry.RelayErrors.Inc()
		b.logger.Warn("bridge: bad relay payload", "type", env.Type, "error", err)
		return
	}

	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()
	if sink == nil {
		return
	}
	switch {
	case snap != nil:
		if snap.ID == "" {
			snap.ID = idgen.New()
		}
		snap.PageID = tab.ID
		sink.Snapshot(snap)
	case batch != nil:
		if batch.ID == "" {
			batch.ID = idgen.New()
		}
		batch.PageID = tab.ID
		sink.Batch(batch)
	}
}

func (b *Bridge) enqueue(o op) {
	b.mu.Lock()
	b.queue = append(b.queue, o)
	b.mu.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Bridge) next() (op, target, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return op{}, nil, false
	}
	o := b.queue[0]
	b.queue[0] = op{}
	b.queue = b.queue[1:]
	return o, b.target, true
}

// send runs queued calls until ctx is done.
func (b *Bridge) send(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.wake:
		}
		for {
			o, t, ok := b.next()
			if !ok {
				break
			}
			if t == nil {
				o.run(ctx, nil)
				continue
			}
			octx, cancel := context.WithTimeout(ctx, o.timeout)
			err := o.run(octx, t)
			cancel()
			if err != nil {
				telemetry.RelayErrors.Inc()
				b.logger.Warn("bridge: relay call failed", "op", o.name, "error", err)
			}
		}
	}
}

// call queues a write.
func (b *Bridge) call(name, js string, args ...any) {
	b.enqueue(op{name: name, timeout: writeTimeout, run: func(ctx context.Context, t target) error {
		if t == nil {
			return nil
		}
		_, err := t.Eval(ctx, js, args...)
		return err
	}})
}

// read queues a read returning numbers and waits for it.
func (b *Bridge) read(name, js string, args ...any) []float64 {
	reply := make(chan []float64, 1)
	b.enqueue(op{name: name, timeout: b.cfg.ReadTimeout, run: func(ctx context.Context, t target) error {
		var v []float64
		defer func() { reply <- v }()
		if t == nil {
			return nil
		}
		raw, err := t.Eval(ctx, js, args...)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		return nil
	}})

	timer := time.NewTimer(2 * b.cfg.ReadTimeout)
	defer timer.Stop()
	select {
	case v := <-reply:
		return v
	case <-timer.C:
		b.logger.Warn("bridge: read timed out", "op", name)
		return nil
	}
}

func at(v []float64, i int) float64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}

// Commit queues b for the relay. Batches of an older document are ignored
// by the relay.
func (b *Bridge) Commit(batch *mutation.Batch) {
	b.enqueue(op{name: "apply", timeout: writeTimeout, run: func(ctx context.Context, t target) error {
		if t == nil {
			return nil
		}
		raw, err := t.Eval(ctx, `(b) => window.__ftlext ? window.__ftlext.apply(b) : -2`, batch)
		if err != nil {
			return err
		}
		var n int
		if err := json.Unmarshal(raw, &n); err == nil && n < 0 {
			b.logger.Debug("bridge: batch not applied", "seq", batch.Seq, "reason", n)
		}
		return nil
	}})
}

func (b *Bridge) Viewport() (float64, float64) {
	v := b.read("viewport", `() => window.__ftlext ? window.__ftlext.viewport() : [0, 0]`)
	return at(v, 0), at(v, 1)
}

func (b *Bridge) Width(id string) float64 {
	return at(b.read("width", `(id) => [window.__ftlext ? window.__ftlext.width(id) : 0]`, id), 0)
}

func (b *Bridge) VideoSize(id string) (float64, float64) {
	v := b.read("video-size", `(id) => window.__ftlext ? window.__ftlext.videoSize(id) : [0, 0]`, id)
	return at(v, 0), at(v, 1)
}

func (b *Bridge) Click(id string) {
	b.call("click", `(id) => window.__ftlext && window.__ftlext.click(id)`, id)
}

// TypeText puts the caret at the end of the element and inserts text as
// trusted input.
func (b *Bridge) TypeText(id, text string) {
	b.enqueue(op{name: "type", timeout: writeTimeout, run: func(ctx context.Context, t target) error {
		if t == nil {
			return nil
		}
		raw, err := t.Eval(ctx, `(id) => !!(window.__ftlext && window.__ftlext.caretToEnd(id))`, id)
		if err != nil {
			return err
		}
		var focused bool
		if err := json.Unmarshal(raw, &focused); err != nil || !focused {
			b.logger.Debug("bridge: type target not focused", "id", id)
			return nil
		}
		return t.InsertText(ctx, text)
	}})
}

func (b *Bridge) ScrollToBottom(id string) {
	b.call("scroll", `(id) => window.__ftlext && window.__ftlext.scrollToBottom(id)`, id)
}

func (b *Bridge) DispatchWindow(event string) {
	b.call("window-event", `(name) => window.__ftlext && window.__ftlext.dispatchWindow(name)`, event)
}
