// Package eventloop runs every DOM read, write and watcher callback of a page
// session on a single goroutine, the way a browser runs content scripts.
//
// Work enters the loop through Post (fire and forget), Do (post and wait) or
// AfterFunc (deferred, cancellable). After each task the registered
// checkpoint hooks run; the session uses them to deliver mutation batches and
// to flush outbound changes to the page.
package eventloop

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrClosed is returned by Do when the loop has stopped.
var ErrClosed = errors.New("eventloop: closed")

// Loop is a single-goroutine task runner with timers.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	timers  timerHeap
	seq     uint64
	closed  bool
	wake    chan struct{}
	clock   Clock
	hooks   []func()
	logger  *slog.Logger
	running bool
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock replaces the wall clock. Tests pass a *ManualClock.
func WithClock(c Clock) Option { return func(l *Loop) { l.clock = c } }

// WithLogger sets the logger used for recovered task panics.
func WithLogger(logger *slog.Logger) Option { return func(l *Loop) { l.logger = logger } }

// New creates a Loop. Call Run to start processing, or drive it manually
// with RunPending.
func New(opts ...Option) *Loop {
	l := &Loop{
		wake:   make(chan struct{}, 1),
		clock:  wallClock{},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Now returns the loop's notion of the current time.
func (l *Loop) Now() time.Time { return l.clock.Now() }

// OnCheckpoint registers fn to run after every task. Hooks run in
// registration order on the loop goroutine.
func (l *Loop) OnCheckpoint(fn func()) {
	l.mu.Lock()
	l.hooks = append(l.hooks, fn)
	l.mu.Unlock()
}

// Post queues fn. It reports false if the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
	return true
}

// Do posts fn and waits for it to complete on the loop goroutine. It must
// not be called from the loop goroutine itself.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	if !l.Post(func() { done <- fn() }) {
		return ErrClosed
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AfterFunc schedules fn to run on the loop after d. The returned Timer can
// be stopped any time before it fires.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	l.mu.Lock()
	l.seq++
	t := &Timer{loop: l, fn: fn, when: l.clock.Now().Add(d), seq: l.seq, index: -1}
	if !l.closed {
		heap.Push(&l.timers, t)
	}
	l.mu.Unlock()
	l.signal()
	return t
}

// Run processes tasks and timers until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("eventloop: already running")
	}
	l.running = true
	l.mu.Unlock()

	defer l.shutdown()

	for {
		l.RunPending()

		var timerC <-chan time.Time
		if d, ok := l.nextDeadline(); ok {
			t := time.NewTimer(d)
			timerC = t.C
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-l.wake:
				t.Stop()
			case <-timerC:
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// RunPending runs every queued task and every timer that is due, including
// tasks queued by those tasks, and returns how many ran. The checkpoint
// hooks run after each one.
func (l *Loop) RunPending() int {
	n := 0
	for {
		fn := l.next()
		if fn == nil {
			return n
		}
		l.runTask(fn)
		n++
	}
}

// Len reports queued tasks plus armed timers.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue) + len(l.timers)
}

func (l *Loop) next() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) > 0 {
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		return fn
	}
	if len(l.timers) > 0 && !l.timers[0].when.After(l.clock.Now()) {
		t := heap.Pop(&l.timers).(*Timer)
		t.fired = true
		return t.fn
	}
	return nil
}

func (l *Loop) runTask(fn func()) {
	func() {
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("eventloop: task panicked", "panic", r)
			}
		}()
		fn()
	}()

	l.mu.Lock()
	hooks := l.hooks
	l.mu.Unlock()
	for _, h := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					l.logger.Error("eventloop: checkpoint panicked", "panic", r)
				}
			}()
			h()
		}()
	}
}

// shutdown closes the loop, runs the tasks already queued and drops the
// armed timers.
func (l *Loop) shutdown() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			break
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()
		l.runTask(fn)
	}
	for _, t := range l.timers {
		t.index = -1
	}
	l.timers = nil
	l.queue = nil
	l.running = false
	l.mu.Unlock()
}

func (l *Loop) nextDeadline() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.timers) == 0 {
		return 0, false
	}
	d := l.timers[0].when.Sub(l.clock.Now())
	if d < 0 {
		d = 0
	}
	return d, true
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Timer is a pending AfterFunc callback.
type Timer struct {
	loop  *Loop
	fn    func()
	when  time.Time
	seq   uint64
	index int
	fired bool
}

// Stop cancels the timer. It reports whether the call prevented the
// callback from running.
func (t *Timer) Stop() bool {
	if t == nil {
		return false
	}
	l := t.loop
	l.mu.Lock()
	defer l.mu.Unlock()
	if t.fired || t.index < 0 {
		return false
	}
	heap.Remove(&l.timers, t.index)
	return true
}

type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
