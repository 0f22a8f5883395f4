package engine

import (
	"golang.org/x/net/html"

	"github.com/hazyhaar/ftlext/dom"
)

// Key identifies a tracked element. Tag separates independent purposes
// watching the same element; two Track calls with an equal Key replace one
// another.
type Key struct {
	Node *html.Node
	Tag  string
}

// WatchOptions selects what a watcher observes.
type WatchOptions struct {
	// Attributes switches from subtree child-list observation to
	// class-attribute observation of the element itself.
	Attributes bool
	// PauseDuringCallback disconnects the watcher while its callback runs so
	// the callback's own mutations do not trigger it again.
	PauseDuringCallback bool

	noSubtree bool
}

func (o WatchOptions) observe() dom.ObserveOptions {
	if o.Attributes {
		return dom.ObserveOptions{Attributes: true, AttributeFilter: []string{"class"}, AttributeOldValue: true}
	}
	return dom.ObserveOptions{ChildList: true, Subtree: !o.noSubtree}
}

// Handler receives the watcher and the batch that triggered it.
type Handler func(w *Watcher, records []dom.Record)

// Registry enforces at most one active watcher per Key.
type Registry struct {
	ctx      *Context
	watchers map[Key]*Watcher
	active   int
	replaced int
	panics   int
}

func newRegistry(c *Context) *Registry {
	return &Registry{ctx: c, watchers: make(map[Key]*Watcher)}
}

// Track installs a watcher for key, first disconnecting any watcher already
// registered under it.
func (r *Registry) Track(key Key, opts WatchOptions, fn Handler) *Watcher {
	if old, ok := r.watchers[key]; ok {
		old.Disconnect()
		r.replaced++
		r.ctx.debug("engine: watcher replaced", "tag", key.Tag)
	}
	w := r.start(key.Node, opts, fn)
	if w.active {
		w.key = key
		w.keyed = true
		r.watchers[key] = w
	}
	return w
}

// Watch installs a watcher that is not registered under any key.
func (r *Registry) Watch(target *html.Node, opts WatchOptions, fn Handler) *Watcher {
	return r.start(target, opts, fn)
}

// Untrack disconnects and forgets the watcher under key, if any.
func (r *Registry) Untrack(key Key) {
	if w, ok := r.watchers[key]; ok {
		w.Disconnect()
	}
}

// Lookup returns the active watcher under key.
func (r *Registry) Lookup(key Key) (*Watcher, bool) {
	w, ok := r.watchers[key]
	return w, ok
}

// Len returns the number of keyed watchers.
func (r *Registry) Len() int { return len(r.watchers) }

// Active returns the number of live watchers, keyed or not.
func (r *Registry) Active() int { return r.active }

func (r *Registry) start(target *html.Node, opts WatchOptions, fn Handler) *Watcher {
	w := &Watcher{reg: r, target: target, opts: opts, fn: fn}
	w.obs = r.ctx.Doc.NewObserver(func(recs []dom.Record, _ *dom.Observer) { w.handle(recs) })
	if err := w.obs.Observe(target, opts.observe()); err != nil {
		r.ctx.Logger.Warn("engine: observe failed", "error", err)
		return w
	}
	w.active = true
	r.active++
	return w
}

// Watcher is one live subscription created by the registry.
type Watcher struct {
	reg    *Registry
	key    Key
	keyed  bool
	target *html.Node
	opts   WatchOptions
	fn     Handler
	obs    *dom.Observer
	active bool
}

// Target returns the observed element.
func (w *Watcher) Target() *html.Node { return w.target }

// Key returns the registry key, or the zero Key for an unkeyed watcher.
func (w *Watcher) Key() Key { return w.key }

// Active reports whether the watcher is still connected.
func (w *Watcher) Active() bool { return w != nil && w.active }

// Disconnect stops the watcher permanently and removes it from the registry.
// Calling it again is a no-op.
func (w *Watcher) Disconnect() {
	if w == nil || !w.active {
		return
	}
	w.active = false
	w.obs.Disconnect()
	w.reg.active--
	if w.keyed && w.reg.watchers[w.key] == w {
		delete(w.reg.watchers, w.key)
	}
}

func (w *Watcher) handle(recs []dom.Record) {
	if !w.active {
		return
	}
	if w.opts.PauseDuringCallback {
		w.suspend(func() { w.invoke(recs) })
		return
	}
	w.invoke(recs)
}

// suspend runs fn with the observer disconnected and reconnects afterwards
// unless fn stopped or replaced the watcher.
func (w *Watcher) suspend(fn func()) {
	w.obs.Disconnect()
	defer func() {
		if w.active {
			if err := w.obs.Observe(w.target, w.opts.observe()); err != nil {
				w.reg.ctx.Logger.Warn("engine: reconnect failed", "error", err)
			}
		}
	}()
	fn()
}

func (w *Watcher) invoke(recs []dom.Record) {
	defer func() {
		if r := recover(); r != nil {
			w.reg.panics++
			w.reg.ctx.Logger.Error("engine: watcher callback panicked", "tag", w.key.Tag, "panic", r)
		}
	}()
	w.fn(w, recs)
}
