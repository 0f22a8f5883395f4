// Package engine locates UI regions of the host page behind build-hashed
// class names and keeps watchers on them alive while the page mutates.
//
// A Context is one page session: it owns the class-name cache, the watcher
// registry and the loop that deferred callbacks run on. Every method must be
// called on that loop.
package engine

import (
	"log/slog"
	"regexp"

	"github.com/hazyhaar/ftlext/dom"
	"github.com/hazyhaar/ftlext/eventloop"
)

// Separator joins a semantic prefix and the build hash in a class name.
const Separator = "__"

// Context is the injected session state shared by every engine operation.
type Context struct {
	Doc      *dom.Document
	Loop     *eventloop.Loop
	Cache    *ClassCache
	Registry *Registry
	Logger   *slog.Logger
	// Debug enables per-lookup and per-watcher logs.
	Debug bool

	patterns map[string]*regexp.Regexp
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option { return func(c *Context) { c.Logger = l } }

// WithDebug turns on debug logging.
func WithDebug(on bool) Option { return func(c *Context) { c.Debug = on } }

// New creates a session over doc. Deferred callbacks are scheduled on loop.
func New(doc *dom.Document, loop *eventloop.Loop, opts ...Option) *Context {
	c := &Context{
		Doc:      doc,
		Loop:     loop,
		Cache:    newClassCache(),
		Logger:   slog.Default(),
		patterns: make(map[string]*regexp.Regexp),
	}
	for _, o := range opts {
		o(c)
	}
	c.Registry = newRegistry(c)
	return c
}

func (c *Context) debug(msg string, args ...any) {
	if c.Debug {
		c.Logger.Debug(msg, args...)
	}
}

// Stats is a point-in-time view of the session.
type Stats struct {
	CacheEntries     int `json:"cache_entries"`
	CacheHits        int `json:"cache_hits"`
	CacheMisses      int `json:"cache_misses"`
	ActiveWatchers   int `json:"active_watchers"`
	TrackedKeys      int `json:"tracked_keys"`
	WatchersReplaced int `json:"watchers_replaced"`
	CallbackPanics   int `json:"callback_panics"`
}

// Stats returns the current counters.
func (c *Context) Stats() Stats {
	hits, misses := c.Cache.counters()
	return Stats{
		CacheEntries:     c.Cache.Len(),
		CacheHits:        hits,
		CacheMisses:      misses,
		ActiveWatchers:   c.Registry.active,
		TrackedKeys:      len(c.Registry.watchers),
		WatchersReplaced: c.Registry.replaced,
		CallbackPanics:   c.Registry.panics,
	}
}
