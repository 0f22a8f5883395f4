package engine

import (
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ftlext/dom"
	"github.com/hazyhaar/ftlext/eventloop"
)

// DefaultBootstrapTimeout bounds how long the body watcher stays alive.
const DefaultBootstrapTimeout = 30 * time.Second

// WatchRequest asks for Then to be called with the element resolved from
// TargetPrefix once it appears inside the element resolved from
// ParentPrefix.
type WatchRequest struct {
	// Name is unique per request and tags the target watcher so requests
	// sharing a parent do not replace each other. Defaults to
	// "ParentPrefix>TargetPrefix".
	Name           string
	ParentPrefix   string
	TargetPrefix   string
	Then           func(*html.Node)
	StopAfterFirst bool
}

type requestState struct {
	req      WatchRequest
	resolved bool
	waiter   *Watcher
}

// Bootstrap resolves a fixed set of watch requests against the document
// body, then retires.
type Bootstrap struct {
	ctx      *Context
	requests []*requestState
	watcher  *Watcher
	timer    *eventloop.Timer
	done     bool
	timedOut bool
	onDone   []func(timedOut bool)
}

const bootstrapKey = "bootstrap"

// Bootstrap starts the coordinator. Parents already present are resolved
// immediately; the rest are retried on every body mutation until all are
// resolved or timeout elapses.
func (c *Context) Bootstrap(reqs []WatchRequest, timeout time.Duration) *Bootstrap {
	if timeout <= 0 {
		timeout = DefaultBootstrapTimeout
	}
	b := &Bootstrap{ctx: c}
	for _, r := range reqs {
		if r.Name == "" {
			r.Name = r.ParentPrefix + ">" + r.TargetPrefix
		}
		b.requests = append(b.requests, &requestState{req: r})
	}

	root := c.Doc.Body()
	if root == nil {
		root = c.Doc.Root()
	}
	b.watcher = c.Registry.Track(Key{Node: root, Tag: bootstrapKey}, WatchOptions{}, func(_ *Watcher, _ []dom.Record) {
		b.scan()
	})
	b.timer = c.Loop.AfterFunc(timeout, func() {
		if b.done {
			return
		}
		c.Logger.Warn("engine: main observer timed out", "pending", b.Pending(), "timeout", timeout)
		b.timedOut = true
		b.finish()
	})
	b.scan()
	return b
}

func (b *Bootstrap) scan() {
	if b.done {
		return
	}
	all := true
	for _, rs := range b.requests {
		if rs.resolved {
			continue
		}
		parent := b.ctx.Find(rs.req.ParentPrefix, nil)
		if parent == nil {
			all = false
			continue
		}
		rs.resolved = true
		b.ctx.debug("engine: bootstrap request resolved", "request", rs.req.Name)
		then := rs.req.Then
		if then == nil {
			then = func(*html.Node) {}
		}
		rs.waiter = b.ctx.WaitForKey(Key{Node: parent, Tag: rs.req.Name}, rs.req.TargetPrefix, then, rs.req.StopAfterFirst)
	}
	if all {
		b.ctx.debug("engine: bootstrap complete", "requests", len(b.requests))
		b.finish()
	}
}

func (b *Bootstrap) finish() {
	if b.done {
		return
	}
	b.done = true
	b.watcher.Disconnect()
	b.timer.Stop()
	for _, fn := range b.onDone {
		fn(b.timedOut)
	}
	b.onDone = nil
}

// OnDone registers fn to run when the coordinator retires. If it already
// has, fn runs immediately.
func (b *Bootstrap) OnDone(fn func(timedOut bool)) {
	if b.done {
		fn(b.timedOut)
		return
	}
	b.onDone = append(b.onDone, fn)
}

// Stop retires the coordinator early. Resolved requests keep their watchers.
func (b *Bootstrap) Stop() { b.finish() }

// Done reports whether the body watcher has been retired.
func (b *Bootstrap) Done() bool { return b.done }

// TimedOut reports whether the coordinator retired on its timer.
func (b *Bootstrap) TimedOut() bool { return b.timedOut }

// Watching reports whether the body watcher is still connected.
func (b *Bootstrap) Watching() bool { return b.watcher.Active() }

// Resolved returns the names of resolved requests.
func (b *Bootstrap) Resolved() []string { return b.names(true) }

// Pending returns the names of unresolved requests.
func (b *Bootstrap) Pending() []string { return b.names(false) }

// Waiter returns the target watcher spawned for a resolved request.
func (b *Bootstrap) Waiter(name string) *Watcher {
	for _, rs := range b.requests {
		if rs.req.Name == name {
			return rs.waiter
		}
	}
	return nil
}

func (b *Bootstrap) names(resolved bool) []string {
	var out []string
	for _, rs := range b.requests {
		if rs.resolved == resolved {
			out = append(out, rs.req.Name)
		}
	}
	return out
}
