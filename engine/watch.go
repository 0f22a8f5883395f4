package engine

import (
	"golang.org/x/net/html"

	"github.com/hazyhaar/ftlext/dom"
)

// WaitFor watches root for an element resolved from targetPrefix and calls
// onFound with it. With stopAfterFirst the watcher disconnects after the
// first hit; otherwise onFound runs on every batch while the target exists.
// The watcher also disconnects once root leaves the document. It is tracked
// under Key{root, targetPrefix}: a second WaitFor on the same root and
// prefix replaces the first, while other prefixes on that root keep their
// own watchers, since several bootstrap requests share a parent.
func (c *Context) WaitFor(root *html.Node, targetPrefix string, onFound func(*html.Node), stopAfterFirst bool) *Watcher {
	return c.WaitForKey(Key{Node: root, Tag: targetPrefix}, targetPrefix, onFound, stopAfterFirst)
}

// WaitForKey is WaitFor with an explicit registry key. key.Node is the root.
func (c *Context) WaitForKey(key Key, targetPrefix string, onFound func(*html.Node), stopAfterFirst bool) *Watcher {
	root := key.Node
	return c.Registry.Track(key, WatchOptions{}, func(w *Watcher, _ []dom.Record) {
		if target := c.Find(targetPrefix, root); target != nil {
			c.debug("engine: target found", "target", targetPrefix)
			if stopAfterFirst {
				w.Disconnect()
			}
			onFound(target)
		}
		if !c.Doc.Contains(root) {
			c.debug("engine: watched root detached", "target", targetPrefix)
			w.Disconnect()
		}
	})
}

// AddedOptions tunes OnChildrenAdded.
type AddedOptions struct {
	// Once disconnects after the first added element.
	Once bool
	// Subtree includes elements added anywhere below the container.
	Subtree bool
}

// OnChildrenAdded calls cb for every element node added to container, in
// the order reported. Nodes added then removed within one batch are still
// reported.
func (c *Context) OnChildrenAdded(container *html.Node, cb func(*html.Node), opts AddedOptions) *Watcher {
	return c.Registry.Watch(container, WatchOptions{}.withSubtree(opts.Subtree), func(w *Watcher, recs []dom.Record) {
		for _, rec := range recs {
			for _, n := range rec.Added {
				if !dom.IsElement(n) {
					continue
				}
				cb(n)
				if opts.Once {
					w.Disconnect()
					return
				}
			}
		}
	})
}

func (o WatchOptions) withSubtree(subtree bool) WatchOptions {
	o.noSubtree = !subtree
	return o
}
