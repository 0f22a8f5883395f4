package engine

import (
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ftlext/eventloop"
)

// Poke runs fn on the loop after delay. It is a best-effort nudge for
// rendering the host page does asynchronously: fn must re-check whatever it
// waits for and do nothing when it is still missing.
func (c *Context) Poke(delay time.Duration, fn func()) *eventloop.Timer {
	return c.Loop.AfterFunc(delay, fn)
}

// PokeFind looks prefix up under scope after delay and calls onFound if the
// element exists by then. A miss is logged at debug level and dropped.
func (c *Context) PokeFind(delay time.Duration, prefix string, scope *html.Node, onFound func(*html.Node)) *eventloop.Timer {
	return c.Poke(delay, func() {
		if scope != nil && !c.Doc.Contains(scope) {
			c.debug("engine: poke scope detached", "prefix", prefix)
			return
		}
		el := c.Find(prefix, scope)
		if el == nil {
			c.debug("engine: poke found nothing", "prefix", prefix, "delay", delay)
			return
		}
		onFound(el)
	})
}
