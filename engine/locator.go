package engine

import (
	"golang.org/x/net/html"

	"github.com/hazyhaar/ftlext/dom"
)

// Find returns the first element under scope carrying the class resolved
// for prefix. Elements are never cached.
func (c *Context) Find(prefix string, scope *html.Node) *html.Node {
	cls, ok := c.Resolve(prefix, scope, true)
	if !ok {
		return nil
	}
	if scope == nil {
		scope = c.Doc.Root()
	}
	return dom.QueryFirst(scope, dom.ByClass(cls))
}

// FindAll returns every element under scope carrying the class resolved
// for prefix, in document order.
func (c *Context) FindAll(prefix string, scope *html.Node) []*html.Node {
	cls, ok := c.Resolve(prefix, scope, true)
	if !ok {
		return nil
	}
	if scope == nil {
		scope = c.Doc.Root()
	}
	return dom.QueryAll(scope, dom.ByClass(cls))
}
