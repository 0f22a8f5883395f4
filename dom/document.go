// Package dom is the in-process mirror of the host page: an x/net/html tree
// that can be queried, mutated and observed with MutationObserver semantics.
//
// All methods must be called from the page session's event loop goroutine.
// Nothing in this package locks.
package dom

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document owns a node tree plus the observers and listeners attached to it.
type Document struct {
	root   *html.Node
	logger *slog.Logger

	regs    map[*html.Node][]*registration
	pending []*Observer

	journal Journal
	inbound int

	windowListeners map[string][]*listener
	nodeListeners   map[*html.Node]map[string][]*listener
	listenerSeq     uint64
}

// Option configures a Document.
type Option func(*Document)

// WithLogger sets the logger for recovered observer and listener panics.
func WithLogger(l *slog.Logger) Option { return func(d *Document) { d.logger = l } }

// WithJournal installs the sink that receives every local mutation.
func WithJournal(j Journal) Option { return func(d *Document) { d.journal = j } }

// New wraps an existing tree. root must be an html.DocumentNode.
func New(root *html.Node, opts ...Option) *Document {
	d := &Document{
		root:            root,
		logger:          slog.Default(),
		regs:            make(map[*html.Node][]*registration),
		windowListeners: make(map[string][]*listener),
		nodeListeners:   make(map[*html.Node]map[string][]*listener),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Parse reads an HTML document.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return New(root, opts...), nil
}

// ParseString is Parse over a string.
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// Blank returns a document containing an empty html/head/body skeleton.
func Blank(opts ...Option) *Document {
	d, err := ParseString("<html><head></head><body></body></html>", opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// SetJournal replaces the mutation journal. nil disables journaling.
func (d *Document) SetJournal(j Journal) { d.journal = j }

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// DocumentElement returns the <html> element.
func (d *Document) DocumentElement() *html.Node {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// Body returns the <body> element, or nil.
func (d *Document) Body() *html.Node {
	return d.childOfHTML(atom.Body)
}

// Head returns the <head> element, or nil.
func (d *Document) Head() *html.Node {
	return d.childOfHTML(atom.Head)
}

func (d *Document) childOfHTML(a atom.Atom) *html.Node {
	el := d.DocumentElement()
	if el == nil {
		return nil
	}
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}

// Contains reports whether n is attached to this document.
func (d *Document) Contains(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

// GetElementByID returns the first element in document order with the id.
func (d *Document) GetElementByID(id string) *html.Node {
	return QueryFirst(d.root, ByID(id))
}

// CreateElement returns a detached element.
func (d *Document) CreateElement(tag string) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}

// CreateText returns a detached text node.
func (d *Document) CreateText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// ParseFragment parses markup in the context of the given element and
// returns the detached top-level nodes.
func (d *Document) ParseFragment(context *html.Node, markup string) ([]*html.Node, error) {
	if context == nil || context.Type != html.ElementNode {
		context = &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}
	return nodes, nil
}

// Render writes the whole document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}
