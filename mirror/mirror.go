// Package mirror keeps a dom.Document in step with the real page.
//
// Inbound, it builds the document from a snapshot and replays the page's
// batches on it, addressing nodes by the relay's ids. Outbound, it is the
// document's journal: every in-process mutation or dispatch on an attached
// node becomes a wire record, and Drain hands them out as one batch per
// loop task.
//
// A Mirror belongs to the session's event loop like its document.
package mirror

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/ftlext/dom"
	"github.com/hazyhaar/ftlext/idgen"
	"github.com/hazyhaar/ftlext/mutation"
)

// Mirror maps page node ids to document nodes.
type Mirror struct {
	doc    *dom.Document
	logger *slog.Logger
	newID  idgen.Generator
	now    func() time.Time

	ids   map[*html.Node]string
	nodes map[string]*html.Node

	pageURL     string
	pageID      string
	snapshotRef string

	seq       uint64
	out       []mutation.Record
	detached  []*html.Node
	skipEvent bool

	applied int
	skipped int
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(m *Mirror) { m.logger = l } }

// WithIDGenerator replaces idgen.Node for in-process nodes.
func WithIDGenerator(g idgen.Generator) Option { return func(m *Mirror) { m.newID = g } }

// WithClock replaces time.Now for batch timestamps.
func WithClock(now func() time.Time) Option { return func(m *Mirror) { m.now = now } }

// Build creates the document described by snap.
func Build(snap *mutation.Snapshot, opts ...Option) (*Mirror, error) {
	if snap == nil || snap.Root.Type != mutation.ElementNode {
		return nil, fmt.Errorf("mirror: snapshot has no document element")
	}
	m := &Mirror{
		logger:      slog.Default(),
		newID:       idgen.Node,
		now:         time.Now,
		ids:         make(map[*html.Node]string),
		nodes:       make(map[string]*html.Node),
		pageURL:     snap.PageURL,
		pageID:      snap.PageID,
		snapshotRef: snap.ID,
	}
	for _, o := range opts {
		o(m)
	}

	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(m.build(snap.Root))
	m.doc = dom.New(root, dom.WithLogger(m.logger), dom.WithJournal(m))

	var buf bytes.Buffer
	if err := m.doc.Render(&buf); err != nil {
		return nil, fmt.Errorf("mirror: render snapshot: %w", err)
	}
	m.logger.Info("mirror: snapshot loaded",
		"url", snap.PageURL, "id", snap.ID, "nodes", len(m.nodes), "hash", mutation.HashHTML(buf.Bytes()))
	return m, nil
}

// FromHTML builds a mirror over plain markup.
func FromHTML(r io.Reader, pageURL string, opts ...Option) (*Mirror, error) {
	snap, err := ParseSnapshot(r, pageURL)
	if err != nil {
		return nil, err
	}
	return Build(snap, opts...)
}

// ParseSnapshot turns plain markup into a snapshot. Nodes are numbered p1,
// p2, ... in document order, the way the relay numbers a fresh page.
func ParseSnapshot(r io.Reader, pageURL string) (*mutation.Snapshot, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("mirror: parse: %w", err)
	}
	var el *html.Node
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			el = c
			break
		}
	}
	if el == nil {
		return nil, fmt.Errorf("mirror: markup has no document element")
	}
	number := idgen.Sequence("p")
	wire, _ := toWire(el, func(*html.Node) string { return number() })
	return &mutation.Snapshot{
		ID:        idgen.New(),
		PageURL:   pageURL,
		Root:      wire,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Doc returns the mirrored document.
func (m *Mirror) Doc() *dom.Document { return m.doc }

// PageURL returns the URL of the snapshot.
func (m *Mirror) PageURL() string { return m.pageURL }

// SnapshotID returns the id of the snapshot the mirror was built from.
func (m *Mirror) SnapshotID() string { return m.snapshotRef }

// ID returns the wire id of n.
func (m *Mirror) ID(n *html.Node) (string, bool) {
	id, ok := m.ids[n]
	return id, ok
}

// Node returns the node with the wire id.
func (m *Mirror) Node(id string) *html.Node { return m.nodes[id] }

// Len returns the number of addressable nodes.
func (m *Mirror) Len() int { return len(m.nodes) }

// Counters returns the number of inbound records applied and skipped.
func (m *Mirror) Counters() (applied, skipped int) { return m.applied, m.skipped }

func (m *Mirror) bind(n *html.Node, id string) {
	if old, ok := m.ids[n]; ok && old != id {
		delete(m.nodes, old)
	}
	m.ids[n] = id
	m.nodes[id] = n
}

func (m *Mirror) forget(n *html.Node) {
	dom.Walk(n, func(c *html.Node) bool {
		if id, ok := m.ids[c]; ok {
			delete(m.ids, c)
			if m.nodes[id] == c {
				delete(m.nodes, id)
			}
		}
		return true
	})
	if id, ok := m.ids[n]; ok {
		delete(m.ids, n)
		delete(m.nodes, id)
	}
}

// build materialises w, reusing the nodes it already knows so that moved
// page nodes keep their identity.
func (m *Mirror) build(w mutation.Node) *html.Node {
	n := m.nodes[w.ID]
	if n == nil {
		n = &html.Node{}
		m.bind(n, w.ID)
	} else {
		m.detach(n)
	}

	switch w.Type {
	case mutation.TextNode:
		n.Type = html.TextNode
		n.Data = w.Data
	case mutation.CommentNode:
		n.Type = html.CommentNode
		n.Data = w.Data
	default:
		n.Type = html.ElementNode
		n.Namespace = w.NS
		n.Data = w.Tag
		if w.NS == "" {
			n.Data = strings.ToLower(w.Tag)
		}
		n.DataAtom = atom.Lookup([]byte(n.Data))
		n.Attr = n.Attr[:0]
		for _, a := range w.Attrs {
			n.Attr = append(n.Attr, html.Attribute{Key: a[0], Val: a[1]})
		}
	}

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	for _, cw := range w.Children {
		c := m.build(cw)
		n.AppendChild(c)
	}
	return n
}

func (m *Mirror) detach(n *html.Node) {
	if n.Parent == nil {
		return
	}
	if m.doc != nil && m.doc.Contains(n) {
		m.doc.Remove(n)
		return
	}
	n.Parent.RemoveChild(n)
}

// toWire serialises n, asking idOf for every node id.
func toWire(n *html.Node, idOf func(*html.Node) string) (mutation.Node, bool) {
	var w mutation.Node
	switch n.Type {
	case html.ElementNode:
		w = mutation.Node{Type: mutation.ElementNode, Tag: n.Data, NS: n.Namespace}
		for _, a := range n.Attr {
			key := a.Key
			if a.Namespace != "" {
				key = a.Namespace + ":" + a.Key
			}
			w.Attrs = append(w.Attrs, [2]string{key, a.Val})
		}
	case html.TextNode:
		w = mutation.Node{Type: mutation.TextNode, Data: n.Data}
	case html.CommentNode:
		w = mutation.Node{Type: mutation.CommentNode, Data: n.Data}
	default:
		return mutation.Node{}, false
	}
	w.ID = idOf(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if cw, ok := toWire(c, idOf); ok {
			w.Children = append(w.Children, cw)
		}
	}
	return w, true
}
