package session

import (
	"fmt"
	"sync"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ftlext/mutation"
)

// Page is the real page as a session sees it. Nodes are addressed by wire
// id. Every call is made on the loop and, apart from the layout reads, must
// not block on the page. Calls reach the page in the order they are made.
type Page interface {
	// Commit receives an outbound batch.
	Commit(b *mutation.Batch)
	// Viewport returns the window's inner size in CSS pixels.
	Viewport() (width, height float64)
	// Width returns the rendered width of the element.
	Width(id string) float64
	// VideoSize returns the intrinsic size of a video element.
	VideoSize(id string) (width, height float64)
	// Click clicks the element.
	Click(id string)
	// TypeText focuses the element and types text at its end.
	TypeText(id, text string)
	// ScrollToBottom scrolls the element to its end.
	ScrollToBottom(id string)
	// DispatchWindow fires a plain event on the window.
	DispatchWindow(event string)
}

// host adapts a Page to the features of one session. Pending outbound
// changes are committed before each call so the page sees the same tree.
type host struct {
	r *Runner
	s *Session
}

func (h *host) id(n *html.Node) (string, bool) {
	h.r.push(h.s)
	id, ok := h.s.Mirror.ID(n)
	if !ok {
		h.r.logger.Debug("session: node not on the page", "tag", n.Data)
	}
	return id, ok
}

func (h *host) Viewport() (float64, float64) {
	h.r.push(h.s)
	return h.r.page.Viewport()
}

func (h *host) Width(n *html.Node) float64 {
	if id, ok := h.id(n); ok {
		return h.r.page.Width(id)
	}
	return 0
}

func (h *host) VideoSize(n *html.Node) (float64, float64) {
	if id, ok := h.id(n); ok {
		return h.r.page.VideoSize(id)
	}
	return 0, 0
}

func (h *host) Click(n *html.Node) {
	if id, ok := h.id(n); ok {
		h.r.page.Click(id)
	}
}

// TypeText resolves the element by its id attribute.
func (h *host) TypeText(elementID, text string) {
	el := h.s.Mirror.Doc().GetElementByID(elementID)
	if el == nil {
		h.r.logger.Debug("session: type target missing", "element", elementID)
		return
	}
	if id, ok := h.id(el); ok {
		h.r.page.TypeText(id, text)
	}
}

func (h *host) ScrollToBottom(n *html.Node) {
	if id, ok := h.id(n); ok {
		h.r.page.ScrollToBottom(id)
	}
}

func (h *host) DispatchWindow(event string) {
	h.r.push(h.s)
	h.r.page.DispatchWindow(event)
}

// StaticPage is a Page with a fixed layout that records what it receives.
// The replay tool and tests use it.
type StaticPage struct {
	ViewportWidth  float64
	ViewportHeight float64
	Widths         map[string]float64
	VideoWidth     float64
	VideoHeight    float64

	mu      sync.Mutex
	actions []string
	batches []*mutation.Batch
}

// Actions returns the recorded actions in order, such as "click p12".
func (p *StaticPage) Actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.actions...)
}

// Batches returns the committed batches.
func (p *StaticPage) Batches() []*mutation.Batch {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*mutation.Batch(nil), p.batches...)
}

// Records returns the records of every committed batch.
func (p *StaticPage) Records() []mutation.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []mutation.Record
	for _, b := range p.batches {
		out = append(out, b.Records...)
	}
	return out
}

func (p *StaticPage) record(format string, args ...any) {
	p.mu.Lock()
	p.actions = append(p.actions, fmt.Sprintf(format, args...))
	p.mu.Unlock()
}

func (p *StaticPage) Commit(b *mutation.Batch) {
	p.mu.Lock()
	p.batches = append(p.batches, b)
	p.mu.Unlock()
}

func (p *StaticPage) Viewport() (float64, float64) { return p.ViewportWidth, p.ViewportHeight }

func (p *StaticPage) Width(id string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Widths[id]
}

func (p *StaticPage) VideoSize(string) (float64, float64) { return p.VideoWidth, p.VideoHeight }

func (p *StaticPage) Click(id string) { p.record("click %s", id) }

func (p *StaticPage) TypeText(id, text string) { p.record("type %s %q", id, text) }

func (p *StaticPage) ScrollToBottom(id string) { p.record("scroll %s", id) }

func (p *StaticPage) DispatchWindow(event string) { p.record("window %s", event) }
