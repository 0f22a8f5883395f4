package features

import (
	"sync"

	"golang.org/x/net/html"
)

// StaticHost is a Host with a fixed layout that records every action.
type StaticHost struct {
	ViewportWidth  float64
	ViewportHeight float64
	Widths         map[*html.Node]float64
	VideoWidth     float64
	VideoHeight    float64

	mu      sync.Mutex
	actions []string
}

// Actions returns the recorded actions in order.
func (h *StaticHost) Actions() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.actions...)
}

func (h *StaticHost) record(a string) {
	h.mu.Lock()
	h.actions = append(h.actions, a)
	h.mu.Unlock()
}

func (h *StaticHost) Viewport() (float64, float64) { return h.ViewportWidth, h.ViewportHeight }

func (h *StaticHost) Width(n *html.Node) float64 { return h.Widths[n] }

func (h *StaticHost) VideoSize(*html.Node) (float64, float64) { return h.VideoWidth, h.VideoHeight }

func (h *StaticHost) Click(n *html.Node) { h.record("click " + n.Data) }

func (h *StaticHost) TypeText(id, text string) { h.record("type #" + id + " " + text) }

func (h *StaticHost) ScrollToBottom(n *html.Node) { h.record("scroll " + n.Data) }

func (h *StaticHost) DispatchWindow(event string) { h.record("window " + event) }
