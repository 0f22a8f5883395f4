package features

import "golang.org/x/net/html"

// Host performs the actions that need the real page: layout reads and user
// input simulation. Nodes passed in always belong to the session document.
type Host interface {
	// Viewport returns the window's inner size in CSS pixels.
	Viewport() (width, height float64)
	// Width returns the rendered width of n.
	Width(n *html.Node) float64
	// VideoSize returns the intrinsic size of a video element, zero when
	// metadata is not loaded yet.
	VideoSize(n *html.Node) (width, height float64)
	// Click clicks n.
	Click(n *html.Node)
	// TypeText focuses the element with the id and types text at the end.
	TypeText(id, text string)
	// ScrollToBottom scrolls n to its end.
	ScrollToBottom(n *html.Node)
	// DispatchWindow fires a plain event on the window.
	DispatchWindow(event string)
}
