package mutation

// Node types, numbered as in the DOM.
const (
	ElementNode = 1
	TextNode    = 3
	CommentNode = 8
)

// Node is a serialised subtree.
type Node struct {
	ID       string      `json:"id"`
	Type     int         `json:"type"`
	Tag      string      `json:"tag,omitempty"`
	NS       string      `json:"ns,omitempty"` // "svg" or "math" for foreign elements
	Attrs    [][2]string `json:"attrs,omitempty"`
	Data     string      `json:"data,omitempty"`
	Children []Node      `json:"children,omitempty"`
}

// Count returns the number of nodes in the subtree.
func (n Node) Count() int {
	c := 1
	for _, ch := range n.Children {
		c += ch.Count()
	}
	return c
}

// Snapshot is the complete document element of a page, sent once per
// document load before any batch.
type Snapshot struct {
	ID        string `json:"id"`
	PageURL   string `json:"page_url"`
	PageID    string `json:"page_id,omitempty"`
	Root      Node   `json:"root"`
	HTMLHash  string `json:"html_hash,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
