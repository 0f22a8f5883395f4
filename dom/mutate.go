package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// AppendChild moves child to the end of parent's children.
func (d *Document) AppendChild(parent, child *html.Node) {
	d.InsertNodes(parent, nil, child)
}

// InsertBefore inserts child before ref. A nil ref appends.
func (d *Document) InsertBefore(parent, child, ref *html.Node) {
	d.InsertNodes(parent, ref, child)
}

// Before inserts nodes as preceding siblings of ref.
func (d *Document) Before(ref *html.Node, nodes ...*html.Node) {
	if ref.Parent == nil {
		return
	}
	d.InsertNodes(ref.Parent, ref, nodes...)
}

// After inserts nodes as following siblings of ref.
func (d *Document) After(ref *html.Node, nodes ...*html.Node) {
	if ref.Parent == nil {
		return
	}
	d.InsertNodes(ref.Parent, ref.NextSibling, nodes...)
}

// InsertNodes inserts nodes before ref (nil appends), detaching each from
// any current parent first. One childList record covers the insertion.
func (d *Document) InsertNodes(parent, ref *html.Node, nodes ...*html.Node) {
	if parent == nil || len(nodes) == 0 {
		return
	}
	for _, n := range nodes {
		if n == ref {
			ref = ref.NextSibling
		}
		if n.Parent != nil {
			d.RemoveChild(n.Parent, n)
		}
	}
	prev := parent.LastChild
	if ref != nil {
		prev = ref.PrevSibling
	}
	for _, n := range nodes {
		parent.InsertBefore(n, ref)
	}
	d.queue(Record{
		Type:            ChildList,
		Target:          parent,
		Added:           append([]*html.Node(nil), nodes...),
		PreviousSibling: prev,
		NextSibling:     ref,
	})
}

// RemoveChild detaches child from parent.
func (d *Document) RemoveChild(parent, child *html.Node) {
	if child == nil || child.Parent != parent {
		return
	}
	prev, next := child.PrevSibling, child.NextSibling
	parent.RemoveChild(child)
	d.queue(Record{
		Type:            ChildList,
		Target:          parent,
		Removed:         []*html.Node{child},
		PreviousSibling: prev,
		NextSibling:     next,
	})
}

// Remove detaches n from its parent, if any.
func (d *Document) Remove(n *html.Node) {
	if n != nil && n.Parent != nil {
		d.RemoveChild(n.Parent, n)
	}
}

// ReplaceChildren swaps every child of parent for nodes.
func (d *Document) ReplaceChildren(parent *html.Node, nodes ...*html.Node) {
	for _, n := range nodes {
		if n.Parent != nil {
			d.RemoveChild(n.Parent, n)
		}
	}
	var removed []*html.Node
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		parent.RemoveChild(c)
		removed = append(removed, c)
		c = next
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	if len(removed) == 0 && len(nodes) == 0 {
		return
	}
	d.queue(Record{
		Type:    ChildList,
		Target:  parent,
		Added:   append([]*html.Node(nil), nodes...),
		Removed: removed,
	})
}

// SetText replaces the children of n with a single text node.
func (d *Document) SetText(n *html.Node, s string) {
	if s == "" {
		d.ReplaceChildren(n)
		return
	}
	d.ReplaceChildren(n, d.CreateText(s))
}

// SetInnerHTML parses markup in the context of n and replaces its children.
func (d *Document) SetInnerHTML(n *html.Node, markup string) error {
	nodes, err := d.ParseFragment(n, markup)
	if err != nil {
		return err
	}
	d.ReplaceChildren(n, nodes...)
	return nil
}

// SetData changes the content of a text or comment node.
func (d *Document) SetData(n *html.Node, s string) {
	if n == nil || (n.Type != html.TextNode && n.Type != html.CommentNode) {
		return
	}
	old := n.Data
	n.Data = s
	d.queue(Record{Type: CharacterData, Target: n, OldValue: old, Value: s})
}

// SetAttr sets an attribute, recording a mutation even when the value does
// not change.
func (d *Document) SetAttr(n *html.Node, name, value string) {
	old, _ := Attr(n, name)
	set := false
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == name {
			n.Attr[i].Val = value
			set = true
			break
		}
	}
	if !set {
		n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
	}
	d.queue(Record{Type: Attributes, Target: n, AttributeName: name, OldValue: old, Value: value})
}

// RemoveAttr deletes an attribute. Removing an absent attribute is a no-op.
func (d *Document) RemoveAttr(n *html.Node, name string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == name {
			old := n.Attr[i].Val
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			d.queue(Record{Type: Attributes, Target: n, AttributeName: name, OldValue: old, AttrRemoved: true})
			return
		}
	}
}

// AddClass adds the names missing from the class list.
func (d *Document) AddClass(n *html.Node, names ...string) {
	list := ClassList(n)
	changed := false
	for _, name := range names {
		if name == "" || containsString(list, name) {
			continue
		}
		list = append(list, name)
		changed = true
	}
	if changed {
		d.SetAttr(n, "class", strings.Join(list, " "))
	}
}

// RemoveClass removes names from the class list.
func (d *Document) RemoveClass(n *html.Node, names ...string) {
	list := ClassList(n)
	out := list[:0:0]
	for _, c := range list {
		if !containsString(names, c) {
			out = append(out, c)
		}
	}
	if len(out) != len(list) {
		d.SetAttr(n, "class", strings.Join(out, " "))
	}
}

// ToggleClass adds or removes name.
func (d *Document) ToggleClass(n *html.Node, name string, on bool) {
	if on {
		d.AddClass(n, name)
	} else {
		d.RemoveClass(n, name)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
