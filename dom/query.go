package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Predicate selects elements.
type Predicate func(*html.Node) bool

// ByClass matches elements whose class list contains name.
func ByClass(name string) Predicate {
	return func(n *html.Node) bool { return HasClass(n, name) }
}

// ByClassSubstring matches elements whose raw class attribute contains sub,
// like the CSS selector [class*="sub"].
func ByClassSubstring(sub string) Predicate {
	return func(n *html.Node) bool { return strings.Contains(ClassName(n), sub) }
}

// ByTag matches elements by lower-case tag name.
func ByTag(tag string) Predicate {
	tag = strings.ToLower(tag)
	return func(n *html.Node) bool { return n.Data == tag }
}

// ByID matches the id attribute.
func ByID(id string) Predicate {
	return func(n *html.Node) bool {
		v, ok := Attr(n, "id")
		return ok && v == id
	}
}

// ByAttr matches an attribute value exactly.
func ByAttr(name, value string) Predicate {
	return func(n *html.Node) bool {
		v, ok := Attr(n, name)
		return ok && v == value
	}
}

// HasAttr matches the presence of an attribute.
func HasAttr(name string) Predicate {
	return func(n *html.Node) bool {
		_, ok := Attr(n, name)
		return ok
	}
}

// And combines predicates.
func And(ps ...Predicate) Predicate {
	return func(n *html.Node) bool {
		for _, p := range ps {
			if !p(n) {
				return false
			}
		}
		return true
	}
}

// Walk visits the descendants of scope in document order. Returning false
// from fn stops the walk.
func Walk(scope *html.Node, fn func(*html.Node) bool) {
	if scope == nil {
		return
	}
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !fn(c) {
				return false
			}
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(scope)
}

// QueryFirst returns the first descendant element of scope matching pred.
// scope itself is never returned.
func QueryFirst(scope *html.Node, pred Predicate) *html.Node {
	var found *html.Node
	Walk(scope, func(n *html.Node) bool {
		if n.Type == html.ElementNode && pred(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// QueryAll returns every descendant element of scope matching pred.
func QueryAll(scope *html.Node, pred Predicate) []*html.Node {
	var out []*html.Node
	Walk(scope, func(n *html.Node) bool {
		if n.Type == html.ElementNode && pred(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}
