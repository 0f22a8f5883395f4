package dom

import (
	"strings"

	"golang.org/x/net/html"
)

type declaration struct {
	prop, value string
}

func parseStyle(s string) []declaration {
	var out []declaration
	for _, part := range strings.Split(s, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		if prop == "" {
			continue
		}
		out = append(out, declaration{prop: prop, value: strings.TrimSpace(value)})
	}
	return out
}

func formatStyle(decls []declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.prop+": "+d.value+";")
	}
	return strings.Join(parts, " ")
}

// Style returns one inline style property.
func Style(n *html.Node, prop string) string {
	prop = strings.ToLower(prop)
	for _, d := range parseStyle(AttrOr(n, "style", "")) {
		if d.prop == prop {
			return d.value
		}
	}
	return ""
}

// SetStyle sets one inline style property. An empty value removes it.
func (d *Document) SetStyle(n *html.Node, prop, value string) {
	prop = strings.ToLower(prop)
	decls := parseStyle(AttrOr(n, "style", ""))
	out := decls[:0:0]
	found := false
	for _, dc := range decls {
		if dc.prop == prop {
			found = true
			if value != "" {
				out = append(out, declaration{prop: prop, value: value})
			}
			continue
		}
		out = append(out, dc)
	}
	if !found {
		if value == "" {
			return
		}
		out = append(out, declaration{prop: prop, value: value})
	}
	if len(out) == 0 {
		d.RemoveAttr(n, "style")
		return
	}
	d.SetAttr(n, "style", formatStyle(out))
}
