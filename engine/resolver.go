package engine

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ftlext/dom"
)

// ClassCache maps a semantic prefix to the class name resolved for it.
// Entries are added and never removed for the lifetime of a session.
type ClassCache struct {
	m      map[string]string
	hits   int
	misses int
}

func newClassCache() *ClassCache {
	return &ClassCache{m: make(map[string]string)}
}

// Get returns the cached class name for prefix.
func (cc *ClassCache) Get(prefix string) (string, bool) {
	v, ok := cc.m[prefix]
	return v, ok
}

// Len returns the number of resolved prefixes.
func (cc *ClassCache) Len() int { return len(cc.m) }

// Entries returns a copy of the cache.
func (cc *ClassCache) Entries() map[string]string {
	out := make(map[string]string, len(cc.m))
	for k, v := range cc.m {
		out[k] = v
	}
	return out
}

// Prefixes returns the resolved prefixes sorted.
func (cc *ClassCache) Prefixes() []string {
	out := make([]string, 0, len(cc.m))
	for k := range cc.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (cc *ClassCache) put(prefix, class string) {
	if _, ok := cc.m[prefix]; !ok {
		cc.m[prefix] = class
	}
}

func (cc *ClassCache) counters() (int, int) { return cc.hits, cc.misses }

// Resolve returns the class name currently used for prefix under scope (the
// whole document when scope is nil). A miss is never cached.
func (c *Context) Resolve(prefix string, scope *html.Node, useCache bool) (string, bool) {
	if useCache {
		if v, ok := c.Cache.Get(prefix); ok {
			c.Cache.hits++
			return v, true
		}
	}
	c.Cache.misses++
	if scope == nil {
		scope = c.Doc.Root()
	}
	want := prefix + Separator
	el := dom.QueryFirst(scope, dom.ByClassSubstring(want))
	if el == nil {
		c.debug("engine: prefix not found", "prefix", prefix)
		return "", false
	}
	for _, cls := range dom.ClassList(el) {
		if strings.HasPrefix(cls, want) {
			c.Cache.put(prefix, cls)
			c.debug("engine: prefix resolved", "prefix", prefix, "class", cls)
			return cls, true
		}
	}
	return "", false
}

// MatchPrefix is the cheap variant of Resolve: it pattern-matches the class
// attribute of el, then its inner markup. A cache hit short-circuits
// without looking at el.
func (c *Context) MatchPrefix(prefix string, el *html.Node, useCache bool) (string, bool) {
	if useCache {
		if v, ok := c.Cache.Get(prefix); ok {
			c.Cache.hits++
			return v, true
		}
	}
	c.Cache.misses++
	if el == nil {
		return "", false
	}
	re := c.pattern(prefix)
	m := re.FindStringSubmatch(dom.ClassName(el))
	if m == nil {
		m = re.FindStringSubmatch(dom.InnerHTML(el))
	}
	if m == nil {
		return "", false
	}
	c.Cache.put(prefix, m[1])
	return m[1], true
}

// ContainsPrefix reports whether MatchPrefix succeeds.
func (c *Context) ContainsPrefix(prefix string, el *html.Node, useCache bool) bool {
	_, ok := c.MatchPrefix(prefix, el, useCache)
	return ok
}

// ContainsClass reports whether el or one of its descendants carries class.
func ContainsClass(el *html.Node, class string) bool {
	if class == "" || el == nil {
		return false
	}
	return dom.HasClass(el, class) || dom.QueryFirst(el, dom.ByClass(class)) != nil
}

func (c *Context) pattern(prefix string) *regexp.Regexp {
	if re, ok := c.patterns[prefix]; ok {
		return re
	}
	re := regexp.MustCompile(`\b(` + regexp.QuoteMeta(prefix+Separator) + `[^\s"'=]+)\b`)
	c.patterns[prefix] = re
	return re
}

var moduleClass = regexp.MustCompile(`\.([A-Za-z0-9-]+)_([A-Za-z0-9-]+)__([A-Za-z0-9]+)`)

// ModuleMap scans the page's inline stylesheets and returns every
// "module_component" prefix found in a selector with its hashed class.
func (c *Context) ModuleMap() map[string]string {
	out := make(map[string]string)
	for _, style := range dom.QueryAll(c.Doc.Root(), dom.ByTag("style")) {
		for _, m := range moduleClass.FindAllStringSubmatch(dom.TextContent(style), -1) {
			out[m[1]+"_"+m[2]] = m[1] + "_" + m[2] + Separator + m[3]
		}
	}
	return out
}
