package features

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ftlext/dom"
	"github.com/hazyhaar/ftlext/engine"
)

const (
	filteredClass     = "ftl-ext-filtered"
	filterButtonClass = "ftl-ext-filter-button"
	dropdownOpenClass = "ftl-ext-dropdown-open"
)

var filterPrefixes = []string{
	"chat-message-default_timestamp",
	"chat-message-default_mention",
	"chat-message-sfx_room",
	"chat-message-tts_room",
}

func (f *Features) filter(msg *html.Node) {
	f.doc.SetStyle(msg, "display", "none")
	f.doc.AddClass(msg, filteredClass)
}

func (f *Features) unfilter(msg *html.Node) {
	f.doc.SetStyle(msg, "display", "")
	f.doc.RemoveClass(msg, filteredClass)
}

func (f *Features) filterTo(msg *html.Node, show bool) {
	if show {
		f.unfilter(msg)
	} else {
		f.filter(msg)
	}
}

// applyChatFilter shows msg only if it was sent from the selected room.
// Messages hidden as spam are left alone.
func (f *Features) applyChatFilter(msg *html.Node) {
	if f.st.Bool("disableFiltering") || dom.HasClass(msg, spamClass) {
		return
	}
	selected := strings.ToLower(strings.TrimSpace(f.currentFilter))

	for _, p := range filterPrefixes {
		if _, ok := f.eng.Cache.Get(p); !ok {
			f.eng.MatchPrefix(p, msg, true)
		}
	}
	relevant := false
	for _, p := range filterPrefixes {
		if f.eng.ContainsPrefix(p, msg, false) {
			relevant = true
			break
		}
	}
	if !relevant {
		return
	}

	if f.st.Bool("allowPings") && f.mentionsUser(msg) {
		return
	}

	if room := f.eng.Find("chat-message-sfx_room", msg); room != nil && f.st.Bool("filterSfx") {
		f.filterTo(msg, roomName(room) == selected)
	}
	if room := f.eng.Find("chat-message-tts_room", msg); room != nil && f.st.Bool("filterTts") {
		f.filterTo(msg, roomName(room) == selected)
	}

	stamp := ""
	if ts := f.eng.Find("chat-message-default_timestamp", msg); ts != nil {
		stamp = dom.TextContent(ts)
	}
	switch selected {
	case "all":
		f.unfilter(msg)
	case "not watching":
		f.filterTo(msg, !strings.Contains(stamp, " @"))
	default:
		f.filterTo(msg, strings.Contains(strings.ToLower(stamp), selected+" @"))
	}
}

func roomName(n *html.Node) string {
	return strings.ToLower(strings.TrimSpace(dom.TextContent(n)))
}

func (f *Features) resetChatFilter() {
	list := f.chatMessages()
	if list == nil {
		return
	}
	for _, msg := range dom.Children(list) {
		if dom.HasClass(msg, spamClass) {
			continue
		}
		f.unfilter(msg)
		f.applyChatFilter(msg)
	}
}

func (f *Features) applyChatFilterToAll() {
	if f.st.Bool("disableFiltering") {
		return
	}
	list := f.chatMessages()
	if list == nil {
		return
	}
	for _, msg := range dom.Children(list) {
		f.applyChatFilter(msg)
	}
}

// SelectFilter switches the chat filter to a room, as clicking its dropdown
// entry does.
func (f *Features) SelectFilter(name string) {
	f.currentFilter = name
	f.updateActiveClass()
	f.applyChatFilterToAll()
	if list := f.chatMessages(); list != nil {
		f.host.ScrollToBottom(list)
	}
}

func (f *Features) roomDropdown() *html.Node {
	sel := f.eng.Find("chat-room-selector_chat-room-selector", nil)
	if sel == nil {
		return nil
	}
	return f.eng.Find("select_options", sel)
}

// updateActiveClass highlights the dropdown entry of the current filter.
func (f *Features) updateActiveClass() {
	if f.st.Bool("disableFiltering") {
		return
	}
	dropdown := f.roomDropdown()
	active, ok := f.eng.Resolve("select_active", nil, true)
	if dropdown == nil || !ok {
		return
	}
	current := strings.ToLower(strings.TrimSpace(f.currentFilter))
	for _, btn := range dom.QueryAll(dropdown, dom.ByClass("filter-option")) {
		selected := strings.ToLower(strings.TrimSpace(dom.TextContent(btn))) == current
		for _, cls := range dom.ClassList(btn) {
			if strings.HasPrefix(cls, "select_active"+engine.Separator) && !selected {
				f.doc.RemoveClass(btn, cls)
			}
		}
		if selected {
			f.doc.AddClass(btn, active)
		}
	}
}

// appendFilterOptions adds the stream names missing from the dropdown and
// rebuilds the extension's entries below the host's own.
func (f *Features) appendFilterOptions(names []string) {
	if f.st.Bool("disableFiltering") {
		return
	}
	dropdown := f.roomDropdown()
	if dropdown == nil {
		return
	}
	existing := make(map[string]bool)
	for _, span := range dom.QueryAll(dropdown, dom.ByTag("span")) {
		existing[strings.ToLower(strings.TrimSpace(dom.TextContent(span)))] = true
	}
	added := false
	for _, n := range names {
		if !existing[strings.ToLower(n)] && !containsFold(f.filterOptions, n) {
			f.filterOptions = append(f.filterOptions, n)
			added = true
		}
	}
	if !added && dom.QueryFirst(dropdown, dom.ByClass(filterButtonClass)) != nil {
		return
	}

	for _, old := range dom.QueryAll(dropdown, dom.ByClass(filterButtonClass)) {
		f.doc.Remove(old)
	}
	for _, old := range dom.QueryAll(dropdown, dom.ByClass("ftl-ext-filter-separator")) {
		f.doc.Remove(old)
	}

	optionClass, _ := f.eng.Resolve("select_option", nil, true)
	activeClass, _ := f.eng.Resolve("select_active", nil, true)
	separatorClass, _ := f.eng.Resolve("select_separator", nil, true)
	var toggle *html.Node
	if dropdown.Parent != nil {
		toggle = dom.QueryFirst(dropdown.Parent, dom.ByTag("button"))
	}

	var nodes []*html.Node
	for _, name := range f.filterOptions {
		classes := strings.TrimSpace(optionClass + " filter-option " + filterButtonClass)
		if strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(f.currentFilter)) && activeClass != "" {
			classes += " " + activeClass
		}
		btn := dom.Append(dom.Element("button", "class", classes),
			dom.Append(dom.Element("span"), dom.Text(name)))
		name := name
		f.doc.On(btn, "click", func(dom.Event) {
			f.currentFilter = name
			f.updateActiveClass()
			if toggle != nil {
				f.host.Click(toggle)
			}
			f.applyChatFilterToAll()
			if list := f.chatMessages(); list != nil {
				f.host.ScrollToBottom(list)
			}
		})
		nodes = append(nodes, btn)
	}
	nodes = append(nodes, dom.Element("hr", "class", strings.TrimSpace(separatorClass+" ftl-ext-filter-separator")))
	f.doc.InsertNodes(dropdown, nil, nodes...)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// liveStreamNames collects the stream names shown in the grid.
func (f *Features) liveStreamNames(grid *html.Node) []string {
	var names []string
	for _, stream := range f.eng.FindAll("live-streams_live-stream", grid) {
		el := f.eng.Find("live-stream_name", stream)
		if el == nil {
			continue
		}
		name := strings.TrimSpace(dom.TextContent(el))
		if name != "" && name != "???" {
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		f.appendFilterOptions(names)
	}
	return names
}

// observeStreamGrid refreshes the dropdown from the grid now and whenever
// the grid changes.
func (f *Features) observeStreamGrid(grid *html.Node) {
	f.liveStreamNames(grid)
	f.eng.Registry.Track(engine.Key{Node: grid, Tag: "stream-grid"},
		engine.WatchOptions{PauseDuringCallback: true},
		func(w *engine.Watcher, _ []dom.Record) { f.liveStreamNames(w.Target()) })
}

// observeDropdownOpen syncs the highlighted entry when the dropdown opens
// and keeps it synced when one of the host's own entries is picked.
func (f *Features) observeDropdownOpen(dropdown *html.Node) {
	if f.eng.Find("select_active", nil) != nil {
		f.updateActiveClass()
	}
	for _, btn := range dom.QueryAll(dropdown, dom.ByTag("button")) {
		if f.optionListeners[btn] || !containsString(f.originalOptions, strings.ToLower(strings.TrimSpace(dom.TextContent(btn)))) {
			continue
		}
		f.optionListeners[btn] = true
		f.doc.On(btn, "click", func(dom.Event) { f.updateActiveClass() })
	}
}

// saveDropdownOptions remembers the host's own room entries and re-enables
// the dropdown for users without a season pass.
func (f *Features) saveDropdownOptions(dropdown *html.Node) {
	if f.st.Bool("disableFiltering") {
		return
	}
	f.originalOptions = f.originalOptions[:0]
	for _, span := range dom.QueryAll(dropdown, dom.And(dom.ByTag("span"), func(n *html.Node) bool {
		return n.Parent != nil && n.Parent.Data == "button"
	})) {
		f.originalOptions = append(f.originalOptions, strings.ToLower(strings.TrimSpace(dom.TextContent(span))))
	}
	if f.st.Bool("enableChatDropdownIfDisabled") && dropdown.Parent != nil &&
		f.eng.ContainsPrefix("select_disabled", dropdown.Parent, false) {
		f.enableDropdown(dropdown.Parent)
	}
}

const dropdownOpenCSS = `
.ftl-ext-dropdown-open {
	opacity: 1 !important;
	z-index: 1 !important;
	pointer-events: auto !important;
	position: absolute !important;
	transform: translate(-1px, 22px) !important;
}`

func (f *Features) enableDropdown(sel *html.Node) {
	if cls, ok := f.eng.MatchPrefix("select_disabled", sel.Parent, false); ok {
		f.doc.RemoveClass(sel, cls)
	}
	f.doc.AddClass(sel, "ftl-ext-dropdown-enabled")
	if head := f.doc.Head(); head != nil {
		f.doc.AppendChild(head, dom.Append(dom.Element("style"), dom.Text(dropdownOpenCSS)))
	}
	f.doc.On(sel, "click", func(ev dom.Event) {
		toggle := dom.QueryFirst(sel, dom.ByTag("button"))
		if ev.Target != sel && (toggle == nil || !dom.IsAncestor(toggle, ev.Target)) {
			return
		}
		options := f.eng.Find("select_options", sel)
		if options == nil {
			return
		}
		f.doc.ToggleClass(options, dropdownOpenClass, !dom.HasClass(options, dropdownOpenClass))
	})
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
