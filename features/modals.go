package features

import (
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ftlext/dom"
	"github.com/hazyhaar/ftlext/engine"
	"github.com/hazyhaar/ftlext/hostevent"
	"github.com/hazyhaar/ftlext/recipes"
)

const (
	modalID        = "modal"
	modalDelay     = 100 * time.Millisecond
	recipesClass   = "ftl-ext-recipes"
	noSelection    = "Select an item"
	seasonPassID   = "season-pass"
	seasonPassWait = 100 * time.Millisecond
)

const modalKey = "modal"

// modalAction returns the handler for a host modal, or nil.
func (f *Features) modalAction(name string) func(*html.Node) {
	switch name {
	case "Craft Item":
		return f.craftRecipes
	case "Use Fishtoy":
		return f.consumeRecipes
	}
	return nil
}

// modalOpened decorates supported modals once they are rendered and keeps
// them decorated while the user changes their selection.
func (f *Features) modalOpened(m hostevent.Modal) {
	action := f.modalAction(m.Modal)
	if action == nil {
		return
	}
	f.eng.Poke(modalDelay, func() {
		modal := f.doc.GetElementByID(modalID)
		if modal == nil {
			return
		}
		action(modal)
		f.eng.Registry.Track(engine.Key{Node: modal, Tag: modalKey},
			engine.WatchOptions{PauseDuringCallback: true},
			func(w *engine.Watcher, _ []dom.Record) { action(w.Target()) })
	})
}

// modalClosed drops the watcher of the closing modal only.
func (f *Features) modalClosed() {
	modal := f.doc.GetElementByID(modalID)
	if modal == nil {
		return
	}
	if _, ok := f.eng.Registry.Lookup(engine.Key{Node: modal, Tag: modalKey}); ok {
		f.eng.Registry.Untrack(engine.Key{Node: modal, Tag: modalKey})
		f.debug("features: modal observer cleaned up")
	}
}

func (f *Features) craftRecipes(modal *html.Node) {
	if !f.st.Bool("displayRecipesInCraftModal") {
		return
	}
	f.showRecipes(modal, f.cfg.CraftItemPrefix)
}

func (f *Features) consumeRecipes(modal *html.Node) {
	if !f.st.Bool("displayRecipesInConsumeModal") {
		return
	}
	f.showRecipes(modal, f.cfg.ConsumeItemPrefix)
}

// showRecipes renders the recipes matching the selected items under the
// modal header. Two selected items without a recipe make a Trash Heap.
func (f *Features) showRecipes(modal *html.Node, itemPrefix string) {
	if f.book == nil {
		return
	}
	header := f.eng.Find("modal_header", modal)
	if header == nil {
		return
	}
	items := f.eng.FindAll(itemPrefix, modal)
	if len(items) == 0 {
		return
	}
	first := strings.TrimSpace(dom.TextContent(items[0]))
	second := ""
	if len(items) > 1 {
		second = strings.TrimSpace(dom.TextContent(items[1]))
	}

	if old := dom.QueryFirst(header, dom.ByClass(recipesClass)); old != nil {
		f.doc.Remove(old)
	}
	if first == noSelection {
		return
	}
	if second == noSelection {
		second = ""
	}

	ingredients := []string{first}
	if second != "" {
		ingredients = append(ingredients, second)
	}
	container := dom.Element("span", "class", recipesClass, "style", "display: flex; justify-content: center;")
	if found := f.book.Find(ingredients...); len(found) > 0 {
		dom.Append(container, recipeTable(found, strings.ToLower(first)))
	} else if second != "" {
		dom.Append(container, dom.Append(
			dom.Element("div", "style", "margin-top: 20px; margin-bottom: 10px; border-spacing: 8px 4px;"),
			dom.Text(first+" + "+second+" = Trash Heap")))
	}
	f.doc.AppendChild(header, container)
}

func recipeTable(found []recipes.Recipe, query string) *html.Node {
	table := dom.Element("table", "style", "font-family: monospace; margin-top: 20px; margin-bottom: 10px; border-spacing: 8px 4px;")
	for _, r := range found {
		a, b := recipes.Ordered(r, query)
		row := dom.Element("tr")
		for _, cell := range []string{a, "+", b, "=", r.Result} {
			dom.Append(row, dom.Append(dom.Element("td"), dom.Text(cell)))
		}
		dom.Append(table, row)
	}
	return table
}

// toastOpened closes the season pass nag and logs admin messages.
func (f *Features) toastOpened(t hostevent.Toast) {
	if t.ID == seasonPassID && f.st.Bool("autoCloseSeasonPassPopup") {
		f.eng.Poke(seasonPassWait, func() {
			if err := hostevent.CloseToast(f.doc, seasonPassID); err != nil {
				f.logger.Warn("features: close season pass toast", "error", err)
			}
		})
	}
	f.logAdminMessage(t)
}

// AdminMessage shows the extension's own toast.
func (f *Features) AdminMessage(message, header, id string) error {
	return hostevent.OpenToast(f.doc, hostevent.AdminToast(message, header, id, f.eng.Loop.Now()))
}
