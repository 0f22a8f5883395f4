package dom

import (
	"encoding/json"

	"golang.org/x/net/html"
)

// Event is a DOM event. A nil Target addresses the window.
type Event struct {
	Type   string
	Target *html.Node
	Detail json.RawMessage
}

// Journal receives every mutation and event that originates in-process.
// Changes applied inside Inbound are not journaled.
type Journal interface {
	Mutated(Record)
	Dispatched(Event)
}

type listener struct {
	fn      func(Event)
	removed bool
}

// Inbound runs fn with journaling suppressed. Changes replayed from the real
// page go through here so they are not echoed back to it.
func (d *Document) Inbound(fn func()) {
	d.inbound++
	defer func() { d.inbound-- }()
	fn()
}

// AddEventListener registers a window-level listener and returns its
// remover.
func (d *Document) AddEventListener(typ string, fn func(Event)) func() {
	l := &listener{fn: fn}
	d.windowListeners[typ] = append(d.windowListeners[typ], l)
	return func() { d.removeListener(d.windowListeners, typ, l) }
}

// On registers a listener on a node. Events dispatched on descendants
// bubble to it.
func (d *Document) On(n *html.Node, typ string, fn func(Event)) func() {
	m := d.nodeListeners[n]
	if m == nil {
		m = make(map[string][]*listener)
		d.nodeListeners[n] = m
	}
	l := &listener{fn: fn}
	m[typ] = append(m[typ], l)
	return func() {
		if m := d.nodeListeners[n]; m != nil {
			d.removeListener(m, typ, l)
			if len(m) == 0 {
				delete(d.nodeListeners, n)
			}
		}
	}
}

func (d *Document) removeListener(m map[string][]*listener, typ string, l *listener) {
	l.removed = true
	ls := m[typ]
	for i, x := range ls {
		if x == l {
			m[typ] = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(m[typ]) == 0 {
		delete(m, typ)
	}
}

// DispatchEvent runs the listeners of the target and its ancestors, then the
// window listeners.
func (d *Document) DispatchEvent(ev Event) {
	if d.journal != nil && d.inbound == 0 {
		d.journal.Dispatched(ev)
	}
	for n := ev.Target; n != nil; n = n.Parent {
		if m := d.nodeListeners[n]; m != nil {
			d.call(append([]*listener(nil), m[ev.Type]...), ev)
		}
	}
	d.call(append([]*listener(nil), d.windowListeners[ev.Type]...), ev)
}

// Dispatch is DispatchEvent for a window event carrying a JSON detail.
func (d *Document) Dispatch(typ string, detail any) error {
	ev := Event{Type: typ}
	if detail != nil {
		raw, err := json.Marshal(detail)
		if err != nil {
			return err
		}
		ev.Detail = raw
	}
	d.DispatchEvent(ev)
	return nil
}

func (d *Document) call(ls []*listener, ev Event) {
	for _, l := range ls {
		if l.removed {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("dom: event listener panicked", "event", ev.Type, "panic", r)
				}
			}()
			l.fn(ev)
		}()
	}
}
