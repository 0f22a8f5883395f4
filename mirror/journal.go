package mirror

import (
	"golang.org/x/net/html"

	"github.com/hazyhaar/ftlext/dom"
	"github.com/hazyhaar/ftlext/idgen"
	"github.com/hazyhaar/ftlext/mutation"
)

// Mutated implements dom.Journal. Changes to nodes outside the document are
// not sent: detached subtrees travel whole when they are inserted, so added
// nodes are serialised here, at record time.
func (m *Mirror) Mutated(rec dom.Record) {
	if !m.doc.Contains(rec.Target) {
		return
	}
	target := m.idOf(rec.Target)
	switch rec.Type {
	case dom.ChildList:
		if len(rec.Removed) > 0 {
			r := mutation.Record{Op: mutation.OpRemove, Target: target}
			for _, n := range rec.Removed {
				if id, ok := m.ids[n]; ok {
					r.Removed = append(r.Removed, id)
				}
				m.detached = append(m.detached, n)
			}
			if len(r.Removed) > 0 {
				m.out = append(m.out, r)
			}
		}
		if len(rec.Added) > 0 {
			r := mutation.Record{Op: mutation.OpInsert, Target: target}
			if rec.NextSibling != nil {
				r.Before = m.ids[rec.NextSibling]
			}
			for _, n := range rec.Added {
				if w, ok := toWire(n, m.idOf); ok {
					r.Nodes = append(r.Nodes, w)
				}
			}
			m.out = append(m.out, r)
		}
	case dom.Attributes:
		if rec.AttrRemoved {
			m.out = append(m.out, mutation.Record{Op: mutation.OpAttrDel, Target: target, Name: rec.AttributeName})
			return
		}
		m.out = append(m.out, mutation.Record{Op: mutation.OpAttr, Target: target, Name: rec.AttributeName, Value: rec.Value})
	case dom.CharacterData:
		m.out = append(m.out, mutation.Record{Op: mutation.OpText, Target: target, Value: rec.Value})
	}
}

// Dispatched implements dom.Journal. Events replayed from the page are not
// sent back.
func (m *Mirror) Dispatched(ev dom.Event) {
	if m.skipEvent {
		m.skipEvent = false
		return
	}
	r := mutation.Record{Op: mutation.OpEvent, Name: ev.Type, Detail: ev.Detail}
	if ev.Target != nil {
		if !m.doc.Contains(ev.Target) {
			return
		}
		r.Target = m.idOf(ev.Target)
	}
	m.out = append(m.out, r)
}

// idOf returns the id of n, assigning one on first use.
func (m *Mirror) idOf(n *html.Node) string {
	if id, ok := m.ids[n]; ok {
		return id
	}
	id := m.newID()
	m.bind(n, id)
	return id
}

// Pending reports whether outbound records are waiting.
func (m *Mirror) Pending() bool { return len(m.out) > 0 }

// Drain returns the outbound records produced since the last call as one
// batch, or nil when there are none.
func (m *Mirror) Drain() *mutation.Batch {
	m.prune()
	if len(m.out) == 0 {
		return nil
	}
	m.seq++
	b := &mutation.Batch{
		ID:          idgen.New(),
		PageURL:     m.pageURL,
		PageID:      m.pageID,
		Seq:         m.seq,
		Records:     m.out,
		Timestamp:   m.now().UnixMilli(),
		SnapshotRef: m.snapshotRef,
	}
	m.out = nil
	return b
}
