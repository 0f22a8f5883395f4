package mirror

import (
	"golang.org/x/net/html"

	"github.com/hazyhaar/ftlext/dom"
	"github.com/hazyhaar/ftlext/mutation"
)

// Apply replays a page batch. Mutations are applied without journaling so
// they are not echoed back; events are dispatched as regular events so that
// whatever their listeners change does reach the page. Records whose target
// is unknown are skipped and counted.
func (m *Mirror) Apply(b *mutation.Batch) {
	skipped := 0
	for _, r := range b.Records {
		ok := false
		if r.Op == mutation.OpEvent {
			ok = m.dispatch(r)
		} else {
			m.doc.Inbound(func() { ok = m.mutate(r) })
		}
		if ok {
			m.applied++
		} else {
			skipped++
			m.logger.Debug("mirror: skipped record", "seq", b.Seq, "op", r.Op, "target", r.Target)
		}
	}
	m.skipped += skipped
	if skipped > 0 {
		m.logger.Warn("mirror: batch had unknown targets", "seq", b.Seq, "skipped", skipped, "records", len(b.Records))
	}
	m.prune()
}

func (m *Mirror) mutate(r mutation.Record) bool {
	target := m.nodes[r.Target]
	if target == nil {
		return false
	}
	switch r.Op {
	case mutation.OpInsert:
		var ref *html.Node
		if r.Before != "" {
			if n := m.nodes[r.Before]; n != nil && n.Parent == target {
				ref = n
			}
		}
		added := make([]*html.Node, 0, len(r.Nodes))
		for _, w := range r.Nodes {
			n := m.build(w)
			if n == ref {
				ref = nil
			}
			added = append(added, n)
		}
		m.doc.InsertNodes(target, ref, added...)
	case mutation.OpRemove:
		for _, id := range r.Removed {
			n := m.nodes[id]
			if n == nil || n.Parent != target {
				continue
			}
			m.doc.RemoveChild(target, n)
			m.detached = append(m.detached, n)
		}
	case mutation.OpText:
		m.doc.SetData(target, r.Value)
	case mutation.OpAttr:
		m.doc.SetAttr(target, r.Name, r.Value)
	case mutation.OpAttrDel:
		m.doc.RemoveAttr(target, r.Name)
	default:
		return false
	}
	return true
}

func (m *Mirror) dispatch(r mutation.Record) bool {
	var target *html.Node
	if r.Target != "" {
		if target = m.nodes[r.Target]; target == nil {
			return false
		}
	}
	m.skipEvent = true
	m.doc.DispatchEvent(dom.Event{Type: r.Name, Target: target, Detail: r.Detail})
	m.skipEvent = false
	return true
}

// prune drops the ids of removed subtrees that did not come back.
func (m *Mirror) prune() {
	for _, n := range m.detached {
		if !m.doc.Contains(n) {
			m.forget(n)
		}
	}
	m.detached = m.detached[:0]
}
