// Package mutation defines the wire types exchanged with the page relay:
// id-addressed mutation records grouped in batches, and full snapshots.
//
// Nodes are addressed by ids. The relay numbers the nodes it reports
// ("p1", "p2", ...); nodes created in-process get ids from idgen.Node before
// they are first sent.
package mutation

import "encoding/json"

// Op is the type of a record.
type Op string

const (
	OpInsert  Op = "insert"   // Nodes inserted into Target before Before (empty appends)
	OpRemove  Op = "remove"   // Removed children of Target
	OpText    Op = "text"     // character data of Target set to Value
	OpAttr    Op = "attr"     // attribute Name of Target set to Value
	OpAttrDel Op = "attr_del" // attribute Name of Target removed
	OpEvent   Op = "event"    // event Name dispatched on Target (empty targets the document)
)

// Record is a single change or event.
type Record struct {
	Op       Op              `json:"op"`
	Target   string          `json:"target,omitempty"`
	Before   string          `json:"before,omitempty"`
	Nodes    []Node          `json:"nodes,omitempty"`
	Removed  []string        `json:"removed,omitempty"`
	Name     string          `json:"name,omitempty"`
	Value    string          `json:"value,omitempty"`
	OldValue string          `json:"old_value,omitempty"`
	Detail   json.RawMessage `json:"detail,omitempty"`
}

// Batch is the unit exchanged in either direction: the records of one
// task, in order.
type Batch struct {
	ID          string   `json:"id"`
	PageURL     string   `json:"page_url,omitempty"`
	PageID      string   `json:"page_id,omitempty"`
	Seq         uint64   `json:"seq"`
	Records     []Record `json:"records"`
	Timestamp   int64    `json:"timestamp"`
	SnapshotRef string   `json:"snapshot_ref,omitempty"`
}

// Events returns the event records of b.
func (b *Batch) Events() []Record {
	var out []Record
	for _, r := range b.Records {
		if r.Op == OpEvent {
			out = append(out, r)
		}
	}
	return out
}
