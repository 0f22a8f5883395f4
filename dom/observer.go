package dom

import (
	"fmt"

	"golang.org/x/net/html"
)

// RecordType names the kind of mutation.
type RecordType string

const (
	ChildList     RecordType = "childList"
	Attributes    RecordType = "attributes"
	CharacterData RecordType = "characterData"
)

// Record describes one mutation. Value and AttrRemoved carry the new state
// for journals; observers read the live tree instead.
type Record struct {
	Type            RecordType
	Target          *html.Node
	Added           []*html.Node
	Removed         []*html.Node
	PreviousSibling *html.Node
	NextSibling     *html.Node
	AttributeName   string
	OldValue        string
	Value           string
	AttrRemoved     bool
}

// ObserveOptions selects which mutations an observer receives.
type ObserveOptions struct {
	ChildList         bool
	Subtree           bool
	Attributes        bool
	AttributeFilter   []string
	AttributeOldValue bool
	CharacterData     bool
}

// Callback receives a batch of records for one observer.
type Callback func(records []Record, obs *Observer)

// Observer mirrors the MutationObserver contract: records accumulate while
// the current task runs and are delivered together by Document.Flush.
type Observer struct {
	doc     *Document
	cb      Callback
	targets []*html.Node
	records []Record
	queued  bool
}

type registration struct {
	obs  *Observer
	opts ObserveOptions
}

// NewObserver creates an observer that is not yet observing anything.
func (d *Document) NewObserver(cb Callback) *Observer {
	return &Observer{doc: d, cb: cb}
}

// Observe starts or updates observation of target.
func (o *Observer) Observe(target *html.Node, opts ObserveOptions) error {
	if target == nil {
		return fmt.Errorf("dom: observe: nil target")
	}
	if len(opts.AttributeFilter) > 0 || opts.AttributeOldValue {
		opts.Attributes = true
	}
	if !opts.ChildList && !opts.Attributes && !opts.CharacterData {
		return fmt.Errorf("dom: observe: one of childList, attributes or characterData is required")
	}
	regs := o.doc.regs[target]
	for _, r := range regs {
		if r.obs == o {
			r.opts = opts
			return nil
		}
	}
	o.doc.regs[target] = append(regs, &registration{obs: o, opts: opts})
	o.targets = append(o.targets, target)
	return nil
}

// Disconnect stops all observation and drops undelivered records.
func (o *Observer) Disconnect() {
	for _, t := range o.targets {
		regs := o.doc.regs[t]
		out := regs[:0]
		for _, r := range regs {
			if r.obs != o {
				out = append(out, r)
			}
		}
		if len(out) == 0 {
			delete(o.doc.regs, t)
		} else {
			o.doc.regs[t] = out
		}
	}
	o.targets = nil
	o.records = nil
}

// TakeRecords returns and clears the undelivered records.
func (o *Observer) TakeRecords() []Record {
	recs := o.records
	o.records = nil
	return recs
}

// Observing reports whether the observer has at least one target.
func (o *Observer) Observing() bool { return len(o.targets) > 0 }

func (r *registration) wants(rec Record) bool {
	switch rec.Type {
	case ChildList:
		return r.opts.ChildList
	case CharacterData:
		return r.opts.CharacterData
	case Attributes:
		if !r.opts.Attributes {
			return false
		}
		if len(r.opts.AttributeFilter) == 0 {
			return true
		}
		return containsString(r.opts.AttributeFilter, rec.AttributeName)
	}
	return false
}

func (r *registration) wantsOldValue(rec Record) bool {
	switch rec.Type {
	case Attributes:
		return r.opts.AttributeOldValue
	case CharacterData:
		return true
	}
	return false
}

// queue hands rec to every interested observer and to the journal.
func (d *Document) queue(rec Record) {
	if d.journal != nil && d.inbound == 0 {
		d.journal.Mutated(rec)
	}

	var order []*Observer
	oldValue := make(map[*Observer]bool)
	for node := rec.Target; node != nil; node = node.Parent {
		for _, reg := range d.regs[node] {
			if node != rec.Target && !reg.opts.Subtree {
				continue
			}
			if !reg.wants(rec) {
				continue
			}
			if _, seen := oldValue[reg.obs]; !seen {
				order = append(order, reg.obs)
				oldValue[reg.obs] = false
			}
			if reg.wantsOldValue(rec) {
				oldValue[reg.obs] = true
			}
		}
	}

	for _, o := range order {
		r := rec
		if !oldValue[o] {
			r.OldValue = ""
		}
		o.records = append(o.records, r)
		if !o.queued {
			o.queued = true
			d.pending = append(d.pending, o)
		}
	}
}

// maxFlushRounds bounds observer callbacks that keep mutating what they
// observe.
const maxFlushRounds = 1000

// Pending reports whether any observer has undelivered records.
func (d *Document) Pending() bool { return len(d.pending) > 0 }

// Flush delivers queued records until no observer has any left, including
// records produced by the callbacks themselves. It returns the number of
// callbacks invoked.
func (d *Document) Flush() int {
	calls := 0
	for round := 0; len(d.pending) > 0; round++ {
		if round >= maxFlushRounds {
			d.logger.Warn("dom: flush did not settle, dropping records", "rounds", round, "observers", len(d.pending))
			for _, o := range d.pending {
				o.queued = false
				o.records = nil
			}
			d.pending = nil
			break
		}
		batch := d.pending
		d.pending = nil
		for _, o := range batch {
			o.queued = false
			recs := o.TakeRecords()
			if len(recs) == 0 || o.cb == nil {
				continue
			}
			calls++
			d.deliver(o, recs)
		}
	}
	return calls
}

func (d *Document) deliver(o *Observer, recs []Record) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dom: observer callback panicked", "panic", r)
		}
	}()
	o.cb(recs, o)
}
