package session

import (
	"context"
	"errors"

	"github.com/hazyhaar/ftlext/engine"
	"github.com/hazyhaar/ftlext/telemetry"
)

// Stats is a point-in-time view of the runner and its current session.
type Stats struct {
	engine.Stats
	URL               string   `json:"url,omitempty"`
	Sessions          int      `json:"sessions"`
	InboundBatches    uint64   `json:"inbound_batches"`
	OutboundBatches   uint64   `json:"outbound_batches"`
	MirrorNodes       int      `json:"mirror_nodes"`
	RecordsApplied    int      `json:"records_applied"`
	RecordsSkipped    int      `json:"records_skipped"`
	BootstrapResolved []string `json:"bootstrap_resolved,omitempty"`
	BootstrapPending  []string `json:"bootstrap_pending,omitempty"`
	Username          string   `json:"username,omitempty"`
	ChatFilter        string   `json:"chat_filter,omitempty"`
}

// Stats returns the current counters. Before the first snapshot only the
// runner counters are set.
func (r *Runner) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := r.loop.Do(ctx, func() error {
		st = r.stats()
		return nil
	})
	return st, err
}

// ClassNames returns the resolved class names of the current session.
func (r *Runner) ClassNames(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	err := r.Do(ctx, func(s *Session) error {
		out = s.Engine.Cache.Entries()
		return nil
	})
	if errors.Is(err, ErrNoSession) {
		return map[string]string{}, nil
	}
	return out, err
}

func (r *Runner) stats() Stats {
	st := Stats{
		Sessions:        r.sessions,
		InboundBatches:  r.inbound,
		OutboundBatches: r.outbound,
	}
	s := r.cur
	if s == nil {
		return st
	}
	st.Stats = s.Engine.Stats()
	st.URL = s.Mirror.PageURL()
	st.MirrorNodes = s.Mirror.Len()
	st.RecordsApplied, st.RecordsSkipped = s.Mirror.Counters()
	if s.Boot != nil {
		st.BootstrapResolved = s.Boot.Resolved()
		st.BootstrapPending = s.Boot.Pending()
	}
	st.Username = s.Features.Username()
	st.ChatFilter = s.Features.CurrentFilter()
	return st
}

func (st Stats) gauges() telemetry.Gauges {
	return telemetry.Gauges{
		CacheEntries:     st.CacheEntries,
		ActiveWatchers:   st.ActiveWatchers,
		TrackedKeys:      st.TrackedKeys,
		BootstrapPending: len(st.BootstrapPending),
		MirrorNodes:      st.MirrorNodes,
	}
}
