// Package telemetry exposes the session counters as Prometheus metrics.
//
// The metrics exist from package init so callers never check for nil; Init
// registers them with the default registry once.
package telemetry

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	// Counters
	SessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{Name: "ftlext_sessions_started_total", Help: "Page sessions started from a snapshot"})
	InboundBatches  = prometheus.NewCounter(prometheus.CounterOpts{Name: "ftlext_inbound_batches_total", Help: "Mutation batches replayed from the page"})
	OutboundBatches = prometheus.NewCounter(prometheus.CounterOpts{Name: "ftlext_outbound_batches_total", Help: "Mutation batches sent to the page"})
	OutboundRecords = prometheus.NewCounter(prometheus.CounterOpts{Name: "ftlext_outbound_records_total", Help: "Mutation records sent to the page"})
	RelayErrors     = prometheus.NewCounter(prometheus.CounterOpts{Name: "ftlext_relay_errors_total", Help: "Failed calls to the page relay"})

	// Histograms (seconds)
	ApplyDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "ftlext_batch_apply_duration_seconds", Help: "Time to replay one inbound batch", Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8)})

	// Gauges
	ClassCacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{Name: "ftlext_class_cache_entries", Help: "Resolved semantic prefixes"})
	ActiveWatchers    = prometheus.NewGauge(prometheus.GaugeOpts{Name: "ftlext_watchers_active", Help: "Connected mutation watchers"})
	TrackedKeys       = prometheus.NewGauge(prometheus.GaugeOpts{Name: "ftlext_watchers_tracked_keys", Help: "Registry keys with a watcher"})
	BootstrapPending  = prometheus.NewGauge(prometheus.GaugeOpts{Name: "ftlext_bootstrap_pending", Help: "Bootstrap requests whose parent is not found yet"})
	MirrorNodes       = prometheus.NewGauge(prometheus.GaugeOpts{Name: "ftlext_mirror_nodes", Help: "Addressable nodes in the mirrored document"})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		SessionsStarted, InboundBatches, OutboundBatches, OutboundRecords, RelayErrors,
		ApplyDuration,
		ClassCacheEntries, ActiveWatchers, TrackedKeys, BootstrapPending, MirrorNodes,
	}
}

// Init registers the metrics with the default registry (idempotent).
func Init() {
	once.Do(func() {
		prometheus.MustRegister(collectors()...)
	})
}

// Register adds the metrics to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// Gauges is the sampled state of the current session.
type Gauges struct {
	CacheEntries     int
	ActiveWatchers   int
	TrackedKeys      int
	BootstrapPending int
	MirrorNodes      int
}

// Observe sets the gauges.
func Observe(g Gauges) {
	ClassCacheEntries.Set(float64(g.CacheEntries))
	ActiveWatchers.Set(float64(g.ActiveWatchers))
	TrackedKeys.Set(float64(g.TrackedKeys))
	BootstrapPending.Set(float64(g.BootstrapPending))
	MirrorNodes.Set(float64(g.MirrorNodes))
}

// TimeFunc measures the duration of fn and records it in obs if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}
