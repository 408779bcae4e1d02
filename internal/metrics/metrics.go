package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a single counter or histogram slot.
type MetricID uint8

const (
	MetricAuthenticateSuccess MetricID = iota
	MetricAuthenticateFailure
	MetricSessionCreated
	MetricSessionRevoked
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshReuseDetected
	MetricAccessIssued
	MetricAccessRejected
	MetricLogout
	MetricLogoutAllUser
	MetricReaperRepairedSessions
	MetricReaperExpiredTokens
	MetricReaperPurgedTokens
	MetricAuthorizeLatency

	// MetricIDCount is the number of defined metric IDs.
	MetricIDCount
)

// HistogramBucketCount is the fixed number of latency buckets per histogram.
const HistogramBucketCount = 8

// HistogramBounds holds the upper bound of each bucket except the last,
// which is +Inf.
var HistogramBounds = [HistogramBucketCount - 1]time.Duration{
	1 * time.Millisecond,
	2 * time.Millisecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
}

// Config controls which parts of the metric system are active.
type Config struct {
	Enabled       bool
	EnableLatency bool
}

// Metrics holds atomic counters and optional latency histograms. The zero
// value is a disabled instance; use [New].
type Metrics struct {
	enabled bool
	latency bool

	counters   [MetricIDCount]atomic.Uint64
	histograms [MetricIDCount][HistogramBucketCount]atomic.Uint64
}

// Snapshot is a point-in-time deep copy of all metric values.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// New creates a [Metrics] instance. When cfg.Enabled is false every operation
// is a no-op and Snapshot returns empty maps.
func New(cfg Config) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatency,
	}
}

// Inc atomically increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// LatencyEnabled reports whether histogram observation is active.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.latency
}

// Observe records a duration into the histogram for id.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.latency || id >= MetricIDCount {
		return
	}

	bucket := HistogramBucketCount - 1
	for i, bound := range HistogramBounds {
		if d <= bound {
			bucket = i
			break
		}
	}
	m.histograms[id][bucket].Add(1)
}

// Snapshot returns a deep copy of all counters and histograms. Counters that
// were never incremented are still present with value zero so exporters can
// render a stable series set.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if m == nil || !m.enabled {
		return snap
	}

	for id := MetricID(0); id < MetricIDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}

	if m.latency {
		for id := MetricID(0); id < MetricIDCount; id++ {
			buckets := make([]uint64, HistogramBucketCount)
			var total uint64
			for i := range buckets {
				buckets[i] = m.histograms[id][i].Load()
				total += buckets[i]
			}
			if total > 0 {
				snap.Histograms[id] = buckets
			}
		}
	}

	return snap
}
