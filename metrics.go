package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID names a session counter.
type MetricID uint16

const (
	// MetricHydrated counts Initialize calls that restored a user.
	MetricHydrated MetricID = iota
	// MetricHydrateEmpty counts Initialize calls that found nothing to restore.
	MetricHydrateEmpty
	// MetricHydrateCorrupt counts malformed or partial records discarded at startup.
	MetricHydrateCorrupt
	// MetricLoginSuccess counts committed logins.
	MetricLoginSuccess
	// MetricLoginFailure counts rejected or unpersisted logins.
	MetricLoginFailure
	// MetricLogout counts logouts, including idempotent ones.
	MetricLogout
	// MetricUpdateUser counts committed profile merges.
	MetricUpdateUser
	// MetricUpdateSkipped counts UpdateUser calls made with no user.
	MetricUpdateSkipped
	// MetricPersistFailure counts durable-store errors.
	MetricPersistFailure
	// MetricGuardWait counts guard decisions that rendered the waiting indicator.
	MetricGuardWait
	// MetricGuardRedirectLogin counts redirects to the login route.
	MetricGuardRedirectLogin
	// MetricGuardRedirectLanding counts redirects to a landing route.
	MetricGuardRedirectLanding
	// MetricGuardRender counts guard decisions that let the request through.
	MetricGuardRender
	// MetricPersistLatency is the only histogram: wall time of store writes.
	MetricPersistLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricHydrated:             "hydrated",
	MetricHydrateEmpty:         "hydrate_empty",
	MetricHydrateCorrupt:       "hydrate_corrupt",
	MetricLoginSuccess:         "login_success",
	MetricLoginFailure:         "login_failure",
	MetricLogout:               "logout",
	MetricUpdateUser:           "update_user",
	MetricUpdateSkipped:        "update_skipped",
	MetricPersistFailure:       "persist_failure",
	MetricGuardWait:            "guard_wait",
	MetricGuardRedirectLogin:   "guard_redirect_login",
	MetricGuardRedirectLanding: "guard_redirect_landing",
	MetricGuardRender:          "guard_render",
	MetricPersistLatency:       "persist_latency",
}

// String returns the snake_case name used by exporters.
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

// MetricIDs lists every declared metric in order.
func MetricIDs() []MetricID {
	out := make([]MetricID, 0, metricIDCount)
	for id := MetricID(0); id < metricIDCount; id++ {
		out = append(out, id)
	}
	return out
}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// HistogramBounds are the upper bounds of the first seven latency buckets.
// The eighth bucket is unbounded.
var HistogramBounds = [histBucketCount - 1]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

type metricHistogram struct {
	buckets  [histBucketCount]uint64
	sumNanos uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters. A nil *Metrics is valid and
// records nothing, so callers never need to check.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
	// HistogramSums holds the total observed duration per histogram.
	HistogramSums map[MetricID]time.Duration
}

// NewMetrics returns a Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only MetricPersistLatency has
// a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricPersistLatency {
		return
	}

	if d < 0 {
		d = 0
	}
	h := &m.histograms[id]
	atomic.AddUint64(&h.buckets[bucketIndex(d)], 1)
	atomic.AddUint64(&h.sumNanos, uint64(d))
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters. Disabled metrics yield empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]time.Duration{},
		}
	}

	s := MetricsSnapshot{
		Counters:      make(map[MetricID]uint64, int(metricIDCount)),
		Histograms:    make(map[MetricID][]uint64, 1),
		HistogramSums: make(map[MetricID]time.Duration, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricPersistLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricPersistLatency].buckets[i])
		}
		s.Histograms[MetricPersistLatency] = buckets
		s.HistogramSums[MetricPersistLatency] = time.Duration(atomic.LoadUint64(&m.histograms[MetricPersistLatency].sumNanos))
	}

	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range HistogramBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
