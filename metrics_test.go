package goSession

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap.Counters)
	}
}

func TestMetricsNilIsSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLogout)
	m.Observe(MetricPersistLatency, time.Millisecond)
	if m.Value(MetricLogout) != 0 || m.Enabled() {
		t.Fatal("nil metrics must record nothing")
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricGuardRender)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricGuardRender); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}

	for _, d := range observations {
		m.Observe(MetricPersistLatency, d)
	}
	// Only the persist latency has a histogram.
	m.Observe(MetricLogout, time.Millisecond)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricPersistLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
	if _, ok := snap.Histograms[MetricLogout]; ok {
		t.Fatal("unexpected histogram for logout")
	}
	if got := snap.HistogramSums[MetricPersistLatency]; got != 1640*time.Millisecond {
		t.Fatalf("expected 1.64s total, got %v", got)
	}
}

func TestMetricsHistogramSumIgnoresNegativeDurations(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Observe(MetricPersistLatency, -time.Second)
	m.Observe(MetricPersistLatency, 3*time.Millisecond)

	snap := m.Snapshot()
	if got := snap.HistogramSums[MetricPersistLatency]; got != 3*time.Millisecond {
		t.Fatalf("expected 3ms total, got %v", got)
	}
	if snap.Histograms[MetricPersistLatency][0] != 2 {
		t.Fatalf("expected both samples in the first bucket, got %v", snap.Histograms[MetricPersistLatency])
	}
}

func TestMetricsSnapshotExcludesHistogramCounter(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginFailure)
	m.Inc(MetricLoginFailure)

	snap := m.Snapshot()
	if snap.Counters[MetricLoginSuccess] != 1 || snap.Counters[MetricLoginFailure] != 2 {
		t.Fatalf("unexpected counters %v", snap.Counters)
	}
	if _, ok := snap.Counters[MetricPersistLatency]; ok {
		t.Fatal("histogram id must not appear as a counter")
	}
	if len(snap.Histograms) != 0 {
		t.Fatal("histograms disabled, expected none")
	}
}

func TestMetricNames(t *testing.T) {
	seen := make(map[string]bool)
	for _, id := range MetricIDs() {
		name := id.String()
		if name == "" || name == "unknown" || seen[name] {
			t.Fatalf("bad or duplicate name %q for id %d", name, id)
		}
		seen[name] = true
	}
	if MetricID(999).String() != "unknown" {
		t.Fatal("out of range id should be unknown")
	}
}

func TestManagerRecordsPersistLatency(t *testing.T) {
	m, err := New().
		WithStore(newFlakyStore()).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer m.Close()

	if err := m.Initialize(t.Context()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := m.Login(t.Context(), testCreds(), testUser()); err != nil {
		t.Fatalf("login: %v", err)
	}

	var total uint64
	for _, v := range m.MetricsSnapshot().Histograms[MetricPersistLatency] {
		total += v
	}
	if total != 1 {
		t.Fatalf("expected one persist observation, got %d", total)
	}
}
