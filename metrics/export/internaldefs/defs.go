package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// Prefix is prepended to every exported series.
const Prefix = "gosession_"

// BucketCount is the number of latency buckets, the last one unbounded.
const BucketCount = 8

type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goSession.MetricHydrated, Name: Prefix + "hydrated_total", Help: "Startups that restored a persisted session."},
	{ID: goSession.MetricHydrateEmpty, Name: Prefix + "hydrate_empty_total", Help: "Startups with nothing persisted."},
	{ID: goSession.MetricHydrateCorrupt, Name: Prefix + "hydrate_corrupt_total", Help: "Malformed or partial persisted sessions discarded at startup."},
	{ID: goSession.MetricLoginSuccess, Name: Prefix + "login_success_total", Help: "Committed logins."},
	{ID: goSession.MetricLoginFailure, Name: Prefix + "login_failure_total", Help: "Rejected or unpersisted logins."},
	{ID: goSession.MetricLogout, Name: Prefix + "logout_total", Help: "Logouts, including repeated ones."},
	{ID: goSession.MetricUpdateUser, Name: Prefix + "update_user_total", Help: "Committed user record merges."},
	{ID: goSession.MetricUpdateSkipped, Name: Prefix + "update_skipped_total", Help: "User updates ignored because no one was logged in."},
	{ID: goSession.MetricPersistFailure, Name: Prefix + "persist_failure_total", Help: "Durable store write failures."},
	{ID: goSession.MetricGuardWait, Name: Prefix + "guard_wait_total", Help: "Guard decisions that showed the waiting indicator."},
	{ID: goSession.MetricGuardRedirectLogin, Name: Prefix + "guard_redirect_login_total", Help: "Guard redirects to the login route."},
	{ID: goSession.MetricGuardRedirectLanding, Name: Prefix + "guard_redirect_landing_total", Help: "Guard redirects to a landing route."},
	{ID: goSession.MetricGuardRender, Name: Prefix + "guard_render_total", Help: "Guard decisions that rendered the destination."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricPersistLatency, Name: Prefix + "persist_latency_seconds", Help: "Durable store write latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = Prefix + "audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// HistogramBounds renders goSession.HistogramBounds as Prometheus "le"
// labels, ending with +Inf.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds in a form valid inside an
// instrument name.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
