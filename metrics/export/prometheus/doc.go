// Package prometheus renders goSession metrics in the Prometheus text
// exposition format.
//
// Counter names are gosession_*_total; the single histogram is
// gosession_persist_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate session state.
package prometheus
