// Package otel binds goSession metrics to an OpenTelemetry Meter.
//
// [NewExporter] registers one Int64ObservableCounter per session counter and
// one Int64ObservableGauge per latency bucket. A single callback reads the
// manager's snapshot on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate session state.
package otel
