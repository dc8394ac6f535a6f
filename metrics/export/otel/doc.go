// Package otel provides OpenTelemetry metric exporter bindings for goDesk client counters
// and histograms.
//
// [NewOTelExporter] registers an Int64ObservableCounter for each goDesk counter and an
// Int64ObservableGauge per histogram bucket. A single callback reads
// [goDesk.Client.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate client state.
package otel
