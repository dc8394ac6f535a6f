// Package prometheus provides a Prometheus collector for goDesk client metrics.
//
// [NewPrometheusExporter] accepts a [goDesk.Client] and implements
// prometheus.Collector over its snapshot. Counter names are prefixed godesk_*_total; the
// latency histograms are godesk_request_latency_seconds and
// godesk_refresh_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers register the collector
//     or mount Handler.
//   - Mutate client state.
package prometheus
