package internaldefs

import (
	goDesk "github.com/MrEthical07/goDesk"
)

// CounterDef maps a goDesk counter to its exported name.
type CounterDef struct {
	ID   goDesk.MetricID
	Name string
	Help string
}

// HistogramDef maps a goDesk latency histogram to its exported name.
type HistogramDef struct {
	ID   goDesk.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goDesk.MetricRequest, Name: "godesk_requests_total", Help: "Requests dispatched, retries included."},
	{ID: goDesk.MetricRequestFailure, Name: "godesk_request_failures_total", Help: "Requests surfaced to callers as errors."},
	{ID: goDesk.MetricNetworkError, Name: "godesk_network_errors_total", Help: "Requests that received no HTTP response."},
	{ID: goDesk.MetricUnauthorized, Name: "godesk_unauthorized_total", Help: "401 responses that qualified for a token refresh."},
	{ID: goDesk.MetricRefreshStarted, Name: "godesk_refresh_started_total", Help: "Refresh calls sent to the backend."},
	{ID: goDesk.MetricRefreshSuccess, Name: "godesk_refresh_success_total", Help: "Refresh calls that produced a new access token."},
	{ID: goDesk.MetricRefreshFailure, Name: "godesk_refresh_failure_total", Help: "Refresh attempts that ended the session."},
	{ID: goDesk.MetricRefreshQueued, Name: "godesk_refresh_queued_total", Help: "Requests that waited for a refresh in flight."},
	{ID: goDesk.MetricRefreshShortcut, Name: "godesk_refresh_shortcut_total", Help: "Requests retried with a token renewed meanwhile."},
	{ID: goDesk.MetricRefreshProactive, Name: "godesk_refresh_proactive_total", Help: "Refreshes started ahead of token expiry."},
	{ID: goDesk.MetricRetry, Name: "godesk_retries_total", Help: "Requests replayed after a refresh."},
	{ID: goDesk.MetricSessionExpired, Name: "godesk_session_expired_total", Help: "Requests rejected because the session ended."},
	{ID: goDesk.MetricLoginSuccess, Name: "godesk_login_success_total", Help: "Successful logins."},
	{ID: goDesk.MetricLoginFailure, Name: "godesk_login_failure_total", Help: "Failed logins."},
	{ID: goDesk.MetricRegisterSuccess, Name: "godesk_register_success_total", Help: "Successful registrations."},
	{ID: goDesk.MetricRegisterFailure, Name: "godesk_register_failure_total", Help: "Failed registrations."},
	{ID: goDesk.MetricLogout, Name: "godesk_logout_total", Help: "Logouts."},
	{ID: goDesk.MetricNotification, Name: "godesk_notifications_total", Help: "User notifications emitted."},
}

// HistogramDefs lists every exported latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: goDesk.MetricRequestLatency, Name: "godesk_request_latency_seconds", Help: "Request latency histogram."},
	{ID: goDesk.MetricRefreshLatency, Name: "godesk_refresh_latency_seconds", Help: "Refresh call latency histogram."},
}

// DroppedName is the counter of notifications discarded by the async dispatcher.
const (
	DroppedName = "godesk_notifications_dropped_total"
	DroppedHelp = "Notifications dropped due to dispatcher backpressure."
)

// HistogramBounds are the upper bounds, in seconds, of the first seven buckets; the
// eighth bucket is +Inf.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket in flattened gauge names.
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

// NormalizeBuckets copies raw into a fixed array, padding missing buckets with zero.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
