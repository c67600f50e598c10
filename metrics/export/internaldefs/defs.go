package internaldefs

import (
	formlogin "github.com/MrEthical07/formlogin"
)

// CounterDef names one gate counter for export.
type CounterDef struct {
	ID   formlogin.MetricID
	Name string
	Help string
}

// HistogramDef names one gate histogram for export.
type HistogramDef struct {
	ID   formlogin.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: formlogin.MetricLoginSuccess, Name: "formlogin_login_success_total", Help: "Logins that issued a session cookie."},
	{ID: formlogin.MetricLoginFailure, Name: "formlogin_login_failure_total", Help: "Rejected login/password pairs."},
	{ID: formlogin.MetricLoginRateLimited, Name: "formlogin_login_rate_limited_total", Help: "Login attempts refused by the throttle."},
	{ID: formlogin.MetricLogout, Name: "formlogin_logout_total", Help: "Logout requests."},
	{ID: formlogin.MetricSessionResolved, Name: "formlogin_session_resolved_total", Help: "Forwarded requests with a resolved identity."},
	{ID: formlogin.MetricSessionMissing, Name: "formlogin_session_missing_total", Help: "Forwarded requests with an unknown or undecodable cookie."},
	{ID: formlogin.MetricRedirect401, Name: "formlogin_redirect_401_total", Help: "401 responses replaced by a login redirect."},
	{ID: formlogin.MetricRedirect403, Name: "formlogin_redirect_403_total", Help: "403 responses replaced by a login redirect."},
	{ID: formlogin.MetricBrokerError, Name: "formlogin_broker_error_total", Help: "Broker failures answered with 500."},
}

var HistogramDefs = []HistogramDef{
	{ID: formlogin.MetricResolveLatency, Name: "formlogin_resolve_latency_seconds", Help: "Cookie to identity resolution latency."},
}

// HistogramBounds are the upper bounds in seconds of the finite buckets. The gate keeps
// one extra overflow bucket.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, overflow included, for exporters that cannot
// label instruments.
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

const AuditDroppedName = "formlogin_audit_dropped_total"

const AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
