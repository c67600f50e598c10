package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	formlogin "github.com/MrEthical07/formlogin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot formlogin.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() formlogin.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func TestCollectCounters(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: formlogin.MetricsSnapshot{
			Counters: map[formlogin.MetricID]uint64{
				formlogin.MetricLoginSuccess: 7,
				formlogin.MetricRedirect401:  2,
			},
		},
		dropped: 3,
	})

	expected := `
# HELP formlogin_login_success_total Logins that issued a session cookie.
# TYPE formlogin_login_success_total counter
formlogin_login_success_total 7
# HELP formlogin_redirect_401_total 401 responses replaced by a login redirect.
# TYPE formlogin_redirect_401_total counter
formlogin_redirect_401_total 2
# HELP formlogin_audit_dropped_total Audit events dropped because the dispatcher buffer was full.
# TYPE formlogin_audit_dropped_total counter
formlogin_audit_dropped_total 3
`
	err := testutil.CollectAndCompare(exp, strings.NewReader(expected),
		"formlogin_login_success_total",
		"formlogin_redirect_401_total",
		"formlogin_audit_dropped_total",
	)
	if err != nil {
		t.Fatalf("unexpected collection: %v", err)
	}
}

func TestCollectHistogram(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: formlogin.MetricsSnapshot{
			Counters: map[formlogin.MetricID]uint64{},
			Histograms: map[formlogin.MetricID][]uint64{
				formlogin.MetricResolveLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
	})

	expected := `
# HELP formlogin_resolve_latency_seconds Cookie to identity resolution latency.
# TYPE formlogin_resolve_latency_seconds histogram
formlogin_resolve_latency_seconds_bucket{le="0.005"} 1
formlogin_resolve_latency_seconds_bucket{le="0.01"} 3
formlogin_resolve_latency_seconds_bucket{le="0.025"} 6
formlogin_resolve_latency_seconds_bucket{le="0.05"} 10
formlogin_resolve_latency_seconds_bucket{le="0.1"} 15
formlogin_resolve_latency_seconds_bucket{le="0.25"} 21
formlogin_resolve_latency_seconds_bucket{le="0.5"} 28
formlogin_resolve_latency_seconds_bucket{le="+Inf"} 36
formlogin_resolve_latency_seconds_sum 0
formlogin_resolve_latency_seconds_count 36
`
	if err := testutil.CollectAndCompare(exp, strings.NewReader(expected), "formlogin_resolve_latency_seconds"); err != nil {
		t.Fatalf("unexpected histogram: %v", err)
	}
}

func TestHistogramOmittedWhenDisabled(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: formlogin.MetricsSnapshot{Counters: map[formlogin.MetricID]uint64{}},
	})
	if n := testutil.CollectAndCount(exp, "formlogin_resolve_latency_seconds"); n != 0 {
		t.Fatalf("expected no histogram, got %d series", n)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: formlogin.MetricsSnapshot{
			Counters: map[formlogin.MetricID]uint64{formlogin.MetricLogout: 4},
		},
	})

	rr := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), "formlogin_logout_total 4") {
		t.Fatalf("expected logout counter in output, got:\n%s", body)
	}
}
