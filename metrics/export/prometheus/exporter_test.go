package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot goAuthClient.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goAuthClient.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                          { return f.dropped }

func TestCollectEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthClient.MetricsSnapshot{
			Counters:   map[goAuthClient.MetricID]uint64{},
			Histograms: map[goAuthClient.MetricID][]uint64{},
		},
	})

	if n := testutil.CollectAndCount(exp); n != 0 {
		t.Fatalf("expected no metrics for disabled source, got %d", n)
	}
}

func TestCollectCountersAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthClient.MetricsSnapshot{
			Counters: map[goAuthClient.MetricID]uint64{
				goAuthClient.MetricRefreshSuccess: 7,
			},
			Histograms: map[goAuthClient.MetricID][]uint64{
				goAuthClient.MetricCallLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	if n := testutil.CollectAndCount(exp); n != len(internaldefs.CounterDefs)+len(internaldefs.HistogramDefs)+1 {
		t.Fatalf("unexpected metric count %d", n)
	}

	expected := `
# HELP goauthclient_refresh_success_total Committed token refreshes.
# TYPE goauthclient_refresh_success_total counter
goauthclient_refresh_success_total 7
# HELP goauthclient_audit_dropped_total Dropped audit events due to dispatcher backpressure.
# TYPE goauthclient_audit_dropped_total counter
goauthclient_audit_dropped_total 2
# HELP goauthclient_call_latency_seconds Authenticated call latency.
# TYPE goauthclient_call_latency_seconds histogram
goauthclient_call_latency_seconds_bucket{le="0.005"} 1
goauthclient_call_latency_seconds_bucket{le="0.01"} 3
goauthclient_call_latency_seconds_bucket{le="0.025"} 6
goauthclient_call_latency_seconds_bucket{le="0.05"} 10
goauthclient_call_latency_seconds_bucket{le="0.1"} 15
goauthclient_call_latency_seconds_bucket{le="0.25"} 21
goauthclient_call_latency_seconds_bucket{le="0.5"} 28
goauthclient_call_latency_seconds_bucket{le="+Inf"} 36
goauthclient_call_latency_seconds_sum 0
goauthclient_call_latency_seconds_count 36
`
	err := testutil.CollectAndCompare(exp, strings.NewReader(expected),
		"goauthclient_refresh_success_total",
		"goauthclient_audit_dropped_total",
		"goauthclient_call_latency_seconds",
	)
	if err != nil {
		t.Fatalf("unexpected collection: %v", err)
	}
}

func TestHandlerServesTextFormat(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthClient.MetricsSnapshot{
			Counters:   map[goAuthClient.MetricID]uint64{goAuthClient.MetricLogout: 1},
			Histograms: map[goAuthClient.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected text exposition, got %q", got)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "goauthclient_logout_total 1") {
		t.Fatalf("expected logout counter, got:\n%s", body)
	}
}

func TestExporterOverEngine(t *testing.T) {
	engine, err := goAuthClient.New().
		WithBaseURL("https://auth.example.com").
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	engine.Logout(t.Context())

	expected := `
# HELP goauthclient_logout_total Logout operations.
# TYPE goauthclient_logout_total counter
goauthclient_logout_total 1
`
	exp := NewPrometheusExporter(engine)
	if err := testutil.CollectAndCompare(exp, strings.NewReader(expected), "goauthclient_logout_total"); err != nil {
		t.Fatalf("unexpected collection: %v", err)
	}
}

func BenchmarkCollect(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthClient.MetricsSnapshot{
			Counters: map[goAuthClient.MetricID]uint64{
				goAuthClient.MetricRefreshSuccess: 800,
				goAuthClient.MetricCallSuccess:    1000,
				goAuthClient.MetricCallFailure:    40,
				goAuthClient.MetricReauth:         12,
			},
			Histograms: map[goAuthClient.MetricID][]uint64{
				goAuthClient.MetricCallLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = testutil.CollectAndCount(exp)
	}
}
