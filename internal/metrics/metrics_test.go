package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/api/admin/rate-limit/12": "/api/admin/rate-limit/{id}",
		"/api/chat":                "/api/chat",
		"/a/1/b/22":                "/a/{id}/b/{id}",
	}
	for in, want := range cases {
		if got := NormalizePath(in); got != want {
			t.Fatalf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRecordGateAndRateLimit(t *testing.T) {
	before := testutil.ToFloat64(GateDecisions.WithLabelValues("unauthenticated"))
	RecordGate("unauthenticated")
	if got := testutil.ToFloat64(GateDecisions.WithLabelValues("unauthenticated")); got != before+1 {
		t.Fatalf("gate counter = %v, want %v", got, before+1)
	}

	before = testutil.ToFloat64(RateLimitDecisions.WithLabelValues(ResultDenied))
	RecordRateLimit(ResultDenied)
	if got := testutil.ToFloat64(RateLimitDecisions.WithLabelValues(ResultDenied)); got != before+1 {
		t.Fatalf("ratelimit counter = %v, want %v", got, before+1)
	}
}

func TestRecordRequest(t *testing.T) {
	RecordRequest("GET", "/api/admin/rate-limit/5", 200, 0.01)
	got := testutil.ToFloat64(RequestTotal.WithLabelValues("GET", "/api/admin/rate-limit/{id}", "200"))
	if got < 1 {
		t.Fatalf("request counter = %v, want >= 1", got)
	}
}
