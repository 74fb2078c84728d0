package metrics

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/static/app.js", "/static/app.js"},
		{"/app.js", "other"},
		{"/api/v1/catalog", "/api/v1/catalog"},
		{"/api/v1/config", "/api/v1/config"},
		{"/api/v1/visibility", "/api/v1/visibility"},
		{"/api/v1/visibility/table", "/api/v1/visibility/table"},
		{"/api/v1/visibility/plot", "/api/v1/visibility/plot"},
		{"/api/v1/stream/visibility", "/api/v1/stream/visibility"},
		{"/api/v1/cache/stats", "/api/v1/cache/stats"},

		// Unknown/bot paths collapse to "other".
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/api/v2/something", "other"},
		{"/api/v1/visibility/extra", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that 100 unknown paths produce exactly one
// distinct label.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[normalizeRoute("/scan/"+strconv.Itoa(i))] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for unknown paths, got %d: %v", len(seen), seen)
	}
}

func TestMiddlewareCountsByStatus(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/api/v1/config", http.MethodGet, "418"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/config", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/api/v1/config", http.MethodGet, "418"))

	if after-before != 1 {
		t.Errorf("request counter delta = %v, want 1", after-before)
	}
}

func TestRecordVisibility(t *testing.T) {
	okBefore := testutil.ToFloat64(visibilityComputations.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(visibilityComputations.WithLabelValues("invalid_instant"))
	pairsBefore := testutil.ToFloat64(visibilityPairs)

	RecordVisibility(time.Millisecond, 30, "ok")
	RecordVisibility(time.Millisecond, 30, "invalid_instant")

	if d := testutil.ToFloat64(visibilityComputations.WithLabelValues("ok")) - okBefore; d != 1 {
		t.Errorf("ok delta = %v, want 1", d)
	}
	if d := testutil.ToFloat64(visibilityComputations.WithLabelValues("invalid_instant")) - errBefore; d != 1 {
		t.Errorf("invalid_instant delta = %v, want 1", d)
	}
	if d := testutil.ToFloat64(visibilityPairs) - pairsBefore; d != 30 {
		t.Errorf("pairs delta = %v, want 30 (failed runs are not counted)", d)
	}
}

func TestCacheMetrics(t *testing.T) {
	hits := testutil.ToFloat64(cacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(cacheLookups.WithLabelValues("miss"))

	RecordCacheLookup(true)
	RecordCacheLookup(false)
	RecordCacheLookup(false)
	SetCacheEntries(7)

	if d := testutil.ToFloat64(cacheLookups.WithLabelValues("hit")) - hits; d != 1 {
		t.Errorf("hit delta = %v, want 1", d)
	}
	if d := testutil.ToFloat64(cacheLookups.WithLabelValues("miss")) - misses; d != 2 {
		t.Errorf("miss delta = %v, want 2", d)
	}
	if got := testutil.ToFloat64(cacheEntries); got != 7 {
		t.Errorf("entries gauge = %v, want 7", got)
	}
}

func TestStreamErrorsSeparateFromRejections(t *testing.T) {
	rejected := testutil.ToFloat64(streamRejected.WithLabelValues("per_ip"))
	errs := testutil.ToFloat64(streamErrors.WithLabelValues("keepalive"))

	RecordStreamError("keepalive")

	if d := testutil.ToFloat64(streamErrors.WithLabelValues("keepalive")) - errs; d != 1 {
		t.Errorf("keepalive error delta = %v, want 1", d)
	}
	if d := testutil.ToFloat64(streamRejected.WithLabelValues("per_ip")) - rejected; d != 0 {
		t.Errorf("rejected delta = %v, want 0", d)
	}
}
