package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gaiatargets"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	visibilityComputations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visibility_computations_total",
			Help:      "Catalog recomputations by outcome (ok, invalid_coordinate, invalid_instant, internal, canceled).",
		},
		[]string{"outcome"},
	)

	visibilityDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "visibility_duration_seconds",
			Help:      "Duration of a full catalog recomputation.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		},
	)

	visibilityPairs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visibility_pairs_total",
			Help:      "Target and offset pairs transformed to altitude/azimuth.",
		},
	)

	visibilityWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "visibility_workers",
			Help:      "Size of the visibility worker pool.",
		},
	)

	catalogTargets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_targets",
			Help:      "Number of targets in the loaded catalog.",
		},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by result (hit, miss).",
		},
		[]string{"result"},
	)

	cacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Result cache entries evicted by age or capacity.",
		},
	)

	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Current number of cached results.",
		},
	)

	streamConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_connections",
			Help:      "Open SSE visibility streams.",
		},
	)

	streamMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_messages_total",
			Help:      "SSE messages sent by event type.",
		},
		[]string{"event"},
	)

	streamRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_rejected_total",
			Help:      "SSE connections rejected by reason.",
		},
		[]string{"reason"},
	)

	streamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_errors_total",
			Help:      "SSE streams ended by a write failure, by stage.",
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		visibilityComputations,
		visibilityDuration,
		visibilityPairs,
		visibilityWorkers,
		catalogTargets,
		cacheLookups,
		cacheEvictions,
		cacheEntries,
		streamConnections,
		streamMessages,
		streamRejected,
		streamErrors,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordVisibility records one catalog recomputation. outcome is "ok" or an
// error kind.
func RecordVisibility(duration time.Duration, pairs int, outcome string) {
	visibilityComputations.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		visibilityDuration.Observe(duration.Seconds())
		visibilityPairs.Add(float64(pairs))
	}
}

// SetVisibilityWorkers sets the worker pool size gauge.
func SetVisibilityWorkers(n int) {
	visibilityWorkers.Set(float64(n))
}

// SetCatalogTargets sets the catalog size gauge.
func SetCatalogTargets(n int) {
	catalogTargets.Set(float64(n))
}

// RecordCacheLookup counts a result cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

// RecordCacheEvictions adds n evicted entries.
func RecordCacheEvictions(n int) {
	if n > 0 {
		cacheEvictions.Add(float64(n))
	}
}

// SetCacheEntries sets the cached entry gauge.
func SetCacheEntries(n int) {
	cacheEntries.Set(float64(n))
}

// StreamOpened and StreamClosed track open SSE connections.
func StreamOpened() { streamConnections.Inc() }

// StreamClosed decrements the open SSE connection gauge.
func StreamClosed() { streamConnections.Dec() }

// RecordStreamMessage counts an SSE message of the given event type.
func RecordStreamMessage(event string) {
	streamMessages.WithLabelValues(event).Inc()
}

// RecordStreamRejected counts a refused SSE connection.
func RecordStreamRejected(reason string) {
	streamRejected.WithLabelValues(reason).Inc()
}

// RecordStreamError counts an open stream that failed while writing.
// stage is "initial", "update" or "keepalive".
func RecordStreamError(stage string) {
	streamErrors.WithLabelValues(stage).Inc()
}

// knownRoutes are exact paths that get their own label. Anything else is
// collapsed to "other" so scanners cannot blow up label cardinality.
var knownRoutes = map[string]bool{
	"/":                         true,
	"/healthz":                  true,
	"/readyz":                   true,
	"/metrics":                  true,
	"/static/app.js":            true,
	"/static/styles.css":        true,
	"/api/v1/catalog":           true,
	"/api/v1/config":            true,
	"/api/v1/visibility":        true,
	"/api/v1/visibility/table":  true,
	"/api/v1/visibility/plot":   true,
	"/api/v1/stream/visibility": true,
	"/api/v1/cache/stats":       true,
}

func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush lets SSE handlers flush through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := normalizeRoute(r.URL.Path)
		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rw.statusCode)).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
