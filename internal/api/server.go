// Package api wires the HTTP surface: the visibility endpoints, the live
// stream, the embedded dashboard and the ops probes.
package api

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/MichalZG/gaia-targets/internal/auth"
	"github.com/MichalZG/gaia-targets/internal/cache"
	"github.com/MichalZG/gaia-targets/internal/catalog"
	"github.com/MichalZG/gaia-targets/internal/health"
	"github.com/MichalZG/gaia-targets/internal/metrics"
	"github.com/MichalZG/gaia-targets/internal/visibility"
)

// AltitudeThreshold is the altitude (degrees) the dashboard colors against.
const AltitudeThreshold = 30.0

// StatsProvider reports result cache statistics.
type StatsProvider interface {
	Stats() cache.Stats
}

// Deps are the collaborators the server routes to.
type Deps struct {
	Catalog   *catalog.Catalog
	Computer  visibility.Computer
	Stats     StatsProvider // optional
	Stream    http.HandlerFunc
	Readiness []health.ReadinessChecker
	Static    fs.FS // optional dashboard assets
	Clock     clockwork.Clock
	Defaults  visibility.Defaults
	Offsets   []int
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, deps Deps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(logger, authCfg, deps),
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			// The stream extends its own write deadline per event.
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// NewHandler builds the routed handler with the middleware chain applied.
func NewHandler(logger *slog.Logger, authCfg auth.Config, deps Deps) http.Handler {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if len(deps.Offsets) == 0 {
		deps.Offsets = visibility.DefaultOffsets
	}
	h := &handlers{deps: deps, logger: logger.With("component", "api")}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(deps.Readiness...))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/catalog", h.catalog)
	mux.HandleFunc("GET /api/v1/config", h.config)
	mux.HandleFunc("GET /api/v1/visibility", h.visibility)
	mux.HandleFunc("GET /api/v1/visibility/table", h.table)
	mux.HandleFunc("GET /api/v1/visibility/plot", h.plot)
	if deps.Stats != nil {
		mux.HandleFunc("GET /api/v1/cache/stats", h.cacheStats)
	}
	if deps.Stream != nil {
		mux.HandleFunc("GET /api/v1/stream/visibility", deps.Stream)
	}

	if deps.Static != nil {
		static := deps.Static
		mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFileFS(w, r, static, "index.html")
		})
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	}

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)
	return handler
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "component", "api", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}
