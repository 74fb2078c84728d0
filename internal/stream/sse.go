// Package stream implements Server-Sent Events (SSE) streaming of the live
// visibility view. Clients connect via GET /api/v1/stream/visibility and
// receive the catalog's altitude/azimuth table for the current UT hour,
// refreshed every interval and recomputed when the hour rolls over.
//
// SSE message format:
//
//	event: visibility
//	data: {"type":"visibility","t":"2026-02-06T04:12:00Z","result":{...}}
//
// The first event on every connection is the current view. Keep-alive
// comments (:\n\n) are sent every KeepaliveInterval while nothing else is
// written.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/MichalZG/gaia-targets/internal/httputil"
	"github.com/MichalZG/gaia-targets/internal/metrics"
	"github.com/MichalZG/gaia-targets/internal/sky"
	"github.com/MichalZG/gaia-targets/internal/visibility"
)

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	MaxConcurrent      int           // Max concurrent streams overall (default: 1000).
	BandwidthLimit     int           // Bytes per second per stream, 0 = unlimited (default: 1048576).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	DefaultInterval    time.Duration // Refresh interval when the client gives none (default: 60s).
	TrustProxy         bool          // Read client IPs from X-Forwarded-For / X-Real-IP.
	Defaults           visibility.Defaults
}

const (
	minInterval = 5 * time.Second
	maxInterval = time.Hour
)

// Handler manages SSE streaming connections.
type Handler struct {
	computer visibility.Computer
	config   Config
	limiter  *streamLimiter
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewHandler creates a new streaming handler backed by computer.
func NewHandler(computer visibility.Computer, config Config, clock clockwork.Clock, logger *slog.Logger) *Handler {
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 30 * time.Second
	}
	if config.DefaultInterval <= 0 {
		config.DefaultInterval = time.Minute
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Handler{
		computer: computer,
		config:   config,
		limiter:  newStreamLimiter(config.MaxConcurrentPerIP, config.MaxConcurrent),
		clock:    clock,
		logger:   logger.With("component", "stream"),
	}
}

// HandleVisibility serves the live visibility stream.
// GET /api/v1/stream/visibility?lon=37&lat=37&interval=60
func (h *Handler) HandleVisibility(w http.ResponseWriter, r *http.Request) {
	interval := h.config.DefaultInterval
	if v := r.URL.Query().Get("interval"); v != "" {
		n, err := strconv.Atoi(v)
		d := time.Duration(n) * time.Second
		if err != nil || d < minInterval || d > maxInterval {
			writeError(w, http.StatusBadRequest, "invalid interval parameter, must be 5-3600", "invalid_parameter")
			return
		}
		interval = d
	}

	// Only the location is taken from the query; the hour is always the
	// current one.
	lon, lat, err := visibility.ParseLocation(r.URL.Query(), h.config.Defaults)
	if err == nil {
		err = visibility.ValidateLocation(lon, lat)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), sky.Kind(err))
		return
	}

	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if reason := h.limiter.acquire(ip); reason != "" {
		metrics.RecordStreamRejected(reason)
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"limit", reason,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusTooManyRequests, "too many concurrent streams", "rate_limited")
		return
	}

	metrics.StreamOpened()
	startTime := h.clock.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"lon", lon,
		"lat", lat,
		"interval_seconds", interval.Seconds(),
	)

	defer func() {
		h.limiter.release(ip)
		metrics.StreamClosed()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(h.clock.Since(startTime).Seconds()),
		)
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported", "internal")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's default WriteTimeout for this connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		logger:  h.logger,
	}
	if h.config.BandwidthLimit > 0 {
		c.bandwidth = rate.NewLimiter(rate.Limit(h.config.BandwidthLimit), h.config.BandwidthLimit)
	}

	// Jittered retry interval (3-7s) so restarts don't cause a reconnection
	// storm.
	fmt.Fprintf(w, "retry: %d\n\n", 3000+rand.IntN(4000))
	flusher.Flush()

	ctx := r.Context()
	if err := h.sendView(ctx, c, lon, lat); err != nil {
		if ctx.Err() == nil {
			metrics.RecordStreamError("initial")
		}
		h.logger.Warn("stream send error (initial view)", "remote_ip", ip, "error", err)
		return
	}

	ticker := h.clock.NewTicker(interval)
	defer ticker.Stop()

	keepalive := h.clock.NewTicker(h.config.KeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.Chan():
			if err := h.sendView(ctx, c, lon, lat); err != nil {
				if ctx.Err() == nil {
					metrics.RecordStreamError("update")
				}
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}
			keepalive.Reset(h.config.KeepaliveInterval)

		case <-keepalive.Chan():
			if err := c.sendKeepalive(); err != nil {
				metrics.RecordStreamError("keepalive")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// sendView computes the current-hour view and writes it. A failed
// computation is reported to the client as an error event and the stream
// stays open; only write failures end it.
func (h *Handler) sendView(ctx context.Context, c *client, lon, lat float64) error {
	now := h.clock.Now().UTC()
	req := visibility.Request{Longitude: lon, Latitude: lat, Base: now.Truncate(time.Hour)}

	res, err := h.computer.Compute(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		h.logger.Warn("stream computation failed", "error", err)
		return c.sendEvent(ctx, "error", errorMessage{Type: "error", Error: err.Error(), Kind: sky.Kind(err)})
	}

	return c.sendEvent(ctx, "visibility", visibilityMessage{
		Type:   "visibility",
		T:      now.Format(time.RFC3339),
		Result: res,
	})
}

// SSE message payload types.

type visibilityMessage struct {
	Type   string             `json:"type"`
	T      string             `json:"t"`
	Result *visibility.Result `json:"result"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg, "kind": kind})
}
