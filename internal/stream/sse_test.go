package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichalZG/gaia-targets/internal/sky"
	"github.com/MichalZG/gaia-targets/internal/visibility"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

func testConfig() Config {
	return Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Second,
		DefaultInterval:    time.Minute,
		Defaults:           visibility.Defaults{Longitude: 37, Latitude: 37, Hour: 22},
	}
}

var testStart = time.Date(2024, 3, 20, 21, 59, 30, 0, time.UTC)

// recordingComputer returns a minimal result and records requested bases.
type recordingComputer struct {
	mu    sync.Mutex
	reqs  []visibility.Request
	fail  error
	calls chan struct{}
}

func newRecordingComputer() *recordingComputer {
	return &recordingComputer{calls: make(chan struct{}, 16)}
}

func (rc *recordingComputer) Compute(_ context.Context, req visibility.Request) (*visibility.Result, error) {
	rc.mu.Lock()
	rc.reqs = append(rc.reqs, req)
	rc.mu.Unlock()
	rc.calls <- struct{}{}
	if rc.fail != nil {
		return nil, rc.fail
	}
	return &visibility.Result{Base: req.Base, Offsets: []int{0, 3, 6}, Rows: []visibility.Row{}}, nil
}

func (rc *recordingComputer) requests() []visibility.Request {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]visibility.Request(nil), rc.reqs...)
}

type sseEvent struct {
	name string
	data map[string]any
}

func parseEvents(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	var name string
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			var msg map[string]any
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg))
			events = append(events, sseEvent{name: name, data: msg})
			name = ""
		case line == "", line == ":", strings.HasPrefix(line, "retry: "):
		default:
			t.Errorf("unexpected SSE line: %q", line)
		}
	}
	return events
}

// serve runs the handler until cancel is called and returns the recorder
// once the handler has exited.
func serve(h *Handler, target, remote string) (cancel func(), done <-chan *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = remote
	ctx, cancelFn := context.WithCancel(req.Context())
	req = req.WithContext(ctx)

	out := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		w := httptest.NewRecorder()
		h.HandleVisibility(w, req)
		out <- w
	}()
	return cancelFn, out
}

func TestStream_FirstEventIsCurrentView(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testStart)
	comp := newRecordingComputer()
	h := NewHandler(comp, testConfig(), clock, testLogger())

	cancel, done := serve(h, "/api/v1/stream/visibility?lon=12.5&lat=-33", "127.0.0.1:12345")
	<-comp.calls
	require.NoError(t, clock.BlockUntilContext(context.Background(), 2))

	// Crossing the hour boundary yields the next hour's view.
	clock.Advance(time.Minute)
	<-comp.calls

	// Give the handler a moment to write the second event.
	time.Sleep(20 * time.Millisecond)
	cancel()
	w := <-done

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

	reqs := comp.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, visibility.Request{Longitude: 12.5, Latitude: -33, Base: time.Date(2024, 3, 20, 21, 0, 0, 0, time.UTC)}, reqs[0])
	assert.Equal(t, time.Date(2024, 3, 20, 22, 0, 0, 0, time.UTC), reqs[1].Base)

	events := parseEvents(t, w.Body.String())
	require.GreaterOrEqual(t, len(events), 1)
	assert.Equal(t, "visibility", events[0].name)
	assert.Equal(t, "visibility", events[0].data["type"])
	assert.Equal(t, "2024-03-20T21:59:30Z", events[0].data["t"])
	result, ok := events[0].data["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2024-03-20T21:00:00Z", result["base"])
}

func TestStream_DefaultLocation(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testStart)
	comp := newRecordingComputer()
	h := NewHandler(comp, testConfig(), clock, testLogger())

	cancel, done := serve(h, "/api/v1/stream/visibility", "127.0.0.1:1")
	<-comp.calls
	cancel()
	<-done

	reqs := comp.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, 37.0, reqs[0].Longitude)
	assert.Equal(t, 37.0, reqs[0].Latitude)
}

func TestStream_ComputeErrorKeepsStreamOpen(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testStart)
	comp := newRecordingComputer()
	comp.fail = errors.New("engine unavailable")
	h := NewHandler(comp, testConfig(), clock, testLogger())

	cancel, done := serve(h, "/api/v1/stream/visibility", "127.0.0.1:1")
	<-comp.calls
	require.NoError(t, clock.BlockUntilContext(context.Background(), 2))
	cancel()
	w := <-done

	events := parseEvents(t, w.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].name)
	assert.Equal(t, "internal", events[0].data["kind"])
}

func TestStream_Keepalive(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testStart)
	comp := newRecordingComputer()
	cfg := testConfig()
	cfg.DefaultInterval = time.Hour
	cfg.KeepaliveInterval = 10 * time.Second
	h := NewHandler(comp, cfg, clock, testLogger())

	cancel, done := serve(h, "/api/v1/stream/visibility", "127.0.0.1:1")
	<-comp.calls
	require.NoError(t, clock.BlockUntilContext(context.Background(), 2))
	clock.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	cancel()
	w := <-done

	assert.Contains(t, w.Body.String(), "\n:\n\n")
}

func TestStream_IgnoresHourAndDate(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testStart)
	comp := newRecordingComputer()
	h := NewHandler(comp, testConfig(), clock, testLogger())

	cancel, done := serve(h, "/api/v1/stream/visibility?lon=10&hour=x&date=bogus", "127.0.0.1:1")
	<-comp.calls
	cancel()
	w := <-done

	assert.Equal(t, http.StatusOK, w.Code)
	reqs := comp.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, 10.0, reqs[0].Longitude)
	assert.Equal(t, time.Date(2024, 3, 20, 21, 0, 0, 0, time.UTC), reqs[0].Base)
}

func TestStream_InvalidQueryParams(t *testing.T) {
	h := NewHandler(newRecordingComputer(), testConfig(), clockwork.NewFakeClockAt(testStart), testLogger())

	tests := []struct {
		name  string
		query string
		kind  string
	}{
		{"interval zero", "?interval=0", "invalid_parameter"},
		{"interval too large", "?interval=99999", "invalid_parameter"},
		{"interval non-numeric", "?interval=abc", "invalid_parameter"},
		{"lon non-numeric", "?lon=east", "invalid_coordinate"},
		{"lat out of range", "?lat=95", "invalid_coordinate"},
		{"lon 360", "?lon=360", "invalid_coordinate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/stream/visibility"+tt.query, nil)
			req.RemoteAddr = "127.0.0.1:12345"
			w := httptest.NewRecorder()
			h.HandleVisibility(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.kind, body["kind"])
		})
	}
}

func TestStream_RateLimitHTTPResponse(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testStart)
	comp := newRecordingComputer()
	cfg := testConfig()
	cfg.MaxConcurrentPerIP = 1
	h := NewHandler(comp, cfg, clock, testLogger())

	cancel, done := serve(h, "/api/v1/stream/visibility", "10.0.0.1:12345")
	<-comp.calls
	require.NoError(t, clock.BlockUntilContext(context.Background(), 2))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream/visibility", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	w := httptest.NewRecorder()
	h.HandleVisibility(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	cancel()
	<-done
	assert.Equal(t, 0, h.limiter.count("10.0.0.1"), "slot released on disconnect")
}

func TestRateLimiting(t *testing.T) {
	limiter := newStreamLimiter(3, 5)

	for i := 0; i < 3; i++ {
		require.Empty(t, limiter.acquire("10.0.0.1"), "acquire %d should succeed", i+1)
	}
	assert.Equal(t, "per_ip", limiter.acquire("10.0.0.1"))

	// Different IP should still work until the global cap.
	assert.Empty(t, limiter.acquire("10.0.0.2"))
	assert.Empty(t, limiter.acquire("10.0.0.3"))
	assert.Equal(t, "total", limiter.acquire("10.0.0.4"))

	limiter.release("10.0.0.1")
	assert.Empty(t, limiter.acquire("10.0.0.4"))

	assert.Equal(t, 2, limiter.count("10.0.0.1"))
	assert.Equal(t, 1, limiter.count("10.0.0.4"))

	// Releasing an IP that holds no slot must not free a global one.
	limiter.release("192.0.2.1")
	assert.Equal(t, "total", limiter.acquire("10.0.0.5"))
}

func TestRateLimitingConcurrent(t *testing.T) {
	limiter := newStreamLimiter(100, 0)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.acquire("10.0.0.1") == "" {
				defer limiter.release("10.0.0.1")
				time.Sleep(10 * time.Millisecond)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, limiter.count("10.0.0.1"))
}

func TestErrorMessageKind(t *testing.T) {
	err := sky.ErrInvalidInstant
	data, jerr := json.Marshal(errorMessage{Type: "error", Error: err.Error(), Kind: sky.Kind(err)})
	require.NoError(t, jerr)
	assert.JSONEq(t, `{"type":"error","error":"invalid instant","kind":"invalid_instant"}`, string(data))
}
