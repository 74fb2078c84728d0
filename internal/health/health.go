// Package health serves the liveness and readiness probes.
package health

import (
	"net/http"
	"sync/atomic"
)

// Healthz returns 200 "ok\n" unconditionally.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// ReadinessChecker reports whether the service can answer requests.
type ReadinessChecker interface {
	Ready() (bool, string)
}

// Flag is a ReadinessChecker flipped once startup work has finished.
type Flag struct {
	ready  atomic.Bool
	reason atomic.Value
}

// NewFlag returns a Flag that is not ready and reports reason.
func NewFlag(reason string) *Flag {
	f := &Flag{}
	f.reason.Store(reason)
	return f
}

// Set marks the flag ready.
func (f *Flag) Set() { f.ready.Store(true) }

// Ready implements ReadinessChecker.
func (f *Flag) Ready() (bool, string) {
	if f.ready.Load() {
		return true, ""
	}
	reason, _ := f.reason.Load().(string)
	return false, reason
}

// Readyz returns a handler answering 200 "ready\n" once every checker
// reports ready, and 503 with the first failing reason otherwise.
func Readyz(checkers ...ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		for _, c := range checkers {
			if ok, reason := c.Ready(); !ok {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("not ready: " + reason + "\n"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready\n"))
	}
}
