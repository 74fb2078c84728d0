package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// Config holds authentication configuration.
type Config struct {
	Enabled bool
	Token   string

	// PublicPaths are additional exact paths served without a token.
	PublicPaths []string
}

// exemptPaths are always public regardless of auth configuration.
var exemptPaths = map[string]bool{
	"/":        true,
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// exemptPrefixes are path prefixes that are always public.
var exemptPrefixes = []string{
	"/static/",
}

// queryTokenPrefix marks routes that may carry the token as ?token=.
// Browsers cannot set headers on an EventSource.
const queryTokenPrefix = "/api/v1/stream/"

func (c Config) isExempt(path string) bool {
	if exemptPaths[path] {
		return true
	}
	for _, p := range c.PublicPaths {
		if p == path {
			return true
		}
	}
	for _, prefix := range exemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// tokenFrom returns the presented token, or "" when none was given.
func tokenFrom(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	if header == "" && strings.HasPrefix(r.URL.Path, queryTokenPrefix) {
		return r.URL.Query().Get("token")
	}
	return ""
}

// Middleware returns an HTTP middleware that enforces Bearer token auth
// on non-exempt paths when auth is enabled.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || cfg.isExempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token := tokenFrom(r)
			if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Token)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="gaia-targets"`)
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "kind": "unauthorized"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
