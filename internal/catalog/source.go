package catalog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// Loader resolves the configured catalog source, which is either a local
// file path or an http(s) URL. Remote downloads are copied to CacheDir and
// the newest copy stands in when the download fails.
type Loader struct {
	Source   string
	CacheDir string
	MaxFiles int
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// IsRemote reports whether src names an http(s) URL.
func IsRemote(src string) bool {
	s := strings.ToLower(src)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Load reads and parses the catalog once.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	if l.Source == "" {
		return nil, fmt.Errorf("catalog source is not configured")
	}
	clock := l.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "catalog")

	if !IsRemote(l.Source) {
		data, err := os.ReadFile(l.Source)
		if err != nil {
			return nil, fmt.Errorf("reading catalog file: %w", err)
		}
		return l.parse(data, l.Source, clock.Now(), logger)
	}

	data, err := NewFetcher(l.Source, logger).Fetch(ctx)
	if err == nil {
		cat, perr := l.parse(data, l.Source, clock.Now(), logger)
		if perr != nil {
			return l.fallback(perr, logger)
		}
		if l.CacheDir != "" {
			if werr := NewDiskCache(l.CacheDir, l.MaxFiles).Write(data, clock.Now()); werr != nil {
				logger.Warn("failed to write catalog cache copy", "dir", l.CacheDir, "error", werr)
			}
		}
		return cat, nil
	}

	return l.fallback(err, logger)
}

func (l *Loader) fallback(cause error, logger *slog.Logger) (*Catalog, error) {
	if l.CacheDir == "" {
		return nil, cause
	}
	logger.Warn("catalog download failed, trying cached copy", "url", l.Source, "error", cause)

	data, ts, err := NewDiskCache(l.CacheDir, l.MaxFiles).LoadLatest()
	if err != nil {
		return nil, fmt.Errorf("%w (cache fallback: %v)", cause, err)
	}
	cat, err := l.parse(data, "cache", ts, logger)
	if err != nil {
		return nil, fmt.Errorf("%w (cache fallback: %v)", cause, err)
	}
	logger.Info("loaded catalog from cache", "count", cat.Len(), "cached_at", ts.Format(time.RFC3339))
	return cat, nil
}

func (l *Loader) parse(data []byte, source string, at time.Time, logger *slog.Logger) (*Catalog, error) {
	cat, err := Parse(bytes.NewReader(data), logger)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", source, err)
	}
	cat.Source = source
	cat.LoadedAt = at
	return cat, nil
}
