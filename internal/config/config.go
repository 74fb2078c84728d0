// Package config loads service settings from GAIA_* environment variables.
// Malformed values log a warning and keep the default; only an
// inconsistent auth setup is fatal.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/MichalZG/gaia-targets/internal/auth"
	"github.com/MichalZG/gaia-targets/internal/cache"
	"github.com/MichalZG/gaia-targets/internal/sky"
	"github.com/MichalZG/gaia-targets/internal/stream"
	"github.com/MichalZG/gaia-targets/internal/visibility"
)

// CatalogConfig locates the target catalog.
type CatalogConfig struct {
	Source   string // file path or http(s) URL
	CacheDir string // where remote copies are kept
	MaxFiles int    // remote copies to keep
}

// Config holds all service settings.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	Auth     auth.Config
	Catalog  CatalogConfig
	Defaults visibility.Defaults
	Engine   visibility.Config
	Cache    cache.Config
	Stream   stream.Config
}

// LoadDotEnv loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// NewLogger builds the process logger from LOG_LEVEL (debug|info|warn|error)
// and LOG_FORMAT (json|text).
func NewLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Load reads the configuration from the environment.
func Load(logger *slog.Logger) (Config, error) {
	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPAddr:        envString("GAIA_HTTP_ADDR", ":8080"),
		ShutdownTimeout: envSeconds(logger, "GAIA_SHUTDOWN_TIMEOUT", 5*time.Second),
		Auth:            authCfg,
		Catalog:         loadCatalogConfig(logger),
		Defaults:        loadDefaults(logger),
		Engine:          loadEngineConfig(logger),
	}
	cfg.Cache = loadCacheConfig(logger, cfg.Defaults)
	cfg.Stream = loadStreamConfig(logger, cfg.Defaults)

	logger.Info("config loaded",
		"http_addr", cfg.HTTPAddr,
		"auth_enabled", cfg.Auth.Enabled,
		"catalog", cfg.Catalog.Source,
		"default_lon", cfg.Defaults.Longitude,
		"default_lat", cfg.Defaults.Latitude,
		"default_hour", cfg.Defaults.Hour,
	)
	return cfg, nil
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	if v := os.Getenv("GAIA_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, errors.New("GAIA_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("GAIA_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("GAIA_AUTH_TOKEN is required when auth is enabled")
		}
		cfg.PublicPaths = envList("GAIA_AUTH_PUBLIC_PATHS")
		logger.Info("auth enabled", "public_paths", cfg.PublicPaths)
	}

	return cfg, nil
}

func loadCatalogConfig(logger *slog.Logger) CatalogConfig {
	cfg := CatalogConfig{
		Source:   envString("GAIA_CATALOG", "targets.csv"),
		CacheDir: envString("GAIA_CATALOG_CACHE_DIR", "/tmp/gaia-targets/catalog"),
		MaxFiles: envPositiveInt(logger, "GAIA_CATALOG_CACHE_FILES", 3),
	}
	logger.Info("catalog config",
		"source", cfg.Source,
		"cache_dir", cfg.CacheDir,
		"max_files", cfg.MaxFiles,
	)
	return cfg
}

func loadDefaults(logger *slog.Logger) visibility.Defaults {
	d := visibility.Defaults{Longitude: 37, Latitude: 37, Hour: 22}

	if v := os.Getenv("GAIA_DEFAULT_LON"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || visibility.ValidateLocation(f, d.Latitude) != nil {
			logger.Warn("invalid GAIA_DEFAULT_LON value, using default", "value", v, "default", d.Longitude)
		} else {
			d.Longitude = f
		}
	}

	if v := os.Getenv("GAIA_DEFAULT_LAT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || visibility.ValidateLocation(d.Longitude, f) != nil {
			logger.Warn("invalid GAIA_DEFAULT_LAT value, using default", "value", v, "default", d.Latitude)
		} else {
			d.Latitude = f
		}
	}

	if v := os.Getenv("GAIA_DEFAULT_HOUR"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 23 {
			logger.Warn("invalid GAIA_DEFAULT_HOUR value, using default", "value", v, "default", d.Hour)
		} else {
			d.Hour = n
		}
	}

	return d
}

func loadEngineConfig(logger *slog.Logger) visibility.Config {
	cfg := visibility.Config{
		Workers: envPositiveInt(logger, "GAIA_WORKERS", runtime.NumCPU()),
		Offsets: append([]int(nil), visibility.DefaultOffsets...),
	}

	if v := os.Getenv("GAIA_OFFSETS"); v != "" {
		offsets, err := parseOffsets(v)
		if err != nil {
			logger.Warn("invalid GAIA_OFFSETS value, using default", "value", v, "error", err, "default", cfg.Offsets)
		} else {
			cfg.Offsets = offsets
		}
	}

	name := envString("GAIA_TRANSFORMER", "meeus")
	tr, err := sky.TransformerByName(name)
	if err != nil {
		logger.Warn("invalid GAIA_TRANSFORMER value, using default", "value", name, "error", err, "default", "meeus")
		name, tr = "meeus", sky.DefaultTransformer
	}
	cfg.Transformer = tr

	logger.Info("engine config", "workers", cfg.Workers, "offsets", cfg.Offsets, "transformer", name)
	return cfg
}

// parseOffsets reads a comma-separated list of hour offsets in [-24, 24].
func parseOffsets(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("offset %q is not an integer", part)
		}
		if n < -24 || n > 24 {
			return nil, fmt.Errorf("offset %d outside [-24, 24]", n)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, errors.New("no offsets")
	}
	return out, nil
}

func loadCacheConfig(logger *slog.Logger, d visibility.Defaults) cache.Config {
	cfg := cache.Config{
		MaxEntries:    envPositiveInt(logger, "GAIA_CACHE_MAX_ENTRIES", 1024),
		TTL:           envSeconds(logger, "GAIA_CACHE_TTL", time.Hour),
		SweepInterval: envSeconds(logger, "GAIA_CACHE_SWEEP_INTERVAL", time.Minute),
		WarmLongitude: d.Longitude,
		WarmLatitude:  d.Latitude,
		WarmHour:      d.Hour,
	}

	logger.Info("cache config",
		"max_entries", cfg.MaxEntries,
		"ttl_seconds", cfg.TTL.Seconds(),
		"sweep_interval_seconds", cfg.SweepInterval.Seconds(),
	)
	return cfg
}

func loadStreamConfig(logger *slog.Logger, d visibility.Defaults) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: envPositiveInt(logger, "GAIA_STREAM_MAX_CONCURRENT", 10),
		MaxConcurrent:      envPositiveInt(logger, "GAIA_STREAM_MAX_TOTAL", 1000),
		BandwidthLimit:     envPositiveInt(logger, "GAIA_STREAM_BANDWIDTH_LIMIT", 1048576),
		KeepaliveInterval:  envSeconds(logger, "GAIA_STREAM_KEEPALIVE_INTERVAL", 30*time.Second),
		DefaultInterval:    envSeconds(logger, "GAIA_STREAM_INTERVAL", time.Minute),
		Defaults:           d,
	}

	if v := os.Getenv("GAIA_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid GAIA_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"max_concurrent", cfg.MaxConcurrent,
		"bandwidth_limit", cfg.BandwidthLimit,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
		"interval_seconds", cfg.DefaultInterval.Seconds(),
		"trust_proxy", cfg.TrustProxy,
	)
	return cfg
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func envPositiveInt(logger *slog.Logger, key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		logger.Warn("invalid "+key+" value, using default", "value", v, "default", def)
		return def
	}
	return n
}

// envSeconds reads a whole number of seconds, or a Go duration string.
func envSeconds(logger *slog.Logger, key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	logger.Warn("invalid "+key+" value, using default", "value", v, "default", def.String())
	return def
}
