// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for gramsetu-go. It supports a
// three-layer override chain (defaults -> config file -> environment) with
// CLI flags applied last by the command layer.
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	API     APIConfig     `toml:"api"`
	Media   MediaConfig   `toml:"media"`
	Logging LoggingConfig `toml:"logging"`
}

// APIConfig locates the backend and bounds its calls.
type APIConfig struct {
	// BaseURL of the panchayat REST backend, without trailing slash.
	BaseURL string `toml:"base_url"`
	// Tenant is the panchayat site slug sent with every request.
	Tenant string `toml:"tenant"`
	// RequestTimeout bounds each HTTP request (Go duration string).
	RequestTimeout string `toml:"request_timeout"`
	// RefreshTimeout bounds the credential refresh call. The upstream web
	// client waits forever; here a hung refresh endpoint fails like any
	// backend error.
	RefreshTimeout string `toml:"refresh_timeout"`
}

// MediaConfig controls the signed-URL cache.
type MediaConfig struct {
	// RefreshMargin is the lead time before URL expiry at which the cache
	// refreshes proactively (Go duration string).
	RefreshMargin string `toml:"refresh_margin"`
	// CachePath is the sqlite file persisting signed URLs across runs.
	// Empty selects the default data-dir path.
	CachePath string `toml:"cache_path"`
	// PrefetchWorkers bounds parallel warm-up fetches.
	PrefetchWorkers int `toml:"prefetch_workers"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// ParsedRequestTimeout parses APIConfig.RequestTimeout, falling back to the
// default on empty or malformed values (validation rejects malformed
// values earlier; the fallback keeps the getter total).
func (c APIConfig) ParsedRequestTimeout() time.Duration {
	return parseDurationOr(c.RequestTimeout, defaultRequestTimeout)
}

// ParsedRefreshTimeout parses APIConfig.RefreshTimeout with fallback.
func (c APIConfig) ParsedRefreshTimeout() time.Duration {
	return parseDurationOr(c.RefreshTimeout, defaultRefreshTimeout)
}

// ParsedRefreshMargin parses MediaConfig.RefreshMargin with fallback.
func (c MediaConfig) ParsedRefreshMargin() time.Duration {
	return parseDurationOr(c.RefreshMargin, defaultRefreshMargin)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}

	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}
