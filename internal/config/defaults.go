package config

import "time"

// Default timing values. Documented here rather than scattered: the
// upstream behavior left the refresh call unbounded, which hangs forever
// against a dead endpoint.
const (
	defaultRequestTimeout = 30 * time.Second
	defaultRefreshTimeout = 30 * time.Second
	defaultRefreshMargin  = 30 * time.Second
)

// defaultPrefetchWorkers bounds warm-up parallelism out of the box.
const defaultPrefetchWorkers = 4

// DefaultConfig returns a Config populated with all default values.
// BaseURL and Tenant have no defaults; validation requires them.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			RequestTimeout: defaultRequestTimeout.String(),
			RefreshTimeout: defaultRefreshTimeout.String(),
		},
		Media: MediaConfig{
			RefreshMargin:   defaultRefreshMargin.String(),
			PrefetchWorkers: defaultPrefetchWorkers,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
