package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig  = "GRAMSETU_CONFIG"
	EnvBaseURL = "GRAMSETU_BASE_URL"
	EnvTenant  = "GRAMSETU_TENANT"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // GRAMSETU_CONFIG: override config file path
	BaseURL    string // GRAMSETU_BASE_URL: backend base URL override
	Tenant     string // GRAMSETU_TENANT: tenant slug override
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify the Config; Resolve applies the fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		BaseURL:    os.Getenv(EnvBaseURL),
		Tenant:     os.Getenv(EnvTenant),
	}
}
