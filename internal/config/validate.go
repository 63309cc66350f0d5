package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Valid log levels.
var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks a Config for contradictions and malformed values.
// BaseURL and Tenant may still be empty here; commands that need them
// call RequireAPI after flag application.
func Validate(cfg *Config) error {
	if cfg.API.BaseURL != "" {
		u, err := url.Parse(cfg.API.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("api.base_url %q is not a valid URL", cfg.API.BaseURL)
		}
	}

	for name, val := range map[string]string{
		"api.request_timeout":  cfg.API.RequestTimeout,
		"api.refresh_timeout":  cfg.API.RefreshTimeout,
		"media.refresh_margin": cfg.Media.RefreshMargin,
	} {
		if val == "" {
			continue
		}

		if d, err := time.ParseDuration(val); err != nil || d <= 0 {
			return fmt.Errorf("%s %q is not a positive duration", name, val)
		}
	}

	if cfg.Media.PrefetchWorkers < 0 {
		return fmt.Errorf("media.prefetch_workers must not be negative")
	}

	if cfg.Logging.Level != "" && !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level)
	}

	cfg.API.Tenant = NormalizeTenant(cfg.API.Tenant)

	return nil
}

// RequireAPI checks that the fields every backend call needs are present.
func RequireAPI(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required (config file, %s, or --base-url)", EnvBaseURL)
	}

	if cfg.API.Tenant == "" {
		return fmt.Errorf("api.tenant is required (config file, %s, or --tenant)", EnvTenant)
	}

	return nil
}

// NormalizeTenant canonicalizes a tenant slug: NFC-normalized, trimmed,
// lowercased. Panchayat names are frequently transliterated Indic names;
// two visually identical slugs must compare equal.
func NormalizeTenant(slug string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(slug)))
}
