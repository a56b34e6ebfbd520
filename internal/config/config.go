// Package config defines service configuration and its loading.
//
// Values are layered: defaults from New, then an optional YAML file named by
// RSVP_CONFIG, then RSVP_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":3000".
	Addr string `koanf:"addr"`

	// StorageDriver is one of memory, sqlite, gorm-sqlite, gorm-mysql.
	StorageDriver string `koanf:"storage_driver"`
	// StorageDSN is a file path for SQLite drivers or a MySQL DSN.
	StorageDSN string `koanf:"storage_dsn"`

	// MatchThreshold is the minimum name similarity accepted as a guest list match.
	MatchThreshold float64 `koanf:"match_threshold"`

	// RateLimitMax submissions are allowed per client every RateLimitWindowMS.
	RateLimitMax      int `koanf:"rate_limit_max"`
	RateLimitWindowMS int `koanf:"rate_limit_window_ms"`

	// AdminAPIKey guards the admin endpoints. Empty disables them.
	AdminAPIKey string `koanf:"admin_api_key"`

	// ImportMaxBytes caps uploaded guest-list CSV size.
	ImportMaxBytes int64 `koanf:"import_max_bytes"`
	// ImportConcurrency bounds parallel invitee inserts during import.
	ImportConcurrency int `koanf:"import_concurrency"`

	// CORSAllowedOrigins lists origins allowed to call the API.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// TrustProxyHeaders makes the first X-Forwarded-For hop the client id.
	TrustProxyHeaders bool `koanf:"trust_proxy_headers"`

	// ContactEmail is shown to guests who are not found on the list.
	ContactEmail string `koanf:"contact_email"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":3000",
		StorageDriver:      "sqlite",
		StorageDSN:         "wedding.db",
		MatchThreshold:     0.75,
		RateLimitMax:       5,
		RateLimitWindowMS:  int(time.Hour / time.Millisecond),
		ImportMaxBytes:     5 << 20,
		ImportConcurrency:  4,
		CORSAllowedOrigins: []string{"*"},
	}
}

// RateLimitWindow returns the rate limit window as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.StorageDriver) == "":
		return fmt.Errorf("%w: storage_driver must not be empty", ErrInvalidConfig)
	case c.StorageDriver != "memory" && strings.TrimSpace(c.StorageDSN) == "":
		return fmt.Errorf("%w: storage_dsn is required for %s", ErrInvalidConfig, c.StorageDriver)
	case c.MatchThreshold <= 0 || c.MatchThreshold > 1:
		return fmt.Errorf("%w: match_threshold must be in (0, 1], got %v", ErrInvalidConfig, c.MatchThreshold)
	case c.RateLimitMax <= 0:
		return fmt.Errorf("%w: rate_limit_max must be positive", ErrInvalidConfig)
	case c.RateLimitWindowMS <= 0:
		return fmt.Errorf("%w: rate_limit_window_ms must be positive", ErrInvalidConfig)
	case c.ImportMaxBytes <= 0:
		return fmt.Errorf("%w: import_max_bytes must be positive", ErrInvalidConfig)
	case c.ImportConcurrency <= 0:
		return fmt.Errorf("%w: import_concurrency must be positive", ErrInvalidConfig)
	}
	return nil
}
