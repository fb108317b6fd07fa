package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	Environment    string
	SettingsFile   string
	AdminToken     string
	AuditBuffer    int
	TrustedProxies string
	RequestTimeout time.Duration
	PageTTL        time.Duration
	CleanupEvery   time.Duration
	LogLevel       string
}

const (
	DefaultAddr           = ":8080"
	DefaultEnvironment    = "development"
	DefaultAuditBuffer    = 1024
	DefaultRequestTimeout = 10 * time.Second
	DefaultPageTTL        = time.Hour
	DefaultCleanupEvery   = time.Minute
)

// FromEnv builds a Server config from environment variables so main stays lean.
// Unset variables fall back to defaults; malformed ones are an error.
func FromEnv() (Server, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Server, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fallback
	}

	cfg := Server{
		Addr:           get("EUCOOKIE_ADDR", DefaultAddr),
		Environment:    get("EUCOOKIE_ENV", DefaultEnvironment),
		SettingsFile:   get("EUCOOKIE_SETTINGS_FILE", ""),
		AdminToken:     get("EUCOOKIE_ADMIN_TOKEN", ""),
		TrustedProxies: get("EUCOOKIE_TRUSTED_PROXIES", ""),
		LogLevel:       get("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.AuditBuffer, err = parseInt("EUCOOKIE_AUDIT_BUFFER", get("EUCOOKIE_AUDIT_BUFFER", ""), DefaultAuditBuffer); err != nil {
		return Server{}, err
	}
	if cfg.RequestTimeout, err = parseDuration("EUCOOKIE_REQUEST_TIMEOUT", get("EUCOOKIE_REQUEST_TIMEOUT", ""), DefaultRequestTimeout); err != nil {
		return Server{}, err
	}
	if cfg.PageTTL, err = parseDuration("EUCOOKIE_PAGE_TTL", get("EUCOOKIE_PAGE_TTL", ""), DefaultPageTTL); err != nil {
		return Server{}, err
	}
	if cfg.CleanupEvery, err = parseDuration("EUCOOKIE_CLEANUP_INTERVAL", get("EUCOOKIE_CLEANUP_INTERVAL", ""), DefaultCleanupEvery); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// IsProduction reports whether the server runs with production defaults.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

func parseInt(key, raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, raw)
	}
	return v, nil
}

func parseDuration(key, raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, raw)
	}
	return v, nil
}
