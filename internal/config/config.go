package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// APIBaseURL is the root of the flood-monitoring API.
	APIBaseURL  string
	HTTPTimeout time.Duration

	// ArchiveDBPath is the sqlite file backing archive ingests.
	ArchiveDBPath string
	// CatalogPath points at a station snapshot CSV. Empty selects the
	// embedded snapshot.
	CatalogPath string

	// MetricsAddr is the listen address for the ops HTTP server. Empty
	// disables it.
	MetricsAddr     string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	httpTimeout, err := parsePositiveDuration("HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		APIBaseURL:      envOrDefault("API_BASE_URL", "https://environment.data.gov.uk/flood-monitoring"),
		HTTPTimeout:     httpTimeout,
		ArchiveDBPath:   envOrDefault("ARCHIVE_DB_PATH", "data/archive/readings.db"),
		CatalogPath:     os.Getenv("CATALOG_PATH"),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "text"),
		ShutdownTimeout: shutdownTimeout,
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parsePositiveDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}
