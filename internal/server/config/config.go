// Package config handles configuration for the server component:
// defaults, an optional JSON or TOML file, environment variables and
// command-line flags, applied in that order.
package config

import (
	"fmt"
	"time"
)

// Config holds runtime settings for the heartwall server.
//
// Env tags are read by caarlos0/env after the config file is applied, so
// only variables that are actually set override earlier layers.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR"`

	// DatabaseDriver is "postgres" (pgx) or "sqlite" (modernc).
	DatabaseDriver string `env:"DATABASE_DRIVER"`
	DatabaseDSN    string `env:"DATABASE_DSN"`

	// BlobBackend is "s3", "gcs" or "local".
	BlobBackend string `env:"BLOB_BACKEND"`

	S3RootUser      string `env:"S3_ROOT_USER"`
	S3RootPassword  string `env:"S3_ROOT_PASSWORD"`
	S3Bucket        string `env:"S3_BUCKET"`
	S3Region        string `env:"S3_REGION"`
	S3BaseEndpoint  string `env:"S3_BASE_ENDPOINT"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`

	GCSBucket        string `env:"GCS_BUCKET"`
	GCSEndpoint      string `env:"GCS_ENDPOINT"`
	GCSPublicBaseURL string `env:"GCS_PUBLIC_BASE_URL"`

	LocalBlobDir     string `env:"LOCAL_BLOB_DIR"`
	LocalBlobBaseURL string `env:"LOCAL_BLOB_BASE_URL"`

	CORSOrigins      []string `env:"CORS_ORIGIN" envSeparator:","`
	MaxUploadBytes   int64    `env:"MAX_UPLOAD_BYTES"`
	SubscriberBuffer int      `env:"SUBSCRIBER_BUFFER"`

	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`

	// TLSDomains enables HTTPS with ACME certificates for these hosts.
	TLSDomains  []string `env:"TLS_DOMAINS" envSeparator:","`
	TLSCacheDir string   `env:"TLS_CACHE_DIR"`
}

// LoadDefaults populates Config with development defaults: embedded SQLite
// and blobs on the local filesystem.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "file:heartwall.db?_pragma=busy_timeout(5000)"
	c.BlobBackend = "local"
	c.S3RootUser = ""
	c.S3RootPassword = ""
	c.S3Bucket = "memories"
	c.S3Region = "us-east-1"
	c.LocalBlobDir = "data/blobs"
	c.LocalBlobBaseURL = "http://localhost:8080/blobs"
	c.CORSOrigins = []string{"*"}
	c.MaxUploadBytes = 20 << 20
	c.SubscriberBuffer = 16
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.ShutdownTimeout = 10 * time.Second
	c.TLSCacheDir = "data/certs"
}

// Validate checks cross-field constraints after all layers are applied.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres", "pgx", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("unknown database driver %q", c.DatabaseDriver)
	}
	switch c.BlobBackend {
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("s3 backend requires a bucket")
		}
	case "gcs":
		if c.GCSBucket == "" {
			return fmt.Errorf("gcs backend requires a bucket")
		}
	case "local":
		if c.LocalBlobDir == "" {
			return fmt.Errorf("local backend requires a directory")
		}
	default:
		return fmt.Errorf("unknown blob backend %q", c.BlobBackend)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}
	if c.SubscriberBuffer <= 0 {
		return fmt.Errorf("subscriber buffer must be positive")
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file, the environment and finally command-line flags.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
