package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/heartwall/internal/flagx"
	"github.com/dmitrijs2005/heartwall/internal/timex"
)

// FileConfig is the on-disk shape shared by JSON and TOML files. Durations
// use timex.Duration so both "10s" and integer nanoseconds are accepted.
// Zero values leave the current setting untouched.
type FileConfig struct {
	HTTPAddr         string         `json:"http_addr" toml:"http_addr"`
	DatabaseDriver   string         `json:"database_driver" toml:"database_driver"`
	DatabaseDSN      string         `json:"database_dsn" toml:"database_dsn"`
	BlobBackend      string         `json:"blob_backend" toml:"blob_backend"`
	S3RootUser       string         `json:"s3_root_user" toml:"s3_root_user"`
	S3RootPassword   string         `json:"s3_root_password" toml:"s3_root_password"`
	S3Bucket         string         `json:"s3_bucket" toml:"s3_bucket"`
	S3Region         string         `json:"s3_region" toml:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint" toml:"s3_base_endpoint"`
	S3PublicBaseURL  string         `json:"s3_public_base_url" toml:"s3_public_base_url"`
	GCSBucket        string         `json:"gcs_bucket" toml:"gcs_bucket"`
	GCSEndpoint      string         `json:"gcs_endpoint" toml:"gcs_endpoint"`
	GCSPublicBaseURL string         `json:"gcs_public_base_url" toml:"gcs_public_base_url"`
	LocalBlobDir     string         `json:"local_blob_dir" toml:"local_blob_dir"`
	LocalBlobBaseURL string         `json:"local_blob_base_url" toml:"local_blob_base_url"`
	CORSOrigins      []string       `json:"cors_origins" toml:"cors_origins"`
	MaxUploadBytes   int64          `json:"max_upload_bytes" toml:"max_upload_bytes"`
	SubscriberBuffer int            `json:"subscriber_buffer" toml:"subscriber_buffer"`
	LogLevel         string         `json:"log_level" toml:"log_level"`
	LogFormat        string         `json:"log_format" toml:"log_format"`
	ShutdownTimeout  timex.Duration `json:"shutdown_timeout" toml:"shutdown_timeout"`
	TLSDomains       []string       `json:"tls_domains" toml:"tls_domains"`
	TLSCacheDir      string         `json:"tls_cache_dir" toml:"tls_cache_dir"`
}

// parseFile loads the file named by -c/-config, if any. The format is
// chosen from the extension (.toml, otherwise JSON).
func parseFile(config *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	fc := &FileConfig{}
	switch flagx.ConfigFormat(path) {
	case flagx.FormatTOML:
		err = toml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.HTTPAddr, fc.HTTPAddr)
	setString(&c.DatabaseDriver, fc.DatabaseDriver)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.BlobBackend, fc.BlobBackend)
	setString(&c.S3RootUser, fc.S3RootUser)
	setString(&c.S3RootPassword, fc.S3RootPassword)
	setString(&c.S3Bucket, fc.S3Bucket)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&c.S3PublicBaseURL, fc.S3PublicBaseURL)
	setString(&c.GCSBucket, fc.GCSBucket)
	setString(&c.GCSEndpoint, fc.GCSEndpoint)
	setString(&c.GCSPublicBaseURL, fc.GCSPublicBaseURL)
	setString(&c.LocalBlobDir, fc.LocalBlobDir)
	setString(&c.LocalBlobBaseURL, fc.LocalBlobBaseURL)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)
	setString(&c.TLSCacheDir, fc.TLSCacheDir)
	if len(fc.TLSDomains) > 0 {
		c.TLSDomains = fc.TLSDomains
	}
	if len(fc.CORSOrigins) > 0 {
		c.CORSOrigins = fc.CORSOrigins
	}
	if fc.MaxUploadBytes > 0 {
		c.MaxUploadBytes = fc.MaxUploadBytes
	}
	if fc.SubscriberBuffer > 0 {
		c.SubscriberBuffer = fc.SubscriberBuffer
	}
	if fc.ShutdownTimeout.Duration > 0 {
		c.ShutdownTimeout = fc.ShutdownTimeout.Duration
	}
}
