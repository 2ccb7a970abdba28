package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseFile_JSON(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{
		"http_addr":         "www.example:9000",
		"database_driver":   "postgres",
		"database_dsn":      "postgres://x",
		"blob_backend":      "s3",
		"s3_root_user":      "user",
		"s3_root_password":  "password",
		"s3_bucket":         "bucket",
		"s3_region":         "region",
		"s3_base_endpoint":  "base_endpoint",
		"cors_origins":      []string{"http://a", "http://b"},
		"max_upload_bytes":  1024,
		"subscriber_buffer": 4,
		"shutdown_timeout":  "3s",
	})
	withArgs(t, "-config", path)

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseFile(cfg))

	assert.Equal(t, "www.example:9000", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "postgres://x", cfg.DatabaseDSN)
	assert.Equal(t, "s3", cfg.BlobBackend)
	assert.Equal(t, "user", cfg.S3RootUser)
	assert.Equal(t, "password", cfg.S3RootPassword)
	assert.Equal(t, "bucket", cfg.S3Bucket)
	assert.Equal(t, "region", cfg.S3Region)
	assert.Equal(t, "base_endpoint", cfg.S3BaseEndpoint)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.CORSOrigins)
	assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
	assert.Equal(t, 4, cfg.SubscriberBuffer)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	// untouched
	assert.Equal(t, "data/blobs", cfg.LocalBlobDir)
}

func Test_parseFile_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
blob_backend = "gcs"
gcs_bucket = "hearts"
gcs_endpoint = "http://localhost:4443/storage/v1/"
shutdown_timeout = "1m"
`), 0o600))
	withArgs(t, "-c", path)

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseFile(cfg))

	assert.Equal(t, "gcs", cfg.BlobBackend)
	assert.Equal(t, "hearts", cfg.GCSBucket)
	assert.Equal(t, "http://localhost:4443/storage/v1/", cfg.GCSEndpoint)
	assert.Equal(t, time.Minute, cfg.ShutdownTimeout)
}

func Test_parseFile_NoFlagNoChanges(t *testing.T) {
	withArgs(t)

	cfg := &Config{}
	cfg.LoadDefaults()
	want := *cfg
	require.NoError(t, parseFile(cfg))
	assert.Equal(t, want, *cfg)
}

func Test_parseFile_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		withArgs(t, "-c", filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, parseFile(&Config{}))
	})
	t.Run("bad json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
		withArgs(t, "-c", path)
		assert.Error(t, parseFile(&Config{}))
	})
	t.Run("bad duration", func(t *testing.T) {
		path := writeTempJSON(t, "", "", map[string]any{"shutdown_timeout": "soon"})
		withArgs(t, "-c", path)
		assert.Error(t, parseFile(&Config{}))
	})
}
