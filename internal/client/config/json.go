package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/heartwall/internal/flagx"
	"github.com/dmitrijs2005/heartwall/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "30s" or as integer nanoseconds.
type JsonConfig struct {
	ServerURL           string         `json:"server_url"`
	UploadTimeout       timex.Duration `json:"upload_timeout"`
	ReconnectBackoff    timex.Duration `json:"reconnect_backoff"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	PreviewDir          string         `json:"preview_dir"`
	LogLevel            string         `json:"log_level"`
	LogFormat           string         `json:"log_format"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Absent keys keep their current values. Read and unmarshal
// errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.UploadTimeout.Duration != 0 {
		cfg.UploadTimeout = jc.UploadTimeout.Duration
	}
	if jc.ReconnectBackoff.Duration != 0 {
		cfg.ReconnectBackoff = jc.ReconnectBackoff.Duration
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.PreviewDir != "" {
		cfg.PreviewDir = jc.PreviewDir
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	if jc.LogFormat != "" {
		cfg.LogFormat = jc.LogFormat
	}
}
