package config

import "time"

// Config holds runtime settings for the heartwall CLI.
//
// Fields:
//   - ServerURL: base URL of the heartwall HTTP server.
//   - UploadTimeout: upper bound for one upload request.
//   - ReconnectBackoff: first delay before re-subscribing to live updates.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - PreviewDir: where rendered previews are written.
//   - LogLevel, LogFormat: logger settings, see logging.New.
type Config struct {
	ServerURL           string
	UploadTimeout       time.Duration
	ReconnectBackoff    time.Duration
	OnlineCheckInterval time.Duration
	PreviewDir          string
	LogLevel            string
	LogFormat           string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:8080"
	c.UploadTimeout = 30 * time.Second
	c.ReconnectBackoff = time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.PreviewDir = "."
	c.LogLevel = "warn"
	c.LogFormat = "console"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
