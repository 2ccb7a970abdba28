package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/heartwall/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the server (default from Config)
//	-t int      upload timeout in seconds (default from Config)
//	-r int      reconnect backoff in seconds (default from Config)
//	-i int      online check interval in seconds (default from Config)
//	-o string   preview directory
//	-l string   log level
//
// Only recognised flags are passed to the FlagSet, see flagx.FilterArgs.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-r", "-i", "-o", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the server")
	uploadTimeout := fs.Int("t", int(cfg.UploadTimeout.Seconds()), "upload timeout (in seconds)")
	reconnect := fs.Int("r", int(cfg.ReconnectBackoff.Seconds()), "reconnect backoff (in seconds)")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.PreviewDir, "o", cfg.PreviewDir, "preview output directory")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.UploadTimeout = time.Duration(*uploadTimeout) * time.Second
	cfg.ReconnectBackoff = time.Duration(*reconnect) * time.Second
	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
