// Package config loads runtime configuration for the heartwall CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the heartwall server
//	-t int      upload timeout (seconds)
//	-r int      first reconnect delay for live updates (seconds)
//	-i int      online status check interval (seconds)
//	-o string   directory for rendered previews
//	-l string   log level
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "30s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://localhost:8080",
//	  "upload_timeout": "30s",
//	  "reconnect_backoff": "1s",
//	  "online_check_interval": "3s",
//	  "preview_dir": "/tmp",
//	  "log_level": "info",
//	  "log_format": "console"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
