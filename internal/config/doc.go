// Package config loads runtime configuration for the Santa tracker.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment: an optional dotenv file (-env, default ".env") is loaded
//     first, then SANTA_* variables are read (see parseEnv).
//  3. Optional JSON file selected via -c or -config (see parseJson).
//  4. Command-line flags (see parseFlags), which override everything else.
//
// Supported flags
//
//	-l string   route language code
//	-d string   database DSN
//	-x string   database driver: sqlite or pgx
//	-k string   cache directory for downloaded route documents
//	-r string   redis address for the preference store (empty: JSON file)
//	-e string   S3 base endpoint
//	-b string   S3 bucket
//	-o int      clock offset (seconds, may be negative)
//	-i int      route sync interval (seconds)
//	-w int      fetch workers (2..4)
//	-m string   remote config URL
//	-n string   NATS URL (empty: push-triggered sync disabled)
//	-v string   log level
//
// # JSON schema
//
// Durations accept either strings like "30s" or integer nanoseconds:
//
//	{
//	  "language": "en",
//	  "database_driver": "sqlite",
//	  "route_max_age": "5m",
//	  "sync_interval": "10m"
//	}
package config
