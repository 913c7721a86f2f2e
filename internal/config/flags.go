package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/santatracker/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags. Only
// the flags listed in the package doc are considered; os.Args is filtered
// first so the dotenv and JSON loaders can share the command line.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-l", "-d", "-x", "-k", "-r", "-e", "-b", "-o", "-i", "-w", "-m", "-n", "-v",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.Language, "l", cfg.Language, "route language code")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.DatabaseDriver, "x", cfg.DatabaseDriver, "database driver (sqlite or pgx)")
	fs.StringVar(&cfg.CacheDir, "k", cfg.CacheDir, "route cache directory")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "redis address for preferences")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket")
	offset := fs.Int("o", int(cfg.TimeOffset.Seconds()), "clock offset (in seconds)")
	syncInterval := fs.Int("i", int(cfg.SyncInterval.Seconds()), "route sync interval (in seconds)")
	fs.IntVar(&cfg.FetchWorkers, "w", cfg.FetchWorkers, "fetch workers")
	fs.StringVar(&cfg.RemoteConfigURL, "m", cfg.RemoteConfigURL, "remote config URL")
	fs.StringVar(&cfg.NatsURL, "n", cfg.NatsURL, "NATS URL")
	fs.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.TimeOffset = time.Duration(*offset) * time.Second
	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
}
