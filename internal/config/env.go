package config

import (
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/santatracker/internal/flagx"
	"github.com/joho/godotenv"
)

// parseEnv overlays Config with SANTA_* environment variables. A dotenv file
// (path from -env, ".env" otherwise) is loaded first when it exists; variables
// already present in the process environment win over the file.
func parseEnv(cfg *Config) {
	envFile := flagx.EnvFileFlag()
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	str("SANTA_LANGUAGE", &cfg.Language)
	str("SANTA_DATABASE_DRIVER", &cfg.DatabaseDriver)
	str("SANTA_DATABASE_DSN", &cfg.DatabaseDSN)
	str("SANTA_CACHE_DIR", &cfg.CacheDir)
	str("SANTA_PREFS_PATH", &cfg.PrefsPath)
	str("SANTA_REDIS_ADDR", &cfg.RedisAddr)
	str("SANTA_S3_USER", &cfg.S3User)
	str("SANTA_S3_PASSWORD", &cfg.S3Password)
	str("SANTA_S3_BUCKET", &cfg.S3Bucket)
	str("SANTA_S3_REGION", &cfg.S3Region)
	str("SANTA_S3_ENDPOINT", &cfg.S3BaseEndpoint)
	str("SANTA_ROUTE_PATH", &cfg.RoutePathTemplate)
	dur("SANTA_ROUTE_MAX_AGE", &cfg.RouteMaxAge)
	dur("SANTA_SYNC_INTERVAL", &cfg.SyncInterval)
	dur("SANTA_TICK_INTERVAL", &cfg.TickInterval)
	dur("SANTA_TIME_OFFSET", &cfg.TimeOffset)
	str("SANTA_REMOTE_CONFIG_URL", &cfg.RemoteConfigURL)
	str("SANTA_REMOTE_CONFIG_SECRET", &cfg.RemoteConfigSecret)
	dur("SANTA_REMOTE_CONFIG_CACHE", &cfg.RemoteConfigCacheDuration)
	str("SANTA_NATS_URL", &cfg.NatsURL)
	str("SANTA_SYNC_SUBJECT", &cfg.SyncSubject)
	dur("SANTA_SYNC_MIN_INTERVAL", &cfg.SyncMinInterval)
	str("SANTA_LOG_LEVEL", &cfg.LogLevel)

	if v, ok := os.LookupEnv("SANTA_FETCH_WORKERS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FetchWorkers = n
		}
	}
}
