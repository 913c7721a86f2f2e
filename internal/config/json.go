package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/santatracker/internal/flagx"
	"github.com/dmitrijs2005/santatracker/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Empty fields leave the
// current value untouched.
type JsonConfig struct {
	Language                  string         `json:"language"`
	DatabaseDriver            string         `json:"database_driver"`
	DatabaseDSN               string         `json:"database_dsn"`
	CacheDir                  string         `json:"cache_dir"`
	PrefsPath                 string         `json:"prefs_path"`
	RedisAddr                 string         `json:"redis_addr"`
	S3User                    string         `json:"s3_user"`
	S3Password                string         `json:"s3_password"`
	S3Bucket                  string         `json:"s3_bucket"`
	S3Region                  string         `json:"s3_region"`
	S3BaseEndpoint            string         `json:"s3_base_endpoint"`
	RoutePathTemplate         string         `json:"route_path_template"`
	RouteMaxAge               timex.Duration `json:"route_max_age"`
	SyncInterval              timex.Duration `json:"sync_interval"`
	TickInterval              timex.Duration `json:"tick_interval"`
	TimeOffset                timex.Duration `json:"time_offset"`
	FetchWorkers              int            `json:"fetch_workers"`
	RemoteConfigURL           string         `json:"remote_config_url"`
	RemoteConfigSecret        string         `json:"remote_config_secret"`
	RemoteConfigCacheDuration timex.Duration `json:"remote_config_cache_duration"`
	NatsURL                   string         `json:"nats_url"`
	SyncSubject               string         `json:"sync_subject"`
	SyncMinInterval           timex.Duration `json:"sync_min_interval"`
	LogLevel                  string         `json:"log_level"`
}

// parseJson overlays Config with values from the file named by -c/-config.
// It panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.Language, jc.Language)
	setString(&cfg.DatabaseDriver, jc.DatabaseDriver)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.CacheDir, jc.CacheDir)
	setString(&cfg.PrefsPath, jc.PrefsPath)
	setString(&cfg.RedisAddr, jc.RedisAddr)
	setString(&cfg.S3User, jc.S3User)
	setString(&cfg.S3Password, jc.S3Password)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	setString(&cfg.RoutePathTemplate, jc.RoutePathTemplate)
	setString(&cfg.RemoteConfigURL, jc.RemoteConfigURL)
	setString(&cfg.RemoteConfigSecret, jc.RemoteConfigSecret)
	setString(&cfg.NatsURL, jc.NatsURL)
	setString(&cfg.SyncSubject, jc.SyncSubject)
	setString(&cfg.LogLevel, jc.LogLevel)

	setDuration(&cfg.RouteMaxAge, jc.RouteMaxAge)
	setDuration(&cfg.SyncInterval, jc.SyncInterval)
	setDuration(&cfg.TickInterval, jc.TickInterval)
	setDuration(&cfg.TimeOffset, jc.TimeOffset)
	setDuration(&cfg.RemoteConfigCacheDuration, jc.RemoteConfigCacheDuration)
	setDuration(&cfg.SyncMinInterval, jc.SyncMinInterval)

	if jc.FetchWorkers != 0 {
		cfg.FetchWorkers = jc.FetchWorkers
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
