package config

import "time"

// Config holds runtime settings for the tracker daemon.
type Config struct {
	Language string

	DatabaseDriver string
	DatabaseDSN    string

	CacheDir  string
	PrefsPath string
	RedisAddr string

	S3User         string
	S3Password     string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string

	// RoutePathTemplate is formatted with the language code.
	RoutePathTemplate string
	RouteMaxAge       time.Duration
	SyncInterval      time.Duration
	TickInterval      time.Duration
	TimeOffset        time.Duration
	FetchWorkers      int

	RemoteConfigURL           string
	RemoteConfigSecret        string
	RemoteConfigCacheDuration time.Duration

	NatsURL         string
	SyncSubject     string
	SyncMinInterval time.Duration

	LogLevel string
}

// LoadDefaults populates c with development defaults (local MinIO, sqlite).
func (c *Config) LoadDefaults() {
	c.Language = "en"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "santa.db"
	c.CacheDir = "cache"
	c.PrefsPath = "prefs.json"
	c.S3User = "admin"
	c.S3Password = "secretpassword"
	c.S3Bucket = "santa"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.RoutePathTemplate = "route/%s/santa.json"
	c.RouteMaxAge = 5 * time.Minute
	c.SyncInterval = 10 * time.Minute
	c.TickInterval = time.Second
	c.FetchWorkers = 2
	c.RemoteConfigCacheDuration = 12 * time.Hour
	c.SyncSubject = "santa.sync"
	c.SyncMinInterval = 30 * time.Second
	c.LogLevel = "info"
}

// Workers clamps FetchWorkers to the supported 2..4 range.
func (c *Config) Workers() int {
	switch {
	case c.FetchWorkers < 2:
		return 2
	case c.FetchWorkers > 4:
		return 4
	default:
		return c.FetchWorkers
	}
}

// LoadConfig builds a Config from defaults, environment, JSON and flags, in
// that order.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
