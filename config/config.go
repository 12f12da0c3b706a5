package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Backend    BackendConfig    `yaml:"backend"`
	Sync       SyncConfig       `yaml:"sync"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	Slack      SlackConfig      `yaml:"slack"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// WorkerPoolConfig holds the configuration for the push worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
// Push delivery is disabled when either key is empty.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are present.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// SlackConfig configures the optional Slack sink.
type SlackConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

// LoggingConfig controls the zerolog root logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// ServerConfig holds the dashboard API server configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// BackendConfig describes how to reach the maintenance backend.
type BackendConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	HTTPProxy         string        `yaml:"http_proxy"`
	TimeoutSeconds    int           `yaml:"timeout_seconds"`
	Timeout           time.Duration `yaml:"-"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// SyncConfig tunes the view synchronisation protocol.
type SyncConfig struct {
	PollIntervalSeconds       int           `yaml:"poll_interval_seconds"`
	PollInterval              time.Duration `yaml:"-"`
	ResyncDelayMillis         int           `yaml:"resync_delay_ms"`
	ResyncDelay               time.Duration `yaml:"-"`
	ApproveRefreshDelayMillis int           `yaml:"approve_refresh_delay_ms"`
	ApproveRefreshDelay       time.Duration `yaml:"-"`
	NoticeTTLSeconds          int           `yaml:"notice_ttl_seconds"`
	NoticeTTL                 time.Duration `yaml:"-"`
	FetchConcurrency          int           `yaml:"fetch_concurrency"`
	RunPredictions            bool          `yaml:"run_predictions"`
}

// DatabaseConfig holds the database connection configuration.
// A DSN starting with "sqlite:" or "file:" selects the sqlite driver.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogQueries             bool   `yaml:"log_queries"`
}

// Load reads the configuration from the given path, then applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	override(&cfg.Backend.BaseURL, "DASHBOARD_BACKEND_URL")
	override(&cfg.Backend.Username, "DASHBOARD_USERNAME")
	override(&cfg.Backend.Password, "DASHBOARD_PASSWORD")
	override(&cfg.Database.DSN, "DASHBOARD_DATABASE_DSN")
	override(&cfg.Slack.Token, "DASHBOARD_SLACK_TOKEN")
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	cfg.Backend.BaseURL = strings.TrimRight(cfg.Backend.BaseURL, "/")
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:8000"
	}
	if cfg.Backend.TimeoutSeconds <= 0 {
		cfg.Backend.TimeoutSeconds = 30
	}
	cfg.Backend.Timeout = time.Duration(cfg.Backend.TimeoutSeconds) * time.Second
	if cfg.Backend.RequestsPerSecond <= 0 {
		cfg.Backend.RequestsPerSecond = 20
	}
	if cfg.Backend.Burst <= 0 {
		cfg.Backend.Burst = 10
	}

	if cfg.Sync.PollIntervalSeconds <= 0 {
		cfg.Sync.PollIntervalSeconds = 30
	}
	cfg.Sync.PollInterval = time.Duration(cfg.Sync.PollIntervalSeconds) * time.Second
	if cfg.Sync.ResyncDelayMillis <= 0 {
		cfg.Sync.ResyncDelayMillis = 1000
	}
	cfg.Sync.ResyncDelay = time.Duration(cfg.Sync.ResyncDelayMillis) * time.Millisecond
	if cfg.Sync.ApproveRefreshDelayMillis <= 0 {
		cfg.Sync.ApproveRefreshDelayMillis = 500
	}
	cfg.Sync.ApproveRefreshDelay = time.Duration(cfg.Sync.ApproveRefreshDelayMillis) * time.Millisecond
	if cfg.Sync.NoticeTTLSeconds <= 0 {
		cfg.Sync.NoticeTTLSeconds = 4
	}
	cfg.Sync.NoticeTTL = time.Duration(cfg.Sync.NoticeTTLSeconds) * time.Second
	if cfg.Sync.FetchConcurrency <= 0 {
		cfg.Sync.FetchConcurrency = 8
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:dashboard.db?cache=shared"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
