package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// BackendConfig points the bot at the listing backend.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url" envconfig:"BACKEND_BASE_URL"`
	Timeout time.Duration `yaml:"timeout" envconfig:"BACKEND_TIMEOUT"`
}

// LinksConfig holds the public URLs quoted in bot replies.
type LinksConfig struct {
	HelpURL     string `yaml:"help_url" envconfig:"LINKS_HELP_URL"`
	ListingsURL string `yaml:"listings_url" envconfig:"LINKS_LISTINGS_URL"`
}

// RedisConfig configures the redis session driver.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
}

// SessionConfig selects and tunes the dialogue session store.
type SessionConfig struct {
	Driver    string        `yaml:"driver" envconfig:"SESSION_DRIVER"`
	KeyPrefix string        `yaml:"key_prefix" envconfig:"SESSION_KEY_PREFIX"`
	TTL       time.Duration `yaml:"ttl" envconfig:"SESSION_TTL"`
	Redis     RedisConfig   `yaml:"redis"`
}

// DatabaseConfig holds postgres connection settings used by the postgres session driver.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// MetricsConfig controls the prometheus endpoint. Empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// SessionDriverMemory keeps sessions in process memory.
	SessionDriverMemory = "memory"
	// SessionDriverRedis keeps sessions in redis.
	SessionDriverRedis = "redis"
	// SessionDriverPostgres keeps sessions in postgres.
	SessionDriverPostgres = "postgres"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

const (
	defaultBackendURL     = "http://127.0.0.1:3000"
	defaultBackendTimeout = 10 * time.Second
	defaultHelpURL        = "welgevonden.dev"
	defaultListingsURL    = "http://welgevonden.dev/listings"
	defaultKeyPrefix      = "marketbot:session:"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts "callback" and "message".
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Backend   BackendConfig   `yaml:"backend"`
	Links     LinksConfig     `yaml:"links"`
	Session   SessionConfig   `yaml:"session"`
	Database  DatabaseConfig  `yaml:"database"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// CoreConfig lets Config satisfy the runner's carrier contract directly.
func (c *Config) CoreConfig() *Config {
	return c
}

// Load reads configuration from an optional YAML file and environment variables.
// An empty path skips the file so the bot can run from environment alone.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := Normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadBackend is Load for commands that only talk to the listing backend.
// The Telegram token and session settings are not validated.
func LoadBackend(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := NormalizeBackend(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read(path string) (*Config, error) {
	var cfg Config

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}

	if cfg.Telegram.Token == "" {
		return errors.New("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return errors.New("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return errors.New("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return errors.New("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return errors.New("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}

	if err := normalizeBackend(&cfg.Backend); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Links.HelpURL) == "" {
		cfg.Links.HelpURL = defaultHelpURL
	}
	if strings.TrimSpace(cfg.Links.ListingsURL) == "" {
		cfg.Links.ListingsURL = defaultListingsURL
	}
	return normalizeSession(cfg)
}

// NormalizeBackend validates only the backend section; the CLI verification
// commands need nothing else.
func NormalizeBackend(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	return normalizeBackend(&cfg.Backend)
}

func normalizeBackend(b *BackendConfig) error {
	raw := strings.TrimSpace(b.BaseURL)
	if raw == "" {
		raw = defaultBackendURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend.base_url %q", b.BaseURL)
	}
	b.BaseURL = strings.TrimRight(raw, "/")
	if b.Timeout < 0 {
		return errors.New("backend.timeout must be >= 0")
	}
	if b.Timeout == 0 {
		b.Timeout = defaultBackendTimeout
	}
	return nil
}

func normalizeSession(cfg *Config) error {
	s := &cfg.Session
	driver := strings.ToLower(strings.TrimSpace(s.Driver))
	if driver == "" {
		driver = SessionDriverMemory
	}
	switch driver {
	case SessionDriverMemory:
	case SessionDriverRedis:
		if strings.TrimSpace(s.Redis.Addr) == "" {
			return errors.New("session.redis.addr is required when session.driver is 'redis'")
		}
	case SessionDriverPostgres:
		if strings.TrimSpace(cfg.Database.Host) == "" || strings.TrimSpace(cfg.Database.Name) == "" {
			return errors.New("database.host and database.name are required when session.driver is 'postgres'")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 5
		}
	default:
		return fmt.Errorf("invalid session.driver %q; allowed: memory, redis, postgres", s.Driver)
	}
	s.Driver = driver
	if s.TTL < 0 {
		return errors.New("session.ttl must be >= 0")
	}
	if strings.TrimSpace(s.KeyPrefix) == "" {
		s.KeyPrefix = defaultKeyPrefix
	}
	return nil
}
