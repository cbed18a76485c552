package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// BotConfig holds settings for one bot persona.
type BotConfig struct {
	Token   string `yaml:"token"`
	RunMode string `yaml:"run_mode"`
	// LongPollTimeoutSeconds bounds a poll cycle; zero means the default.
	LongPollTimeoutSeconds int           `yaml:"longpoll_timeout_seconds"`
	Webhook                WebhookConfig `yaml:"webhook"`
}

// WebhookConfig specifies webhook settings for a single bot.
type WebhookConfig struct {
	URL    string `yaml:"url"`
	Listen string `yaml:"listen"`
	Port   int    `yaml:"port"`
}

// TelegramConfig groups the three persona bots and shared Telegram settings.
type TelegramConfig struct {
	AdminID int64     `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	Admin   BotConfig `yaml:"admin"`
	Student BotConfig `yaml:"student"`
	Teacher BotConfig `yaml:"teacher"`
}

// StorageConfig selects the resource store backend and its locations.
type StorageConfig struct {
	// Backend is "dir" (filesystem, filename-encoded keys) or "postgres".
	Backend    string `yaml:"backend" envconfig:"STORAGE_BACKEND"`
	ClassDir   string `yaml:"class_dir" envconfig:"STORAGE_CLASS_DIR"`
	TeacherDir string `yaml:"teacher_dir" envconfig:"STORAGE_TEACHER_DIR"`
}

// DatabaseConfig holds connection settings for the profile and resource tables.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// APIConfig configures the read-only HTTP surface.
type APIConfig struct {
	Listen string `yaml:"listen" envconfig:"API_LISTEN"`
}

// IngestConfig bounds the schedule image download.
type IngestConfig struct {
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds" envconfig:"INGEST_FETCH_TIMEOUT_SECONDS"`
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
}

// RateLimitConfig holds settings for per-user rate limiting.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

const (
	// RunModeWebhook receives updates on an HTTPS listener.
	RunModeWebhook = "webhook"
	// RunModeLongpoll pulls updates with long polling.
	RunModeLongpoll = "longpoll"
)

const (
	// BackendDir selects the directory-backed resource store.
	BackendDir = "dir"
	// BackendPostgres selects the Postgres-backed resource store.
	BackendPostgres = "postgres"
)

const (
	// UpdateCallback names callback updates in rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage names message updates in rate limit exclusions.
	UpdateMessage = "message"
)

// Config aggregates all configuration of the process.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load merges the YAML file with environment overrides and normalizes
// the result.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	// Tokens are secrets; env overrides are per persona.
	if v := os.Getenv("ADMIN_BOT_TOKEN"); v != "" {
		cfg.Telegram.Admin.Token = v
	}
	if v := os.Getenv("STUDENT_BOT_TOKEN"); v != "" {
		cfg.Telegram.Student.Token = v
	}
	if v := os.Getenv("TEACHER_BOT_TOKEN"); v != "" {
		cfg.Telegram.Teacher.Token = v
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize fills defaults and rejects configurations the bots cannot
// start with.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	for _, b := range []struct {
		name string
		bot  *BotConfig
	}{
		{"admin", &cfg.Telegram.Admin},
		{"student", &cfg.Telegram.Student},
		{"teacher", &cfg.Telegram.Teacher},
	} {
		if err := normalizeBot(b.name, b.bot); err != nil {
			return err
		}
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if backend == "" {
		backend = BackendDir
	}
	switch backend {
	case BackendDir:
		if cfg.Storage.ClassDir == "" {
			cfg.Storage.ClassDir = "uploads"
		}
		if cfg.Storage.TeacherDir == "" {
			cfg.Storage.TeacherDir = "teacher_uploads"
		}
	case BackendPostgres:
	default:
		return fmt.Errorf("invalid storage.backend %q; allowed: dir, postgres", cfg.Storage.Backend)
	}
	cfg.Storage.Backend = backend

	if cfg.API.Listen == "" {
		cfg.API.Listen = ":3000"
	}
	if cfg.Ingest.FetchTimeoutSeconds <= 0 {
		cfg.Ingest.FetchTimeoutSeconds = 30
	}

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
	return nil
}

func normalizeBot(name string, bot *BotConfig) error {
	if bot.Token == "" {
		return fmt.Errorf("telegram.%s.token is required", name)
	}

	rm := strings.ToLower(strings.TrimSpace(bot.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(bot.Webhook.URL) == "" {
			return fmt.Errorf("telegram.%s.webhook.url is required in webhook mode", name)
		}
		if strings.TrimSpace(bot.Webhook.Listen) == "" {
			return fmt.Errorf("telegram.%s.webhook.listen is required in webhook mode", name)
		}
		if bot.Webhook.Port <= 0 {
			return fmt.Errorf("telegram.%s.webhook.port must be > 0 in webhook mode", name)
		}
	case RunModeLongpoll:
		if bot.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.%s.longpoll_timeout_seconds must be >= 0", name)
		}
	default:
		return fmt.Errorf("invalid telegram.%s.run_mode %q; allowed: webhook, longpoll", name, bot.RunMode)
	}
	bot.RunMode = rm
	return nil
}
