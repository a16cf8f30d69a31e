package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"ReviewPublisher/internal/domain"
	"ReviewPublisher/internal/selector"
)

const (
	defaultTimezone = "Asia/Seoul"

	configPathEnv       = "REVIEW_PUBLISHER_CONFIG"
	databaseDSNEnv      = "DATABASE_DSN"
	coupangAccessKeyEnv = "COUPANG_ACCESS_KEY"
	coupangSecretKeyEnv = "COUPANG_SECRET_KEY"
	coupangPartnerEnv   = "COUPANG_PARTNER_ID"
	claudeAPIKeyEnv     = "CLAUDE_API_KEY"
	geminiAPIKeyEnv     = "GEMINI_API_KEY"
	wordpressURLEnv     = "WORDPRESS_URL"
	wordpressUserEnv    = "WORDPRESS_USERNAME"
	wordpressPassEnv    = "WORDPRESS_APP_PASSWORD"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
	logLevelEnv         = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig          `yaml:"logging"`
	Database      DatabaseConfig         `yaml:"database"`
	Server        ServerConfig           `yaml:"server"`
	Scheduler     SchedulerConfig        `yaml:"scheduler"`
	Batch         BatchConfig            `yaml:"batch"`
	Publish       domain.PublishSettings `yaml:"publish"`
	Selection     selector.Options       `yaml:"selection"`
	Coupang       CoupangConfig          `yaml:"coupang"`
	Claude        ModelConfig            `yaml:"claude"`
	Gemini        ModelConfig            `yaml:"gemini"`
	WordPress     WordPressConfig        `yaml:"wordpress"`
	Notifications NotificationConfig     `yaml:"notifications"`
}

// LoggingConfig selects the slog level and output format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN
// disables keyword history.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// SchedulerConfig defines when the configured batch should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	PollInterval   time.Duration  `yaml:"pollInterval"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BatchConfig is the keyword batch the cron driver and the run command use.
type BatchConfig struct {
	Keywords     []string       `yaml:"keywords"`
	Model        domain.AIModel `yaml:"model"`
	ProductCount int            `yaml:"productCount"`
	SearchLimit  int            `yaml:"searchLimit"`
}

// CoupangConfig holds affiliate API credentials.
type CoupangConfig struct {
	BaseURL           string  `yaml:"baseUrl"`
	AccessKey         string  `yaml:"accessKey"`
	SecretKey         string  `yaml:"secretKey"`
	PartnerID         string  `yaml:"partnerId"`
	RequestsPerMinute float64 `yaml:"requestsPerMinute"`
}

// ModelConfig configures one generation provider.
type ModelConfig struct {
	APIKey    string `yaml:"apiKey"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"maxTokens"`
	BaseURL   string `yaml:"baseUrl"`
}

// WordPressConfig holds CMS credentials and upload pacing.
type WordPressConfig struct {
	URL                string        `yaml:"url"`
	Username           string        `yaml:"username"`
	AppPassword        string        `yaml:"appPassword"`
	UploadDelay        time.Duration `yaml:"uploadDelay"`
	ImageFetchTimeout  time.Duration `yaml:"imageFetchTimeout"`
	ImageFetchAttempts int           `yaml:"imageFetchAttempts"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	BaseURL  string `yaml:"baseUrl"`
}

// Enabled reports whether both bot token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Validate reports settings that would make every run fail.
func (c Config) Validate() error {
	var errs []error

	if c.Coupang.AccessKey == "" || c.Coupang.SecretKey == "" {
		errs = append(errs, errors.New("coupang access and secret keys are required"))
	}
	if c.WordPress.URL == "" || c.WordPress.Username == "" || c.WordPress.AppPassword == "" {
		errs = append(errs, errors.New("wordpress url, username and application password are required"))
	}
	if c.Claude.APIKey == "" && c.Gemini.APIKey == "" {
		errs = append(errs, errors.New("at least one of claude or gemini api keys is required"))
	}
	if c.Batch.Model != "" && !c.Batch.Model.Valid() {
		errs = append(errs, fmt.Errorf("unknown batch model %q", c.Batch.Model))
	}
	if err := c.Publish.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{databaseDSNEnv, &c.Database.DSN},
		{coupangAccessKeyEnv, &c.Coupang.AccessKey},
		{coupangSecretKeyEnv, &c.Coupang.SecretKey},
		{coupangPartnerEnv, &c.Coupang.PartnerID},
		{claudeAPIKeyEnv, &c.Claude.APIKey},
		{geminiAPIKeyEnv, &c.Gemini.APIKey},
		{wordpressURLEnv, &c.WordPress.URL},
		{wordpressUserEnv, &c.WordPress.Username},
		{wordpressPassEnv, &c.WordPress.AppPassword},
		{telegramTokenEnv, &c.Notifications.Telegram.BotToken},
		{telegramChatIDEnv, &c.Notifications.Telegram.ChatID},
		{logLevelEnv, &c.Logging.Level},
	}

	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, err = time.LoadLocation(defaultTimezone)
		if err != nil {
			loc = time.UTC
		}
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	mergeString(&base.Logging.Level, override.Logging.Level)
	mergeString(&base.Logging.Format, override.Logging.Format)
	mergeString(&base.Database.DSN, override.Database.DSN)
	mergeString(&base.Server.Addr, override.Server.Addr)

	mergeString(&base.Scheduler.CronExpression, override.Scheduler.CronExpression)
	mergeString(&base.Scheduler.Timezone, override.Scheduler.Timezone)
	if override.Scheduler.PollInterval > 0 {
		base.Scheduler.PollInterval = override.Scheduler.PollInterval
	}

	if len(override.Batch.Keywords) > 0 {
		base.Batch.Keywords = override.Batch.Keywords
	}
	if override.Batch.Model != "" {
		base.Batch.Model = override.Batch.Model
	}
	if override.Batch.ProductCount > 0 {
		base.Batch.ProductCount = override.Batch.ProductCount
	}
	if override.Batch.SearchLimit > 0 {
		base.Batch.SearchLimit = override.Batch.SearchLimit
	}

	// enabled is a plain bool, so a present publish block replaces the defaults wholesale.
	if override.Publish != (domain.PublishSettings{}) {
		publish := override.Publish
		def := domain.DefaultPublishSettings()
		if publish.IntervalMinutes <= 0 {
			publish.IntervalMinutes = def.IntervalMinutes
		}
		if publish.StartTime == "" {
			publish.StartTime = def.StartTime
		}
		if publish.EndTime == "" {
			publish.EndTime = def.EndTime
		}
		base.Publish = publish
	}

	base.Selection = override.Selection.WithDefaults()

	mergeString(&base.Coupang.BaseURL, override.Coupang.BaseURL)
	mergeString(&base.Coupang.AccessKey, override.Coupang.AccessKey)
	mergeString(&base.Coupang.SecretKey, override.Coupang.SecretKey)
	mergeString(&base.Coupang.PartnerID, override.Coupang.PartnerID)
	if override.Coupang.RequestsPerMinute > 0 {
		base.Coupang.RequestsPerMinute = override.Coupang.RequestsPerMinute
	}

	base.Claude = mergeModel(base.Claude, override.Claude)
	base.Gemini = mergeModel(base.Gemini, override.Gemini)

	mergeString(&base.WordPress.URL, override.WordPress.URL)
	mergeString(&base.WordPress.Username, override.WordPress.Username)
	mergeString(&base.WordPress.AppPassword, override.WordPress.AppPassword)
	if override.WordPress.UploadDelay > 0 {
		base.WordPress.UploadDelay = override.WordPress.UploadDelay
	}
	if override.WordPress.ImageFetchTimeout > 0 {
		base.WordPress.ImageFetchTimeout = override.WordPress.ImageFetchTimeout
	}
	if override.WordPress.ImageFetchAttempts > 0 {
		base.WordPress.ImageFetchAttempts = override.WordPress.ImageFetchAttempts
	}

	mergeString(&base.Notifications.Telegram.BotToken, override.Notifications.Telegram.BotToken)
	mergeString(&base.Notifications.Telegram.ChatID, override.Notifications.Telegram.ChatID)
	mergeString(&base.Notifications.Telegram.BaseURL, override.Notifications.Telegram.BaseURL)

	return base
}

func mergeModel(base, override ModelConfig) ModelConfig {
	mergeString(&base.APIKey, override.APIKey)
	mergeString(&base.Model, override.Model)
	mergeString(&base.BaseURL, override.BaseURL)
	if override.MaxTokens > 0 {
		base.MaxTokens = override.MaxTokens
	}
	return base
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func defaultConfig() Config {
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Server:    ServerConfig{Addr: ":8080"},
		Scheduler: SchedulerConfig{Timezone: defaultTimezone, PollInterval: time.Second},
		Batch:     BatchConfig{Model: domain.ModelClaude, ProductCount: 7, SearchLimit: 10},
		Publish:   domain.DefaultPublishSettings(),
		Selection: selector.DefaultOptions(),
		Coupang: CoupangConfig{
			BaseURL:           "https://api-gateway.coupang.com",
			RequestsPerMinute: 50,
		},
		Claude: ModelConfig{Model: "claude-sonnet-4-20250514", MaxTokens: 4096},
		Gemini: ModelConfig{
			Model:     "gemini-2.5-flash",
			MaxTokens: 4096,
			BaseURL:   "https://generativelanguage.googleapis.com/v1beta",
		},
		WordPress: WordPressConfig{
			UploadDelay:        500 * time.Millisecond,
			ImageFetchTimeout:  30 * time.Second,
			ImageFetchAttempts: 3,
		},
	}
}
