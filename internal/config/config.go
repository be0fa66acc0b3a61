// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Headless    HeadlessConfig    `mapstructure:"headless"`
	Search      SearchConfig      `mapstructure:"search"`
	Classifiers ClassifiersConfig `mapstructure:"classifiers"`
	Storage     StorageConfig     `mapstructure:"storage"`
	DB          DBConfig          `mapstructure:"db"`
	PubSub      PubSubConfig      `mapstructure:"pubsub"`
	Digest      DigestConfig      `mapstructure:"digest"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// PipelineConfig governs discovery and admission behavior.
type PipelineConfig struct {
	Concurrency       int      `mapstructure:"concurrency"`
	UserAgent         string   `mapstructure:"user_agent"`
	WindowDays        int      `mapstructure:"window_days"`
	ResultsPerQuery   int      `mapstructure:"results_per_query"`
	MaxChildLinks     int      `mapstructure:"max_child_links"`
	ClassifierPolicy  string   `mapstructure:"classifier_policy"`
	Queries           []string `mapstructure:"queries"`
	Seeds             []string `mapstructure:"seeds"`
	SkipUnknown       bool     `mapstructure:"skip_unknown"`
	RespectRobots     bool     `mapstructure:"respect_robots"`
	ExcerptMaxChars   int      `mapstructure:"excerpt_max_chars"`
	DocumentMaxPages  int      `mapstructure:"document_max_pages"`
	AdmissionTopic    string   `mapstructure:"admission_topic"`
}

// HTTPConfig configures HTTP client behavior.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MaxParallel     int  `mapstructure:"max_parallel"`
	NavTimeoutSec   int  `mapstructure:"nav_timeout_seconds"`
	PromotionThresh int  `mapstructure:"promotion_threshold"`
}

// SearchConfig holds the SerpAPI credentials.
type SearchConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// ClassifiersConfig holds provider credentials and model selections.
type ClassifiersConfig struct {
	Gemini ProviderConfig `mapstructure:"gemini"`
	OpenAI ProviderConfig `mapstructure:"openai"`
}

// ProviderConfig configures one LLM classifier provider.
type ProviderConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// StorageConfig selects and configures blob persistence.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// DigestConfig configures the email digest sender.
type DigestConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("REPORTCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.user_agent", "reportcrawl-bot/0.1")
	v.SetDefault("pipeline.window_days", 10)
	v.SetDefault("pipeline.results_per_query", 8)
	v.SetDefault("pipeline.max_child_links", 25)
	v.SetDefault("pipeline.classifier_policy", "light")
	v.SetDefault("pipeline.skip_unknown", true)
	v.SetDefault("pipeline.respect_robots", true)
	v.SetDefault("pipeline.excerpt_max_chars", 4000)
	v.SetDefault("pipeline.document_max_pages", 2)
	v.SetDefault("pipeline.admission_topic", "reports.admitted")
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.promotion_threshold", 2048)
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("storage.prefix", "reports")
	v.SetDefault("db.table", "report_items")
	v.SetDefault("digest.smtp_port", 587)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("pipeline.concurrency must be > 0")
	}
	if c.Pipeline.WindowDays <= 0 {
		return fmt.Errorf("pipeline.window_days must be > 0")
	}
	if p := c.Pipeline.ClassifierPolicy; p != "light" && p != "strict" {
		return fmt.Errorf("pipeline.classifier_policy must be light or strict")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	switch c.Storage.Provider {
	case "memory":
	case "local":
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.base_dir must be set for local storage")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for gcs storage")
		}
	default:
		return fmt.Errorf("storage.provider must be memory, local, or gcs")
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	if c.Digest.Enabled {
		if c.Digest.SMTPHost == "" || c.Digest.From == "" || len(c.Digest.To) == 0 {
			return fmt.Errorf("digest.smtp_host, digest.from, and digest.to must be set when digest is enabled")
		}
	}
	return nil
}

// HTTPTimeout converts the configured timeout into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
