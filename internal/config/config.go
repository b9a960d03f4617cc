// Package config loads application configuration from config.yaml, a .env
// file, and CRM_-prefixed environment variables.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/crm-enrich/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Datagen   DatagenConfig   `yaml:"datagen" mapstructure:"datagen"`
	Linkup    LinkupConfig    `yaml:"linkup" mapstructure:"linkup"`
	Exa       ExaConfig       `yaml:"exa" mapstructure:"exa"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Scorer    ScorerConfig    `yaml:"scorer" mapstructure:"scorer"`
	Sync      SyncConfig      `yaml:"sync" mapstructure:"sync"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string            `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// DatagenConfig holds the tool-execution gateway credentials and tuning.
type DatagenConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// LinkupConfig holds the Linkup web search credentials.
type LinkupConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ExaConfig holds the Exa web search credentials.
type ExaConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	NumResults int    `yaml:"num_results" mapstructure:"num_results"`
}

// AnthropicConfig holds the draft-generation model settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ScorerConfig tunes recency scoring.
type ScorerConfig struct {
	DecayPerDay float64 `yaml:"decay_per_day" mapstructure:"decay_per_day"`
}

// SyncConfig tunes the contact sync orchestrator.
type SyncConfig struct {
	MaxWorkers    int     `yaml:"max_workers" mapstructure:"max_workers"`
	MinJitterSecs float64 `yaml:"min_jitter_secs" mapstructure:"min_jitter_secs"`
	MaxJitterSecs float64 `yaml:"max_jitter_secs" mapstructure:"max_jitter_secs"`
	RetryAttempts int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	Limit         int     `yaml:"limit" mapstructure:"limit"`
	MinScore      int     `yaml:"min_score" mapstructure:"min_score"`
}

// EnrichConfig tunes profile resolution.
type EnrichConfig struct {
	Limit        int    `yaml:"limit" mapstructure:"limit"`
	ResolverPath string `yaml:"resolver_path" mapstructure:"resolver_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file, and environment.
func Load() (*Config, error) {
	// Optional .env, matching how the enrichment scripts have always been
	// configured in deployment.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CRM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "crm.db")
	v.SetDefault("datagen.base_url", "https://api.datagen.dev/v1")
	v.SetDefault("datagen.rate_limit", 2.0)
	v.SetDefault("linkup.base_url", "https://api.linkup.so/v1")
	v.SetDefault("exa.base_url", "https://api.exa.ai")
	v.SetDefault("exa.num_results", 5)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("scorer.decay_per_day", 5.0)
	v.SetDefault("sync.max_workers", 3)
	v.SetDefault("sync.min_jitter_secs", 0.5)
	v.SetDefault("sync.max_jitter_secs", 2.0)
	v.SetDefault("sync.retry_attempts", 1)
	v.SetDefault("sync.limit", 50)
	v.SetDefault("sync.min_score", 1)
	v.SetDefault("enrich.limit", 20)
	v.SetDefault("enrich.resolver_path", "resolver.yaml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Bare env names the original deployment used, kept as aliases.
	for key, env := range map[string]string{
		"datagen.key":        "DATAGEN_API_KEY",
		"linkup.key":         "LINKUP_API_KEY",
		"exa.key":            "EXA_API_KEY",
		"anthropic.key":      "ANTHROPIC_API_KEY",
		"store.database_url": "DATABASE_URL",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", env)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks invariants that don't depend on which command runs.
// Per-command credential checks happen at client construction.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Sync.MaxWorkers <= 0 {
		return eris.New("config: sync.max_workers must be positive")
	}
	if c.Sync.MinJitterSecs > c.Sync.MaxJitterSecs {
		return eris.New("config: sync.min_jitter_secs exceeds sync.max_jitter_secs")
	}
	if c.Scorer.DecayPerDay < 0 {
		return eris.New("config: scorer.decay_per_day must not be negative")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
