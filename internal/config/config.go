package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Business  BusinessConfig  `yaml:"business" mapstructure:"business"`
	Engine    EngineConfig    `yaml:"engine" mapstructure:"engine"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// BusinessConfig holds the business constants every monetary derivation is
// computed from. Changing these values deterministically changes every
// subsequently computed monetary output.
type BusinessConfig struct {
	AverageCustomerValue  float64 `yaml:"average_customer_value" mapstructure:"average_customer_value"`
	AverageContractLength int     `yaml:"average_contract_length" mapstructure:"average_contract_length"`
	ReferralValue         float64 `yaml:"referral_value" mapstructure:"referral_value"`
	SupportHourCost       float64 `yaml:"support_hour_cost" mapstructure:"support_hour_cost"`
}

// EngineConfig configures analysis pipeline behavior.
type EngineConfig struct {
	StageTimeoutSecs int    `yaml:"stage_timeout_secs" mapstructure:"stage_timeout_secs"`
	MaxAttempts      int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	LexiconPath      string `yaml:"lexicon_path" mapstructure:"lexicon_path"`
}

// BatchConfig configures the batch feedback processor.
type BatchConfig struct {
	Workers    int     `yaml:"workers" mapstructure:"workers"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Encoding   string  `yaml:"encoding" mapstructure:"encoding"`
}

// StoreConfig configures the analysis store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("business.average_customer_value", 500)
	v.SetDefault("business.average_contract_length", 12)
	v.SetDefault("business.referral_value", 250)
	v.SetDefault("business.support_hour_cost", 50)
	v.SetDefault("engine.stage_timeout_secs", 30)
	v.SetDefault("engine.max_attempts", 2)
	v.SetDefault("engine.lexicon_path", "")
	v.SetDefault("batch.workers", 4)
	v.SetDefault("batch.rate_per_sec", 2)
	v.SetDefault("batch.encoding", "utf-8")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "cx.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
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
