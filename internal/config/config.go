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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Reference ReferenceConfig `yaml:"reference" mapstructure:"reference"`
	Screen    ScreenConfig    `yaml:"screen" mapstructure:"screen"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// IngestConfig configures the Contracts Finder OCDS ingestion client.
type IngestConfig struct {
	BaseURL     string   `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string   `yaml:"user_agent" mapstructure:"user_agent"`
	PageLimit   int      `yaml:"page_limit" mapstructure:"page_limit"`
	MaxRetries  int      `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64  `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CPVPrefixes []string `yaml:"cpv_prefixes" mapstructure:"cpv_prefixes"`
	CursorPath  string   `yaml:"cursor_path" mapstructure:"cursor_path"`
	MaxDescLen  int      `yaml:"max_description_len" mapstructure:"max_description_len"`
}

// ReferenceConfig points at the externally supplied reference data: the
// material profile table (with classification keywords) and the buyer alias
// dictionary. Empty paths fall back to the built-in defaults.
type ReferenceConfig struct {
	ProfilesPath string `yaml:"profiles_path" mapstructure:"profiles_path"`
	AliasesPath  string `yaml:"aliases_path" mapstructure:"aliases_path"`
}

// ScreenConfig configures the screening pipeline. The tier thresholds are
// configuration constants, not hardcoded policy: CRITICAL is strictly above
// CriticalTCO2e, ELEVATED strictly above ElevatedTCO2e.
type ScreenConfig struct {
	MinValue       float64 `yaml:"min_value" mapstructure:"min_value"`
	CriticalTCO2e  float64 `yaml:"critical_tco2e" mapstructure:"critical_tco2e"`
	ElevatedTCO2e  float64 `yaml:"elevated_tco2e" mapstructure:"elevated_tco2e"`
	MaxConcurrency int     `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	PreviewTopN    int     `yaml:"preview_top_n" mapstructure:"preview_top_n"`
}

// ServerConfig configures the read-only summary API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("CARBON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "carbon.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("ingest.base_url", "https://www.contractsfinder.service.gov.uk/Published/Notices/OCDS/Search")
	v.SetDefault("ingest.user_agent", "carbon-cli/1.0")
	v.SetDefault("ingest.page_limit", 100)
	v.SetDefault("ingest.max_retries", 5)
	v.SetDefault("ingest.rate_per_sec", 1.5)
	v.SetDefault("ingest.timeout_secs", 40)
	v.SetDefault("ingest.cpv_prefixes", []string{"451", "4520", "4522", "4523", "4524", "4525"})
	v.SetDefault("ingest.cursor_path", "last_cursor.txt")
	v.SetDefault("ingest.max_description_len", 500)
	v.SetDefault("screen.min_value", 5000)
	v.SetDefault("screen.critical_tco2e", 1000)
	v.SetDefault("screen.elevated_tco2e", 200)
	v.SetDefault("screen.max_concurrency", 4)
	v.SetDefault("screen.preview_top_n", 5)

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
