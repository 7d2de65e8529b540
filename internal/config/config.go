// Package config loads application configuration from file and environment.
package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Manual  ManualConfig  `yaml:"manual" mapstructure:"manual"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Watch   WatchConfig   `yaml:"watch" mapstructure:"watch"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// CatalogConfig points at the source catalog file. When empty, the built-in
// catalog is used.
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ExtractConfig configures the extraction pipeline.
type ExtractConfig struct {
	Workers     int `yaml:"workers" mapstructure:"workers"`
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ScoringConfig holds the stalled-criteria weights and thresholds.
type ScoringConfig struct {
	TimelineWeight          float64 `yaml:"timeline_weight" mapstructure:"timeline_weight"`
	BudgetWeight            float64 `yaml:"budget_weight" mapstructure:"budget_weight"`
	ProgressWeight          float64 `yaml:"progress_weight" mapstructure:"progress_weight"`
	DisputeWeight           float64 `yaml:"dispute_weight" mapstructure:"dispute_weight"`
	AuditWeight             float64 `yaml:"audit_weight" mapstructure:"audit_weight"`
	TimelineThresholdMonths float64 `yaml:"timeline_threshold_months" mapstructure:"timeline_threshold_months"`
	BudgetThresholdRatio    float64 `yaml:"budget_threshold_ratio" mapstructure:"budget_threshold_ratio"`
	ProgressThresholdDays   float64 `yaml:"progress_threshold_days" mapstructure:"progress_threshold_days"`
}

// ManualConfig configures the manual submission spool.
type ManualConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// WatchConfig configures the scheduled-run mode.
type WatchConfig struct {
	Schedule string `yaml:"schedule" mapstructure:"schedule"`
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
	v.SetEnvPrefix("PROJECTWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "projectwatch.db")
	v.SetDefault("extract.workers", 4)
	v.SetDefault("extract.timeout_secs", 120)
	v.SetDefault("scoring.timeline_weight", 0.30)
	v.SetDefault("scoring.budget_weight", 0.25)
	v.SetDefault("scoring.progress_weight", 0.20)
	v.SetDefault("scoring.dispute_weight", 0.15)
	v.SetDefault("scoring.audit_weight", 0.10)
	v.SetDefault("scoring.timeline_threshold_months", 6)
	v.SetDefault("scoring.budget_threshold_ratio", 0.20)
	v.SetDefault("scoring.progress_threshold_days", 90)
	v.SetDefault("manual.dir", "submissions")
	v.SetDefault("server.port", 8080)
	v.SetDefault("watch.schedule", "@daily")
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

// Validate checks the configuration needed for the given run mode.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	check(c.Extract.Workers >= 1 && c.Extract.Workers <= 32,
		"extract.workers must be between 1 and 32")
	check(c.Extract.TimeoutSecs > 0, "extract.timeout_secs must be > 0")

	weights := []float64{
		c.Scoring.TimelineWeight, c.Scoring.BudgetWeight, c.Scoring.ProgressWeight,
		c.Scoring.DisputeWeight, c.Scoring.AuditWeight,
	}
	for _, w := range weights {
		if w < 0 {
			check(false, "scoring weights must be >= 0")
			break
		}
	}

	switch c.Store.Driver {
	case "sqlite":
		check(c.Store.Path != "", "store.path is required for the sqlite driver")
	case "postgres":
		check(c.Store.DatabaseURL != "", "store.database_url is required for the postgres driver")
	default:
		check(false, fmt.Sprintf("unknown store driver %q", c.Store.Driver))
	}

	switch mode {
	case "run", "watch":
	case "serve":
		check(c.Server.Port > 0, "server.port must be > 0")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
