// Package config loads and validates application configuration from a
// config file and environment variables via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults used when neither the config file nor environment provides a value.
const (
	DefaultServerAddress  = ":8080"
	DefaultBaseURL        = "https://www.thegradcafe.com/survey/"
	DefaultUserAgent      = "Mozilla/5.0"
	DefaultMaxPages       = 1550
	DefaultPageDelay      = 250 * time.Millisecond
	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRetries     = 3
	DefaultStalePageStop  = 2
	DefaultDetailWorkers  = 8
	DefaultDetailTimeout  = 30 * time.Second
	DefaultTermYearMaxGap = 40
	DefaultExportPath     = "normalized_records.json"
	DefaultCronSpec       = "0 6 * * *"
)

// Config is the root application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Source    SourceConfig    `mapstructure:"source"`
	Details   DetailsConfig   `mapstructure:"details"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Enrich    EnrichConfig    `mapstructure:"enrich"`
}

// LoggerConfig configures logging.
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig configures the Postgres connection.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// SourceConfig configures the listing source fetcher.
type SourceConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	UserAgent      string        `mapstructure:"user_agent"`
	MaxPages       int           `mapstructure:"max_pages"`
	PageDelay      time.Duration `mapstructure:"page_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	// StalePageStop stops the run after this many consecutive pages with no
	// new records. Zero disables the early stop.
	StalePageStop int `mapstructure:"stale_page_stop"`
}

// DetailsConfig configures the detail fetcher pool.
type DetailsConfig struct {
	Workers        int           `mapstructure:"workers"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// PipelineConfig configures the coordinator.
type PipelineConfig struct {
	// TermYearMaxGap is the maximum character distance between a term token
	// and a year token for start-term inference to accept them as co-located.
	TermYearMaxGap int `mapstructure:"term_year_max_gap"`
}

// SchedulerConfig configures cron-driven runs.
type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"`
}

// EnrichConfig configures the enrichment collaborator boundary.
type EnrichConfig struct {
	ExportPath string `mapstructure:"export_path"`
}

// Load reads configuration from Viper. Viper must already be initialized
// (config file located, env bound) by the command layer.
func Load() (*Config, error) {
	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// InitViper wires env overrides and the optional config file into Viper.
func InitViper(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
		// Config file is optional; defaults and env cover everything.
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.development", false)

	viper.SetDefault("server.address", DefaultServerAddress)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Second)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "gradpipe")
	viper.SetDefault("database.name", "gradcafe")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("source.base_url", DefaultBaseURL)
	viper.SetDefault("source.user_agent", DefaultUserAgent)
	viper.SetDefault("source.max_pages", DefaultMaxPages)
	viper.SetDefault("source.page_delay", DefaultPageDelay)
	viper.SetDefault("source.request_timeout", DefaultRequestTimeout)
	viper.SetDefault("source.max_retries", DefaultMaxRetries)
	viper.SetDefault("source.stale_page_stop", DefaultStalePageStop)

	viper.SetDefault("details.workers", DefaultDetailWorkers)
	viper.SetDefault("details.request_timeout", DefaultDetailTimeout)
	viper.SetDefault("details.max_retries", DefaultMaxRetries)

	viper.SetDefault("pipeline.term_year_max_gap", DefaultTermYearMaxGap)

	viper.SetDefault("scheduler.enabled", false)
	viper.SetDefault("scheduler.cron", DefaultCronSpec)

	viper.SetDefault("enrich.export_path", DefaultExportPath)
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Source.BaseURL == "" {
		return errors.New("source.base_url is required")
	}
	if c.Source.MaxPages <= 0 {
		return errors.New("source.max_pages must be positive")
	}
	if c.Details.Workers <= 0 {
		return errors.New("details.workers must be positive")
	}
	if c.Details.RequestTimeout <= 0 {
		return errors.New("details.request_timeout must be positive")
	}
	if c.Pipeline.TermYearMaxGap <= 0 {
		return errors.New("pipeline.term_year_max_gap must be positive")
	}
	if c.Database.Host == "" || c.Database.Name == "" {
		return errors.New("database.host and database.name are required")
	}
	return nil
}
