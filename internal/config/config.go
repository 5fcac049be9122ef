// Package config loads the cldb configuration from defaults, an optional
// YAML file, environment variables and command-line flags.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/sgryjp/cldb/internal/equipment"
	"github.com/sgryjp/cldb/internal/fetcher"
	"github.com/sgryjp/cldb/internal/logger"
	"github.com/sgryjp/cldb/internal/worker"
)

// EnvPrefix prefixes environment variables that override config keys,
// e.g. CLDB_WORKER_COUNT for worker.count.
const EnvPrefix = "CLDB"

// App defaults
const (
	defaultAppName     = "cldb"
	defaultEnvironment = "production"
)

// Dataset defaults
const (
	defaultLensesPath  = "lenses.csv"
	defaultCamerasPath = "cameras.csv"
)

// Config represents the application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logger   logger.Config  `mapstructure:"logger"`
	Fetcher  fetcher.Config `mapstructure:"fetcher"`
	Datasets DatasetsConfig `mapstructure:"datasets"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Worker   worker.Config  `mapstructure:"worker"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig holds application metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatasetsConfig holds the paths of the snapshot files.
type DatasetsConfig struct {
	Lenses  string `mapstructure:"lenses"`
	Cameras string `mapstructure:"cameras"`
}

// PathFor returns the snapshot path of a category.
func (d DatasetsConfig) PathFor(category equipment.Category) string {
	if category == equipment.CategoryCamera {
		return d.Cameras
	}
	return d.Lenses
}

// SourcesConfig locates the source catalog.
type SourcesConfig struct {
	// CatalogPath is a YAML catalog; empty selects the built-in catalog.
	CatalogPath string `mapstructure:"catalog_path"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	// Textfile is written after each run when set.
	Textfile string `mapstructure:"textfile"`
}

// SetDefaults registers default values and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app", map[string]any{
		"name":        defaultAppName,
		"environment": defaultEnvironment,
	})

	v.SetDefault("logger", map[string]any{
		"level":        logger.DefaultLevel,
		"format":       logger.DefaultFormat,
		"development":  false,
		"output_paths": logger.DefaultOutputPaths,
	})

	fc := fetcher.DefaultConfig()
	v.SetDefault("fetcher", map[string]any{
		"user_agent":          fc.UserAgent,
		"request_timeout":     fc.RequestTimeout,
		"max_retries":         fc.MaxRetries,
		"retry_initial_delay": fc.RetryInitialDelay,
		"retry_max_delay":     fc.RetryMaxDelay,
		"rate_limit":          fc.RateLimit,
		"burst":               fc.Burst,
		"max_body_bytes":      fc.MaxBodyBytes,
		"max_redirects":       fc.MaxRedirects,
	})

	v.SetDefault("datasets", map[string]any{
		"lenses":  defaultLensesPath,
		"cameras": defaultCamerasPath,
	})

	v.SetDefault("sources.catalog_path", "")

	v.SetDefault("worker", map[string]any{
		"count":      0,
		"keep_going": false,
	})

	v.SetDefault("metrics.textfile", "")
}

// BindEnv maps unprefixed environment variables to config keys.
func BindEnv(v *viper.Viper) error {
	if err := v.BindEnv("app.environment", "APP_ENV"); err != nil {
		return fmt.Errorf("failed to bind APP_ENV: %w", err)
	}
	if err := v.BindEnv("logger.level", "CLDB_LOGGER_LEVEL", "LOG_LEVEL"); err != nil {
		return fmt.Errorf("failed to bind LOG_LEVEL: %w", err)
	}
	if err := v.BindEnv("logger.format", "CLDB_LOGGER_FORMAT", "LOG_FORMAT"); err != nil {
		return fmt.Errorf("failed to bind LOG_FORMAT: %w", err)
	}
	return nil
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParseFailed, err)
	}

	cfg.Logger.SetDefaults()
	cfg.Fetcher = cfg.Fetcher.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return &ValidationError{Field: "logger", Value: c.Logger.Level + "/" + c.Logger.Format, Reason: err.Error()}
	}
	if c.Datasets.Lenses == "" {
		return &ValidationError{Field: "datasets.lenses", Value: c.Datasets.Lenses, Reason: "must not be empty"}
	}
	if c.Datasets.Cameras == "" {
		return &ValidationError{Field: "datasets.cameras", Value: c.Datasets.Cameras, Reason: "must not be empty"}
	}
	if c.Fetcher.RetryInitialDelay > c.Fetcher.RetryMaxDelay {
		return &ValidationError{
			Field:  "fetcher.retry_initial_delay",
			Value:  c.Fetcher.RetryInitialDelay,
			Reason: "must not exceed fetcher.retry_max_delay",
		}
	}
	return nil
}
