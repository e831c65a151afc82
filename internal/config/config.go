// Package config loads pipeline settings from a YAML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"trade-leaderboard/internal/metrics"
	"trade-leaderboard/internal/outlier"
	"trade-leaderboard/internal/ranking"
)

// EnvPrefix prefixes every environment override. Keys follow the field
// path, e.g. LEADERBOARD_INPUT_PATH or LEADERBOARD_STORAGE_POSTGRES_DSN.
const EnvPrefix = "LEADERBOARD"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete pipeline configuration.
type Config struct {
	Input   InputConfig    `yaml:"input"`
	Output  OutputConfig   `yaml:"output"`
	Outlier outlier.Params `yaml:"outlier"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Ranking ranking.Params `yaml:"ranking"`
	Storage StorageConfig  `yaml:"storage"`
	Logging LoggingConfig  `yaml:"logging"`
}

// InputConfig locates the source dataset.
type InputConfig struct {
	Path string `yaml:"path"`
}

// OutputConfig controls where reports are written.
type OutputConfig struct {
	Dir             string `yaml:"dir"`
	Workbook        bool   `yaml:"workbook"`
	MetricsTextfile bool   `yaml:"metrics_textfile" split_words:"true"`
}

// MetricsConfig configures the per-account metrics engine.
type MetricsConfig struct {
	PnLEpsilon float64 `yaml:"pnl_epsilon" envconfig:"PNL_EPSILON"`
}

// StorageConfig holds optional database connections. Empty DSNs disable
// persistence to that database.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn" split_words:"true"`
	ClickhouseDSN string `yaml:"clickhouse_dsn" split_words:"true"`
	MaxConns      int32  `yaml:"max_conns" split_words:"true"`
}

// LoggingConfig selects the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Input: InputConfig{Path: "data/accounts.csv"},
		Output: OutputConfig{
			Dir:             "output",
			Workbook:        true,
			MetricsTextfile: true,
		},
		Outlier: outlier.DefaultParams(),
		Metrics: MetricsConfig{PnLEpsilon: metrics.DefaultPnLEpsilon},
		Ranking: ranking.DefaultParams(),
		Storage: StorageConfig{MaxConns: 10},
		Logging: LoggingConfig{Level: "info"},
	}
}

// LoadFromFile reads a YAML file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Load builds the effective configuration: defaults, then the optional YAML
// file, then LEADERBOARD_* environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		cfg, err = LoadFromFile(path)
		if err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Ranking.TopN <= 0 {
		return fmt.Errorf("%w: ranking.top_n must be positive, got %d", ErrInvalidConfig, c.Ranking.TopN)
	}
	if err := c.Ranking.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	f := c.Ranking.Regression.Forest
	if f.Trees <= 0 {
		return fmt.Errorf("%w: forest trees must be positive, got %d", ErrInvalidConfig, f.Trees)
	}
	if f.MinSamplesSplit < 2 {
		return fmt.Errorf("%w: forest min_samples_split must be at least 2, got %d", ErrInvalidConfig, f.MinSamplesSplit)
	}
	if f.MaxDepth < 0 || f.Workers < 0 {
		return fmt.Errorf("%w: forest max_depth and workers must not be negative", ErrInvalidConfig)
	}
	if tf := c.Ranking.Regression.TestFraction; tf <= 0 || tf >= 1 {
		return fmt.Errorf("%w: test_fraction must be in (0, 1), got %v", ErrInvalidConfig, tf)
	}

	o := c.Outlier
	if o.LowerPercentile < 0 || o.UpperPercentile > 1 || o.LowerPercentile >= o.UpperPercentile {
		return fmt.Errorf("%w: percentiles must satisfy 0 <= lower < upper <= 1, got %v/%v",
			ErrInvalidConfig, o.LowerPercentile, o.UpperPercentile)
	}
	if o.Window <= 0 {
		return fmt.Errorf("%w: outlier window must be positive, got %d", ErrInvalidConfig, o.Window)
	}
	if o.ZThreshold <= 0 {
		return fmt.Errorf("%w: outlier z_threshold must be positive, got %v", ErrInvalidConfig, o.ZThreshold)
	}

	if c.Metrics.PnLEpsilon <= 0 {
		return fmt.Errorf("%w: pnl_epsilon must be positive, got %v", ErrInvalidConfig, c.Metrics.PnLEpsilon)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("%w: output.dir is required", ErrInvalidConfig)
	}
	return nil
}
