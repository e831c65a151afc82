package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 20, cfg.Ranking.TopN)
	assert.Equal(t, 100, cfg.Ranking.Regression.Forest.Trees)
	assert.Equal(t, int64(42), cfg.Ranking.Regression.Forest.Seed)
	assert.Equal(t, 50, cfg.Outlier.Window)
	assert.Equal(t, 1e-6, cfg.Metrics.PnLEpsilon)
}

func TestLoadFromFile_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
input:
  path: trades.csv
ranking:
  top_n: 10
  regression:
    forest:
      trees: 25
logging:
  level: debug
`)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "trades.csv", cfg.Input.Path)
	assert.Equal(t, 10, cfg.Ranking.TopN)
	assert.Equal(t, 25, cfg.Ranking.Regression.Forest.Trees)
	assert.Equal(t, int64(42), cfg.Ranking.Regression.Forest.Seed, "unset fields keep defaults")
	assert.Equal(t, 0.2, cfg.Ranking.Weights.ROI)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFile_Malformed(t *testing.T) {
	_, err := LoadFromFile(writeConfig(t, "ranking: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "input:\n  path: from-file.csv\n")
	t.Setenv("LEADERBOARD_INPUT_PATH", "from-env.csv")
	t.Setenv("LEADERBOARD_STORAGE_POSTGRES_DSN", "postgres://localhost/lb")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.csv", cfg.Input.Path)
	assert.Equal(t, "postgres://localhost/lb", cfg.Storage.PostgresDSN)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Output.Dir, cfg.Output.Dir)
}

func TestLoad_RejectsInvalidEnv(t *testing.T) {
	t.Setenv("LEADERBOARD_RANKING_TOPN", "0")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero top n", func(c *Config) { c.Ranking.TopN = 0 }},
		{"weights not summing to one", func(c *Config) { c.Ranking.Weights.ROI = 0.5 }},
		{"negative weight", func(c *Config) { c.Ranking.Weights.ROI = -0.1; c.Ranking.Weights.PnL = 0.5 }},
		{"zero trees", func(c *Config) { c.Ranking.Regression.Forest.Trees = 0 }},
		{"min split below two", func(c *Config) { c.Ranking.Regression.Forest.MinSamplesSplit = 1 }},
		{"test fraction one", func(c *Config) { c.Ranking.Regression.TestFraction = 1 }},
		{"test fraction zero", func(c *Config) { c.Ranking.Regression.TestFraction = 0 }},
		{"inverted percentiles", func(c *Config) { c.Outlier.LowerPercentile = 0.99; c.Outlier.UpperPercentile = 0.01 }},
		{"zero window", func(c *Config) { c.Outlier.Window = 0 }},
		{"zero threshold", func(c *Config) { c.Outlier.ZThreshold = 0 }},
		{"zero epsilon", func(c *Config) { c.Metrics.PnLEpsilon = 0 }},
		{"empty output dir", func(c *Config) { c.Output.Dir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoad_IgnoresUnprefixedEnv(t *testing.T) {
	t.Setenv("LEVEL", "debug")
	t.Setenv("DIR", "/elsewhere")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "output", cfg.Output.Dir)
	assert.Equal(t, "data/accounts.csv", cfg.Input.Path, "system PATH must not leak into input.path")
}
