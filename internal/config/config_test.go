package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgryjp/cldb/internal/config"
	"github.com/sgryjp/cldb/internal/equipment"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()

	v := viper.New()
	config.SetDefaults(v)
	require.NoError(t, config.BindEnv(v))
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, "cldb", cfg.App.Name)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, []string{"stderr"}, cfg.Logger.OutputPaths)
	assert.Equal(t, 30*time.Second, cfg.Fetcher.RequestTimeout)
	assert.Equal(t, 3, cfg.Fetcher.MaxRetries)
	assert.InDelta(t, 4.0, cfg.Fetcher.RateLimit, 1e-9)
	assert.Equal(t, "lenses.csv", cfg.Datasets.PathFor(equipment.CategoryLens))
	assert.Equal(t, "cameras.csv", cfg.Datasets.PathFor(equipment.CategoryCamera))
	assert.Equal(t, 0, cfg.Worker.Count)
	assert.False(t, cfg.Worker.KeepGoing)
	assert.Empty(t, cfg.Metrics.Textfile)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CLDB_WORKER_COUNT", "6")
	t.Setenv("CLDB_WORKER_KEEP_GOING", "true")
	t.Setenv("CLDB_FETCHER_REQUEST_TIMEOUT", "5s")
	t.Setenv("CLDB_DATASETS_LENSES", "data/lenses.xlsx")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Worker.Count)
	assert.True(t, cfg.Worker.KeepGoing)
	assert.Equal(t, 5*time.Second, cfg.Fetcher.RequestTimeout)
	assert.Equal(t, "data/lenses.xlsx", cfg.Datasets.Lenses)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := "fetcher:\n  rate_limit: 1.5\n  user_agent: test-agent\nsources:\n  catalog_path: catalog.yaml\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	v := newViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.InDelta(t, 1.5, cfg.Fetcher.RateLimit, 1e-9)
	assert.Equal(t, "test-agent", cfg.Fetcher.UserAgent)
	assert.Equal(t, 4, cfg.Fetcher.Burst)
	assert.Equal(t, "catalog.yaml", cfg.Sources.CatalogPath)
}

func TestLoad_LargeWorkerCount(t *testing.T) {
	v := newViper(t)
	v.Set("worker.count", 1000)

	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Worker.Workers())
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]struct {
		key   string
		value any
		field string
	}{
		"log level":     {key: "logger.level", value: "loud", field: "logger"},
		"lenses path":   {key: "datasets.lenses", value: "", field: "datasets.lenses"},
		"retry backoff": {key: "fetcher.retry_initial_delay", value: time.Minute, field: "fetcher.retry_initial_delay"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			v := newViper(t)
			v.Set(tt.key, tt.value)

			_, err := config.Load(v)
			require.ErrorIs(t, err, config.ErrConfigInvalid)

			var verr *config.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
