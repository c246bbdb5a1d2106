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

const validYAML = `
db_path: /tmp/mlforge.db
tag: iris
epochs: 50
batch_size: 16
learning_rate: 0.05
hidden_layers: [16, 8]
test_frac: 0.2
val_frac: 0.1
seed: 7
log_every: 5
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/mlforge.db", cfg.DBPath)
	assert.Equal(t, 50, cfg.Epochs)
	assert.Equal(t, []int{16, 8}, cfg.HiddenLayers)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 1, cfg.NumWorkers, "zero workers should default to 1")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MLFORGE_EPOCHS", "99")
	t.Setenv("MLFORGE_HIDDEN_LAYERS", "4,4")
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.Epochs)
	assert.Equal(t, []int{4, 4}, cfg.HiddenLayers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	cfg.ApplyOverrides(Overrides{Epochs: 10, DBPath: "/other.db", Seed: -1})
	assert.Equal(t, 10, cfg.Epochs)
	assert.Equal(t, "/other.db", cfg.DBPath)
	assert.Equal(t, int64(-1), cfg.Seed)

	cfg.ApplyOverrides(Overrides{})
	assert.Equal(t, 10, cfg.Epochs, "zero overrides must not reset values")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			DBPath:       "x.db",
			Epochs:       1,
			LearningRate: 0.1,
			TestFrac:     0.2,
			ValFrac:      0.1,
		}
	}

	cfg := base()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 10, cfg.LogEvery)

	cfg = base()
	cfg.DBPath = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Epochs = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.LearningRate = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.HiddenLayers = []int{8, 0}
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.TestFrac = 0.9
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.OutlierThreshold = -1
	require.Error(t, cfg.Validate())
}
