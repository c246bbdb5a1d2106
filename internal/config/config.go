// Package config loads runtime settings from YAML, environment, and flags.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config captures the runtime knobs for a training run. Environment
// variables override file values; CLI flags override both.
type Config struct {
	DBPath           string  `yaml:"db_path" env:"MLFORGE_DB_PATH"`
	Tag              string  `yaml:"tag" env:"MLFORGE_TAG"`
	Epochs           int     `yaml:"epochs" env:"MLFORGE_EPOCHS"`
	BatchSize        int     `yaml:"batch_size" env:"MLFORGE_BATCH_SIZE"`
	LearningRate     float64 `yaml:"learning_rate" env:"MLFORGE_LEARNING_RATE"`
	HiddenLayers     []int   `yaml:"hidden_layers" env:"MLFORGE_HIDDEN_LAYERS" envSeparator:","`
	TestFrac         float64 `yaml:"test_frac" env:"MLFORGE_TEST_FRAC"`
	ValFrac          float64 `yaml:"val_frac" env:"MLFORGE_VAL_FRAC"`
	OutlierThreshold float64 `yaml:"outlier_threshold" env:"MLFORGE_OUTLIER_THRESHOLD"`
	NumWorkers       int     `yaml:"num_workers" env:"MLFORGE_NUM_WORKERS"`
	Seed             int64   `yaml:"seed" env:"MLFORGE_SEED"`
	LogEvery         int     `yaml:"log_every" env:"MLFORGE_LOG_EVERY"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	DBPath    string
	Tag       string
	Epochs    int
	BatchSize int
	Seed      int64
	LogEvery  int
}

// Load reads a Config from YAML, applies environment overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DBPath != "" {
		c.DBPath = o.DBPath
	}
	if o.Tag != "" {
		c.Tag = o.Tag
	}
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
}

// Validate verifies the config is runnable and fills defaults.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.DBPath == "" {
		return errors.New("db_path must be set")
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch_size must be >= 0 (got %d)", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0 (got %v)", c.LearningRate)
	}
	for i, size := range c.HiddenLayers {
		if size <= 0 {
			return fmt.Errorf("hidden layer %d size must be > 0 (got %d)", i, size)
		}
	}
	if c.TestFrac < 0 || c.ValFrac < 0 || c.TestFrac+c.ValFrac >= 1 {
		return fmt.Errorf("split fractions must be >= 0 and sum below 1 (test=%v val=%v)",
			c.TestFrac, c.ValFrac)
	}
	if c.OutlierThreshold < 0 {
		return fmt.Errorf("outlier_threshold must be >= 0 (got %v)", c.OutlierThreshold)
	}
	if c.NumWorkers <= 0 {
		c.NumWorkers = 1
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 10
	}
	return nil
}
