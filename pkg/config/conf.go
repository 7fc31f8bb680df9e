package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/mchmarny/top1m/pkg/rank"
	"github.com/mchmarny/top1m/pkg/source"
	"gopkg.in/yaml.v3"
)

const (
	FileName = "config.yaml"
	dirMode  = 0700
	fileMode = 0600

	defaultKeepRuns = 10
)

var validate = validator.New()

// Config is the application configuration persisted as YAML.
type Config struct {
	TargetSize      int              `json:"target_size" yaml:"target_size" validate:"gt=0"`
	Workers         int              `json:"workers" yaml:"workers" validate:"gte=0"`
	OutputDir       string           `json:"output_dir" yaml:"output_dir"`
	RequestInterval time.Duration    `json:"request_interval" yaml:"request_interval" validate:"gte=0"`
	KeepRuns        int              `json:"keep_runs" yaml:"keep_runs" validate:"gte=0"`
	Sources         []*source.Config `json:"sources" yaml:"sources" validate:"required,min=1"`
}

// envOverrides are applied on top of the file when set.
type envOverrides struct {
	TargetSize      *int           `env:"TOP1M_TARGET_SIZE"`
	Workers         *int           `env:"TOP1M_WORKERS"`
	OutputDir       *string        `env:"TOP1M_OUTPUT_DIR"`
	RequestInterval *time.Duration `env:"TOP1M_REQUEST_INTERVAL"`
	KeepRuns        *int           `env:"TOP1M_KEEP_RUNS"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		TargetSize:      rank.DefaultTargetSize,
		OutputDir:       ".",
		RequestInterval: source.DefaultRequestInterval,
		KeepRuns:        defaultKeepRuns,
		Sources:         source.Defaults(),
	}
}

// Validate checks the settings and every source.
// Failures unwrap to rank.ErrConfiguration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config required", rank.ErrConfiguration)
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", rank.ErrConfiguration, err)
	}
	return source.ValidateAll(c.Sources)
}

// ApplyEnv overrides settings from TOP1M_* environment variables.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("%w: %w", rank.ErrConfiguration, err)
	}

	if o.TargetSize != nil {
		c.TargetSize = *o.TargetSize
	}
	if o.Workers != nil {
		c.Workers = *o.Workers
	}
	if o.OutputDir != nil {
		c.OutputDir = *o.OutputDir
	}
	if o.RequestInterval != nil {
		c.RequestInterval = *o.RequestInterval
	}
	if o.KeepRuns != nil {
		c.KeepRuns = *o.KeepRuns
	}
	return nil
}

func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(dirPath, FileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("failed to write config file: %s: %w", path, err)
	}
	return nil
}

// ReadOrCreate reads the config from directory or creates a default one.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dirPath, dirMode); err != nil {
			return nil, fmt.Errorf("failed to create dir: %s: %w", dirPath, err)
		}
	}

	path := filepath.Join(dirPath, FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating default config", "path", path)
		if err := Save(dirPath, Default()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	return Load(path)
}

// Load reads the config file at path, applies env overrides and validates.
// Settings missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %s: %w", path, err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("error unmarshalling config file: %s: %w", path, err)
	}

	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %s: %w", path, err)
	}

	return c, nil
}

// GetOrCreateHomeDir returns the app directory under the user home.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("failed to get user home dir: %w", err)
	}
	slog.Debug("home dir", "path", home)

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("failed to create dir: %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}
