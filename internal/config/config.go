package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/personality-predictor/internal/dataset"
	"github.com/TobiSchelling/personality-predictor/internal/model"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// ErrNoConfig is returned by ResolveConfigPath when no config file exists.
var ErrNoConfig = errors.New("no config file found")

type Config struct {
	Data    Data    `yaml:"data"`
	Model   Model   `yaml:"model"`
	Server  Server  `yaml:"server"`
	Output  Output  `yaml:"output"`
	Logging Logging `yaml:"logging"`
}

type Data struct {
	Dataset  string `yaml:"dataset" env:"PERSONALITY_DATASET"`
	IDColumn string `yaml:"id_column" env:"PERSONALITY_ID_COLUMN"`
}

type Model struct {
	Seed      int64   `yaml:"seed" env:"PERSONALITY_SEED"`
	TestSize  float64 `yaml:"test_size" env:"PERSONALITY_TEST_SIZE"`
	C         float64 `yaml:"c" env:"PERSONALITY_C"`
	MaxIter   int     `yaml:"max_iter" env:"PERSONALITY_MAX_ITER"`
	Tolerance float64 `yaml:"tolerance"`
}

type Server struct {
	Host string `yaml:"host" env:"PERSONALITY_HOST"`
	Port int    `yaml:"port" env:"PERSONALITY_PORT"`
}

type Output struct {
	DataDir string `yaml:"data_dir" env:"PERSONALITY_DATA_DIR"`
}

type Logging struct {
	Level string `yaml:"level" env:"PERSONALITY_LOG_LEVEL"`
}

// ConfigDir returns the XDG config directory for personality.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "personality")
}

// DataDir returns the XDG data directory for personality.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "personality")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/personality/config.yaml > ./config.yaml
// It returns ErrNoConfig when none of them exist.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", ErrNoConfig
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the built-in configuration with environment overrides.
func Default() (*Config, error) {
	return parse(DefaultConfigYAML)
}

// parse parses YAML bytes into a Config, applying defaults first and
// environment overrides last.
func parse(data []byte) (*Config, error) {
	mc := model.DefaultConfig()
	cfg := &Config{
		Data: Data{
			Dataset:  filepath.Join("Data", "train.csv"),
			IDColumn: dataset.DefaultIDColumn,
		},
		Model: Model{
			Seed:      mc.Seed,
			TestSize:  mc.TestSize,
			C:         mc.C,
			MaxIter:   mc.MaxIter,
			Tolerance: mc.Tolerance,
		},
		Server:  Server{Host: "127.0.0.1", Port: 8501},
		Logging: Logging{Level: "info"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Data.Dataset) == "" {
		return fmt.Errorf("invalid config: data.dataset is empty")
	}
	if c.Model.TestSize <= 0 || c.Model.TestSize >= 1 {
		return fmt.Errorf("invalid config: model.test_size must be in (0, 1), got %v", c.Model.TestSize)
	}
	if c.Model.C <= 0 {
		return fmt.Errorf("invalid config: model.c must be positive, got %v", c.Model.C)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port %d out of range", c.Server.Port)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid config: unknown logging.level %q", c.Logging.Level)
	}
	return nil
}

// ModelConfig converts the model section for the trainer.
func (c *Config) ModelConfig() model.Config {
	return model.Config{
		Seed:      c.Model.Seed,
		TestSize:  c.Model.TestSize,
		C:         c.Model.C,
		MaxIter:   c.Model.MaxIter,
		Tolerance: c.Model.Tolerance,
	}
}

// DatasetOptions returns the loader options for the configured dataset.
func (c *Config) DatasetOptions() dataset.Options {
	opts := dataset.DefaultOptions()
	if c.Data.IDColumn != "" {
		opts.IDColumn = c.Data.IDColumn
	}
	return opts
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
