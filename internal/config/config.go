package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
)

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "pepbuilder.yaml"

// Config represents the application configuration.
type Config struct {
	Version    string           `yaml:"version"`
	Source     SourceConfig     `yaml:"source"`
	Output     OutputConfig     `yaml:"output"`
	Build      BuildConfig      `yaml:"build"`
	PEP        PEPConfig        `yaml:"pep"`
	Watch      WatchConfig      `yaml:"watch"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// SourceConfig locates the PEP sources.
type SourceConfig struct {
	Directory string `yaml:"directory"`
	// Pattern is a glob matched against source base names.
	Pattern string `yaml:"pattern,omitempty"`
}

// OutputConfig represents output configuration.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Builder   string `yaml:"builder"`
	Clean     bool   `yaml:"clean"` // Clean output directory before build
}

// BuildConfig tunes the read and write phases.
type BuildConfig struct {
	Parallel     int    `yaml:"parallel,omitempty"` // 0 means one worker per CPU
	Incremental  bool   `yaml:"incremental"`
	CachePath    string `yaml:"cache_path,omitempty"`
	MathRenderer string `yaml:"math_renderer,omitempty"`
}

// PEPConfig carries settings specific to PEP rendering.
type PEPConfig struct {
	Extensions   []string `yaml:"extensions"`
	SourceURL    string   `yaml:"source_url"`
	HistoryURL   string   `yaml:"history_url"`
	CanonicalURL string   `yaml:"canonical_url"`
}

// WatchConfig configures the watch command's preview server.
type WatchConfig struct {
	Address  string        `yaml:"address"`
	Debounce time.Duration `yaml:"debounce"`
}

// MonitoringConfig groups metrics and logging.
type MonitoringConfig struct {
	Metrics MonitoringMetrics `yaml:"metrics"`
	Logging MonitoringLogging `yaml:"logging"`
}

type MonitoringMetrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type MonitoringLogging struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads configPath, expands environment variables and applies defaults.
// A .env file in the working directory is loaded first.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath)).
			WithContext("path", configPath).
			Build()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read config file").
			WithContext("path", configPath).
			Build()
	}
	return Parse(data)
}

// Parse decodes configuration from data, expanding ${VAR} references.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Build()
	}

	if cfg.Version != "" && cfg.Version != CurrentVersion {
		return nil, errors.ConfigError(fmt.Sprintf("unsupported configuration version: %s", cfg.Version)).
			WithContext("version", cfg.Version).
			Build()
	}

	normalize(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ValidationError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).
			WithContext("path", configPath).
			Build()
	}

	example := Default()
	example.Build.Incremental = true
	example.Monitoring.Metrics.Enabled = true

	data, err := yaml.Marshal(example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal config").Build()
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
