package config

import (
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/pepbuilder/internal/settings"
)

// CurrentVersion is the only configuration schema version understood.
const CurrentVersion = "1"

const (
	DefaultSourceDir    = "."
	DefaultPattern      = "*"
	DefaultOutputDir    = "./build"
	DefaultBuilder      = "html"
	DefaultCacheFile    = ".pepbuilder/cache.db"
	DefaultSourceURL    = "https://github.com/python/peps/blob/main/peps/"
	DefaultHistoryURL   = "https://github.com/python/peps/commits/main/peps/"
	DefaultCanonicalURL = "https://peps.python.org/"
	DefaultWatchAddress = "127.0.0.1:8000"
	DefaultDebounce     = 300 * time.Millisecond
	DefaultMetricsPath  = "/metrics"
)

func normalize(cfg *Config) {
	cfg.Output.Builder = strings.ToLower(strings.TrimSpace(cfg.Output.Builder))
	cfg.Monitoring.Logging.Level = NormalizeLogLevel(string(cfg.Monitoring.Logging.Level))
	cfg.Monitoring.Logging.Format = NormalizeLogFormat(string(cfg.Monitoring.Logging.Format))
	for i, ext := range cfg.PEP.Extensions {
		cfg.PEP.Extensions[i] = strings.TrimSpace(ext)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	if cfg.Source.Directory == "" {
		cfg.Source.Directory = DefaultSourceDir
	}
	if cfg.Source.Pattern == "" {
		cfg.Source.Pattern = DefaultPattern
	}
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = DefaultOutputDir
	}
	if cfg.Output.Builder == "" {
		cfg.Output.Builder = DefaultBuilder
	}
	if cfg.Build.CachePath == "" {
		cfg.Build.CachePath = filepath.FromSlash(DefaultCacheFile)
	}
	if cfg.PEP.Extensions == nil {
		cfg.PEP.Extensions = []string{"pep"}
	}
	if cfg.PEP.SourceURL == "" {
		cfg.PEP.SourceURL = DefaultSourceURL
	}
	if cfg.PEP.HistoryURL == "" {
		cfg.PEP.HistoryURL = DefaultHistoryURL
	}
	if cfg.PEP.CanonicalURL == "" {
		cfg.PEP.CanonicalURL = DefaultCanonicalURL
	}
	if cfg.Watch.Address == "" {
		cfg.Watch.Address = DefaultWatchAddress
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultDebounce
	}
	if cfg.Monitoring.Metrics.Path == "" {
		cfg.Monitoring.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Monitoring.Logging.Level == "" {
		cfg.Monitoring.Logging.Level = LogLevelInfo
	}
	if cfg.Monitoring.Logging.Format == "" {
		cfg.Monitoring.Logging.Format = LogFormatText
	}
}

// SettingsOverrides returns the default document settings derived from cfg.
func (c *Config) SettingsOverrides() map[string]any {
	return map[string]any{
		settings.KeySourceURL:    c.PEP.SourceURL,
		settings.KeyHistoryURL:   c.PEP.HistoryURL,
		settings.KeyCanonicalURL: c.PEP.CanonicalURL,
	}
}
