package commands

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pepbuilder/internal/config"
)

// Global is passed to every command's Run method.
type Global struct {
	Logger *slog.Logger
	// Stdout receives user-facing command output.
	Stdout io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"pepbuilder.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" help:"Render PEP sources into HTML"`
	Index IndexCmd `cmd:"" help:"Regenerate PEP 0 and the JSON index without rendering"`
	Watch WatchCmd `cmd:"" help:"Rebuild on source changes and serve the output for preview"`
	Check CheckCmd `cmd:"" help:"Verify internal links and anchors in the rendered output"`
	Init  InitCmd  `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; set up a provisional logger until
// the configuration is loaded.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(newLogger(os.Stderr, parseLogLevel(c.Verbose, config.LogLevelInfo), config.LogFormatText))
	return nil
}

// LoadConfig loads the configuration file and reconfigures logging from it.
// A missing file at the default path yields the default configuration. A
// logger already set on g is kept.
func (c *CLI) LoadConfig(g *Global) (*config.Config, error) {
	var cfg *config.Config
	if _, err := os.Stat(c.Config); os.IsNotExist(err) && c.Config == config.DefaultPath {
		slog.Debug("No configuration file found, using defaults", "path", c.Config)
		cfg = config.Default()
	} else {
		loaded, err := config.Load(c.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if g != nil && g.Logger != nil {
		return cfg, nil
	}
	logger := newLogger(os.Stderr, parseLogLevel(c.Verbose, cfg.Monitoring.Logging.Level), cfg.Monitoring.Logging.Format)
	slog.SetDefault(logger)
	if g != nil {
		g.Logger = logger
	}
	return cfg, nil
}

// parseLogLevel honours --verbose, then PEPBUILDER_LOG_LEVEL, then the configured level.
func parseLogLevel(verbose bool, configured config.LogLevel) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	level := configured
	if env := strings.TrimSpace(os.Getenv("PEPBUILDER_LOG_LEVEL")); env != "" {
		level = config.NormalizeLogLevel(env)
	}
	return level.SlogLevel()
}

func newLogger(w io.Writer, level slog.Level, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (g *Global) stdout() io.Writer {
	if g == nil || g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

func (g *Global) logger() *slog.Logger {
	if g == nil || g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}
