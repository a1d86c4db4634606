package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/pepbuilder/internal/build"
	"git.home.luguber.info/inful/pepbuilder/internal/config"
	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pepbuilder/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output      string `short:"o" help:"Output directory (overrides output.directory)"`
	Builder     string `short:"b" help:"Builder to use: html or dirhtml (overrides output.builder)"`
	Incremental bool   `short:"i" help:"Skip documents whose source and settings are unchanged"`
	Check       bool   `help:"Verify internal links after a successful build"`
	MetricsFile string `name:"metrics-file" help:"Write build metrics in Prometheus text format to this file"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var reg *prom.Registry
	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if b.MetricsFile != "" {
		reg = prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
	}

	out := g.stdout()
	_, _ = fmt.Fprintln(out, "Starting pepbuilder build")
	svc := build.NewBuildService().WithLogger(g.logger()).WithRecorder(recorder)
	res, err := svc.Run(ctx, build.BuildRequest{
		Config:      cfg,
		OutputDir:   b.Output,
		Builder:     b.Builder,
		Incremental: b.Incremental,
	})
	if reg != nil {
		if werr := writeMetricsFile(b.MetricsFile, reg); werr != nil && err == nil {
			err = werr
		}
	}
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Built %d documents (%d written, %d unchanged) into %s\n",
		res.Read, res.Written, res.Skipped, res.OutputPath)

	if b.Check {
		return runCheck(ctx, g, res.OutputPath, cfg.PEP.CanonicalURL, cfg.Build.Parallel)
	}
	return nil
}

func writeMetricsFile(path string, reg *prom.Registry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create metrics directory").
			WithContext("path", path).
			Build()
	}
	if err := prom.WriteToTextfile(path, reg); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write metrics file").
			WithContext("path", path).
			Build()
	}
	return nil
}

// outputDir resolves the output directory from a flag and the config.
func outputDir(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.Output.Directory
}
