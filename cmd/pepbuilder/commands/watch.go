package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/pepbuilder/internal/build"
	"git.home.luguber.info/inful/pepbuilder/internal/metrics"
	"git.home.luguber.info/inful/pepbuilder/internal/pep/parsing"
	"git.home.luguber.info/inful/pepbuilder/internal/pep/zero"
	"git.home.luguber.info/inful/pepbuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Output  string `short:"o" help:"Output directory (overrides output.directory)"`
	Builder string `short:"b" help:"Builder to use (overrides output.builder)"`
	Address string `short:"a" help:"Listen address (overrides watch.address)"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	addr := cfg.Watch.Address
	if w.Address != "" {
		addr = w.Address
	}
	outDir := outputDir(w.Output, cfg)

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	opts := watch.Options{
		SrcDir:   cfg.Source.Directory,
		OutDir:   outDir,
		Address:  addr,
		Debounce: cfg.Watch.Debounce,
		// PEP 0 is regenerated by every build.
		Ignore: []string{zero.Docname + parsing.Suffix},
		Logger: g.logger(),
	}
	if cfg.Monitoring.Metrics.Enabled {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		opts.MetricsHandler = metrics.HTTPHandler(reg)
		opts.MetricsPath = cfg.Monitoring.Metrics.Path
	}

	svc := build.NewBuildService().WithLogger(g.logger()).WithRecorder(recorder)
	opts.Rebuild = func(ctx context.Context) error {
		_, err := svc.Run(ctx, build.BuildRequest{
			Config:      cfg,
			OutputDir:   outDir,
			Builder:     w.Builder,
			Incremental: true,
		})
		return err
	}

	preview, err := watch.New(opts)
	if err != nil {
		return err
	}
	go func() {
		select {
		case <-preview.Ready():
			_, _ = fmt.Fprintf(g.stdout(), "Serving %s at http://%s/\n", outDir, preview.Addr())
		case <-ctx.Done():
		}
	}()
	return preview.Run(ctx)
}
