package build

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pepbuilder/internal/config"
	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
	_ "git.home.luguber.info/inful/pepbuilder/internal/pep/ext"
	"git.home.luguber.info/inful/pepbuilder/internal/plugin"
	"git.home.luguber.info/inful/pepbuilder/internal/settings"
)

const pep8 = `PEP: 8
Title: Style Guide for Python Code
Author: Guido van Rossum <guido@python.org>
Status: Active
Type: Process
Created: 05-Jul-2001

## Introduction

See PEP 1.
`

const pep1 = `PEP: 1
Title: PEP Purpose and Guidelines
Author: Barry Warsaw <barry@python.org>
Status: Active
Type: Process
Created: 13-Jun-2000

## What is a PEP?
`

func newService() *DefaultBuildService {
	return NewBuildService().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	saved := settings.Defaults().Snapshot()
	t.Cleanup(func() { settings.Defaults().Replace(saved) })

	root := t.TempDir()
	src := filepath.Join(root, "peps")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "pep-0001.md"), []byte(pep1), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "pep-0008.md"), []byte(pep8), 0o644))

	cfg := config.Default()
	cfg.Source.Directory = src
	cfg.Output.Directory = filepath.Join(root, "build")
	cfg.Build.CachePath = filepath.Join(root, ".cache", "env.db")
	cfg.PEP.SourceURL = "https://example.com/src/"
	return cfg
}

func TestRun_RequiresConfig(t *testing.T) {
	res, err := newService().Run(context.Background(), BuildRequest{})
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
	require.Equal(t, BuildStatusFailed, res.Status)
}

func TestRun_Builds(t *testing.T) {
	cfg := testConfig(t)

	res, err := newService().Run(context.Background(), BuildRequest{Config: cfg})
	require.NoError(t, err)
	require.True(t, res.Status.IsSuccess())
	require.NotEmpty(t, res.BuildID)
	require.Equal(t, "html", res.Builder)
	require.Equal(t, 3, res.Read)
	require.Equal(t, 3, res.Written)

	page, err := os.ReadFile(filepath.Join(cfg.Output.Directory, "pep-0008.html"))
	require.NoError(t, err)
	require.Contains(t, string(page), "https://example.com/src/pep-0008.md")
	require.Equal(t, "https://example.com/src/", settings.Defaults().String(settings.KeySourceURL))
}

func TestRun_BuilderOverride(t *testing.T) {
	cfg := testConfig(t)
	out := filepath.Join(t.TempDir(), "dir")

	res, err := newService().Run(context.Background(), BuildRequest{Config: cfg, OutputDir: out, Builder: "dirhtml"})
	require.NoError(t, err)
	require.Equal(t, out, res.OutputPath)
	_, err = os.Stat(filepath.Join(out, "pep-0008", "index.html"))
	require.NoError(t, err)
}

func TestRun_Incremental(t *testing.T) {
	cfg := testConfig(t)
	svc := newService()

	first, err := svc.Run(context.Background(), BuildRequest{Config: cfg, Incremental: true})
	require.NoError(t, err)
	require.Equal(t, 3, first.Written)

	second, err := svc.Run(context.Background(), BuildRequest{Config: cfg, Incremental: true})
	require.NoError(t, err)
	require.Equal(t, 0, second.Written)
	require.Equal(t, 3, second.Skipped)

	_, err = os.Stat(cfg.Build.CachePath)
	require.NoError(t, err)
}

func TestRun_CleanOutput(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Clean = true
	stale := filepath.Join(cfg.Output.Directory, "stale.html")
	require.NoError(t, os.MkdirAll(cfg.Output.Directory, 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	_, err := newService().Run(context.Background(), BuildRequest{Config: cfg})
	require.NoError(t, err)
	_, err = os.Stat(stale)
	require.True(t, os.IsNotExist(err))
}

func TestRun_RefusesToCleanSources(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Clean = true
	cfg.Output.Directory = filepath.Dir(cfg.Source.Directory)

	_, err := newService().Run(context.Background(), BuildRequest{Config: cfg})
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
	_, err = os.Stat(filepath.Join(cfg.Source.Directory, "pep-0008.md"))
	require.NoError(t, err)
}

func TestRun_UnknownExtension(t *testing.T) {
	cfg := testConfig(t)
	cfg.PEP.Extensions = []string{"missing"}

	_, err := newService().WithRegistry(plugin.NewRegistry()).Run(context.Background(), BuildRequest{Config: cfg})
	var perr *plugin.PluginError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "lookup", perr.Operation)
}

func TestRun_Cancelled(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newService().Run(ctx, BuildRequest{Config: cfg})
	require.Error(t, err)
	require.Equal(t, BuildStatusCancelled, res.Status)
}
