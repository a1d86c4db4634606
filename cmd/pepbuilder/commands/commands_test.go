package commands

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pepbuilder/internal/config"
	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
	_ "git.home.luguber.info/inful/pepbuilder/internal/pep/ext"
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

Read :pep:` + "`8#introduction`" + `.
`

type project struct {
	root   string
	cli    *CLI
	global *Global
	out    *bytes.Buffer
}

func newProject(t *testing.T) *project {
	t.Helper()
	saved := settings.Defaults().Snapshot()
	t.Cleanup(func() { settings.Defaults().Replace(saved) })

	root := t.TempDir()
	t.Chdir(root)
	src := filepath.Join(root, "peps")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "pep-0001.md"), []byte(pep1), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "pep-0008.md"), []byte(pep8), 0o644))

	cfgPath := filepath.Join(root, config.DefaultPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte("source:\n  directory: peps\noutput:\n  directory: build\n"), 0o644))

	out := &bytes.Buffer{}
	return &project{
		root:   root,
		cli:    &CLI{Config: cfgPath},
		global: &Global{Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), Stdout: out},
		out:    out,
	}
}

func TestParse_Commands(t *testing.T) {
	for _, args := range [][]string{
		{"build", "--incremental", "--builder", "dirhtml"},
		{"index", "--no-api"},
		{"watch", "--address", "127.0.0.1:0"},
		{"check", "--base-url", "https://example.com/"},
		{"init", "--force"},
	} {
		var cli CLI
		parser, err := kong.New(&cli, kong.Vars{"version": "test"})
		require.NoError(t, err)
		ctx, err := parser.Parse(args)
		require.NoError(t, err, args)
		require.Equal(t, args[0], ctx.Command())
		require.Equal(t, config.DefaultPath, cli.Config)
	}
}

func TestBuildAndCheck(t *testing.T) {
	p := newProject(t)

	cmd := &BuildCmd{Check: true, MetricsFile: filepath.Join(p.root, "metrics", "build.prom")}
	require.NoError(t, cmd.Run(p.global, p.cli))
	require.Contains(t, p.out.String(), "Built 3 documents (3 written, 0 unchanged)")
	require.Contains(t, p.out.String(), "0 broken")

	_, err := os.Stat(filepath.Join(p.root, "build", "pep-0008.html"))
	require.NoError(t, err)
	metrics, err := os.ReadFile(filepath.Join(p.root, "metrics", "build.prom"))
	require.NoError(t, err)
	require.Contains(t, string(metrics), "pepbuilder_")
}

func TestBuild_Incremental(t *testing.T) {
	p := newProject(t)
	require.NoError(t, (&BuildCmd{Incremental: true}).Run(p.global, p.cli))
	p.out.Reset()
	require.NoError(t, (&BuildCmd{Incremental: true}).Run(p.global, p.cli))
	require.Contains(t, p.out.String(), "(0 written, 3 unchanged)")
}

func TestCheck_ReportsBrokenLinks(t *testing.T) {
	p := newProject(t)
	require.NoError(t, (&BuildCmd{}).Run(p.global, p.cli))
	require.NoError(t, os.Remove(filepath.Join(p.root, "build", "pep-0001.html")))

	err := (&CheckCmd{}).Run(p.global, p.cli)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
	require.Contains(t, p.out.String(), "pep-0001.html (missing file)")
}

func TestIndex(t *testing.T) {
	p := newProject(t)

	require.NoError(t, (&IndexCmd{}).Run(p.global, p.cli))
	require.Contains(t, p.out.String(), "Indexed 2 PEPs, updated")
	_, err := os.Stat(filepath.Join(p.root, "build", "api", "peps.json"))
	require.NoError(t, err)

	p.out.Reset()
	require.NoError(t, (&IndexCmd{NoAPI: true}).Run(p.global, p.cli))
	require.Contains(t, p.out.String(), "unchanged")
}

func TestInit(t *testing.T) {
	p := newProject(t)
	dir := filepath.Join(p.root, "fresh")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	require.NoError(t, (&InitCmd{Output: dir}).Run(p.global, p.cli))
	require.Contains(t, p.out.String(), "initialized successfully")
	_, err := config.Load(filepath.Join(dir, config.DefaultPath))
	require.NoError(t, err)

	err = (&InitCmd{Output: dir}).Run(p.global, p.cli)
	require.Error(t, err)
	require.Contains(t, p.out.String(), "Initialization failed")
}

func TestLoadConfig_MissingDefaultUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cli := &CLI{Config: config.DefaultPath}
	cfg, err := cli.LoadConfig(&Global{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	require.Equal(t, config.DefaultOutputDir, cfg.Output.Directory)

	cli.Config = "elsewhere.yaml"
	_, err = cli.LoadConfig(nil)
	require.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLogLevel(true, config.LogLevelError))
	require.Equal(t, slog.LevelWarn, parseLogLevel(false, config.LogLevelWarn))
	t.Setenv("PEPBUILDER_LOG_LEVEL", "error")
	require.Equal(t, slog.LevelError, parseLogLevel(false, config.LogLevelDebug))
}
