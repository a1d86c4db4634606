package host

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/pepbuilder/internal/envcache"
	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pepbuilder/internal/logfields"
	"git.home.luguber.info/inful/pepbuilder/internal/metrics"
	"git.home.luguber.info/inful/pepbuilder/internal/settings"
)

// ConfigFileName is the per-source-dir settings file merged into every
// document's settings unless _disable_config is set.
const ConfigFileName = "docutils.yaml"

// Stage names used in logs and metrics.
const (
	StageRead  = "read"
	StageWrite = "write"
)

// BuildResult summarizes one Build call.
type BuildResult struct {
	BuildID  string
	Builder  string
	Read     int
	Written  int
	Skipped  int
	Duration time.Duration
}

// Build runs the full pipeline: builder init, discovery, read, write, finish.
func (a *Application) Build(ctx context.Context) (res *BuildResult, err error) {
	start := time.Now()
	res = &BuildResult{BuildID: uuid.NewString(), Builder: a.opts.Builder}
	log := a.logger.With(logfields.BuildID(res.BuildID), logfields.Builder(res.Builder))

	defer func() {
		res.Duration = time.Since(start)
		a.recorder.ObserveBuildDuration(res.Builder, res.Duration)
		a.recorder.IncBuildOutcome(buildOutcome(ctx, err))
		if err != nil {
			log.Error("Build failed", logfields.Error(err))
			return
		}
		log.Info("Build finished",
			"read", res.Read, "written", res.Written, "skipped", res.Skipped,
			logfields.DurationMS(float64(res.Duration.Milliseconds())))
	}()

	builder, err := a.NewBuilder(a.opts.Builder)
	if err != nil {
		return res, err
	}
	if err = builder.Init(a); err != nil {
		return res, errors.WrapError(err, errors.CategoryBuild, "builder init failed").
			WithContext("builder", builder.Name()).
			Build()
	}
	env := NewEnvironment(a.opts.SrcDir)
	a.mu.Lock()
	a.builder = builder
	a.env = env
	a.mu.Unlock()

	if err = a.Emit(ctx, EventBuilderInited, env); err != nil {
		return res, err
	}
	if err = a.discover(env, log); err != nil {
		return res, err
	}
	if err = a.Emit(ctx, EventBeforeReadDocs, env); err != nil {
		return res, err
	}

	if res.Read, err = a.readAll(ctx, env, log); err != nil {
		return res, err
	}
	if res.Written, res.Skipped, err = a.writeAll(ctx, builder, env, log); err != nil {
		return res, err
	}
	if err = builder.Finish(ctx, env); err != nil {
		return res, errors.WrapError(err, errors.CategoryBuild, "builder finish failed").
			WithContext("builder", builder.Name()).
			Build()
	}

	if a.opts.Cache != nil {
		removed, perr := a.opts.Cache.Prune(ctx, builder.Name(), env.Docnames())
		if perr != nil {
			log.Warn("Pruning environment cache failed", logfields.Error(perr))
		} else if removed > 0 {
			log.Debug("Pruned environment cache", logfields.Count(removed))
		}
	}
	return res, nil
}

func buildOutcome(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "success"
	case ctx.Err() != nil:
		return "canceled"
	default:
		return "failed"
	}
}

// discover registers every source file whose suffix has a parser and whose
// name matches Options.SourcePattern. Subdirectories are not scanned.
func (a *Application) discover(env *Environment, log *slog.Logger) error {
	entries, err := os.ReadDir(a.opts.SrcDir)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "cannot read source directory").
			WithContext("path", a.opts.SrcDir).
			Build()
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		suffix := filepath.Ext(name)
		if _, ok := a.SourceParser(suffix); !ok {
			continue
		}
		if ok, _ := filepath.Match(a.opts.SourcePattern, name); !ok {
			continue
		}
		docname := strings.TrimSuffix(name, suffix)
		if prev, dup := env.Source(docname); dup {
			log.Warn("Duplicate docname, keeping first source",
				logfields.Document(docname), logfields.Path(prev), "ignored", name)
			continue
		}
		env.AddSource(docname, filepath.Join(a.opts.SrcDir, name))
	}
	log.Debug("Discovered sources", logfields.Count(len(env.Docnames())))
	return nil
}

func (a *Application) workers(parallelSafe bool) int {
	if !parallelSafe {
		return 1
	}
	if a.opts.Parallel > 0 {
		return a.opts.Parallel
	}
	return runtime.NumCPU()
}

// forEach runs fn for every item with at most workers in flight. The first
// error cancels the remaining items.
func forEach(ctx context.Context, items []string, workers int, fn func(context.Context, string) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, item)
		})
	}
	return g.Wait()
}

// loadConfigFile returns the overrides in ConfigFileName, or nil when the
// file is absent or config loading is disabled in the defaults.
func (a *Application) loadConfigFile() (map[string]any, error) {
	if settings.Defaults().Bool(settings.KeyDisableConfig) {
		return nil, nil
	}
	path := filepath.Join(a.opts.SrcDir, ConfigFileName)
	data, err := os.ReadFile(path)
	if stderrors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "cannot read settings file").
			WithContext("path", path).
			Build()
	}
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid settings file").
			WithContext("path", path).
			Build()
	}
	return values, nil
}

func (a *Application) readAll(ctx context.Context, env *Environment, log *slog.Logger) (int, error) {
	start := time.Now()
	overrides, err := a.loadConfigFile()
	if err != nil {
		return 0, err
	}
	names := env.Docnames()
	workers := a.workers(a.ParallelReadSafe())
	a.recorder.SetWorkerConcurrency(StageRead, workers)

	err = forEach(ctx, names, workers, func(ctx context.Context, name string) error {
		doc, err := a.readDocument(ctx, env, name, overrides)
		if err != nil {
			a.recorder.IncDocumentResult(StageRead, metrics.ResultFailed)
			return err
		}
		env.setDocument(doc)
		a.recorder.IncDocumentResult(StageRead, metrics.ResultSuccess)
		return nil
	})
	a.recorder.ObserveStageDuration(StageRead, time.Since(start))
	if err != nil {
		return 0, err
	}
	log.Debug("Read documents", logfields.Stage(StageRead), logfields.Count(len(names)), "workers", workers)
	return len(names), nil
}

func (a *Application) readDocument(ctx context.Context, env *Environment, name string, overrides map[string]any) (*Document, error) {
	path, _ := env.Source(name)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "cannot read source").
			WithContext("document", name).
			Build()
	}
	p, ok := a.SourceParser(filepath.Ext(path))
	if !ok {
		return nil, errors.InternalError("no parser for discovered source").WithContext("document", name).Build()
	}

	s := settings.Defaults().Clone()
	s.Merge(overrides)
	doc, err := p.Parse(a.NewParseContext(ctx, name, path, s), raw)
	if err != nil {
		if ce, ok := errors.AsClassified(err); ok {
			return nil, ce.WithContext("document", name)
		}
		return nil, errors.WrapError(err, errors.CategoryParse, "cannot parse document").
			WithContext("document", name).
			Build()
	}
	doc.Name = name
	doc.Path = path
	doc.Raw = raw
	if doc.Settings == nil {
		doc.Settings = s
	}
	return doc, nil
}

func (a *Application) writeAll(ctx context.Context, builder Builder, env *Environment, log *slog.Logger) (int, int, error) {
	start := time.Now()
	workers := a.workers(a.ParallelWriteSafe())
	a.recorder.SetWorkerConcurrency(StageWrite, workers)

	var written, skipped atomic.Int64
	err := forEach(ctx, env.Docnames(), workers, func(ctx context.Context, name string) error {
		doc, ok := env.Document(name)
		if !ok {
			return nil
		}
		fingerprint := ""
		if a.opts.Cache != nil {
			fingerprint = envcache.Fingerprint(doc.Raw, builder.Name(), doc.Settings.Snapshot())
			if a.unchanged(ctx, builder, name, fingerprint) {
				skipped.Add(1)
				a.recorder.IncDocumentResult(StageWrite, metrics.ResultSkipped)
				return nil
			}
		}
		if err := builder.Write(ctx, doc); err != nil {
			a.recorder.IncDocumentResult(StageWrite, metrics.ResultFailed)
			if ce, ok := errors.AsClassified(err); ok {
				return ce.WithContext("document", name)
			}
			return errors.WrapError(err, errors.CategoryBuild, "cannot write document").
				WithContext("document", name).
				Build()
		}
		written.Add(1)
		a.recorder.IncDocumentResult(StageWrite, metrics.ResultSuccess)

		if a.opts.Cache != nil {
			entry := envcache.Entry{
				Builder:     builder.Name(),
				Docname:     name,
				Fingerprint: fingerprint,
				Title:       doc.Title,
				WrittenAt:   time.Now().UTC(),
			}
			if err := a.opts.Cache.Record(ctx, entry); err != nil {
				log.Warn("Recording fingerprint failed", logfields.Document(name), logfields.Error(err))
			}
		}
		return nil
	})
	a.recorder.ObserveStageDuration(StageWrite, time.Since(start))
	if err != nil {
		return 0, 0, err
	}
	log.Debug("Wrote documents", logfields.Stage(StageWrite),
		logfields.Count(int(written.Load())), "skipped", skipped.Load(), "workers", workers)
	return int(written.Load()), int(skipped.Load()), nil
}

// unchanged reports whether an incremental build may skip docname.
func (a *Application) unchanged(ctx context.Context, builder Builder, docname, fingerprint string) bool {
	if !a.opts.Incremental {
		return false
	}
	prev, ok, err := a.opts.Cache.Fingerprint(ctx, builder.Name(), docname)
	if err != nil || !ok || prev != fingerprint {
		return false
	}
	_, err = os.Stat(filepath.Join(a.opts.OutDir, builder.TargetPath(docname)))
	return err == nil
}
