package build

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/pepbuilder/internal/envcache"
	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pepbuilder/internal/host"
	"git.home.luguber.info/inful/pepbuilder/internal/logfields"
	"git.home.luguber.info/inful/pepbuilder/internal/metrics"
	"git.home.luguber.info/inful/pepbuilder/internal/plugin"
	"git.home.luguber.info/inful/pepbuilder/internal/settings"
)

// DefaultBuildService is the standard implementation of BuildService.
type DefaultBuildService struct {
	logger   *slog.Logger
	recorder metrics.Recorder
	registry *plugin.Registry
}

// NewBuildService creates a DefaultBuildService using the global plugin registry.
func NewBuildService() *DefaultBuildService {
	return &DefaultBuildService{
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		registry: plugin.DefaultRegistry(),
	}
}

// WithLogger sets the logger handed to the application.
func (s *DefaultBuildService) WithLogger(logger *slog.Logger) *DefaultBuildService {
	s.logger = logger
	return s
}

// WithRecorder sets the metrics recorder handed to the application.
func (s *DefaultBuildService) WithRecorder(recorder metrics.Recorder) *DefaultBuildService {
	s.recorder = recorder
	return s
}

// WithRegistry sets the registry extensions are loaded from.
func (s *DefaultBuildService) WithRegistry(registry *plugin.Registry) *DefaultBuildService {
	s.registry = registry
	return s
}

// Run executes the complete build pipeline.
func (s *DefaultBuildService) Run(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	result := &BuildResult{StartTime: time.Now(), Status: BuildStatusFailed}
	defer func() { result.Duration = time.Since(result.StartTime) }()

	if req.Config == nil {
		return result, errors.ConfigError("config required").Build()
	}
	cfg := req.Config

	outDir := cfg.Output.Directory
	if req.OutputDir != "" {
		outDir = req.OutputDir
	}
	builderName := cfg.Output.Builder
	if req.Builder != "" {
		builderName = req.Builder
	}
	incremental := req.Incremental || cfg.Build.Incremental
	result.OutputPath = outDir
	result.Builder = builderName

	settings.Defaults().Merge(cfg.SettingsOverrides())

	if cfg.Output.Clean && !incremental {
		if err := cleanOutput(outDir, cfg.Source.Directory); err != nil {
			return result, err
		}
	}

	var cache *envcache.Store
	if incremental {
		var err error
		cache, err = envcache.Open(cfg.Build.CachePath)
		if err != nil {
			return result, errors.WrapError(err, errors.CategoryCache, "failed to open environment cache").
				WithContext("path", cfg.Build.CachePath).
				Build()
		}
		defer func() {
			if err := cache.Close(); err != nil {
				s.logger.Warn("Failed to close environment cache", logfields.Error(err))
			}
		}()
	}

	app := host.New(host.Options{
		SrcDir:        cfg.Source.Directory,
		OutDir:        outDir,
		Builder:       builderName,
		SourcePattern: cfg.Source.Pattern,
		Parallel:      cfg.Build.Parallel,
		MathRenderer:  cfg.Build.MathRenderer,
		Cache:         cache,
		Incremental:   incremental,
		Logger:        s.logger,
		Recorder:      s.recorder,
	})
	if err := s.registry.Load(app, cfg.PEP.Extensions...); err != nil {
		return result, err
	}

	res, err := app.Build(ctx)
	if res != nil {
		result.BuildID = res.BuildID
		result.Read = res.Read
		result.Written = res.Written
		result.Skipped = res.Skipped
	}
	if err != nil {
		if stderrors.Is(err, context.Canceled) {
			result.Status = BuildStatusCancelled
		}
		return result, err
	}
	result.Status = BuildStatusSuccess
	return result, nil
}

// cleanOutput removes outDir unless it is a parent of (or equal to) srcDir.
func cleanOutput(outDir, srcDir string) error {
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to resolve output directory").Build()
	}
	absSrc, err := filepath.Abs(srcDir)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to resolve source directory").Build()
	}
	if rel, err := filepath.Rel(absOut, absSrc); err == nil && !filepath.IsAbs(rel) && rel != ".." && !startsWithParent(rel) {
		return errors.ValidationError("refusing to clean an output directory containing the sources").
			WithContext("path", outDir).
			Build()
	}
	if err := os.RemoveAll(absOut); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to clean output directory").
			WithContext("path", outDir).
			Build()
	}
	return nil
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
