package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
)

func validate(cfg *Config) error {
	if _, err := filepath.Match(cfg.Source.Pattern, "pep-0000.md"); err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "invalid source pattern").
			WithContext("pattern", cfg.Source.Pattern).
			Build()
	}
	if cfg.Build.Parallel < 0 {
		return errors.ValidationError(fmt.Sprintf("build.parallel must not be negative, got %d", cfg.Build.Parallel)).Build()
	}
	if cfg.Watch.Debounce < 0 {
		return errors.ValidationError("watch.debounce must not be negative").Build()
	}
	if len(cfg.PEP.Extensions) == 0 {
		return errors.ValidationError("pep.extensions must name at least one extension").Build()
	}
	for _, ext := range cfg.PEP.Extensions {
		if ext == "" {
			return errors.ValidationError("pep.extensions contains an empty name").Build()
		}
	}
	if !strings.HasPrefix(cfg.Monitoring.Metrics.Path, "/") {
		return errors.ValidationError("monitoring.metrics.path must start with /").
			WithContext("path", cfg.Monitoring.Metrics.Path).
			Build()
	}
	if filepath.Clean(cfg.Source.Directory) == filepath.Clean(cfg.Output.Directory) {
		return errors.ValidationError("output.directory must differ from source.directory").
			WithContext("directory", cfg.Output.Directory).
			Build()
	}
	return nil
}
