package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/pepbuilder/internal/config"
)

// BuildService is the canonical interface for executing builds.
type BuildService interface {
	Run(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// BuildRequest contains all inputs required to execute a build.
type BuildRequest struct {
	Config *config.Config

	// OutputDir overrides Config.Output.Directory when not empty.
	OutputDir string

	// Builder overrides Config.Output.Builder when not empty.
	Builder string

	// Incremental forces incremental mode on; false defers to the config.
	Incremental bool
}

// BuildResult contains the outcome of a build execution.
type BuildResult struct {
	Status     BuildStatus
	BuildID    string
	Builder    string
	OutputPath string

	Read    int
	Written int
	Skipped int

	StartTime time.Time
	Duration  time.Duration
}

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	BuildStatusSuccess   BuildStatus = "success"
	BuildStatusFailed    BuildStatus = "failed"
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsSuccess returns true if the build completed successfully.
func (s BuildStatus) IsSuccess() bool {
	return s == BuildStatusSuccess
}
