package build

import (
	"context"
	"time"

	"github.com/appneta/tbonebuild/internal/config"
	"github.com/appneta/tbonebuild/internal/pipeline"
)

// BuildService is the canonical interface for executing builds.
type BuildService interface {
	Run(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// BuildRequest contains all inputs required to execute a build.
type BuildRequest struct {
	// Config is the resolved configuration for this build.
	Config config.Build

	// Output is the artifact path; empty means standard output.
	Output string

	Options BuildOptions
}

// BuildOptions provides optional configuration for build behavior.
type BuildOptions struct {
	// Gzip also writes a compressed companion next to Output.
	Gzip bool

	// Report persists build/report.json.
	Report bool

	// MetricsFile receives the Prometheus textfile after the build when the
	// service recorder supports it.
	MetricsFile string
}

// BuildResult contains the outcome of a build execution.
type BuildResult struct {
	Status BuildStatus

	Report *pipeline.BuildReport

	// OutputPath is empty when the artifact went to standard output.
	OutputPath string

	Duration  time.Duration
	StartTime time.Time
	EndTime   time.Time
}

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	BuildStatusSuccess   BuildStatus = "success"
	BuildStatusFailed    BuildStatus = "failed"
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsSuccess returns true if the build produced its artifact.
func (s BuildStatus) IsSuccess() bool {
	return s == BuildStatusSuccess
}

func statusFromOutcome(o pipeline.BuildOutcome) BuildStatus {
	switch o {
	case pipeline.OutcomeSuccess, pipeline.OutcomeWarning:
		return BuildStatusSuccess
	case pipeline.OutcomeCanceled:
		return BuildStatusCancelled
	default:
		return BuildStatusFailed
	}
}
