package build

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/appneta/tbonebuild/internal/config"
	"github.com/appneta/tbonebuild/internal/events"
	"github.com/appneta/tbonebuild/internal/git"
	"github.com/appneta/tbonebuild/internal/logfields"
	"github.com/appneta/tbonebuild/internal/metrics"
	"github.com/appneta/tbonebuild/internal/optimizer"
	"github.com/appneta/tbonebuild/internal/packager"
	"github.com/appneta/tbonebuild/internal/pipeline"
	"github.com/appneta/tbonebuild/internal/workspace"
)

// OptimizerFactory creates the optimizer for a configuration.
type OptimizerFactory func(cfg config.Build) optimizer.Optimizer

// textfileWriter is implemented by recorders that can dump their registry.
type textfileWriter interface {
	WriteTextfile(path string) error
}

// DefaultBuildService is the standard implementation of BuildService.
type DefaultBuildService struct {
	stdout           io.Writer
	stderr           io.Writer
	recorder         metrics.Recorder
	publisher        events.Publisher
	optimizerFactory OptimizerFactory
	sourcesFactory   func(root string) fs.FS
	httpClient       *http.Client
}

// NewBuildService creates a service writing to the process streams with no
// metrics and no event publication.
func NewBuildService() *DefaultBuildService {
	return &DefaultBuildService{
		stdout:           os.Stdout,
		stderr:           os.Stderr,
		recorder:         metrics.NoopRecorder{},
		publisher:        events.NoopPublisher{},
		optimizerFactory: optimizer.New,
		sourcesFactory:   os.DirFS,
	}
}

// WithStreams overrides where the artifact (stdout) and optimizer diagnostics (stderr) go.
func (s *DefaultBuildService) WithStreams(stdout, stderr io.Writer) *DefaultBuildService {
	s.stdout = stdout
	s.stderr = stderr
	return s
}

// WithRecorder sets the metrics recorder.
func (s *DefaultBuildService) WithRecorder(r metrics.Recorder) *DefaultBuildService {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	s.recorder = r
	return s
}

// WithPublisher sets the build event publisher.
func (s *DefaultBuildService) WithPublisher(p events.Publisher) *DefaultBuildService {
	if p == nil {
		p = events.NoopPublisher{}
	}
	s.publisher = p
	return s
}

// WithOptimizerFactory allows injecting a custom optimizer (for testing).
func (s *DefaultBuildService) WithOptimizerFactory(f OptimizerFactory) *DefaultBuildService {
	s.optimizerFactory = f
	return s
}

// WithSourcesFactory allows injecting the source filesystem (for testing).
func (s *DefaultBuildService) WithSourcesFactory(f func(root string) fs.FS) *DefaultBuildService {
	s.sourcesFactory = f
	return s
}

// WithHTTPClient sets the client used for the optimizer download.
func (s *DefaultBuildService) WithHTTPClient(c *http.Client) *DefaultBuildService {
	s.httpClient = c
	return s
}

// Run executes the complete build pipeline.
func (s *DefaultBuildService) Run(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	cfg := req.Config
	result := &BuildResult{StartTime: time.Now(), OutputPath: req.Output}
	finish := func(status BuildStatus) {
		result.Status = status
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)
	}

	// Read before locking; the lock file lives in the build directory.
	revision := readRevision(cfg.Root)

	ws := workspace.NewManager(cfg.Root, config.BuildDir, config.ToolsDir)
	if err := ws.Acquire(); err != nil {
		finish(BuildStatusFailed)
		s.recorder.IncBuildOutcome(string(pipeline.OutcomeFailed))
		return result, err
	}
	defer func() {
		if err := ws.Release(); err != nil {
			slog.Warn("Failed to release build lock", logfields.Error(err))
		}
	}()

	dest := packager.Destination{Path: req.Output, Stdout: s.stdout, Gzip: req.Options.Gzip}
	bs := pipeline.NewBuildState(cfg, dest, s.stderr)
	bs.Sources = s.sourcesFactory(cfg.Root)
	bs.Optimizer = s.optimizerFactory(cfg)
	bs.Toolchain.Client = s.httpClient
	bs.Recorder = s.recorder
	bs.Observer = pipeline.Observers{
		pipeline.LogObserver{BuildID: bs.Report.ID},
		pipeline.RecorderObserver{Recorder: s.recorder},
		events.Observer{Publisher: s.publisher},
	}
	result.Report = bs.Report

	bs.Report.Revision = revision

	slog.Info("Starting build",
		logfields.BuildID(bs.Report.ID),
		logfields.Mode(cfg.Mode()),
		logfields.Optimizer(bs.Optimizer.Name()),
		slog.String("output", dest.String()))

	err := pipeline.Execute(ctx, bs, pipeline.Standard(cfg))
	finish(statusFromOutcome(bs.Report.Outcome))

	if req.Options.Report {
		path := cfg.Abs(filepath.Join(config.BuildDir, pipeline.ReportFileName))
		if perr := bs.Report.Persist(path); perr != nil {
			slog.Warn("Failed to write build report", logfields.Path(path), logfields.Error(perr))
		} else {
			slog.Debug("Wrote build report", logfields.Path(path))
		}
	}
	if req.Options.MetricsFile != "" {
		if tw, ok := s.recorder.(textfileWriter); ok {
			if werr := tw.WriteTextfile(req.Options.MetricsFile); werr != nil {
				slog.Warn("Failed to write metrics textfile", logfields.Path(req.Options.MetricsFile), logfields.Error(werr))
			}
		}
	}
	return result, err
}

// readRevision returns the source revision of root, or "" outside a repository.
// Build outputs do not count as uncommitted changes.
func readRevision(root string) string {
	rev, err := git.ReadRevision(root, config.BuildDir, config.ToolsDir)
	if err != nil {
		if !errors.Is(err, git.ErrNotRepository) {
			slog.Debug("Could not read source revision", logfields.Error(err))
		}
		return ""
	}
	return rev.String()
}
