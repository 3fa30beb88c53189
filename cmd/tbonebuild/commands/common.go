package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/appneta/tbonebuild/internal/build"
	"github.com/appneta/tbonebuild/internal/config"
	"github.com/appneta/tbonebuild/internal/events"
	ferrors "github.com/appneta/tbonebuild/internal/foundation/errors"
	"github.com/appneta/tbonebuild/internal/logfields"
	"github.com/appneta/tbonebuild/internal/metrics"
)

// Global carries the process streams into commands.
type Global struct {
	Stdout io.Writer
	Stderr io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Dir     string           `short:"C" help:"Project root directory" default:"." type:"existingdir"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" default:"withargs" help:"Build the library once (default command)"`
	Watch WatchCmd `cmd:"" help:"Build, then rebuild whenever sources change"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// BuildFlags are shared by the build and watch commands. Unset flags leave
// the environment-derived configuration alone.
type BuildFlags struct {
	Timeout     time.Duration `help:"Abort the optimizer after this long (0 disables)"`
	Optimizer   string        `help:"Optimizer backend: closure or esbuild"`
	Gzip        bool          `help:"Also write OUTPUT.gz"`
	Report      bool          `help:"Write build/report.json"`
	MetricsFile string        `name:"metrics-file" help:"Write Prometheus metrics to this textfile" type:"path"`
}

// loadConfig resolves the build configuration for dir and applies flag overrides.
func (f BuildFlags) loadConfig(dir string) (config.Build, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return config.Build{}, ferrors.ConfigError("resolve project root").WithCause(err).Build()
	}
	cfg, err := config.Load(root)
	if err != nil {
		return config.Build{}, err
	}
	if f.Timeout != 0 {
		cfg.OptimizerTimeout = f.Timeout
	}
	if f.Optimizer != "" {
		kind, err := config.ParseOptimizerKind(f.Optimizer)
		if err != nil {
			return config.Build{}, ferrors.ValidationError("invalid --optimizer").WithCause(err).Build()
		}
		cfg.Optimizer = kind
	}
	return cfg, nil
}

func (f BuildFlags) options() build.BuildOptions {
	return build.BuildOptions{Gzip: f.Gzip, Report: f.Report, MetricsFile: f.MetricsFile}
}

// newService wires the build service for cfg. The returned cleanup closes
// the event connection.
func (f BuildFlags) newService(g *Global, cfg config.Build) (*build.DefaultBuildService, func()) {
	svc := build.NewBuildService().WithStreams(g.stdout(), g.stderr())
	if f.MetricsFile != "" {
		svc.WithRecorder(metrics.NewPrometheusRecorder(nil))
	}

	cleanup := func() {}
	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			slog.Warn("Build events disabled", logfields.URL(cfg.NATSURL), logfields.Error(err))
		} else {
			svc.WithPublisher(pub)
			cleanup = func() { _ = pub.Close() }
		}
	}
	return svc, cleanup
}

// absOutput anchors a relative output path at the invocation directory.
func absOutput(output string) (string, error) {
	if output == "" || output == "-" {
		return "", nil
	}
	return filepath.Abs(output)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func (g *Global) stdout() io.Writer {
	if g == nil || g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

func (g *Global) stderr() io.Writer {
	if g == nil || g.Stderr == nil {
		return os.Stderr
	}
	return g.Stderr
}
