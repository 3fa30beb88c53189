package pipeline

import (
	"io"
	"io/fs"
	"os"

	"github.com/appneta/tbonebuild/internal/config"
	"github.com/appneta/tbonebuild/internal/manifest"
	"github.com/appneta/tbonebuild/internal/metrics"
	"github.com/appneta/tbonebuild/internal/optimizer"
	"github.com/appneta/tbonebuild/internal/packager"
	"github.com/appneta/tbonebuild/internal/toolchain"
)

// BuildState carries the inputs of one build and the products each stage
// hands to the next. Stages run strictly in sequence, so no locking is needed.
type BuildState struct {
	Config config.Build

	// Sources is rooted at Config.Root.
	Sources     fs.FS
	Toolchain   *toolchain.Bootstrapper
	Optimizer   optimizer.Optimizer
	Destination packager.Destination
	// Diagnostics receives optimizer output verbatim.
	Diagnostics io.Writer

	Recorder metrics.Recorder
	Observer BuildObserver
	Report   *BuildReport

	Document     manifest.Document
	Intermediate string
	Result       optimizer.Result
	Artifact     []byte
}

// NewBuildState wires the default collaborators for cfg.
func NewBuildState(cfg config.Build, dest packager.Destination, diagnostics io.Writer) *BuildState {
	if diagnostics == nil {
		diagnostics = os.Stderr
	}
	return &BuildState{
		Config:  cfg,
		Sources: os.DirFS(cfg.Root),
		Toolchain: &toolchain.Bootstrapper{
			BuildDir: cfg.Abs(config.BuildDir),
			ToolsDir: cfg.Abs(config.ToolsDir),
			Artifact: cfg.Project.Compiler.Jar,
			URL:      cfg.Project.Compiler.URL,
		},
		Optimizer:   optimizer.New(cfg),
		Destination: dest,
		Diagnostics: diagnostics,
		Recorder:    metrics.NoopRecorder{},
		Observer:    NoopObserver{},
		Report:      NewBuildReport(cfg),
	}
}

func (bs *BuildState) recorder() metrics.Recorder {
	if bs.Recorder == nil {
		return metrics.NoopRecorder{}
	}
	return bs.Recorder
}

func (bs *BuildState) observer() BuildObserver {
	if bs.Observer == nil {
		return NoopObserver{}
	}
	return bs.Observer
}
