package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/appneta/tbonebuild/internal/config"
	ferrors "github.com/appneta/tbonebuild/internal/foundation/errors"
	"github.com/appneta/tbonebuild/internal/logfields"
	"github.com/appneta/tbonebuild/internal/manifest"
	"github.com/appneta/tbonebuild/internal/optimizer"
	"github.com/appneta/tbonebuild/internal/packager"
	"github.com/appneta/tbonebuild/internal/rewrite"
)

// Standard returns the build stages for cfg. The toolchain stage only runs
// for the external optimizer.
func Standard(cfg config.Build) []StageDef {
	return NewPipeline().
		AddIf(cfg.Optimizer != config.OptimizerEsbuild, StageBootstrap, stageBootstrap).
		Add(StageAssemble, stageAssemble).
		Add(StageRewrite, stageRewrite).
		Add(StageOptimize, stageOptimize).
		Add(StagePackage, stagePackage).
		Build()
}

func stageBootstrap(ctx context.Context, bs *BuildState) error {
	if bs.Toolchain.Recorder == nil {
		bs.Toolchain.Recorder = bs.recorder()
	}
	return bs.Toolchain.Ensure(ctx)
}

func stageAssemble(_ context.Context, bs *BuildState) error {
	cfg := bs.Config
	names := manifest.FromProject(cfg.Project).Resolve(cfg)
	doc, err := manifest.Assemble(bs.Sources, cfg.Project.SourceDir, names)
	if err != nil {
		return err
	}
	bs.Document = doc
	bs.Report.Modules = doc.Modules
	bs.Report.DocumentDigest = doc.Digest()
	slog.Debug("Assembled sources", logfields.Modules(len(doc.Modules)), logfields.Bytes(len(doc.Text)))
	return nil
}

// stageRewrite bakes the mode and persists the intermediate artifact the
// optimizer reads.
func stageRewrite(_ context.Context, bs *BuildState) error {
	cfg := bs.Config
	hook := rewrite.DebugHook{Flag: cfg.Project.DebugFlag}
	text, err := hook.Apply(bs.Document.Text, cfg.Debug)
	if err != nil {
		return err
	}

	path := cfg.Abs(cfg.IntermediatePath())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ferrors.FileSystemError("create build directory").WithCause(err).
			WithContext("path", filepath.Dir(path)).
			Build()
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return ferrors.FileSystemError("write intermediate artifact").WithCause(err).
			WithContext("path", path).
			Build()
	}
	bs.Intermediate = path
	slog.Debug("Wrote intermediate artifact", logfields.Path(path), logfields.Mode(cfg.Mode()))
	return nil
}

func stageOptimize(ctx context.Context, bs *BuildState) error {
	inv := optimizer.NewInvocation(bs.Config)
	slog.Info("Running optimizer",
		logfields.Optimizer(bs.Optimizer.Name()),
		logfields.Mode(bs.Config.Mode()),
		slog.String("level", inv.CompilationLevel))

	res, err := bs.Optimizer.Optimize(ctx, inv)
	bs.Result = res
	bs.recorder().ObserveOptimizerDuration(bs.Optimizer.Name(), res.Duration)
	relayDiagnostics(bs.Diagnostics, res.Diagnostics)
	if err != nil {
		return err
	}

	if err := optimizer.Evaluate(res, bs.Config.WarningsFatal); err != nil {
		return err
	}
	if res.Diagnostics != "" {
		slog.Warn("Optimizer reported warnings; continuing", logfields.Optimizer(bs.Optimizer.Name()))
		return NewWarnStageError(StageOptimize,
			ferrors.OptimizerError("optimizer reported warnings").Warning().Build())
	}
	return nil
}

func stagePackage(_ context.Context, bs *BuildState) error {
	data := packager.Wrap(bs.Config.SourceMapName(), bs.Result.Code)
	if err := bs.Destination.Write(data); err != nil {
		return err
	}
	bs.Artifact = data
	bs.Report.Output = bs.Destination.String()
	bs.Report.ArtifactBytes = len(data)
	bs.recorder().SetArtifactBytes(bs.Config.Mode(), len(data))
	return nil
}

func relayDiagnostics(w io.Writer, diagnostics string) {
	if diagnostics == "" || w == nil {
		return
	}
	if _, err := io.WriteString(w, diagnostics); err != nil {
		slog.Warn("Failed to relay optimizer diagnostics", logfields.Error(err))
	}
}
