package commands

import (
	"log/slog"

	"github.com/appneta/tbonebuild/internal/build"
	"github.com/appneta/tbonebuild/internal/logfields"
)

// BuildCmd implements the default command: one build, artifact to OUTPUT or stdout.
type BuildCmd struct {
	Output string `arg:"" optional:"" help:"Artifact path; omit or use - for stdout"`

	BuildFlags `embed:""`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := b.loadConfig(root.Dir)
	if err != nil {
		return err
	}
	output, err := absOutput(b.Output)
	if err != nil {
		return err
	}

	svc, cleanup := b.newService(g, cfg)
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	res, err := svc.Run(ctx, build.BuildRequest{Config: cfg, Output: output, Options: b.options()})
	if err != nil {
		return err
	}
	slog.Debug("Build complete", logfields.BuildID(res.Report.ID), logfields.Duration(res.Duration))
	return nil
}
