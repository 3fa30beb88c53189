package commands

import (
	"context"
	"path/filepath"
	"time"

	"github.com/appneta/tbonebuild/internal/build"
	"github.com/appneta/tbonebuild/internal/config"
	"github.com/appneta/tbonebuild/internal/watch"
)

// WatchCmd rebuilds on every source change until interrupted.
type WatchCmd struct {
	Output   string        `arg:"" optional:"" help:"Artifact path; omit or use - for stdout"`
	Debounce time.Duration `help:"Quiet period before a rebuild" default:"300ms"`

	BuildFlags `embed:""`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := w.loadConfig(root.Dir)
	if err != nil {
		return err
	}
	output, err := absOutput(w.Output)
	if err != nil {
		return err
	}

	svc, cleanup := w.newService(g, cfg)
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	watcher := w.watcher(cfg, func(ctx context.Context) error {
		// Pick up edits to tbone.yaml without restarting.
		current, err := w.loadConfig(root.Dir)
		if err != nil {
			return err
		}
		_, err = svc.Run(ctx, build.BuildRequest{Config: current, Output: output, Options: w.options()})
		return err
	})
	return watcher.Run(ctx)
}

func (w *WatchCmd) watcher(cfg config.Build, rebuild watch.RebuildFunc) *watch.Watcher {
	return &watch.Watcher{
		Dirs:     []string{cfg.Abs(cfg.Project.SourceDir)},
		Files:    []string{filepath.Join(cfg.Root, config.ProjectFileName)},
		Debounce: w.Debounce,
		Rebuild:  rebuild,
	}
}
