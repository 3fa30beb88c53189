package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"

	ferrors "github.com/appneta/tbonebuild/internal/foundation/errors"
	"github.com/appneta/tbonebuild/internal/logfields"
)

// Esbuild minifies in-process. It honours the compilation level, the JS input
// and the source-map path of an invocation; externs have no meaning here
// because esbuild never renames unresolved globals.
type Esbuild struct {
	Dir string
}

func (e *Esbuild) Name() string { return "esbuild" }

func (e *Esbuild) Optimize(ctx context.Context, inv Invocation) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, ferrors.WrapError(err, ferrors.CategoryCanceled, "optimizer canceled").Fatal().Build()
	}

	src, err := os.ReadFile(e.abs(inv.JS))
	if err != nil {
		return Result{}, ferrors.FileSystemError("read optimizer input").WithCause(err).
			WithContext("path", inv.JS).
			Build()
	}

	whitespaceOnly := inv.CompilationLevel == "WHITESPACE_ONLY"
	start := time.Now()
	out := api.Transform(string(src), api.TransformOptions{
		Loader:            api.LoaderJS,
		Sourcefile:        filepath.ToSlash(inv.JS),
		Sourcemap:         api.SourceMapExternal,
		MinifyWhitespace:  true,
		MinifySyntax:      !whitespaceOnly,
		MinifyIdentifiers: !whitespaceOnly,
	})
	res := Result{
		Code:        string(out.Code),
		Diagnostics: formatMessages("ERROR", out.Errors) + formatMessages("WARNING", out.Warnings),
		Duration:    time.Since(start),
	}
	slog.Debug("esbuild transform finished",
		logfields.Optimizer(e.Name()),
		slog.Int("errors", len(out.Errors)),
		slog.Int("warnings", len(out.Warnings)),
		logfields.Duration(res.Duration))

	if len(out.Errors) > 0 {
		res.ExitCode = 1
		return res, ferrors.OptimizerError("esbuild transform failed").
			WithContext("errors", len(out.Errors)).
			Build()
	}

	if err := os.WriteFile(e.abs(inv.SourceMap), out.Map, 0o644); err != nil {
		return res, ferrors.FileSystemError("write source map").WithCause(err).
			WithContext("path", inv.SourceMap).
			Build()
	}
	return res, nil
}

func (e *Esbuild) abs(rel string) string {
	if filepath.IsAbs(rel) || e.Dir == "" {
		return rel
	}
	return filepath.Join(e.Dir, rel)
}

// formatMessages renders esbuild messages in the closure diagnostic layout so
// Classify treats both backends alike.
func formatMessages(level string, msgs []api.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		if loc := m.Location; loc != nil {
			fmt.Fprintf(&b, "%s:%d:%d: %s - %s\n", loc.File, loc.Line, loc.Column, level, m.Text)
			continue
		}
		fmt.Fprintf(&b, "%s - %s\n", level, m.Text)
	}
	return b.String()
}
