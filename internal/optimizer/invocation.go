// Package optimizer builds and runs the whole-program optimizer over the
// mode-tagged intermediate artifact.
package optimizer

import (
	"github.com/appneta/tbonebuild/internal/config"
)

// SourceMapFormat is always requested from the optimizer.
const SourceMapFormat = "V3"

// Invocation is the complete, deterministic input to one optimizer run. Paths
// are relative to the project root, which is the optimizer's working directory.
type Invocation struct {
	Jar              string
	CompilationLevel string
	SourceMap        string
	Externs          []string
	JS               string
}

// NewInvocation derives the invocation for cfg.
func NewInvocation(cfg config.Build) Invocation {
	return Invocation{
		Jar:              cfg.CompilerJarPath(),
		CompilationLevel: cfg.OptimizationLevel,
		SourceMap:        cfg.SourceMapPath(),
		Externs:          append([]string(nil), cfg.Project.Externs...),
		JS:               cfg.IntermediatePath(),
	}
}

// Args is the argument list passed to the java launcher.
func (inv Invocation) Args() []string {
	args := make([]string, 0, 9+2*len(inv.Externs))
	args = append(args,
		"-jar", inv.Jar,
		"--compilation_level", inv.CompilationLevel,
		"--create_source_map", inv.SourceMap,
		"--source_map_format="+SourceMapFormat,
	)
	for _, e := range inv.Externs {
		args = append(args, "--externs", e)
	}
	return append(args, "--js", inv.JS)
}
