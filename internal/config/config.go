// Package config resolves the immutable build configuration for one tbonebuild run.
//
// Precedence, highest first: command-line overrides, process environment
// (including values loaded from .env files), the optional tbone.yaml project
// file, built-in defaults.
package config

import (
	"path/filepath"
	"time"
)

// Mode labels.
const (
	ModeDebug   = "debug"
	ModeRelease = "release"
)

// Well-known directories, relative to the project root.
const (
	BuildDir = "build"
	ToolsDir = "tools"
)

// OptimizerKind selects the optimizer backend.
type OptimizerKind string

const (
	OptimizerClosure OptimizerKind = "closure"
	OptimizerEsbuild OptimizerKind = "esbuild"
)

// Build is the resolved configuration of a single run. It is constructed once
// and passed by value into every stage.
type Build struct {
	// Root is the project directory all relative paths resolve against.
	Root string

	OptimizationLevel string
	Debug             bool
	BackboneSupport   bool

	Optimizer        OptimizerKind
	OptimizerTimeout time.Duration // zero means no timeout
	WarningsFatal    bool
	JavaBin          string

	// NATSURL enables build event publication when non-empty.
	NATSURL string

	Project Project
}

// Mode returns "debug" or "release".
func (b Build) Mode() string {
	if b.Debug {
		return ModeDebug
	}
	return ModeRelease
}

// MinSuffix returns the minified-suffix flag: "" in debug mode, ".min" otherwise.
func (b Build) MinSuffix() string {
	if b.Debug {
		return ""
	}
	return ".min"
}

// IntermediatePath is the root-relative path of the mode-tagged assembled document.
func (b Build) IntermediatePath() string {
	return filepath.Join(BuildDir, b.Project.Name+"."+b.Mode()+".js")
}

// SourceMapName is the bare file name of the source map, as referenced from the artifact.
func (b Build) SourceMapName() string {
	return b.Project.Name + b.MinSuffix() + ".js.map"
}

// SourceMapPath is the root-relative path the optimizer writes the source map to.
func (b Build) SourceMapPath() string {
	return filepath.Join(BuildDir, b.SourceMapName())
}

// CompilerJarPath is the root-relative location of the optimizer jar.
func (b Build) CompilerJarPath() string {
	return filepath.Join(ToolsDir, b.Project.Compiler.Jar)
}

// Abs resolves a root-relative path.
func (b Build) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(b.Root, rel)
}
