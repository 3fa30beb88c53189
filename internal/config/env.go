package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	ferrors "github.com/appneta/tbonebuild/internal/foundation/errors"
	"github.com/appneta/tbonebuild/internal/logfields"
)

// Environment variables read by the resolver.
const (
	EnvOptimizationLevel = "OPTIMIZATION_LEVEL"
	EnvDebug             = "TBONE_DEBUG"
	EnvBackboneSupport   = "BACKBONE_SUPPORT"
	EnvOptimizer         = "TBONE_OPTIMIZER"
	EnvOptimizerTimeout  = "TBONE_OPTIMIZER_TIMEOUT"
	EnvWarningsFatal     = "TBONE_WARNINGS_FATAL"
	EnvJava              = "TBONE_JAVA"
	EnvCompilerURL       = "TBONE_COMPILER_URL"
	EnvNATSURL           = "TBONE_NATS_URL"
)

// DefaultOptimizationLevel is passed to the optimizer when OPTIMIZATION_LEVEL is unset.
const DefaultOptimizationLevel = "ADVANCED_OPTIMIZATIONS"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads .env files under root into the process environment, the project
// file, and resolves the build configuration from os.LookupEnv.
func Load(root string) (Build, error) {
	loadEnvFiles(root)
	project, err := LoadProject(filepath.Join(root, ProjectFileName))
	if err != nil {
		return Build{}, ferrors.ConfigError("invalid project file").WithCause(err).
			WithContext("path", filepath.Join(root, ProjectFileName)).
			Build()
	}
	return Resolve(root, project, os.LookupEnv)
}

// loadEnvFiles loads .env.local then .env; neither overrides variables that are
// already set, so .env.local wins over .env and the process wins over both.
func loadEnvFiles(root string) {
	for _, name := range []string{".env.local", ".env"} {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("Failed to load env file", logfields.Path(path), logfields.Error(err))
			continue
		}
		slog.Debug("Loaded environment file", logfields.Path(path))
	}
}

// Resolve derives the build configuration from lookup. Missing variables take
// their defaults; the optimization level is passed through unvalidated.
func Resolve(root string, project Project, lookup LookupFunc) (Build, error) {
	b := Build{
		Root:              root,
		OptimizationLevel: DefaultOptimizationLevel,
		BackboneSupport:   true,
		Optimizer:         OptimizerClosure,
		WarningsFatal:     true,
		JavaBin:           "java",
		Project:           project,
	}

	if v, ok := lookup(EnvOptimizationLevel); ok {
		b.OptimizationLevel = v
	}

	// Presence check: any non-empty value enables debug, including "0" and "false".
	if v, ok := lookup(EnvDebug); ok && v != "" {
		b.Debug = true
	}

	if v, ok := lookup(EnvBackboneSupport); ok {
		b.BackboneSupport = featureEnabled(v)
	}

	if v, ok := lookup(EnvOptimizer); ok && v != "" {
		kind, err := ParseOptimizerKind(v)
		if err != nil {
			return Build{}, envError(EnvOptimizer, v, err)
		}
		b.Optimizer = kind
	}

	if v, ok := lookup(EnvOptimizerTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Build{}, envError(EnvOptimizerTimeout, v, err)
		}
		if d < 0 {
			return Build{}, envError(EnvOptimizerTimeout, v, errors.New("negative duration"))
		}
		b.OptimizerTimeout = d
	}

	if v, ok := lookup(EnvWarningsFatal); ok && v != "" {
		fatal, err := strconv.ParseBool(v)
		if err != nil {
			return Build{}, envError(EnvWarningsFatal, v, err)
		}
		b.WarningsFatal = fatal
	}

	if v, ok := lookup(EnvJava); ok && v != "" {
		b.JavaBin = v
	}
	if v, ok := lookup(EnvCompilerURL); ok && v != "" {
		b.Project.Compiler.URL = v
	}
	if v, ok := lookup(EnvNATSURL); ok {
		b.NATSURL = v
	}

	return b, nil
}

// featureEnabled treats a set variable as on unless it is empty or an explicit
// boolean false.
func featureEnabled(v string) bool {
	if v == "" {
		return false
	}
	if on, err := strconv.ParseBool(v); err == nil {
		return on
	}
	return true
}

// ParseOptimizerKind normalizes an optimizer backend name.
func ParseOptimizerKind(v string) (OptimizerKind, error) {
	switch kind := OptimizerKind(strings.ToLower(strings.TrimSpace(v))); kind {
	case OptimizerClosure, OptimizerEsbuild:
		return kind, nil
	default:
		return "", errors.New("unknown optimizer (want closure or esbuild)")
	}
}

func envError(key, value string, cause error) error {
	return ferrors.ConfigError("invalid "+key).
		WithCause(cause).
		WithContext("value", value).
		Build()
}
