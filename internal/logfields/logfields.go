package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyMode       = "mode"
	KeyModule     = "module"
	KeyModules    = "modules"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyOptimizer  = "optimizer"
	KeyBytes      = "bytes"
	KeyError      = "error"
)

func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func Module(name string) slog.Attr    { return slog.String(KeyModule, name) }
func Modules(n int) slog.Attr         { return slog.Int(KeyModules, n) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Optimizer(name string) slog.Attr { return slog.String(KeyOptimizer, name) }
func Bytes(n int) slog.Attr           { return slog.Int(KeyBytes, n) }

// Duration renders d in fractional milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
