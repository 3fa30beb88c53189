package optimizer

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/appneta/tbonebuild/internal/config"
	ferrors "github.com/appneta/tbonebuild/internal/foundation/errors"
)

// Optimizer runs one invocation. Implementations return an error when the
// optimizer could not run or exited unsuccessfully; diagnostics on a
// successful run are judged separately by Evaluate.
type Optimizer interface {
	Name() string
	Optimize(ctx context.Context, inv Invocation) (Result, error)
}

// New selects the backend configured in cfg.
func New(cfg config.Build) Optimizer {
	if cfg.Optimizer == config.OptimizerEsbuild {
		return &Esbuild{Dir: cfg.Root}
	}
	return &ClosureCompiler{Java: cfg.JavaBin, Dir: cfg.Root, Timeout: cfg.OptimizerTimeout}
}

// Result is the captured outcome of an optimizer run.
type Result struct {
	Code        string
	Diagnostics string
	ExitCode    int
	Duration    time.Duration
}

// Severity classifies a diagnostic stream.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "none"
	}
}

var errorSummary = regexp.MustCompile(`(\d+) error\(s\)`)

// Classify inspects diagnostics. Any ERROR line or a non-zero error summary is
// an error; any other output, blank lines included, counts as warnings.
func Classify(diagnostics string) Severity {
	if diagnostics == "" {
		return SeverityNone
	}
	for _, line := range strings.Split(diagnostics, "\n") {
		if strings.Contains(line, "ERROR - ") {
			return SeverityError
		}
		if m := errorSummary.FindStringSubmatch(line); m != nil {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return SeverityError
			}
		}
	}
	return SeverityWarning
}

// Evaluate applies the diagnostics policy to a run that exited successfully.
// With warningsFatal any diagnostic output fails the build; otherwise only
// error-level diagnostics do.
func Evaluate(res Result, warningsFatal bool) error {
	sev := Classify(res.Diagnostics)
	if sev == SeverityNone {
		return nil
	}
	if sev == SeverityWarning && !warningsFatal {
		return nil
	}
	return ferrors.OptimizerError("optimizer reported diagnostics").
		WithContext("severity", sev.String()).
		Build()
}
