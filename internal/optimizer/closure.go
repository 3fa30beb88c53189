package optimizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	ferrors "github.com/appneta/tbonebuild/internal/foundation/errors"
	"github.com/appneta/tbonebuild/internal/logfields"
)

// ClosureCompiler runs the Closure Compiler jar under a java launcher.
type ClosureCompiler struct {
	Java string
	// Dir is the working directory; invocation paths are relative to it.
	Dir string
	// Timeout bounds the run when positive.
	Timeout time.Duration
}

func (c *ClosureCompiler) Name() string { return "closure" }

// Optimize captures stdout as code and stderr as diagnostics. A non-zero exit
// is fatal regardless of what was printed.
func (c *ClosureCompiler) Optimize(ctx context.Context, inv Invocation) (Result, error) {
	java := c.Java
	if java == "" {
		java = "java"
	}
	if _, err := exec.LookPath(java); err != nil {
		return Result{}, ferrors.OptimizerError("java launcher not found").WithCause(err).
			WithContext("java", java).
			Build()
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	// #nosec G204 - arguments come from the resolved build configuration
	cmd := exec.CommandContext(ctx, java, inv.Args()...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = 5 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Invoking optimizer", logfields.Optimizer(c.Name()), slog.Any("args", inv.Args()))
	start := time.Now()
	runErr := cmd.Run()
	res := Result{
		Code:        stdout.String(),
		Diagnostics: stderr.String(),
		Duration:    time.Since(start),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if runErr == nil {
		return res, nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.Diagnostics += fmt.Sprintf("tbonebuild: optimizer timed out after %s\n", c.Timeout)
		return res, ferrors.OptimizerError("optimizer timed out").WithCause(ctx.Err()).
			WithContext("timeout", c.Timeout.String()).
			Build()
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return res, ferrors.WrapError(ctx.Err(), ferrors.CategoryCanceled, "optimizer canceled").Fatal().Build()
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return res, ferrors.OptimizerError("optimizer exited unsuccessfully").WithCause(runErr).
			WithContext("exit_code", res.ExitCode).
			Build()
	}
	return res, ferrors.OptimizerError("failed to run optimizer").WithCause(runErr).Build()
}
