package errors

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"validation error", ValidationError("debug flag snippet not found").Build(), 2},
		{"config error", ConfigError("bad project file").Build(), 7},
		{"network error", NetworkError("fetch failed").Build(), 8},
		{"optimizer error", OptimizerError("diagnostics").Build(), 11},
		{"missing module", NotFoundError("missing").Build(), 11},
		{"canceled", NewError(CategoryCanceled, "interrupted").Build(), 12},
		{"internal error", NewError(CategoryInternal, "bug").Fatal().Build(), 10},
		{"unclassified error", errors.New("unknown error"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_Report(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	adapter := NewCLIErrorAdapter(false, logger)

	var out bytes.Buffer
	err := WrapError(errors.New("open src/init.js: no such file"), CategoryNotFound, "module source missing").
		Fatal().
		WithContext("module", "init").
		Build()

	code := adapter.Report(&out, err)

	if code != 11 {
		t.Errorf("expected exit code 11, got %d", code)
	}
	if got := out.String(); !strings.HasPrefix(got, "Error: module source missing: open src/init.js") {
		t.Errorf("unexpected operator message %q", got)
	}
	if !strings.Contains(logs.String(), "module=init") {
		t.Errorf("expected context in log output, got %q", logs.String())
	}
}

func TestCLIErrorAdapter_FormatVerbose(t *testing.T) {
	adapter := NewCLIErrorAdapter(true, slog.Default())
	err := NewError(CategoryBuild, "boom").Fatal().Build()
	if got := adapter.FormatError(err); got != "Error: [build:fatal] boom" {
		t.Errorf("unexpected verbose format %q", got)
	}
	if adapter.FormatError(nil) != "" {
		t.Error("expected empty format for nil error")
	}
}
