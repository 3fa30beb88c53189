// Package errors provides the classified error primitives used across tbonebuild.
//
// Key features:
//   - ErrorCategory: broad classification (config, network, build, optimizer, etc.)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - ClassifiedError: structured error with category, severity, and context
//   - ErrorBuilder: fluent API for creating classified errors
//   - CLIErrorAdapter: exit codes and operator-facing formatting
//
// Example usage:
//
//	err := errors.NotFoundError("module source missing").
//		WithContext("module", name).
//		WithCause(readErr).
//		Build()
package errors
