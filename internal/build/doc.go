// Package build provides the canonical build execution path for tbonebuild.
//
// Both the one-shot command and watch mode route through BuildService. It
// takes the workspace lock, runs the pipeline stages, and afterwards persists
// the report, writes the metrics textfile and publishes the build event.
package build
