// Package metrics records build and stage metrics for tbonebuild.
//
// Components receive a Recorder. NoopRecorder is the default so callers never
// check for nil; PrometheusRecorder is swapped in when --metrics-file is set,
// and its registry is written out in the node-exporter textfile format once
// the build finishes.
package metrics
