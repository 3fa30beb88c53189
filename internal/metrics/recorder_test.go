package metrics

import (
	"testing"
	"time"
)

// Compile-time checks.
var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("assemble", time.Millisecond)
	r.ObserveBuildDuration(time.Second)
	r.IncStageResult("assemble", ResultFatal)
	r.IncBuildOutcome("failed")
	r.ObserveOptimizerDuration("esbuild", time.Millisecond)
	r.SetArtifactBytes("debug", 10)
	r.IncToolchainDownload(false)
}
