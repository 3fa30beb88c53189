package pipeline

import (
	"log/slog"
	"time"

	"github.com/appneta/tbonebuild/internal/logfields"
	"github.com/appneta/tbonebuild/internal/metrics"
)

// BuildObserver receives callbacks around stage execution and build lifecycle.
type BuildObserver interface {
	OnStageStart(stage StageName)
	OnStageComplete(stage StageName, duration time.Duration, result StageResult)
	OnBuildComplete(report *BuildReport)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnStageStart(_ StageName)                                    {}
func (NoopObserver) OnStageComplete(_ StageName, _ time.Duration, _ StageResult) {}
func (NoopObserver) OnBuildComplete(_ *BuildReport)                              {}

// RecorderObserver adapts metrics.Recorder into a BuildObserver.
type RecorderObserver struct{ Recorder metrics.Recorder }

func (r RecorderObserver) OnStageStart(_ StageName) {}
func (r RecorderObserver) OnStageComplete(stage StageName, d time.Duration, _ StageResult) {
	if r.Recorder != nil {
		r.Recorder.ObserveStageDuration(string(stage), d)
	}
}

func (r RecorderObserver) OnBuildComplete(report *BuildReport) {
	if r.Recorder != nil {
		r.Recorder.ObserveBuildDuration(report.End.Sub(report.Start))
		r.Recorder.IncBuildOutcome(string(report.Outcome))
	}
}

// LogObserver logs stage progress at debug level and the build result at info.
type LogObserver struct{ BuildID string }

func (l LogObserver) OnStageStart(stage StageName) {
	slog.Debug("Stage started", logfields.BuildID(l.BuildID), logfields.Stage(string(stage)))
}

func (l LogObserver) OnStageComplete(stage StageName, d time.Duration, result StageResult) {
	slog.Debug("Stage finished",
		logfields.BuildID(l.BuildID),
		logfields.Stage(string(stage)),
		logfields.Duration(d),
		slog.String("result", string(result)))
}

func (l LogObserver) OnBuildComplete(report *BuildReport) {
	slog.Info("Build finished",
		logfields.BuildID(l.BuildID),
		logfields.Mode(report.Mode),
		slog.String("outcome", string(report.Outcome)),
		logfields.Duration(report.End.Sub(report.Start)))
}

// Observers fans callbacks out to every member in order.
type Observers []BuildObserver

func (o Observers) OnStageStart(stage StageName) {
	for _, obs := range o {
		obs.OnStageStart(stage)
	}
}

func (o Observers) OnStageComplete(stage StageName, d time.Duration, result StageResult) {
	for _, obs := range o {
		obs.OnStageComplete(stage, d, result)
	}
}

func (o Observers) OnBuildComplete(report *BuildReport) {
	for _, obs := range o {
		obs.OnBuildComplete(report)
	}
}
