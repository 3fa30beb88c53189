package pipeline

import (
	"context"
	"fmt"
	"time"
)

// RunStages executes stages in order, recording timing and stopping on the
// first fatal or canceled stage. Later stages are marked skipped.
func RunStages(ctx context.Context, bs *BuildState, stages []StageDef) error {
	obs := bs.observer()
	rec := bs.recorder()

	for i, st := range stages {
		select {
		case <-ctx.Done():
			se := NewCanceledStageError(st.Name, ctx.Err())
			bs.Report.Errors = append(bs.Report.Errors, se)
			bs.Report.RecordStageResult(st.Name, StageResultCanceled, rec)
			obs.OnStageComplete(st.Name, 0, StageResultCanceled)
			markSkipped(bs, stages[i+1:])
			return se
		default:
		}

		obs.OnStageStart(st.Name)

		t0 := time.Now()
		err := st.Fn(ctx, bs)
		dur := time.Since(t0)

		bs.Report.StageDurations[st.Name] = dur

		out := ClassifyStageResult(st.Name, err)
		if out.Error != nil {
			if out.Result == StageResultWarning {
				bs.Report.Warnings = append(bs.Report.Warnings, out.Error)
			} else {
				bs.Report.Errors = append(bs.Report.Errors, out.Error)
			}
		}

		bs.Report.RecordStageResult(st.Name, out.Result, rec)
		obs.OnStageComplete(st.Name, dur, out.Result)

		if out.Abort {
			markSkipped(bs, stages[i+1:])
			if out.Error != nil {
				return out.Error
			}
			return fmt.Errorf("stage %s aborted", st.Name)
		}
	}
	return nil
}

// Execute runs the stages and finalizes the report whatever the result.
func Execute(ctx context.Context, bs *BuildState, stages []StageDef) error {
	err := RunStages(ctx, bs, stages)
	bs.Report.Finish()
	bs.Report.DeriveOutcome()
	bs.observer().OnBuildComplete(bs.Report)
	return err
}

func markSkipped(bs *BuildState, rest []StageDef) {
	for _, st := range rest {
		bs.Report.RecordStageResult(st.Name, StageResultSkipped, bs.recorder())
	}
}
