package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/appneta/tbonebuild/internal/config"
	"github.com/appneta/tbonebuild/internal/metrics"
	"github.com/appneta/tbonebuild/internal/version"
)

// ReportFileName is written under the build directory when reports are enabled.
const ReportFileName = "report.json"

// BuildOutcome is the typed enumeration of final build result states.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeWarning  BuildOutcome = "warning"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// BuildReport captures what one build did and how it ended.
type BuildReport struct {
	SchemaVersion int
	ID            string
	Mode          string
	Optimizer     string
	Output        string
	Start         time.Time
	End           time.Time
	Errors        []error // fatal errors causing build abortion (at most one today)
	Warnings      []error // non-fatal issues, e.g. tolerated optimizer warnings

	StageDurations map[StageName]time.Duration
	StageResults   map[StageName]StageResult

	Modules        []string
	DocumentDigest string
	ArtifactBytes  int
	// Revision is the git HEAD of the project, empty outside a repository.
	Revision    string
	Outcome     BuildOutcome
	ToolVersion string
}

// NewBuildReport starts a report for cfg with a fresh build ID.
func NewBuildReport(cfg config.Build) *BuildReport {
	return &BuildReport{
		SchemaVersion:  1,
		ID:             uuid.NewString(),
		Mode:           cfg.Mode(),
		Optimizer:      string(cfg.Optimizer),
		Start:          time.Now(),
		StageDurations: make(map[StageName]time.Duration),
		StageResults:   make(map[StageName]StageResult),
		ToolVersion:    version.Version,
	}
}

// Finish sets the end time of the report.
func (r *BuildReport) Finish() { r.End = time.Now() }

// RecordStageResult stores the stage result and emits a metric when recorder is non-nil.
func (r *BuildReport) RecordStageResult(stage StageName, res StageResult, recorder metrics.Recorder) {
	if r.StageResults == nil {
		r.StageResults = make(map[StageName]StageResult)
	}
	r.StageResults[stage] = res
	if recorder == nil {
		return
	}
	switch res {
	case StageResultSuccess:
		recorder.IncStageResult(string(stage), metrics.ResultSuccess)
	case StageResultWarning:
		recorder.IncStageResult(string(stage), metrics.ResultWarning)
	case StageResultFatal:
		recorder.IncStageResult(string(stage), metrics.ResultFatal)
	case StageResultCanceled:
		recorder.IncStageResult(string(stage), metrics.ResultCanceled)
	case StageResultSkipped:
		recorder.IncStageResult(string(stage), metrics.ResultSkipped)
	}
}

// DeriveOutcome sets the Outcome field based on recorded errors/warnings.
func (r *BuildReport) DeriveOutcome() {
	if len(r.Errors) > 0 {
		for _, e := range r.Errors {
			var se *StageError
			if errors.As(e, &se) && se.Kind == StageErrorCanceled {
				r.Outcome = OutcomeCanceled
				return
			}
		}
		r.Outcome = OutcomeFailed
		return
	}
	if len(r.Warnings) > 0 {
		r.Outcome = OutcomeWarning
		return
	}
	r.Outcome = OutcomeSuccess
}

// Summary returns a human-readable single-line summary.
func (r *BuildReport) Summary() string {
	dur := r.End.Sub(r.Start)
	return fmt.Sprintf("id=%s mode=%s optimizer=%s modules=%d bytes=%d duration=%s errors=%d warnings=%d outcome=%s",
		r.ID, r.Mode, r.Optimizer, len(r.Modules), r.ArtifactBytes, dur.Truncate(time.Millisecond),
		len(r.Errors), len(r.Warnings), string(r.Outcome))
}

// Persist writes the report as JSON to path atomically.
func (r *BuildReport) Persist(path string) error {
	if r.End.IsZero() {
		r.Finish()
		r.DeriveOutcome()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("ensure dir for report: %w", err)
	}
	jb, err := json.MarshalIndent(r.SanitizedCopy(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, jb, 0o600); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename json: %w", err)
	}
	return nil
}

// SanitizedCopy converts errors to strings and durations to milliseconds for JSON output.
func (r *BuildReport) SanitizedCopy() *BuildReportSerializable {
	durations := make(map[string]float64, len(r.StageDurations))
	for k, v := range r.StageDurations {
		durations[string(k)] = float64(v) / float64(time.Millisecond)
	}
	results := make(map[string]string, len(r.StageResults))
	for k, v := range r.StageResults {
		results[string(k)] = string(v)
	}
	modules := r.Modules
	if modules == nil {
		modules = []string{}
	}

	s := &BuildReportSerializable{
		SchemaVersion:    r.SchemaVersion,
		ID:               r.ID,
		Mode:             r.Mode,
		Optimizer:        r.Optimizer,
		Output:           r.Output,
		Start:            r.Start,
		End:              r.End,
		Errors:           make([]string, len(r.Errors)),
		Warnings:         make([]string, len(r.Warnings)),
		StageDurationsMS: durations,
		StageResults:     results,
		Modules:          modules,
		DocumentDigest:   r.DocumentDigest,
		ArtifactBytes:    r.ArtifactBytes,
		Revision:         r.Revision,
		Outcome:          string(r.Outcome),
		ToolVersion:      r.ToolVersion,
	}
	for i, e := range r.Errors {
		s.Errors[i] = e.Error()
	}
	for i, w := range r.Warnings {
		s.Warnings[i] = w.Error()
	}
	return s
}

// BuildReportSerializable mirrors BuildReport for JSON output.
type BuildReportSerializable struct {
	SchemaVersion    int                `json:"schema_version"`
	ID               string             `json:"id"`
	Mode             string             `json:"mode"`
	Optimizer        string             `json:"optimizer"`
	Output           string             `json:"output"`
	Start            time.Time          `json:"start"`
	End              time.Time          `json:"end"`
	Errors           []string           `json:"errors"`
	Warnings         []string           `json:"warnings"`
	StageDurationsMS map[string]float64 `json:"stage_durations_ms"`
	StageResults     map[string]string  `json:"stage_results"`
	Modules          []string           `json:"modules"`
	DocumentDigest   string             `json:"document_digest,omitempty"`
	ArtifactBytes    int                `json:"artifact_bytes"`
	Revision         string             `json:"revision,omitempty"`
	Outcome          string             `json:"outcome"`
	ToolVersion      string             `json:"tool_version"`
}
