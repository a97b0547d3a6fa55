package job

import (
	"strings"
	"time"
)

// ActionKind names a locally initiated action tracked by a ProcessingMarker.
type ActionKind string

const (
	ActionDownload   ActionKind = "download"
	ActionTranscribe ActionKind = "transcribe"
	ActionProcessAll ActionKind = "process_all"
	ActionUpload     ActionKind = "upload"
	ActionSheetsSync ActionKind = "sheets_sync"
	ActionRetryStage ActionKind = "retry_stage"
)

// actionStages maps each action to the pipeline stage whose backend progress
// confirms or refutes it. ActionProcessAll has no single stage; the sequencer
// re-points the marker as the chain advances.
var actionStages = map[ActionKind]StageName{
	ActionDownload:   StageDownload,
	ActionTranscribe: StageTranscription,
	ActionUpload:     StageCloudinaryUpload,
	ActionSheetsSync: StageSheetsSync,
}

// Stage returns the pipeline stage the action corresponds to, if any.
func (a ActionKind) Stage() (StageName, bool) {
	stage, ok := actionStages[a]
	return stage, ok
}

// ActionForStage returns the action kind that tracks work on the given stage.
// Stages without a dedicated action are tracked as stage retries.
func ActionForStage(stage StageName) ActionKind {
	for action, s := range actionStages {
		if s == stage {
			return action
		}
	}
	return ActionRetryStage
}

// ProcessingMarker records that a locally initiated action is in flight for a
// job. It exists only until the job data confirms the action completed,
// failed, or went stuck, and doubles as the per-job mutual-exclusion token
// for saga runs.
type ProcessingMarker struct {
	JobID     string
	Action    ActionKind
	Stage     StageName
	StartedAt time.Time
}

// NewMarker constructs a marker for an action on a job, resolving the tracked
// stage from the action kind.
func NewMarker(jobID string, action ActionKind, now time.Time) *ProcessingMarker {
	stage, _ := action.Stage()
	return &ProcessingMarker{
		JobID:     strings.TrimSpace(jobID),
		Action:    action,
		Stage:     stage,
		StartedAt: now,
	}
}

// Retarget points the marker at a different stage. Used by the sequencer's
// optimistic inference while a process-all run advances through the chain.
func (m *ProcessingMarker) Retarget(stage StageName) {
	if m == nil {
		return
	}
	m.Stage = stage
}
