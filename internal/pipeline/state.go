package pipeline

import (
	"clipwatch/internal/job"
)

// stageWeights reflect relative processing cost, not stage count. The table
// must sum to 100; CompletionRatio depends on that.
var stageWeights = map[job.StageName]int{
	job.StageDownload:           8,
	job.StageFrameExtraction:    4,
	job.StageVisualAnalysis:     4,
	job.StageTranscription:      14,
	job.StageAIProcessing:       10,
	job.StageEnhancedTranscript: 4,
	job.StageScriptGeneration:   10,
	job.StageTTSSynthesis:       16,
	job.StageFinalVideoAssembly: 18,
	job.StageCloudinaryUpload:   6,
	job.StageSheetsSync:         6,
}

const totalWeight = 100

// StageWeight returns the completion weight assigned to a stage.
func StageWeight(stage job.StageName) int {
	return stageWeights[stage]
}

// CurrentActiveStage returns the stage the pipeline is working on right now.
//
// Stages are scanned in canonical order: the first stage explicitly reported
// active wins. When the backend reports nothing active, the first mandatory
// stage that is not yet terminal and whose nearest mandatory predecessor
// finished is inferred as current. Returns false when every mandatory stage
// is complete.
func CurrentActiveStage(j *job.Job) (job.StageName, bool) {
	if j == nil {
		return "", false
	}
	for _, stage := range job.StageOrder() {
		if j.State(stage) == job.StateActive {
			return stage, true
		}
	}
	for _, stage := range job.StageOrder() {
		if stage.IsOptional() {
			continue
		}
		state := j.State(stage)
		if state == job.StateComplete || state == job.StateSkipped || state == job.StateFailed {
			continue
		}
		prev := stage.PreviousMandatory()
		if prev == "" || j.State(prev).IsDone() {
			return stage, true
		}
	}
	return "", false
}

// NeedsProcessing reports whether the job still has work outstanding: a
// mandatory stage not finished (or failed), or a post-processing stage
// pending while its prerequisite artifact already exists.
func NeedsProcessing(j *job.Job) bool {
	if j == nil {
		return false
	}
	for _, stage := range job.StageOrder() {
		if stage.IsOptional() {
			continue
		}
		state := j.State(stage)
		if stage.IsPostProcessing() {
			if state == job.StatePending && hasPrerequisite(j, stage) {
				return true
			}
			continue
		}
		if !state.IsDone() {
			return true
		}
	}
	return false
}

// PostProcessingPending reports whether an upload or sheets-sync stage is
// still pending while its prerequisite artifact already exists.
func PostProcessingPending(j *job.Job) bool {
	if j == nil {
		return false
	}
	for _, stage := range job.StageOrder() {
		if !stage.IsPostProcessing() {
			continue
		}
		if j.State(stage) == job.StatePending && hasPrerequisite(j, stage) {
			return true
		}
	}
	return false
}

// HasFailedStage reports whether the backend marked any stage failed.
func HasFailedStage(j *job.Job) bool {
	if j == nil {
		return false
	}
	for _, stage := range job.StageOrder() {
		if j.State(stage) == job.StateFailed {
			return true
		}
	}
	return false
}

// HasActiveStage reports whether the backend marked any stage active.
func HasActiveStage(j *job.Job) bool {
	if j == nil {
		return false
	}
	for _, stage := range job.StageOrder() {
		if j.State(stage) == job.StateActive {
			return true
		}
	}
	return false
}

// CompletionRatio returns the weighted share of finished stages in [0, 1].
// Skipped stages count as finished so optional stages never hold the ratio
// back. For a fixed weight table the ratio is monotonically non-decreasing
// as stages complete.
func CompletionRatio(j *job.Job) float64 {
	if j == nil {
		return 0
	}
	done := 0
	for _, stage := range job.StageOrder() {
		if j.State(stage).IsDone() {
			done += stageWeights[stage]
		}
	}
	return float64(done) / float64(totalWeight)
}

// ChainTerminal is the barrier predicate the sequencer blocks on after
// issuing the transcription chain: every chain stage reached a terminal
// state and the final video is accounted for.
func ChainTerminal(j *job.Job) bool {
	if j == nil {
		return false
	}
	if !j.State(job.StageTranscription).IsDone() {
		return false
	}
	if !j.State(job.StageAIProcessing).IsTerminal() {
		return false
	}
	if !j.State(job.StageScriptGeneration).IsTerminal() {
		return false
	}
	if !j.State(job.StageTTSSynthesis).IsTerminal() {
		return false
	}
	return finalVideoTerminal(j)
}

// finalVideoTerminal holds when the assembly artifact exists or the run can
// no longer produce one.
func finalVideoTerminal(j *job.Job) bool {
	if _, ok := j.Artifact(job.ArtifactFinalVideo); ok {
		return true
	}
	if j.State(job.StageTTSSynthesis) == job.StateFailed {
		return true
	}
	return j.State(job.StageFinalVideoAssembly) == job.StateFailed
}

func hasPrerequisite(j *job.Job, stage job.StageName) bool {
	switch stage {
	case job.StageCloudinaryUpload, job.StageSheetsSync:
		_, ok := j.Artifact(job.ArtifactFinalVideo)
		return ok
	default:
		return false
	}
}
