package job

import (
	"strings"
	"time"
)

// StageState represents the lifecycle of a single pipeline stage.
type StageState string

const (
	StatePending  StageState = "pending"
	StateActive   StageState = "active"
	StateComplete StageState = "complete"
	StateFailed   StageState = "failed"
	StateSkipped  StageState = "skipped"
)

var stateSet = map[StageState]struct{}{
	StatePending:  {},
	StateActive:   {},
	StateComplete: {},
	StateFailed:   {},
	StateSkipped:  {},
}

// ParseState converts a string into a known StageState.
func ParseState(value string) (StageState, bool) {
	normalized := StageState(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the state will not change without a new run.
func (s StageState) IsTerminal() bool {
	switch s {
	case StateComplete, StateFailed, StateSkipped:
		return true
	default:
		return false
	}
}

// IsDone reports whether the stage finished without failure.
func (s StageState) IsDone() bool {
	return s == StateComplete || s == StateSkipped
}

// ArtifactKind identifies a file or URL produced by a pipeline stage.
type ArtifactKind string

const (
	ArtifactOriginal         ArtifactKind = "original"
	ArtifactVoiceRemoved     ArtifactKind = "voice_removed"
	ArtifactSynthesizedAudio ArtifactKind = "synthesized_audio"
	ArtifactFinalVideo       ArtifactKind = "final_video"
	ArtifactCDNURL           ArtifactKind = "cdn_url"
)

// artifactProducers maps each artifact to the stage whose completion
// publishes it.
var artifactProducers = map[ArtifactKind]StageName{
	ArtifactOriginal:         StageDownload,
	ArtifactVoiceRemoved:     StageAIProcessing,
	ArtifactSynthesizedAudio: StageTTSSynthesis,
	ArtifactFinalVideo:       StageFinalVideoAssembly,
	ArtifactCDNURL:           StageCloudinaryUpload,
}

// ProducerStage returns the stage that produces the artifact.
func (a ArtifactKind) ProducerStage() (StageName, bool) {
	stage, ok := artifactProducers[a]
	return stage, ok
}

// StageTiming records when a stage started and finished. FinishedAt stays nil
// while the stage is in flight; elapsed-time and stuck computations depend on
// that.
type StageTiming struct {
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Job is the locally cached view of one remote pipeline run.
type Job struct {
	ID              string                     `json:"id"`
	Title           string                     `json:"title,omitempty"`
	SourceURL       string                     `json:"source_url,omitempty"`
	StageStatus     map[StageName]StageState   `json:"stage_status"`
	StageTimestamps map[StageName]StageTiming  `json:"stage_timestamps"`
	ArtifactURLs    map[ArtifactKind]string    `json:"artifact_urls"`
}

// New returns an empty job record for the given id with allocated maps.
func New(id string) *Job {
	return &Job{
		ID:              id,
		StageStatus:     make(map[StageName]StageState),
		StageTimestamps: make(map[StageName]StageTiming),
		ArtifactURLs:    make(map[ArtifactKind]string),
	}
}

// State returns the recorded state for a stage, defaulting to pending when
// the backend has not reported the stage yet.
func (j *Job) State(stage StageName) StageState {
	if j == nil || j.StageStatus == nil {
		return StatePending
	}
	if state, ok := j.StageStatus[stage]; ok {
		return state
	}
	return StatePending
}

// Timing returns the recorded timestamps for a stage.
func (j *Job) Timing(stage StageName) StageTiming {
	if j == nil || j.StageTimestamps == nil {
		return StageTiming{}
	}
	return j.StageTimestamps[stage]
}

// Artifact returns the URL for an artifact kind, if published.
func (j *Job) Artifact(kind ArtifactKind) (string, bool) {
	if j == nil || j.ArtifactURLs == nil {
		return "", false
	}
	url, ok := j.ArtifactURLs[kind]
	if !ok || strings.TrimSpace(url) == "" {
		return "", false
	}
	return url, true
}

// Clone returns a deep copy of the job record.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := &Job{
		ID:              j.ID,
		Title:           j.Title,
		SourceURL:       j.SourceURL,
		StageStatus:     make(map[StageName]StageState, len(j.StageStatus)),
		StageTimestamps: make(map[StageName]StageTiming, len(j.StageTimestamps)),
		ArtifactURLs:    make(map[ArtifactKind]string, len(j.ArtifactURLs)),
	}
	for stage, state := range j.StageStatus {
		cp.StageStatus[stage] = state
	}
	for stage, timing := range j.StageTimestamps {
		cp.StageTimestamps[stage] = timing
	}
	for kind, url := range j.ArtifactURLs {
		cp.ArtifactURLs[kind] = url
	}
	return cp
}

// Delta is a partial job update from either transport. Keys absent from a
// delta leave the cached value untouched; present keys overwrite it.
type Delta struct {
	Title           string                    `json:"title,omitempty"`
	SourceURL       string                    `json:"source_url,omitempty"`
	StageStatus     map[StageName]StageState  `json:"stage_status,omitempty"`
	StageTimestamps map[StageName]StageTiming `json:"stage_timestamps,omitempty"`
	ArtifactURLs    map[ArtifactKind]string   `json:"artifact_urls,omitempty"`
}

// IsEmpty reports whether the delta carries no fields.
func (d Delta) IsEmpty() bool {
	return d.Title == "" && d.SourceURL == "" &&
		len(d.StageStatus) == 0 && len(d.StageTimestamps) == 0 && len(d.ArtifactURLs) == 0
}

// AsDelta converts a full job snapshot into a delta covering every field the
// snapshot carries, so poll responses and push deltas share one merge path.
func (j *Job) AsDelta() Delta {
	if j == nil {
		return Delta{}
	}
	return Delta{
		Title:           j.Title,
		SourceURL:       j.SourceURL,
		StageStatus:     j.StageStatus,
		StageTimestamps: j.StageTimestamps,
		ArtifactURLs:    j.ArtifactURLs,
	}
}
