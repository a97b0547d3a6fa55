package stuck

import (
	"time"

	"clipwatch/internal/config"
	"clipwatch/internal/job"
	"clipwatch/internal/jobcache"
)

// Reason explains why a processing marker was cleared.
type Reason string

const (
	ReasonCompleted Reason = "completed"
	ReasonFailed    Reason = "failed"
	ReasonStuck     Reason = "stuck"
)

// Result reports the outcome of a CheckAndClear pass.
type Result struct {
	Cleared bool
	Reason  Reason
	Stage   job.StageName
}

// Detector evaluates stages against per-stage stall thresholds.
type Detector struct {
	defaultThreshold time.Duration
	thresholds       map[job.StageName]time.Duration
}

// NewDetector builds a detector from the stuck configuration section.
// Unknown stage names in the config are ignored.
func NewDetector(cfg config.Stuck) *Detector {
	d := &Detector{
		defaultThreshold: time.Duration(cfg.DefaultMinutes) * time.Minute,
		thresholds:       make(map[job.StageName]time.Duration, len(cfg.StageMinutes)),
	}
	if d.defaultThreshold <= 0 {
		d.defaultThreshold = 30 * time.Minute
	}
	for name, minutes := range cfg.StageMinutes {
		stage, ok := job.ParseStage(name)
		if !ok || minutes <= 0 {
			continue
		}
		d.thresholds[stage] = time.Duration(minutes) * time.Minute
	}
	return d
}

// Threshold returns the stall window for a stage.
func (d *Detector) Threshold(stage job.StageName) time.Duration {
	if t, ok := d.thresholds[stage]; ok {
		return t
	}
	return d.defaultThreshold
}

// IsStuck reports whether a stage has been running longer than its threshold.
// A stage with no recorded start, or with a recorded finish, is never stuck.
func (d *Detector) IsStuck(j *job.Job, stage job.StageName, now time.Time) bool {
	timing := j.Timing(stage)
	if timing.StartedAt == nil || timing.FinishedAt != nil {
		return false
	}
	return now.Sub(*timing.StartedAt) > d.Threshold(stage)
}

// Evaluate decides whether a marker still corresponds to in-flight work.
// It reports a clear with the reason when the tracked stage finished, failed,
// or stalled. When the backend has not stamped a start time yet, the marker's
// own start time is the stall baseline so actions the backend never picked up
// are eventually cleared too.
func (d *Detector) Evaluate(j *job.Job, marker *job.ProcessingMarker, now time.Time) (Result, bool) {
	if marker == nil || marker.Stage == "" {
		return Result{}, false
	}
	stage := marker.Stage
	switch state := j.State(stage); state {
	case job.StateComplete, job.StateSkipped:
		return Result{Cleared: true, Reason: ReasonCompleted, Stage: stage}, true
	case job.StateFailed:
		return Result{Cleared: true, Reason: ReasonFailed, Stage: stage}, true
	}
	if d.IsStuck(j, stage, now) {
		return Result{Cleared: true, Reason: ReasonStuck, Stage: stage}, true
	}
	if j.Timing(stage).StartedAt == nil && now.Sub(marker.StartedAt) > d.Threshold(stage) {
		return Result{Cleared: true, Reason: ReasonStuck, Stage: stage}, true
	}
	return Result{}, false
}

// CheckAndClear evaluates the store's marker against a fresh snapshot and
// clears it when it no longer corresponds to in-flight work. Idempotent:
// with no marker held it reports nothing to do.
func (d *Detector) CheckAndClear(j *job.Job, store *jobcache.Store, now time.Time) (Result, bool) {
	result, clear := d.Evaluate(j, store.Marker(), now)
	if !clear {
		return Result{}, false
	}
	if !store.ClearMarker() {
		// Already cleared by a concurrent pass.
		return Result{}, false
	}
	return result, true
}
