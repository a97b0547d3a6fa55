package polling

import (
	"time"

	"clipwatch/internal/config"
	"clipwatch/internal/job"
	"clipwatch/internal/pipeline"
)

const defaultFallbackInterval = 10 * time.Second

// Scheduler decides when the fallback poll should fire.
type Scheduler struct {
	fallback time.Duration
}

// NewScheduler builds a scheduler from the polling configuration section.
func NewScheduler(cfg config.Polling) *Scheduler {
	fallback := time.Duration(cfg.FallbackInterval) * time.Second
	if fallback <= 0 {
		fallback = defaultFallbackInterval
	}
	return &Scheduler{fallback: fallback}
}

// FallbackInterval returns the configured poll cadence.
func (s *Scheduler) FallbackInterval() time.Duration {
	return s.fallback
}

// NextInterval reports whether a poll should be scheduled and after how long.
// Polling is suppressed while the push channel is open, since push is the
// authoritative transport then, and while nothing is in flight: no held
// marker, no active stage, and no post-processing stage waiting on an
// artifact that already exists. A dormant job stops polling entirely; it can
// only move again through a local action, which installs a marker.
func (s *Scheduler) NextInterval(snapshot *job.Job, marker *job.ProcessingMarker, conn job.ConnectionState) (time.Duration, bool) {
	if conn.IsOpen() {
		return 0, false
	}
	if marker == nil && !pipeline.HasActiveStage(snapshot) && !pipeline.PostProcessingPending(snapshot) {
		return 0, false
	}
	return s.fallback, true
}
