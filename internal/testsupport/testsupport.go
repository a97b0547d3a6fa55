// Package testsupport provides shared helpers for package tests: canned
// configuration, job-record builders, and a scripted Job API fake.
package testsupport

import (
	"testing"
	"time"

	"clipwatch/internal/config"
	"clipwatch/internal/job"
)

// Config returns a validated configuration rooted in a per-test temp
// directory, with wait loops tightened so tests finish quickly.
func Config(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.APIBaseURL = "https://pipeline.example.com"
	cfg.Server.APIToken = "test-token"
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Push.ReconnectBaseDelayMS = 1
	cfg.Polling.FallbackInterval = 1
	cfg.Sequencer.DownloadPollInterval = 1
	cfg.Sequencer.DownloadMaxAttempts = 5
	cfg.Sequencer.ChainPollInterval = 1
	cfg.Sequencer.ChainMaxAttempts = 5
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// NewJob builds a job record with the given stage states applied.
func NewJob(id string, states map[job.StageName]job.StageState) *job.Job {
	j := job.New(id)
	for stage, state := range states {
		j.StageStatus[stage] = state
	}
	return j
}

// StampStage sets a stage's state and timing in one step. Zero times are
// left nil.
func StampStage(j *job.Job, stage job.StageName, state job.StageState, started, finished time.Time) {
	j.StageStatus[stage] = state
	timing := job.StageTiming{}
	if !started.IsZero() {
		timing.StartedAt = &started
	}
	if !finished.IsZero() {
		timing.FinishedAt = &finished
	}
	j.StageTimestamps[stage] = timing
}
