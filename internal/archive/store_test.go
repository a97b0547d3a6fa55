package archive_test

import (
	"context"
	"testing"
	"time"

	"clipwatch/internal/archive"
	"clipwatch/internal/job"
	"clipwatch/internal/jobcache"
	"clipwatch/internal/testsupport"
)

func openStore(t *testing.T) *archive.Store {
	t.Helper()
	store, err := archive.Open(testsupport.Config(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndHistoryRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Now()

	update := jobcache.Update{
		Job:    job.New("job-1"),
		Source: jobcache.SourcePush,
		Changes: []jobcache.StageChange{
			{Stage: job.StageDownload, From: job.StatePending, To: job.StateActive},
			{Stage: job.StageDownload, From: job.StateActive, To: job.StateComplete},
		},
	}
	if err := store.RecordUpdate(ctx, update, now); err != nil {
		t.Fatalf("RecordUpdate failed: %v", err)
	}

	history, err := store.History(ctx, "job-1", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(history))
	}
	// Newest first.
	if history[0].To != job.StateComplete {
		t.Fatalf("newest transition to = %s", history[0].To)
	}
	if history[1].From != job.StatePending || history[1].To != job.StateActive {
		t.Fatalf("oldest transition = %+v", history[1])
	}
	if history[0].Source != jobcache.SourcePush {
		t.Fatalf("source = %s", history[0].Source)
	}
}

func TestHistoryIsScopedByJobAndLimited(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Now()

	for i, jobID := range []string{"job-1", "job-2", "job-1"} {
		err := store.Record(ctx, archive.Transition{
			JobID:      jobID,
			Stage:      job.StageTranscription,
			From:       job.StatePending,
			To:         job.StateActive,
			Source:     jobcache.SourcePoll,
			ObservedAt: now.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	history, err := store.History(ctx, "job-1", 1)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected limit to apply, got %d rows", len(history))
	}
	if history[0].JobID != "job-1" {
		t.Fatalf("job id = %s", history[0].JobID)
	}
}

func TestEmptyUpdateIsNoop(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	update := jobcache.Update{Job: job.New("job-1"), Source: jobcache.SourcePoll}
	if err := store.RecordUpdate(ctx, update, time.Now()); err != nil {
		t.Fatalf("RecordUpdate failed: %v", err)
	}
	history, err := store.History(ctx, "job-1", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected no rows, got %d", len(history))
	}
}

func TestPruneRemovesOldTransitions(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Now()

	for _, age := range []time.Duration{-48 * time.Hour, -time.Hour} {
		err := store.Record(ctx, archive.Transition{
			JobID:      "job-1",
			Stage:      job.StageDownload,
			From:       job.StatePending,
			To:         job.StateComplete,
			Source:     jobcache.SourceLocal,
			ObservedAt: now.Add(age),
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	pruned, err := store.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("pruned = %d", pruned)
	}
	history, err := store.History(ctx, "job-1", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 surviving row, got %d", len(history))
	}
}

func TestSecondOpenIsRefusedWhileLocked(t *testing.T) {
	cfg := testsupport.Config(t)
	first, err := archive.Open(cfg)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	defer first.Close()

	if _, err := archive.Open(cfg); err == nil {
		t.Fatal("second Open must fail while the lock is held")
	}
}
