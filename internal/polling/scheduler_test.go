package polling_test

import (
	"context"
	"testing"
	"time"

	"clipwatch/internal/config"
	"clipwatch/internal/job"
	"clipwatch/internal/jobcache"
	"clipwatch/internal/polling"
	"clipwatch/internal/testsupport"
)

func TestSchedulerSuppressedWhilePushOpen(t *testing.T) {
	scheduler := polling.NewScheduler(config.Polling{FallbackInterval: 10})
	snapshot := testsupport.NewJob("job-1", map[job.StageName]job.StageState{
		job.StageDownload: job.StateActive,
	})

	if _, ok := scheduler.NextInterval(snapshot, nil, job.ConnectionState{Status: job.ConnOpen}); ok {
		t.Fatal("polling must be suppressed while push is open")
	}

	interval, ok := scheduler.NextInterval(snapshot, nil, job.ConnectionState{Status: job.ConnClosed})
	if !ok {
		t.Fatal("polling must run while push is down and a stage is active")
	}
	if interval != 10*time.Second {
		t.Fatalf("interval = %s", interval)
	}
}

func TestSchedulerSuppressedWhenNothingInFlight(t *testing.T) {
	scheduler := polling.NewScheduler(config.Polling{FallbackInterval: 10})

	done := job.New("job-1")
	for _, stage := range job.StageOrder() {
		done.StageStatus[stage] = job.StateComplete
	}
	done.ArtifactURLs[job.ArtifactFinalVideo] = "https://cdn.example.com/final.mp4"

	if _, ok := scheduler.NextInterval(done, nil, job.ConnectionState{Status: job.ConnClosed}); ok {
		t.Fatal("polling must be suppressed for a finished job")
	}

	// A held marker keeps polling alive even when the cached record looks
	// finished; the local action may not be visible remotely yet.
	marker := job.NewMarker("job-1", job.ActionSheetsSync, time.Now())
	if _, ok := scheduler.NextInterval(done, marker, job.ConnectionState{Status: job.ConnClosed}); !ok {
		t.Fatal("polling must run while a marker is held")
	}
}

func TestSchedulerStopsForDormantJob(t *testing.T) {
	scheduler := polling.NewScheduler(config.Polling{})

	// Pending stages alone are not in-flight work; only a local action
	// (which installs a marker) can move such a job.
	fresh := job.New("job-1")
	if _, ok := scheduler.NextInterval(fresh, nil, job.ConnectionState{Status: job.ConnClosed}); ok {
		t.Fatal("a dormant pending job must not poll")
	}

	failed := testsupport.NewJob("job-1", map[job.StageName]job.StageState{
		job.StageDownload:      job.StateComplete,
		job.StageTranscription: job.StateFailed,
	})
	if _, ok := scheduler.NextInterval(failed, nil, job.ConnectionState{Status: job.ConnClosed}); ok {
		t.Fatal("a failed stage awaiting user action must not poll")
	}
}

func TestSchedulerRunsForPendingPostProcessing(t *testing.T) {
	scheduler := polling.NewScheduler(config.Polling{})

	snapshot := job.New("job-1")
	for _, stage := range job.StageOrder() {
		snapshot.StageStatus[stage] = job.StateComplete
	}
	snapshot.StageStatus[job.StageSheetsSync] = job.StatePending
	snapshot.ArtifactURLs[job.ArtifactFinalVideo] = "https://backend.example.com/final.mp4"

	interval, ok := scheduler.NextInterval(snapshot, nil, job.ConnectionState{Status: job.ConnClosed})
	if !ok {
		t.Fatal("pending sheets sync with its artifact present must keep polling")
	}
	if interval != 10*time.Second {
		t.Fatalf("default interval = %s", interval)
	}
}

func TestPollNowMergesThroughCache(t *testing.T) {
	record := testsupport.NewJob("job-1", map[job.StageName]job.StageState{
		job.StageDownload: job.StateComplete,
	})
	api := testsupport.NewFakeAPI(record)
	store := jobcache.NewStore("job-1")
	poller := polling.NewPoller(polling.NewScheduler(config.Polling{}), api, store, nil, nil)

	var sources []jobcache.Source
	cancel := store.Subscribe(func(u jobcache.Update) { sources = append(sources, u.Source) })
	defer cancel()

	merged, err := poller.PollNow(context.Background())
	if err != nil {
		t.Fatalf("PollNow failed: %v", err)
	}
	if merged.State(job.StageDownload) != job.StateComplete {
		t.Fatalf("merged download state = %s", merged.State(job.StageDownload))
	}
	if len(sources) != 1 || sources[0] != jobcache.SourcePoll {
		t.Fatalf("sources = %v", sources)
	}
}

func TestRunPollsUntilCanceled(t *testing.T) {
	record := testsupport.NewJob("job-1", map[job.StageName]job.StageState{
		job.StageDownload: job.StateActive,
	})
	api := testsupport.NewFakeAPI(record)
	store := jobcache.NewStore("job-1")
	scheduler := polling.NewScheduler(config.Polling{FallbackInterval: 1})
	poller := polling.NewPoller(scheduler, api, store, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for api.CallCount(testsupport.OpGetJob) < 2 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
	if api.CallCount(testsupport.OpGetJob) < 2 {
		t.Fatalf("expected repeated polls, got %d", api.CallCount(testsupport.OpGetJob))
	}
}
