package jobcache_test

import (
	"testing"
	"time"

	"clipwatch/internal/job"
	"clipwatch/internal/jobcache"
)

func TestMergePreservesUntouchedFields(t *testing.T) {
	store := jobcache.NewStore("job-1")
	store.Merge(job.Delta{
		Title: "Launch teaser",
		StageStatus: map[job.StageName]job.StageState{
			job.StageDownload:      job.StateComplete,
			job.StageTranscription: job.StateActive,
		},
		ArtifactURLs: map[job.ArtifactKind]string{
			job.ArtifactOriginal: "https://storage.example/original.mp4",
		},
	}, jobcache.SourcePoll)

	merged := store.Merge(job.Delta{
		StageStatus: map[job.StageName]job.StageState{
			job.StageTranscription: job.StateComplete,
		},
	}, jobcache.SourcePush)

	if merged.Title != "Launch teaser" {
		t.Fatalf("title lost in merge: %q", merged.Title)
	}
	if merged.State(job.StageDownload) != job.StateComplete {
		t.Fatal("unrelated stage state lost in merge")
	}
	if merged.State(job.StageTranscription) != job.StateComplete {
		t.Fatal("delta value not applied")
	}
	if _, ok := merged.Artifact(job.ArtifactOriginal); !ok {
		t.Fatal("artifact lost in merge")
	}
}

func TestMergeSequentialEqualsCombinedForDisjointFields(t *testing.T) {
	a := job.Delta{StageStatus: map[job.StageName]job.StageState{
		job.StageDownload: job.StateComplete,
	}}
	b := job.Delta{ArtifactURLs: map[job.ArtifactKind]string{
		job.ArtifactOriginal: "https://storage.example/original.mp4",
	}}
	combined := job.Delta{
		StageStatus:  a.StageStatus,
		ArtifactURLs: b.ArtifactURLs,
	}

	sequential := jobcache.NewStore("job-1")
	sequential.Merge(a, jobcache.SourcePoll)
	gotSeq := sequential.Merge(b, jobcache.SourcePush)

	single := jobcache.NewStore("job-1")
	gotSingle := single.Merge(combined, jobcache.SourcePoll)

	if gotSeq.State(job.StageDownload) != gotSingle.State(job.StageDownload) {
		t.Fatal("sequential and combined merges disagree on stage state")
	}
	seqURL, _ := gotSeq.Artifact(job.ArtifactOriginal)
	singleURL, _ := gotSingle.Artifact(job.ArtifactOriginal)
	if seqURL != singleURL {
		t.Fatal("sequential and combined merges disagree on artifact")
	}
}

func TestMergeLastArrivalWinsForOverlappingFields(t *testing.T) {
	// A push delta reporting completion arrives after a poll response that
	// was fetched earlier but reports the stage still active. Arrival order
	// decides, not fetch-initiation order.
	store := jobcache.NewStore("job-1")
	store.Merge(job.Delta{StageStatus: map[job.StageName]job.StageState{
		job.StageTranscription: job.StateActive,
	}}, jobcache.SourcePoll)
	merged := store.Merge(job.Delta{StageStatus: map[job.StageName]job.StageState{
		job.StageTranscription: job.StateComplete,
	}}, jobcache.SourcePush)

	if merged.State(job.StageTranscription) != job.StateComplete {
		t.Fatal("later arrival should win")
	}

	// Reverse arrival order: the stale poll wins because it landed last.
	store = jobcache.NewStore("job-1")
	store.Merge(job.Delta{StageStatus: map[job.StageName]job.StageState{
		job.StageTranscription: job.StateComplete,
	}}, jobcache.SourcePush)
	merged = store.Merge(job.Delta{StageStatus: map[job.StageName]job.StageState{
		job.StageTranscription: job.StateActive,
	}}, jobcache.SourcePoll)

	if merged.State(job.StageTranscription) != job.StateActive {
		t.Fatal("arrival order must decide the merge outcome")
	}
}

func TestMergeNotifiesSubscribersWithChanges(t *testing.T) {
	store := jobcache.NewStore("job-1")
	var got []jobcache.Update
	cancel := store.Subscribe(func(u jobcache.Update) {
		got = append(got, u)
	})
	defer cancel()

	store.Merge(job.Delta{StageStatus: map[job.StageName]job.StageState{
		job.StageDownload: job.StateActive,
	}}, jobcache.SourcePush)

	if len(got) != 1 {
		t.Fatalf("expected 1 update, got %d", len(got))
	}
	if got[0].Source != jobcache.SourcePush {
		t.Fatalf("source = %s", got[0].Source)
	}
	if len(got[0].Changes) != 1 || got[0].Changes[0].Stage != job.StageDownload {
		t.Fatalf("unexpected changes: %#v", got[0].Changes)
	}
	if got[0].Changes[0].From != job.StatePending || got[0].Changes[0].To != job.StateActive {
		t.Fatalf("unexpected transition: %#v", got[0].Changes[0])
	}

	cancel()
	store.Merge(job.Delta{StageStatus: map[job.StageName]job.StageState{
		job.StageDownload: job.StateComplete,
	}}, jobcache.SourcePush)
	if len(got) != 1 {
		t.Fatal("cancelled subscriber still notified")
	}
}

func TestMergeReportsNoChangeForSameState(t *testing.T) {
	store := jobcache.NewStore("job-1")
	store.Merge(job.Delta{StageStatus: map[job.StageName]job.StageState{
		job.StageDownload: job.StateComplete,
	}}, jobcache.SourcePoll)

	var changes []jobcache.StageChange
	cancel := store.Subscribe(func(u jobcache.Update) { changes = u.Changes })
	defer cancel()

	store.Merge(job.Delta{StageStatus: map[job.StageName]job.StageState{
		job.StageDownload: job.StateComplete,
	}}, jobcache.SourcePoll)
	if len(changes) != 0 {
		t.Fatalf("no-op merge reported changes: %#v", changes)
	}
}

func TestMarkerMutualExclusion(t *testing.T) {
	store := jobcache.NewStore("job-1")
	now := time.Now()

	marker, ok := store.TryAcquireMarker(job.ActionProcessAll, now)
	if !ok || marker == nil {
		t.Fatal("first acquire should succeed")
	}
	if _, ok := store.TryAcquireMarker(job.ActionDownload, now); ok {
		t.Fatal("second acquire should be rejected while marker held")
	}

	if !store.ClearMarker() {
		t.Fatal("clear should report a held marker")
	}
	if store.ClearMarker() {
		t.Fatal("second clear should be a no-op")
	}
	if _, ok := store.TryAcquireMarker(job.ActionDownload, now); !ok {
		t.Fatal("acquire should succeed after clear")
	}
}

func TestRetargetMarker(t *testing.T) {
	store := jobcache.NewStore("job-1")
	store.RetargetMarker(job.StageTranscription) // no marker held: no-op
	if store.Marker() != nil {
		t.Fatal("expected no marker")
	}

	store.TryAcquireMarker(job.ActionProcessAll, time.Now())
	store.RetargetMarker(job.StageTTSSynthesis)
	marker := store.Marker()
	if marker == nil || marker.Stage != job.StageTTSSynthesis {
		t.Fatalf("marker = %#v", marker)
	}
}
