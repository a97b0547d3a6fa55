package jobcache

import (
	"sync"
	"time"

	"clipwatch/internal/job"
)

// Source identifies which transport produced a delta.
type Source string

const (
	SourcePush  Source = "push"
	SourcePoll  Source = "poll"
	SourceLocal Source = "local"
)

// StageChange records one observed stage-state transition during a merge.
type StageChange struct {
	Stage job.StageName
	From  job.StageState
	To    job.StageState
}

// Update is delivered to subscribers after every merge.
type Update struct {
	Job     *job.Job
	Source  Source
	Changes []StageChange
}

// Store is the reconciled cache for a single tracked job.
type Store struct {
	mu      sync.Mutex
	current *job.Job
	marker  *job.ProcessingMarker

	subMu   sync.Mutex
	subs    map[int]func(Update)
	nextSub int
}

// NewStore creates an empty cache for the given job id.
func NewStore(jobID string) *Store {
	return &Store{
		current: job.New(jobID),
		subs:    make(map[int]func(Update)),
	}
}

// JobID returns the tracked job's identifier.
func (s *Store) JobID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.ID
}

// Snapshot returns a deep copy of the cached record. Readers never see a
// record mid-merge.
func (s *Store) Snapshot() *job.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Merge applies a partial delta onto the cached record. Keys present in the
// delta overwrite the cached value; absent keys are untouched. Merges apply
// in arrival order regardless of transport, so a later-arriving delta always
// wins for overlapping keys. Subscribers are notified after the merge with
// the fresh snapshot.
func (s *Store) Merge(delta job.Delta, source Source) *job.Job {
	s.mu.Lock()
	changes := applyDelta(s.current, delta)
	snapshot := s.current.Clone()
	s.mu.Unlock()

	s.notify(Update{Job: snapshot, Source: source, Changes: changes})
	return snapshot
}

// Subscribe registers a callback invoked after every merge. The returned
// function cancels the subscription; calling it more than once is a no-op.
func (s *Store) Subscribe(fn func(Update)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify(update Update) {
	s.subMu.Lock()
	fns := make([]func(Update), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(update)
	}
}

// Marker returns the current processing marker, or nil when no local action
// is in flight.
func (s *Store) Marker() *job.ProcessingMarker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.marker == nil {
		return nil
	}
	cp := *s.marker
	return &cp
}

// TryAcquireMarker installs a marker for the given action if none exists.
// Returns false when a marker is already held; this is the per-job
// concurrency guard for saga runs.
func (s *Store) TryAcquireMarker(action job.ActionKind, now time.Time) (*job.ProcessingMarker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.marker != nil {
		return nil, false
	}
	s.marker = job.NewMarker(s.current.ID, action, now)
	cp := *s.marker
	return &cp, true
}

// RetargetMarker points the held marker at a different stage. Used by the
// sequencer's optimistic inference; a no-op when no marker is held.
func (s *Store) RetargetMarker(stage job.StageName) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.marker != nil {
		s.marker.Retarget(stage)
	}
}

// ClearMarker removes the marker. Idempotent; reports whether a marker was
// actually held.
func (s *Store) ClearMarker() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	held := s.marker != nil
	s.marker = nil
	return held
}

func applyDelta(dst *job.Job, delta job.Delta) []StageChange {
	if delta.Title != "" {
		dst.Title = delta.Title
	}
	if delta.SourceURL != "" {
		dst.SourceURL = delta.SourceURL
	}
	var changes []StageChange
	for stage, state := range delta.StageStatus {
		prev := dst.State(stage)
		if prev != state {
			changes = append(changes, StageChange{Stage: stage, From: prev, To: state})
		}
		dst.StageStatus[stage] = state
	}
	for stage, timing := range delta.StageTimestamps {
		dst.StageTimestamps[stage] = timing
	}
	for kind, url := range delta.ArtifactURLs {
		dst.ArtifactURLs[kind] = url
	}
	return changes
}
