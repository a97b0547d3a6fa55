// Package sequencer drives multi-step processing runs against the backend.
//
// A run is a saga: issue one backend action, block until the cached job
// record confirms it finished, then issue the next. The backend executes the
// stages; the sequencer only orders the calls and waits. Progress during a
// wait is observed through the cache, so it does not matter whether push or
// polling delivered it.
//
// The processing marker in the cache is the per-job mutual-exclusion token:
// a run refuses to start while one is held, and while the transcription
// chain advances the run re-points the marker at the inferred current stage.
// That inference is advisory; only backend-reported states gate phase
// transitions.
package sequencer
