// Package stuck flags pipeline stages that have been running past their
// configured threshold and clears stale local processing markers.
//
// Detection is purely local: it compares stage timestamps against the clock
// and never mutates backend state, so it is safe to run on every reconciled
// snapshot. Thresholds come from configuration because the windows differ
// per stage (transcription stalls in minutes, assembly can legitimately run
// for half an hour).
package stuck
