// Package jobcache owns the locally cached record for one tracked job.
//
// The Store is the single mutable shared resource in the engine: both
// transports submit deltas through Merge, every other component only reads
// snapshots. Merges apply field-by-field in arrival order (last write wins;
// no version vectors), and every merge notifies subscribers so views can
// repaint without issuing a fresh fetch. One Store exists per tracked job;
// nothing here is process-global, so multiple jobs can be observed without
// cross-talk.
//
// The Store also holds the job's ProcessingMarker and hands it out under the
// same lock, which is what makes the marker usable as a mutual-exclusion
// token for saga runs.
package jobcache
