// Package job defines the data model for tracked pipeline jobs.
//
// A Job is the locally cached view of one remote video-processing run: a flat
// record of per-stage states, per-stage timestamps, and produced artifact
// URLs. Stage names, stage states, and artifact kinds are string enums with
// a fixed canonical ordering; optional stages may be skipped or absent
// without blocking downstream stages.
//
// The package also defines the small local-only records the engine keeps per
// job: ProcessingMarker (what local action is in flight) and ConnectionState
// (push-channel health). Treat this package as the single source of truth
// for stage semantics; when the backend grows a stage, extend the canonical
// order and the artifact table here.
package job
