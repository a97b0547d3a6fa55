// Package pipeline derives presentation-facing state from a cached job
// record.
//
// Every function here is a pure computation over a job snapshot: the current
// active stage, whether processing is still needed, failure flags, weighted
// completion ratio, and the barrier predicates the sequencer blocks on.
// Nothing in this package mutates the job or talks to the network, which is
// what keeps it independently testable.
package pipeline
