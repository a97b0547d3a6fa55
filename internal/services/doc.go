// Package services defines shared utilities consumed by the transports,
// the sequencer, and the Job API client.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the engine's taxonomy (transport, stuck, timeout, stage failure,
//     already-processing) so callers can decide what propagates and what is
//     absorbed as an advisory notification.
//
// Use these helpers when wiring new engine logic so error handling and
// observability stay uniform across components.
package services
