// Package logging builds the slog loggers used across clipwatch.
//
// It provides console and JSON handlers with consistent timestamp, level,
// and component formatting, Attr helper aliases so call sites avoid
// importing log/slog directly, standardized field-name constants, and
// context-aware helpers that stamp job and stage identifiers onto log
// records.
package logging
