// Package config loads, normalizes, and validates the clipwatch TOML
// configuration.
//
// Load resolves the config path (explicit flag, then the default under
// ~/.config/clipwatch), overlays the file onto repository defaults, expands
// home-relative paths, and rejects unusable values. The per-stage stuck
// thresholds live here rather than as code constants so operators can tune
// them without a rebuild.
package config
