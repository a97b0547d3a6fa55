package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"clipwatch/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if cfg.Push.MaxReconnectAttempts != 10 {
		t.Fatalf("max reconnect attempts = %d, want 10", cfg.Push.MaxReconnectAttempts)
	}
	if cfg.Polling.FallbackInterval != 10 {
		t.Fatalf("fallback interval = %d, want 10", cfg.Polling.FallbackInterval)
	}
	if cfg.Stuck.StageMinutes["transcription"] != 2 {
		t.Fatalf("transcription stuck minutes = %d, want 2", cfg.Stuck.StageMinutes["transcription"])
	}
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
api_base_url = "https://pipeline.example/api/"

[push]
max_reconnect_attempts = 3

[stuck.stage_minutes]
tts_synthesis = 45
`)
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatal("expected existing config file")
	}
	if cfg.Server.APIBaseURL != "https://pipeline.example/api" {
		t.Fatalf("base url not normalized: %q", cfg.Server.APIBaseURL)
	}
	if cfg.Push.MaxReconnectAttempts != 3 {
		t.Fatalf("max reconnect attempts = %d, want 3", cfg.Push.MaxReconnectAttempts)
	}
	if cfg.Push.KeepaliveInterval != 30 {
		t.Fatalf("keepalive interval = %d, want default 30", cfg.Push.KeepaliveInterval)
	}
	if cfg.Stuck.StageMinutes["tts_synthesis"] != 45 {
		t.Fatalf("tts stuck minutes = %d, want 45", cfg.Stuck.StageMinutes["tts_synthesis"])
	}
}

func TestLoadRejectsBadBaseURL(t *testing.T) {
	path := writeConfig(t, `
[server]
api_base_url = "ftp://pipeline.example"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for non-http scheme")
	}
}

func TestLoadRejectsBadLogFormat(t *testing.T) {
	path := writeConfig(t, `
[logging]
format = "xml"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}

func TestLoadRejectsNonPositiveStuckThreshold(t *testing.T) {
	path := writeConfig(t, `
[stuck.stage_minutes]
download = 0
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for zero threshold")
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected overwrite refusal")
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil || !exists {
		t.Fatalf("sample config should load: %v", err)
	}
	if cfg.Archive.Enabled != true {
		t.Fatal("sample config should keep archive enabled")
	}
}
