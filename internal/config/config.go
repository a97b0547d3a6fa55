package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains the backend endpoints the engine talks to.
type Server struct {
	// APIBaseURL is the Job API root; the push-channel scheme (ws/wss) is
	// derived from it.
	APIBaseURL     string `toml:"api_base_url"`
	APIToken       string `toml:"api_token"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Paths contains local directory configuration.
type Paths struct {
	LogDir  string `toml:"log_dir"`
	DataDir string `toml:"data_dir"`
}

// Push contains push-channel tuning.
type Push struct {
	KeepaliveInterval    int `toml:"keepalive_interval"`
	ReconnectBaseDelayMS int `toml:"reconnect_base_delay_ms"`
	MaxReconnectAttempts int `toml:"max_reconnect_attempts"`
}

// Polling contains fallback-polling tuning.
type Polling struct {
	FallbackInterval int `toml:"fallback_interval"`
}

// Stuck contains per-stage stall thresholds, in minutes. StageMinutes keys
// are canonical stage names; stages without an entry use DefaultMinutes.
type Stuck struct {
	DefaultMinutes int            `toml:"default_minutes"`
	StageMinutes   map[string]int `toml:"stage_minutes"`
}

// Sequencer contains wait-loop cadences and attempt bounds for saga runs.
type Sequencer struct {
	DownloadPollInterval int `toml:"download_poll_interval"`
	DownloadMaxAttempts  int `toml:"download_max_attempts"`
	ChainPollInterval    int `toml:"chain_poll_interval"`
	ChainMaxAttempts     int `toml:"chain_max_attempts"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Stuck          bool   `toml:"stuck"`
	Failures       bool   `toml:"failures"`
	Saga           bool   `toml:"saga"`
	Connection     bool   `toml:"connection"`
}

// Archive contains configuration for the local transition-history database.
type Archive struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clipwatch.
//
// Configuration sections by subsystem:
//   - Server: Job API base URL, token, request timeout
//   - Paths: log and data directories
//   - Push: keepalive and reconnect tuning for the push channel
//   - Polling: fallback poll cadence
//   - Stuck: per-stage stall thresholds
//   - Sequencer: saga wait-loop cadences and bounds
//   - Notifications: ntfy settings
//   - Archive: local transition history
//   - Logging: log format and level
type Config struct {
	Server        Server        `toml:"server"`
	Paths         Paths         `toml:"paths"`
	Push          Push          `toml:"push"`
	Polling       Polling       `toml:"polling"`
	Stuck         Stuck         `toml:"stuck"`
	Sequencer     Sequencer     `toml:"sequencer"`
	Notifications Notifications `toml:"notifications"`
	Archive       Archive       `toml:"archive"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipwatch/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return is
// the resolved path; the third reports whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the log and data directories if missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.DataDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Abs(trimmed)
}
