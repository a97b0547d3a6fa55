package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeTimings()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Server.APIBaseURL), "/")
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = defaultServerRequestTimeout
	}
}

func (c *Config) normalizeTimings() {
	if c.Push.KeepaliveInterval <= 0 {
		c.Push.KeepaliveInterval = defaultKeepaliveInterval
	}
	if c.Push.ReconnectBaseDelayMS <= 0 {
		c.Push.ReconnectBaseDelayMS = defaultReconnectBaseDelayMS
	}
	if c.Push.MaxReconnectAttempts <= 0 {
		c.Push.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}
	if c.Polling.FallbackInterval <= 0 {
		c.Polling.FallbackInterval = defaultFallbackInterval
	}
	if c.Stuck.DefaultMinutes <= 0 {
		c.Stuck.DefaultMinutes = defaultStuckMinutes
	}
	if c.Sequencer.DownloadPollInterval <= 0 {
		c.Sequencer.DownloadPollInterval = defaultDownloadPollInterval
	}
	if c.Sequencer.DownloadMaxAttempts <= 0 {
		c.Sequencer.DownloadMaxAttempts = defaultDownloadMaxAttempts
	}
	if c.Sequencer.ChainPollInterval <= 0 {
		c.Sequencer.ChainPollInterval = defaultChainPollInterval
	}
	if c.Sequencer.ChainMaxAttempts <= 0 {
		c.Sequencer.ChainMaxAttempts = defaultChainMaxAttempts
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
