package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStuck(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	raw := strings.TrimSpace(c.Server.APIBaseURL)
	if raw == "" {
		return errors.New("server.api_base_url must be set")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("server.api_base_url: %w", err)
	}
	switch parsed.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("server.api_base_url must use http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("server.api_base_url must include a host")
	}
	return nil
}

func (c *Config) validateStuck() error {
	for stage, minutes := range c.Stuck.StageMinutes {
		if minutes <= 0 {
			return fmt.Errorf("stuck.stage_minutes[%s] must be positive, got %d", stage, minutes)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
}
