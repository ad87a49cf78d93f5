package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("paths.output_dir must be set. Edit %s (create with 'sniffer config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.TargetHost == "" {
		return errors.New("capture.target_host must be set")
	}
	if strings.ContainsAny(c.Capture.TargetHost, " /") {
		return fmt.Errorf("capture.target_host %q must be a bare host name", c.Capture.TargetHost)
	}
	return nil
}

func (c *Config) validateDownload() error {
	switch c.Download.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("download.scheme must be http or https, got %q", c.Download.Scheme)
	}
	if c.Download.MaxConcurrent <= 0 {
		return errors.New("download.max_concurrent must be positive")
	}
	if c.Download.BaseAddress != "" {
		if err := validateAbsoluteURL(c.Download.BaseAddress); err != nil {
			return fmt.Errorf("download.base_address: %w", err)
		}
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if err := validateAbsoluteURL(c.Catalog.BaseURL); err != nil {
		return fmt.Errorf("catalog.base_url: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func validateAbsoluteURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%q is not an absolute URL", raw)
	}
	return nil
}
