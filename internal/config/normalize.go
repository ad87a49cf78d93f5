package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var percentVariable = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_]*)%`)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCapture()
	c.normalizeDownload()
	c.normalizeCatalog()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCapture() {
	c.Capture.Device = strings.TrimSpace(c.Capture.Device)
	c.Capture.TargetHost = strings.ToLower(strings.TrimSpace(c.Capture.TargetHost))
	c.Capture.BPFFilter = strings.TrimSpace(c.Capture.BPFFilter)
	if value, ok := os.LookupEnv(packetTimeoutEnvVariable); ok && strings.TrimSpace(value) != "" {
		c.Capture.PacketTimeout = parseMilliseconds(value)
	}
	if c.Capture.PacketTimeout < 0 {
		c.Capture.PacketTimeout = 0
	}
	if c.Capture.SnapshotLen <= 0 {
		c.Capture.SnapshotLen = defaultSnapshotLen
	}
}

func (c *Config) normalizeDownload() {
	c.Download.BaseAddress = strings.TrimRight(strings.TrimSpace(c.Download.BaseAddress), "/")
	c.Download.Scheme = strings.ToLower(strings.TrimSpace(c.Download.Scheme))
	if c.Download.Scheme == "" {
		c.Download.Scheme = defaultDownloadScheme
	}
	if c.Download.TimeoutSeconds < 0 {
		c.Download.TimeoutSeconds = 0
	}
}

func (c *Config) normalizeCatalog() {
	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = defaultCatalogBaseURL
	}
	if c.Catalog.TimeoutSeconds <= 0 {
		c.Catalog.TimeoutSeconds = defaultCatalogTimeout
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}

// expandEnv substitutes $VAR, ${VAR} and %VAR% references. Unknown %VAR%
// references are left as written.
func expandEnv(value string) string {
	value = percentVariable.ReplaceAllStringFunc(value, func(match string) string {
		name := match[1 : len(match)-1]
		if resolved, ok := os.LookupEnv(name); ok {
			return resolved
		}
		return match
	})
	return os.ExpandEnv(value)
}

// parseMilliseconds returns 0 for anything that is not a whole number.
func parseMilliseconds(value string) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}
