package testsupport

import (
	"path/filepath"
	"testing"

	"sniffer/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Capture.Device = "lo"
	cfgVal.Catalog.BaseURL = "http://127.0.0.1:0/3"

	builder := &configBuilder{cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithCatalog points the catalog client at baseURL, typically an httptest server.
func WithCatalog(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.BaseURL = baseURL
	}
}

// WithNtfyTopic enables notifications against the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithMaxConcurrent overrides the unit concurrency bound.
func WithMaxConcurrent(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Download.MaxConcurrent = n
	}
}
