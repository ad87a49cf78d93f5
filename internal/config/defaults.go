package config

const (
	defaultConfigPath        = "~/.config/sniffer/config.toml"
	defaultOutputDir         = "~/Music/sniffer"
	defaultStateDir          = "~/.local/share/sniffer"
	defaultTargetHost        = "bp-aod.bugs.gscdn.com"
	defaultSnapshotLen       = 65535
	defaultBPFFilter         = "tcp"
	defaultDownloadScheme    = "http"
	defaultMaxConcurrent     = 8
	defaultCatalogBaseURL    = "https://api.bugs.co.kr/3"
	defaultCatalogTimeout    = 10
	defaultNotifyTimeout     = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	packetTimeoutEnvVariable = "SNIFFER_PACKET_TIMEOUT"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
		},
		Capture: Capture{
			TargetHost:  defaultTargetHost,
			SnapshotLen: defaultSnapshotLen,
			Promiscuous: true,
			BPFFilter:   defaultBPFFilter,
		},
		Download: Download{
			Scheme:        defaultDownloadScheme,
			MaxConcurrent: defaultMaxConcurrent,
		},
		Catalog: Catalog{
			BaseURL:        defaultCatalogBaseURL,
			TimeoutSeconds: defaultCatalogTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			AssetSaved:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
