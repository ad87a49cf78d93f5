package preflight

import (
	"context"

	"sniffer/internal/capture"
	"sniffer/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the startup checks for cfg. The capture device check is
// skipped when lister is nil, as for offline pcap replay.
func RunAll(ctx context.Context, cfg *config.Config, lister capture.Lister) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
	if lister != nil {
		results = append(results, CheckCaptureDevices(lister))
	}
	results = append(results,
		CheckCatalog(ctx, cfg.Catalog.BaseURL),
		CheckNotifications(cfg.Notifications.NtfyTopic),
	)
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
