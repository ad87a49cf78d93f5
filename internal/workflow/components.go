package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sniffer/internal/capture"
	"sniffer/internal/catalog"
	"sniffer/internal/config"
	"sniffer/internal/download"
	"sniffer/internal/extract"
	"sniffer/internal/history"
	"sniffer/internal/media"
	"sniffer/internal/notifications"
	"sniffer/internal/tagging"
)

// Matcher recognises target requests in raw frames.
type Matcher interface {
	Extract(frame capture.Frame) (extract.Request, bool)
}

// Resolver returns metadata for an "id.ext" file name, or nil.
type Resolver interface {
	Resolve(ctx context.Context, fileName string) media.Metadata
}

// Downloader fetches one target to its destination.
type Downloader interface {
	Download(ctx context.Context, target download.Target) (download.Outcome, error)
}

// Tagger rewrites embedded tags of a saved file.
type Tagger interface {
	Apply(ctx context.Context, dir, fileName string, metadata media.Metadata) (tagging.Outcome, error)
}

// Recorder persists unit outcomes.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) (int64, error)
}

// Components bundles the collaborators a Manager drives. History and
// Notifier are optional.
type Components struct {
	Matcher    Matcher
	Resolver   Resolver
	Downloader Downloader
	Tagger     Tagger
	History    Recorder
	Notifier   notifications.Service
}

// DefaultComponents wires the production collaborators from cfg. store may be nil.
func DefaultComponents(cfg *config.Config, store *history.Store, logger *slog.Logger) (Components, error) {
	client, err := catalog.NewClient(cfg.Catalog.BaseURL,
		catalog.WithTimeout(time.Duration(cfg.Catalog.TimeoutSeconds)*time.Second),
	)
	if err != nil {
		return Components{}, fmt.Errorf("catalog client: %w", err)
	}
	registry, err := catalog.NewDefaultRegistry(client, logger)
	if err != nil {
		return Components{}, fmt.Errorf("resolver registry: %w", err)
	}

	components := Components{
		Matcher:  extract.New(cfg.Capture.TargetHost, logger),
		Resolver: registry,
		Downloader: download.NewEngine(logger,
			download.WithBaseAddress(cfg.Download.BaseAddress),
			download.WithScheme(cfg.Download.Scheme),
			download.WithTimeout(time.Duration(cfg.Download.TimeoutSeconds)*time.Second),
		),
		Tagger:   tagging.NewDefaultApplier(logger),
		Notifier: notifications.NewService(cfg),
	}
	if store != nil {
		components.History = store
	}
	return components, nil
}

var (
	_ Matcher    = (*extract.Extractor)(nil)
	_ Resolver   = (*catalog.Registry)(nil)
	_ Downloader = (*download.Engine)(nil)
	_ Tagger     = (*tagging.Applier)(nil)
	_ Recorder   = (*history.Store)(nil)
)
