package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sniffer/internal/download"
	"sniffer/internal/extract"
	"sniffer/internal/history"
	"sniffer/internal/logging"
	"sniffer/internal/media"
	"sniffer/internal/organizer"
	"sniffer/internal/services"
)

// unitResult is what one unit did with its primary asset.
type unitResult struct {
	asset       media.AssetName
	metadata    media.Metadata
	placement   organizer.Placement
	outcome     download.Outcome
	tagOutcome  string
	err         error
	coverFailed bool
}

var errDownloadPanicked = errors.New("download panicked")

// containPanic runs fn and turns a panic into errDownloadPanicked.
func containPanic(logger *slog.Logger, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(logger, "download panicked", "unit_panic",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("%w: %v", errDownloadPanicked, r)
		}
	}()
	return fn()
}

// spawn starts a unit for request. Units keep the loop's context values but
// not its cancellation.
func (m *Manager) spawn(loopCtx context.Context, request extract.Request) {
	unitCtx := services.WithUnitID(context.WithoutCancel(loopCtx), uuid.NewString())
	m.units.Add(1)
	go func() {
		defer m.units.Done()
		m.runUnit(unitCtx, request)
	}()
}

func (m *Manager) runUnit(ctx context.Context, request extract.Request) {
	logger := logging.WithContext(ctx, m.logger)
	if err := m.sem.Acquire(ctx, 1); err != nil {
		logging.WarnWithContext(logger, "unit slot unavailable", "unit_rejected", logging.Error(err))
		return
	}
	defer m.sem.Release(1)
	m.stats.active.Add(1)
	defer m.stats.active.Add(-1)

	defer func() {
		if r := recover(); r != nil {
			m.stats.failed.Add(1)
			logging.ErrorWithContext(logger, "unit panicked", "unit_panic",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
		}
	}()

	result := m.process(ctx, logger, request)
	m.finish(ctx, result)
}

func (m *Manager) process(ctx context.Context, logger *slog.Logger, request extract.Request) unitResult {
	fileName := media.AssetFromPath(request.Path)
	if fileName == "" {
		err := services.Wrap(services.ErrExtraction, "workflow", "asset name", fmt.Sprintf("no file name in %q", request.Path), nil)
		logging.WarnWithContext(logger, "request path has no file name", services.EventType(err),
			logging.String("path", request.Path),
		)
		return unitResult{err: err}
	}
	asset, _ := media.SplitAssetName(fileName)
	ctx = services.WithAssetID(ctx, fileName)
	logger = logging.WithContext(ctx, m.logger)
	logger.Info("request captured",
		logging.String("host", request.Host),
		logging.String("path", request.Path),
	)

	metadata := m.components.Resolver.Resolve(ctx, fileName)
	placement := organizer.Layout(m.outputDir, metadata, asset)
	result := unitResult{asset: asset, metadata: metadata, placement: placement}

	if err := organizer.Prepare(m.outputDir, placement); err != nil {
		logging.WarnWithContext(logger, "destination unavailable", services.EventType(err),
			logging.Error(err),
			logging.String("dir", placement.Dir),
			logging.String(logging.FieldErrorHint, "check paths.output_dir permissions"),
		)
		result.err = err
		return result
	}

	primary := download.Target{
		Host:        request.Host,
		Path:        request.Path,
		UserAgent:   request.UserAgent,
		Accept:      request.Accept,
		Destination: placement.AssetPath(),
	}

	// errgroup does not recover panics on its goroutines.
	var group errgroup.Group
	group.Go(func() error {
		err := containPanic(logger, func() error {
			outcome, err := m.components.Downloader.Download(ctx, primary)
			result.outcome, result.err = outcome, err
			return err
		})
		if errors.Is(err, errDownloadPanicked) {
			result.outcome, result.err = download.OutcomeFailed, err
		}
		return err
	})
	if track, ok := metadata.(media.Track); ok && placement.CoverPath != "" {
		group.Go(func() error {
			err := containPanic(logger, func() error {
				cover, err := download.TargetFromURL(track.CoverArtURL, request.UserAgent, request.Accept, placement.CoverPath)
				if err != nil {
					return err
				}
				_, err = m.components.Downloader.Download(ctx, cover)
				return err
			})
			if err != nil {
				result.coverFailed = true
				logging.WarnWithContext(logger, "cover art download failed", "cover_failed",
					logging.Error(err),
					logging.String("url", track.CoverArtURL),
					logging.String(logging.FieldImpact, "track saved without embedded artwork"),
				)
			}
			return nil
		})
	}
	_ = group.Wait()

	if result.outcome != download.OutcomeSuccess {
		return result
	}
	if media.KindOf(metadata) != media.KindTrack {
		return result
	}

	tagOutcome, err := m.components.Tagger.Apply(ctx, placement.Dir, placement.FileName, metadata)
	result.tagOutcome = tagOutcome.String()
	if err != nil {
		m.stats.tagFailures.Add(1)
	}
	return result
}

// finish updates counters, records the unit and notifies.
func (m *Manager) finish(ctx context.Context, result unitResult) {
	logger := logging.WithContext(ctx, m.logger)

	outcome := history.OutcomeFailed
	switch {
	case result.err == nil && result.outcome == download.OutcomeSuccess:
		outcome = history.OutcomeSuccess
		m.stats.saved.Add(1)
	case result.err == nil && result.outcome == download.OutcomeSkipped:
		outcome = history.OutcomeSkipped
		m.stats.skipped.Add(1)
	default:
		m.stats.failed.Add(1)
		if result.err == nil {
			result.err = errors.New("download failed")
		}
	}

	name := ""
	if result.metadata != nil {
		name = result.metadata.CanonicalName()
	}
	kind := string(media.KindOf(result.metadata))

	if m.components.History != nil {
		entry := history.Entry{
			UnitID:      unitID(ctx),
			AssetID:     result.asset.ID,
			Extension:   result.asset.Extension,
			Kind:        kind,
			Title:       name,
			Destination: result.placement.AssetPath(),
			Outcome:     outcome,
			TagOutcome:  result.tagOutcome,
		}
		if entry.AssetID == "" {
			entry.AssetID = result.asset.FileName
		}
		if result.placement.FileName == "" {
			entry.Destination = ""
		}
		if outcome == history.OutcomeFailed {
			entry.Error = result.err.Error()
		}
		if _, err := m.components.History.Record(ctx, entry); err != nil {
			logging.WarnWithContext(logger, "history record failed", "history_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "unit missing from history"),
			)
		}
	}

	switch outcome {
	case history.OutcomeSuccess:
		logger.Info("asset saved",
			logging.String(logging.FieldEventType, "unit_complete"),
			logging.String("path", result.placement.AssetPath()),
			logging.String("kind", kind),
			logging.String("tags", result.tagOutcome),
			logging.Bool("cover_failed", result.coverFailed),
		)
		if name == "" {
			name = result.asset.FileName
		}
		if err := m.components.Notifier.NotifyAssetSaved(ctx, name, kind, result.placement.AssetPath()); err != nil {
			logger.Debug("asset notification failed", logging.Error(err))
		}
	case history.OutcomeFailed:
		if err := m.components.Notifier.NotifyError(ctx, result.err, "request "+result.asset.FileName); err != nil {
			logger.Debug("error notification failed", logging.Error(err))
		}
	}
}

func unitID(ctx context.Context) string {
	id, _ := services.UnitIDFromContext(ctx)
	return id
}
