package tagging

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"sniffer/internal/logging"
	"sniffer/internal/media"
	"sniffer/internal/services"
)

// Outcome is the result of applying metadata to a saved file.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeApplied
	OutcomeUnsupported
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "done"
	case OutcomeUnsupported:
		return "unsupported"
	default:
		return "failed"
	}
}

// Writer rewrites embedded tags for one container format.
type Writer interface {
	// Extensions lists the lower-case file extensions handled, without dots.
	Extensions() []string
	// Write replaces the tags of dir/fileName with track. Implementations must
	// leave the original file untouched when they fail.
	Write(ctx context.Context, dir, fileName string, track media.Track) error
}

// Applier dispatches tag rewrites to the writer registered for the file's extension.
type Applier struct {
	writers map[string]Writer
	logger  *slog.Logger
}

// NewApplier registers writers in order; a later writer for the same
// extension replaces an earlier one.
func NewApplier(logger *slog.Logger, writers ...Writer) *Applier {
	a := &Applier{
		writers: make(map[string]Writer),
		logger:  logging.NewComponentLogger(logger, "tagging"),
	}
	for _, w := range writers {
		for _, ext := range w.Extensions() {
			a.writers[strings.ToLower(strings.TrimPrefix(ext, "."))] = w
		}
	}
	return a
}

// NewDefaultApplier handles flac and m4a files.
func NewDefaultApplier(logger *slog.Logger) *Applier {
	return NewApplier(logger, FLACWriter{Logger: logging.NewComponentLogger(logger, "tagging")}, MP4Writer{})
}

// Apply writes metadata into dir/fileName. Unsupported extensions and
// non-track metadata leave the file unchanged.
func (a *Applier) Apply(ctx context.Context, dir, fileName string, metadata media.Metadata) (Outcome, error) {
	logger := logging.WithContext(ctx, a.logger).With(logging.String("file", fileName))

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	writer, ok := a.writers[ext]
	if !ok {
		logger.Info("no tag writer for extension",
			logging.String("extension", ext),
			logging.String(logging.FieldEventType, "tag_unsupported"),
		)
		return OutcomeUnsupported, nil
	}

	track, ok := metadata.(media.Track)
	if !ok {
		logger.Info("metadata is not a track; tags left unchanged",
			logging.String("kind", string(media.KindOf(metadata))),
			logging.String(logging.FieldEventType, "tag_unsupported"),
		)
		return OutcomeUnsupported, nil
	}

	if err := writer.Write(ctx, dir, fileName, track); err != nil {
		err = services.Wrap(services.ErrTagging, "tagging", ext, fileName, err)
		logging.WarnWithContext(logger, "tag rewrite failed",
			services.EventType(err),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file kept as downloaded"),
		)
		return OutcomeFailed, err
	}
	logger.Info("tags written", logging.String(logging.FieldEventType, "tag_complete"))
	return OutcomeApplied, nil
}
