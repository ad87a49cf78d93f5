package workflow

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"sniffer/internal/capture"
	"sniffer/internal/config"
	"sniffer/internal/logging"
	"sniffer/internal/notifications"
)

// State is the lifecycle phase of a Manager.
type State int32

const (
	StateIdle State = iota
	StateListening
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats counts what the manager has seen since Run started.
type Stats struct {
	Frames      int64
	Matches     int64
	Saved       int64
	Skipped     int64
	Failed      int64
	TagFailures int64
	Active      int64
}

type counters struct {
	frames      atomic.Int64
	matches     atomic.Int64
	saved       atomic.Int64
	skipped     atomic.Int64
	failed      atomic.Int64
	tagFailures atomic.Int64
	active      atomic.Int64
}

// Manager drives the capture loop and the units it spawns.
type Manager struct {
	outputDir  string
	source     capture.Source
	components Components
	logger     *slog.Logger
	sem        *semaphore.Weighted

	state   atomic.Int32
	stats   counters
	units   sync.WaitGroup
	started time.Time

	mu            sync.Mutex
	cancel        context.CancelFunc
	stopRequested bool
}

// NewManager builds a manager that reads from source and writes under
// cfg.Paths.OutputDir. At most cfg.Download.MaxConcurrent units run at once.
func NewManager(cfg *config.Config, source capture.Source, components Components, logger *slog.Logger) *Manager {
	limit := int64(cfg.Download.MaxConcurrent)
	if limit <= 0 {
		limit = 1
	}
	if components.Notifier == nil {
		components.Notifier = notifications.NewService(nil)
	}
	return &Manager{
		outputDir:  cfg.Paths.OutputDir,
		source:     source,
		components: components,
		logger:     logging.NewComponentLogger(logger, "workflow"),
		sem:        semaphore.NewWeighted(limit),
	}
}

// State reports the current lifecycle phase.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Stats returns a snapshot of the manager counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Frames:      m.stats.frames.Load(),
		Matches:     m.stats.matches.Load(),
		Saved:       m.stats.saved.Load(),
		Skipped:     m.stats.skipped.Load(),
		Failed:      m.stats.failed.Load(),
		TagFailures: m.stats.tagFailures.Load(),
		Active:      m.stats.active.Load(),
	}
}

// Uptime is the time since Run started, or zero before that.
func (m *Manager) Uptime() time.Duration {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if started.IsZero() {
		return 0
	}
	return time.Since(started)
}
