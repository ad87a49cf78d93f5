package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"sniffer/internal/capture"
	"sniffer/internal/config"
	"sniffer/internal/logging"
	"sniffer/internal/notifications"
	"sniffer/internal/workflow"
)

// ErrAlreadyRunning is returned when another process holds the instance lock.
var ErrAlreadyRunning = errors.New("another sniffer instance is already running")

// Daemon runs a workflow manager under a single-instance lock, with an
// optional hotplug monitor for the capture interface.
type Daemon struct {
	manager  *workflow.Manager
	logger   *slog.Logger
	notifier notifications.Service

	device   string
	lockPath string
	lock     *flock.Flock
	monitor  *capture.InterfaceMonitor

	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	State          workflow.State
	Stats          workflow.Stats
	Device         string
	LockFilePath   string
	MonitorRunning bool
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithDevice names the live capture interface, enabling the hotplug monitor.
func WithDevice(name string) Option {
	return func(d *Daemon) { d.device = name }
}

// WithNotifier overrides the notifier built from the config.
func WithNotifier(n notifications.Service) Option {
	return func(d *Daemon) {
		if n != nil {
			d.notifier = n
		}
	}
}

// New constructs a daemon around manager.
func New(cfg *config.Config, manager *workflow.Manager, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || manager == nil {
		return nil, errors.New("daemon requires config and workflow manager")
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		manager:  manager,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		notifier: notifications.NewService(cfg),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.device != "" {
		d.monitor = capture.NewInterfaceMonitor(logger, d.device, d.onInterfaceChange)
	}
	return d, nil
}

// Run holds the lock, runs the manager until it stops, then waits for every
// spawned unit before returning.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release instance lock", logging.Error(err))
		}
	}()

	if d.monitor != nil {
		_ = d.monitor.Start(ctx)
		defer d.monitor.Stop()
	}

	d.logger.Info("sniffer started",
		logging.String("lock", d.lockPath),
		logging.String("device", d.device),
	)
	if err := d.notifier.NotifyCaptureStarted(ctx, d.device); err != nil {
		d.logger.Debug("start notification failed", logging.Error(err))
	}

	started := time.Now()
	runErr := d.manager.Run(ctx)

	if active := d.manager.Stats().Active; active > 0 {
		d.logger.Info("waiting for active downloads", logging.Int64("active", active))
	}
	d.manager.Wait()

	stats := d.manager.Stats()
	d.logger.Info("sniffer stopped",
		logging.Int64("frames", stats.Frames),
		logging.Int64("matches", stats.Matches),
		logging.Int64("saved", stats.Saved),
		logging.Int64("skipped", stats.Skipped),
		logging.Int64("failed", stats.Failed),
		logging.Int64("tag_failures", stats.TagFailures),
	)
	notifyCtx := context.WithoutCancel(ctx)
	if err := d.notifier.NotifyCaptureStopped(notifyCtx, int(stats.Saved), int(stats.Failed), time.Since(started)); err != nil {
		d.logger.Debug("stop notification failed", logging.Error(err))
	}
	return runErr
}

// Stop asks the manager to end its capture loop. Run returns once spawned
// units have finished.
func (d *Daemon) Stop() {
	d.manager.Stop()
}

// Status returns the latest runtime information.
func (d *Daemon) Status() Status {
	return Status{
		Running:        d.running.Load(),
		State:          d.manager.State(),
		Stats:          d.manager.Stats(),
		Device:         d.device,
		LockFilePath:   d.lockPath,
		MonitorRunning: d.monitor.Running(),
	}
}

func (d *Daemon) onInterfaceChange(event capture.InterfaceEvent) {
	if event.Interface != d.device || event.Action != "remove" {
		return
	}
	err := fmt.Errorf("capture interface %s removed", event.Interface)
	if notifyErr := d.notifier.NotifyError(context.Background(), err, "capture"); notifyErr != nil {
		d.logger.Debug("interface notification failed", logging.Error(notifyErr))
	}
}

// Locked reports whether a running instance holds the lock at lockPath.
func Locked(lockPath string) (bool, error) {
	probe := flock.New(lockPath)
	ok, err := probe.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe lock: %w", err)
	}
	if ok {
		_ = probe.Unlock()
		return false, nil
	}
	return true, nil
}
