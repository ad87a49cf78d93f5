package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"sniffer/internal/capture"
	"sniffer/internal/logging"
)

// maxConsecutiveErrors ends Run when the source keeps failing, e.g. after
// the device disappears.
const maxConsecutiveErrors = 50

// Run listens until Stop is called, ctx is cancelled or an offline source is
// exhausted. It returns without waiting for spawned units; call Wait for that.
func (m *Manager) Run(ctx context.Context) error {
	if !m.state.CompareAndSwap(int32(StateIdle), int32(StateListening)) {
		return fmt.Errorf("workflow cannot run from state %s", m.State())
	}
	defer m.state.Store(int32(StateStopped))

	loopCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.started = time.Now()
	stopRequested := m.stopRequested
	m.mu.Unlock()
	defer cancel()
	// Stop ran after the state change but before cancel was published.
	if stopRequested {
		cancel()
	}

	m.logger.Info("listening for requests",
		logging.String(logging.FieldEventType, "capture_started"),
	)

	consecutive := 0
	for {
		if loopCtx.Err() != nil {
			m.logger.Info("capture loop stopped", logging.String(logging.FieldEventType, "capture_stopped"))
			return nil
		}

		frame, err := m.source.Next(loopCtx)
		switch {
		case err == nil:
			consecutive = 0
		case errors.Is(err, capture.ErrTimeout):
			continue
		case errors.Is(err, io.EOF):
			m.logger.Info("capture source exhausted", logging.String(logging.FieldEventType, "capture_eof"))
			return nil
		case loopCtx.Err() != nil:
			continue
		default:
			consecutive++
			logging.WarnWithContext(m.logger, "frame read failed", "capture_read_failed",
				logging.Error(err),
				logging.Int("consecutive", consecutive),
				logging.String(logging.FieldImpact, "frame dropped"),
			)
			if consecutive >= maxConsecutiveErrors {
				return fmt.Errorf("capture source failing: %w", err)
			}
			continue
		}

		m.stats.frames.Add(1)
		request, ok := m.components.Matcher.Extract(frame)
		if !ok {
			continue
		}
		m.stats.matches.Add(1)
		m.spawn(loopCtx, request)
	}
}

// Stop ends the capture loop after its current wait. Spawned units keep running.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.stopRequested = true
	m.mu.Unlock()
	if cancel != nil {
		cancel()
		return
	}
	// Never ran; a later Run refuses to start.
	m.state.CompareAndSwap(int32(StateIdle), int32(StateStopped))
}

// Wait blocks until every spawned unit has finished.
func (m *Manager) Wait() {
	m.units.Wait()
}
