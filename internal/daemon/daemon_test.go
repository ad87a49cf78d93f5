package daemon_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sniffer/internal/capture"
	"sniffer/internal/config"
	"sniffer/internal/daemon"
	"sniffer/internal/logging"
	"sniffer/internal/testsupport"
	"sniffer/internal/workflow"
)

// waitingSource times out until stopped, then reports end of input.
type waitingSource struct {
	polls atomic.Int64
}

func (s *waitingSource) Next(ctx context.Context) (capture.Frame, error) {
	s.polls.Add(1)
	select {
	case <-ctx.Done():
		return capture.Frame{}, io.EOF
	case <-time.After(time.Millisecond):
		return capture.Frame{}, capture.ErrTimeout
	}
}

func newDaemon(t *testing.T, cfg *config.Config, source capture.Source) *daemon.Daemon {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	components, err := workflow.DefaultComponents(cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("DefaultComponents: %v", err)
	}
	mgr := workflow.NewManager(cfg, source, components, logging.NewNop())
	d, err := daemon.New(cfg, mgr, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func TestDaemonRunStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := &waitingSource{}
	d := newDaemon(t, cfg, source)

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for source.polls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("daemon never started polling")
		}
		time.Sleep(time.Millisecond)
	}

	status := d.Status()
	if !status.Running || status.State != workflow.StateListening {
		t.Fatalf("unexpected status while running: %+v", status)
	}
	locked, err := daemon.Locked(cfg.LockPath())
	if err != nil {
		t.Fatalf("Locked: %v", err)
	}
	if !locked {
		t.Fatal("expected lock to be held while running")
	}

	d.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop")
	}

	if d.Status().Running {
		t.Fatal("expected daemon to report stopped")
	}
	locked, err = daemon.Locked(cfg.LockPath())
	if err != nil {
		t.Fatalf("Locked: %v", err)
	}
	if locked {
		t.Fatal("expected lock to be released")
	}
}

func TestSecondInstanceRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newDaemon(t, cfg, &waitingSource{})
	second := newDaemon(t, cfg, &waitingSource{})

	done := make(chan error, 1)
	go func() { done <- first.Run(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		locked, _ := daemon.Locked(cfg.LockPath())
		if locked {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first instance never took the lock")
		}
		time.Sleep(time.Millisecond)
	}

	if err := second.Run(context.Background()); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	first.Stop()
	if err := <-done; err != nil {
		t.Fatalf("first Run: %v", err)
	}
}

func TestNewRequiresManager(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, nil, logging.NewNop()); err == nil {
		t.Fatal("expected error without manager")
	}
}

type exhaustedSource struct{}

func (exhaustedSource) Next(context.Context) (capture.Frame, error) {
	return capture.Frame{}, io.EOF
}

func TestDaemonNotifiesStartAndStop(t *testing.T) {
	var mu sync.Mutex
	var titles []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		titles = append(titles, r.Header.Get("Title"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(srv.URL+"/sniffer"))
	d := newDaemon(t, cfg, exhaustedSource{})
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(titles) != 2 || titles[0] != "Sniffer - Listening" || titles[1] != "Sniffer - Stopped" {
		t.Fatalf("unexpected notifications: %#v", titles)
	}
}
