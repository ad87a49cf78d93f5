package workflow

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"sniffer/internal/capture"
	"sniffer/internal/download"
	"sniffer/internal/extract"
	"sniffer/internal/history"
	"sniffer/internal/media"
	"sniffer/internal/tagging"
)

// sliceSource yields its frames in order, then io.EOF.
type sliceSource struct {
	mu     sync.Mutex
	frames []capture.Frame
}

func framesOf(paths ...string) *sliceSource {
	src := &sliceSource{}
	for _, p := range paths {
		src.frames = append(src.frames, capture.Frame{Data: []byte(p), Timestamp: time.Now()})
	}
	return src
}

func (s *sliceSource) Next(ctx context.Context) (capture.Frame, error) {
	if err := ctx.Err(); err != nil {
		return capture.Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return capture.Frame{}, io.EOF
	}
	frame := s.frames[0]
	s.frames = s.frames[1:]
	return frame, nil
}

// idleSource never delivers a frame.
type idleSource struct {
	calls atomic.Int64
}

func (s *idleSource) Next(ctx context.Context) (capture.Frame, error) {
	s.calls.Add(1)
	select {
	case <-ctx.Done():
		return capture.Frame{}, ctx.Err()
	case <-time.After(2 * time.Millisecond):
		return capture.Frame{}, capture.ErrTimeout
	}
}

// pathMatcher treats every frame as a request for the path in its payload;
// frames starting with "noise" do not match.
type pathMatcher struct{}

func (pathMatcher) Extract(frame capture.Frame) (extract.Request, bool) {
	path := string(frame.Data)
	if len(path) >= 5 && path[:5] == "noise" {
		return extract.Request{}, false
	}
	return extract.Request{Host: "cdn.example", Path: path, UserAgent: "X", Accept: "*/*"}, true
}

type resolverFunc func(ctx context.Context, fileName string) media.Metadata

func (f resolverFunc) Resolve(ctx context.Context, fileName string) media.Metadata {
	return f(ctx, fileName)
}

// fakeDownloader writes a marker to each destination.
type fakeDownloader struct {
	mu      sync.Mutex
	targets []download.Target
	fail    map[string]bool
	panics  map[string]bool
	gate    chan struct{}
	ctxErrs []error

	active    atomic.Int64
	maxActive atomic.Int64
}

func (d *fakeDownloader) Download(ctx context.Context, t download.Target) (download.Outcome, error) {
	n := d.active.Add(1)
	defer d.active.Add(-1)
	for {
		prev := d.maxActive.Load()
		if n <= prev || d.maxActive.CompareAndSwap(prev, n) {
			break
		}
	}
	if d.gate != nil {
		<-d.gate
	}

	d.mu.Lock()
	d.targets = append(d.targets, t)
	d.ctxErrs = append(d.ctxErrs, ctx.Err())
	fail := d.fail[t.Path]
	explode := d.panics[t.Path]
	d.mu.Unlock()

	if explode {
		panic("transport exploded")
	}

	if fail {
		return download.OutcomeFailed, io.ErrUnexpectedEOF
	}
	if err := os.WriteFile(t.Destination, []byte("asset"), 0o644); err != nil {
		return download.OutcomeFailed, err
	}
	return download.OutcomeSuccess, nil
}

func (d *fakeDownloader) snapshot() []download.Target {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]download.Target(nil), d.targets...)
}

type tagCall struct {
	dir      string
	fileName string
	metadata media.Metadata
}

type fakeTagger struct {
	mu    sync.Mutex
	calls []tagCall
}

func (f *fakeTagger) Apply(_ context.Context, dir, fileName string, metadata media.Metadata) (tagging.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, tagCall{dir: dir, fileName: fileName, metadata: metadata})
	return tagging.OutcomeApplied, nil
}

func (f *fakeTagger) snapshot() []tagCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tagCall(nil), f.calls...)
}

type memoryHistory struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (h *memoryHistory) Record(_ context.Context, entry history.Entry) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	return int64(len(h.entries)), nil
}

func (h *memoryHistory) snapshot() []history.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]history.Entry(nil), h.entries...)
}
