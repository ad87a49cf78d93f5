package download_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sniffer/internal/download"
	"sniffer/internal/logging"
)

func serverHost(t *testing.T, server *httptest.Server) string {
	t.Helper()
	parsed, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	return parsed.Host
}

func TestDownloadWritesFileAndForwardsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/123.flac" || r.URL.RawQuery != "token=abc" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if got := r.Header.Get("User-Agent"); got != "X" {
			t.Errorf("unexpected user agent %q", got)
		}
		if got := r.Header.Get("Accept"); got != "*/*" {
			t.Errorf("unexpected accept %q", got)
		}
		_, _ = w.Write([]byte("flac-bytes"))
	}))
	t.Cleanup(server.Close)

	dest := filepath.Join(t.TempDir(), "03 Song.flac")
	engine := download.NewEngine(logging.NewNop())
	outcome, err := engine.Download(context.Background(), download.Target{
		Host:        serverHost(t, server),
		Path:        "/123.flac?token=abc",
		UserAgent:   "X",
		Accept:      "*/*",
		Destination: dest,
	})
	if err != nil || outcome != download.OutcomeSuccess {
		t.Fatalf("Download = %v, %v", outcome, err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(data) != "flac-bytes" {
		t.Fatalf("unexpected content %q", data)
	}
	if engine.InFlight().Len() != 0 {
		t.Fatal("registry entry not released")
	}
}

func TestDownloadSkipsExistingFile(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(server.Close)

	dest := filepath.Join(t.TempDir(), "existing.flac")
	if err := os.WriteFile(dest, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	engine := download.NewEngine(logging.NewNop())
	outcome, err := engine.Download(context.Background(), download.Target{Host: serverHost(t, server), Path: "/1.flac", Destination: dest})
	if err != nil || outcome != download.OutcomeSkipped {
		t.Fatalf("Download = %v, %v", outcome, err)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no network request, got %d", hits.Load())
	}
	if engine.InFlight().Contains(dest) {
		t.Fatal("registry entry not released")
	}
	if data, _ := os.ReadFile(dest); string(data) != "keep" {
		t.Fatalf("existing file modified: %q", data)
	}
}

func TestDownloadFailureLeavesNoFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	dest := filepath.Join(t.TempDir(), "missing.flac")
	engine := download.NewEngine(logging.NewNop())
	outcome, err := engine.Download(context.Background(), download.Target{Host: serverHost(t, server), Path: "/1.flac", Destination: dest})
	if err == nil || outcome != download.OutcomeFailed {
		t.Fatalf("Download = %v, %v", outcome, err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatalf("expected no destination file, stat err = %v", statErr)
	}
	if engine.InFlight().Len() != 0 {
		t.Fatal("registry entry not released")
	}
}

func TestConcurrentDownloadsOfSameDestination(t *testing.T) {
	var hits atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(entered)
		}
		<-release
		_, _ = w.Write([]byte("payload"))
	}))
	t.Cleanup(server.Close)

	dest := filepath.Join(t.TempDir(), "same.flac")
	engine := download.NewEngine(logging.NewNop())
	target := download.Target{Host: serverHost(t, server), Path: "/1.flac", Destination: dest}

	var wg sync.WaitGroup
	first := make(chan download.Outcome, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		outcome, _ := engine.Download(context.Background(), target)
		first <- outcome
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first download never reached the server")
	}

	outcome, err := engine.Download(context.Background(), target)
	if err != nil || outcome != download.OutcomeSkipped {
		t.Fatalf("second Download = %v, %v", outcome, err)
	}

	close(release)
	wg.Wait()
	if got := <-first; got != download.OutcomeSuccess {
		t.Fatalf("first Download = %v", got)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected exactly one request, got %d", hits.Load())
	}
	if engine.InFlight().Len() != 0 {
		t.Fatal("registry entry not released")
	}
}

func TestDownloadCancelledContextReleasesEntry(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	dest := filepath.Join(t.TempDir(), "slow.flac")
	engine := download.NewEngine(logging.NewNop())
	outcome, err := engine.Download(ctx, download.Target{Host: serverHost(t, server), Path: "/1.flac", Destination: dest})
	if err == nil || outcome != download.OutcomeFailed {
		t.Fatalf("Download = %v, %v", outcome, err)
	}
	if engine.InFlight().Len() != 0 {
		t.Fatal("registry entry not released after cancellation")
	}
}

func TestClientCacheReusesClientPerHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	engine := download.NewEngine(logging.NewNop())
	host := serverHost(t, server)
	for i, name := range []string{"a.flac", "b.flac", "c.flac"} {
		outcome, err := engine.Download(context.Background(), download.Target{Host: host, Path: "/" + name, Destination: filepath.Join(dir, name)})
		if err != nil || outcome != download.OutcomeSuccess {
			t.Fatalf("download %d = %v, %v", i, outcome, err)
		}
	}
	if engine.ClientCount() != 1 {
		t.Fatalf("expected one cached client, got %d", engine.ClientCount())
	}
}

func TestDownloadUsesBaseAddressWithoutHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("base"))
	}))
	t.Cleanup(server.Close)

	dest := filepath.Join(t.TempDir(), "base.flac")
	engine := download.NewEngine(logging.NewNop(), download.WithBaseAddress(server.URL+"/"))
	outcome, err := engine.Download(context.Background(), download.Target{Path: "1.flac", Destination: dest})
	if err != nil || outcome != download.OutcomeSuccess {
		t.Fatalf("Download = %v, %v", outcome, err)
	}

	bare := download.NewEngine(logging.NewNop())
	outcome, err = bare.Download(context.Background(), download.Target{Path: "/1.flac", Destination: filepath.Join(t.TempDir(), "x.flac")})
	if err == nil || outcome != download.OutcomeFailed {
		t.Fatalf("expected failure without host or base address, got %v, %v", outcome, err)
	}
}

func TestTargetFromURL(t *testing.T) {
	target, err := download.TargetFromURL("https://image.example/album/original/77.jpg?v=2", "X", "*/*", "/tmp/B.jpg")
	if err != nil {
		t.Fatalf("TargetFromURL: %v", err)
	}
	if target.Scheme != "https" || target.Host != "image.example" || target.Path != "/album/original/77.jpg?v=2" {
		t.Fatalf("unexpected target %+v", target)
	}
	if _, err := download.TargetFromURL("/relative.jpg", "", "", ""); err == nil {
		t.Fatal("expected error for relative url")
	}
}

func TestInFlightTryAcquireIsExclusive(t *testing.T) {
	reg := download.NewInFlight()
	const workers = 32
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if reg.TryAcquire("/out/a/../a/x.flac") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
	reg.Release("/out/a/x.flac")
	if reg.Len() != 0 {
		t.Fatal("expected cleaned key to release the entry")
	}
}
