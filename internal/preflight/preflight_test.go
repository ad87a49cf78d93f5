package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sniffer/internal/capture"
	"sniffer/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCaptureDevices(t *testing.T) {
	tests := []struct {
		name   string
		lister capture.Lister
		pass   bool
		detail string
	}{
		{
			name: "devices present",
			lister: capture.ListerFunc(func() ([]capture.Device, error) {
				return []capture.Device{{Name: "eth0"}, {Name: "lo"}}, nil
			}),
			pass:   true,
			detail: "2 available (eth0, lo)",
		},
		{
			name:   "none",
			lister: capture.ListerFunc(func() ([]capture.Device, error) { return nil, nil }),
			detail: "none found",
		},
		{
			name:   "error",
			lister: capture.ListerFunc(func() ([]capture.Device, error) { return nil, errors.New("permission denied") }),
			detail: "permission denied",
		},
		{
			name:   "nil lister",
			detail: "no device lister",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckCaptureDevices(tt.lister)
			if got.Passed != tt.pass {
				t.Fatalf("passed = %v, want %v (%s)", got.Passed, tt.pass, got.Detail)
			}
			if !strings.HasPrefix(got.Detail, tt.detail) {
				t.Fatalf("detail = %q, want prefix %q", got.Detail, tt.detail)
			}
		})
	}
}

func TestCheckCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if result := CheckCatalog(context.Background(), srv.URL+"/3"); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckCatalog(context.Background(), ""); result.Passed {
		t.Fatal("expected failure for empty url")
	}
}

func TestCheckCatalog_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	result := CheckCatalog(context.Background(), srv.URL)
	if result.Passed {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.Detail, "502") {
		t.Fatalf("detail = %q", result.Detail)
	}
}

func TestRunAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithCatalog(srv.URL))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg, nil)
	if len(results) != 4 {
		t.Fatalf("expected 4 results without lister, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %#v", failed)
	}

	lister := capture.ListerFunc(func() ([]capture.Device, error) { return nil, nil })
	results = RunAll(context.Background(), cfg, lister)
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Capture devices" {
		t.Fatalf("expected capture device failure, got %#v", failed)
	}
}
