package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sniffer/internal/capture"
	"sniffer/internal/history"
	"sniffer/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, env.configPath); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, env.configPath); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateRejectsBadScheme(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.AppendFile(t, env.configPath, []byte("\n[download]\nscheme = \"ftp\"\n"))

	_, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "download.scheme") {
		t.Fatalf("expected scheme validation error, got %v", err)
	}
}

func TestConfigShow(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "cdn.test")
	requireContains(t, out, env.outputDir)
}

func TestDevicesCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"devices"}, "")
	if err != nil {
		t.Fatalf("devices: %v", err)
	}
	requireContains(t, out, "eth0")
	requireContains(t, out, "192.0.2.10")
	requireContains(t, out, "Loopback")

	empty := capture.ListerFunc(func() ([]capture.Device, error) { return nil, nil })
	if _, _, err := runCLIWithLister(t, []string{"devices"}, "", empty); err == nil {
		t.Fatal("expected error when no devices exist")
	}

	broken := capture.ListerFunc(func() ([]capture.Device, error) { return nil, errors.New("permission denied") })
	_, _, err = runCLIWithLister(t, []string{"devices"}, "", broken)
	if err == nil || !strings.Contains(err.Error(), "permission denied") {
		t.Fatalf("expected lister error, got %v", err)
	}
}

func TestHistoryCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No downloads recorded")

	store, err := history.Open(filepath.Join(env.stateDir, "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	ctx := context.Background()
	for _, entry := range []history.Entry{
		{UnitID: "u1", AssetID: "7", Extension: "flac", Kind: "track", Title: "Foo", Destination: "/music/Bar/Baz/03 Foo.flac", Outcome: history.OutcomeSuccess, TagOutcome: "done"},
		{UnitID: "u2", AssetID: "9", Extension: "mp4", Outcome: history.OutcomeFailed, Error: "download: fetch: unexpected status 404"},
	} {
		if _, err := store.Record(ctx, entry); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	store.Close()

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "03 Foo.flac")
	requireContains(t, out, "success / tags done")
	requireContains(t, out, "9.mp4")
	requireContains(t, out, "404")

	out, _, err = runCLI(t, []string{"history", "--limit", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("history --limit: %v", err)
	}
	if strings.Contains(out, "03 Foo.flac") {
		t.Fatalf("expected only the newest entry, got:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"status", "--no-checks"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Running: no")
	requireContains(t, out, "2 total, 1 saved, 0 skipped, 1 failed")

	out, _, err = runCLI(t, []string{"history", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("history clear: %v", err)
	}
	requireContains(t, out, "Cleared 2 entries")
}

func TestStatusRunsChecks(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Output directory")
	requireContains(t, out, "Capture devices")
	// Nothing listens on the configured catalog port.
	requireContains(t, out, "FAIL")
}

func TestTestNotifyRequiresTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "ntfy_topic") {
		t.Fatalf("expected missing topic error, got %v", err)
	}
}

func TestRunRejectsMissingCaptureFile(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(env.baseDir, "missing.pcap")
	_, _, err := runCLI(t, []string{"run", "--pcap", missing, "--no-wait"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "missing.pcap") {
		t.Fatalf("expected capture file error, got %v", err)
	}
}

func TestRunUnknownDevice(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"run", "--device", "wlan9", "--no-wait"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "wlan9") {
		t.Fatalf("expected unknown device error, got %v", err)
	}
}

func TestLogsCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, filepath.Join(env.stateDir, "logs", "sniffer.log"), []byte("first\nsecond\nthird\n"))

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "first") || !strings.Contains(out, "second\nthird") {
		t.Fatalf("unexpected logs output: %q", out)
	}
}
