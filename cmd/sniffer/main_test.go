package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"sniffer/internal/capture"
	"sniffer/internal/testsupport"
)

type cliEnv struct {
	baseDir    string
	configPath string
	outputDir  string
	stateDir   string
}

func setupCLITestEnv(t *testing.T) cliEnv {
	t.Helper()
	base := t.TempDir()
	env := cliEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		outputDir:  filepath.Join(base, "output"),
		stateDir:   filepath.Join(base, "state"),
	}
	content := fmt.Sprintf(`[paths]
output_dir = %q
state_dir = %q

[capture]
target_host = "cdn.test"

[catalog]
base_url = "http://127.0.0.1:1/3"
timeout_seconds = 1
`, env.outputDir, env.stateDir)
	testsupport.WriteFile(t, env.configPath, []byte(content))
	return env
}

var fixedDevices = capture.ListerFunc(func() ([]capture.Device, error) {
	return []capture.Device{
		{Name: "eth0", Description: "Ethernet", Addresses: []string{"192.0.2.10"}},
		{Name: "lo", Description: "Loopback", Addresses: []string{"127.0.0.1"}},
	}, nil
})

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	return runCLIWithLister(t, args, configPath, fixedDevices)
}

func runCLIWithLister(t *testing.T, args []string, configPath string, lister capture.Lister) (string, string, error) {
	t.Helper()
	var configFlag string
	ctx := newCommandContext(&configFlag)
	ctx.lister = lister
	cmd := buildRootCommand(ctx)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}
