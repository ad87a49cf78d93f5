package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"sniffer/internal/capture"
	"sniffer/internal/catalog"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCaptureDevices verifies that at least one capture device is visible.
// An empty list usually means the process lacks CAP_NET_RAW.
func CheckCaptureDevices(lister capture.Lister) Result {
	const name = "Capture devices"
	if lister == nil {
		return Result{Name: name, Detail: "no device lister"}
	}
	devices, err := lister.Devices()
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if len(devices) == 0 {
		hint := "none found"
		if unix.Geteuid() != 0 {
			hint = "none found (try running as root or grant CAP_NET_RAW)"
		}
		return Result{Name: name, Detail: hint}
	}
	names := make([]string, 0, len(devices))
	for _, dev := range devices {
		names = append(names, dev.Name)
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d available (%s)", len(devices), strings.Join(names, ", "))}
}

// CheckCatalog verifies that the catalog host is reachable.
func CheckCatalog(ctx context.Context, baseURL string) Result {
	const name = "Catalog"

	base := strings.TrimSpace(baseURL)
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}
	client, err := catalog.NewClient(base, catalog.WithTimeout(5*time.Second))
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", hostOf(base))}
}

// CheckNotifications reports whether ntfy delivery is configured. It never fails.
func CheckNotifications(topic string) Result {
	const name = "Notifications"
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("ntfy %s", hostOf(topic))}
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (host unreachable)"
	}
	return err.Error()
}

func hostOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return raw
	}
	return parsed.Host
}
