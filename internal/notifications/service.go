package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sniffer/internal/config"
)

const userAgent = "sniffer/0.1"

// Service is the notification surface used by the capture workflow.
type Service interface {
	NotifyCaptureStarted(ctx context.Context, device string) error
	NotifyAssetSaved(ctx context.Context, title, kind, path string) error
	NotifyCaptureStopped(ctx context.Context, saved, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		assetSaved: cfg.Notifications.AssetSaved,
		errors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	assetSaved bool
	errors     bool
}

func (n *ntfyService) NotifyCaptureStarted(ctx context.Context, device string) error {
	device = strings.TrimSpace(device)
	if device == "" {
		device = "capture file"
	}
	return n.send(ctx, payload{
		title:    "Sniffer - Listening",
		message:  fmt.Sprintf("Listening on %s", device),
		tags:     []string{"sniffer", "capture", "started"},
		priority: "low",
	})
}

func (n *ntfyService) NotifyAssetSaved(ctx context.Context, title, kind, path string) error {
	if !n.assetSaved {
		return nil
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "unknown asset"
	}
	kind = strings.TrimSpace(kind)
	if kind == "" {
		kind = "unknown"
	}
	message := fmt.Sprintf("Saved %s: %s", kind, title)
	if path = strings.TrimSpace(path); path != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, path)
	}
	return n.send(ctx, payload{
		title:   "Sniffer - Saved",
		message: message,
		tags:    []string{"sniffer", kind, "saved"},
	})
}

func (n *ntfyService) NotifyCaptureStopped(ctx context.Context, saved, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	title := "Sniffer - Stopped"
	message := fmt.Sprintf("Capture stopped after %s: %d saved", duration, saved)
	if failed > 0 {
		title = "Sniffer - Stopped (with errors)"
		message = fmt.Sprintf("%s, %d failed", message, failed)
	}
	return n.send(ctx, payload{
		title:   title,
		message: message,
		tags:    []string{"sniffer", "capture", "stopped"},
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "Sniffer - Error",
		message:  builder.String(),
		tags:     []string{"sniffer", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Sniffer - Test",
		message:  "Notification system test",
		tags:     []string{"sniffer", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyCaptureStarted(context.Context, string) error                  { return nil }
func (noopService) NotifyAssetSaved(context.Context, string, string, string) error      { return nil }
func (noopService) NotifyCaptureStopped(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                    { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
