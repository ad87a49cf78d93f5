package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"sniffer/internal/fileutil"
	"sniffer/internal/logging"
	"sniffer/internal/services"
)

// Outcome is the result of a single download attempt.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeSuccess
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Target describes one replayed request. Scheme defaults to the engine's
// scheme; an empty Host falls back to the engine's base address.
type Target struct {
	Scheme      string
	Host        string
	Path        string
	UserAgent   string
	Accept      string
	Destination string
}

// TargetFromURL splits an absolute URL into a Target.
func TargetFromURL(raw, userAgent, accept, destination string) (Target, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Target{}, fmt.Errorf("parse url %q: %w", raw, err)
	}
	if parsed.Host == "" {
		return Target{}, fmt.Errorf("url %q has no host", raw)
	}
	return Target{
		Scheme:      parsed.Scheme,
		Host:        parsed.Host,
		Path:        parsed.RequestURI(),
		UserAgent:   userAgent,
		Accept:      accept,
		Destination: destination,
	}, nil
}

// Engine downloads assets with per-destination deduplication and a
// process-wide cache of HTTP clients keyed by base address.
type Engine struct {
	inflight    *InFlight
	scheme      string
	baseAddress string
	timeout     time.Duration
	transport   http.RoundTripper
	logger      *slog.Logger

	clientsMu sync.Mutex
	clients   map[string]*http.Client
}

// Option configures an Engine.
type Option func(*Engine)

// WithBaseAddress sets the base used for targets without a host.
func WithBaseAddress(base string) Option {
	return func(e *Engine) { e.baseAddress = strings.TrimRight(strings.TrimSpace(base), "/") }
}

// WithScheme sets the scheme used for targets that do not carry one.
func WithScheme(scheme string) Option {
	return func(e *Engine) {
		if scheme = strings.TrimSpace(scheme); scheme != "" {
			e.scheme = scheme
		}
	}
}

// WithTimeout bounds each request including the body transfer. Zero means no limit.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Engine) { e.timeout = timeout }
}

// WithTransport overrides the transport of every cached client.
func WithTransport(rt http.RoundTripper) Option {
	return func(e *Engine) { e.transport = rt }
}

// WithInFlight shares an in-flight registry between engines.
func WithInFlight(r *InFlight) Option {
	return func(e *Engine) {
		if r != nil {
			e.inflight = r
		}
	}
}

func NewEngine(logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		inflight: NewInFlight(),
		scheme:   "http",
		clients:  make(map[string]*http.Client),
		logger:   logging.NewComponentLogger(logger, "download"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InFlight exposes the deduplication registry.
func (e *Engine) InFlight() *InFlight { return e.inflight }

// ClientCount reports how many base addresses have a cached client.
func (e *Engine) ClientCount() int {
	e.clientsMu.Lock()
	defer e.clientsMu.Unlock()
	return len(e.clients)
}

// Download fetches t and writes it to t.Destination. A destination that is
// already being downloaded or already exists is skipped. The response body
// is buffered in full before the destination is created, so a failed
// transfer never leaves a partial file behind.
func (e *Engine) Download(ctx context.Context, t Target) (Outcome, error) {
	logger := logging.WithContext(ctx, e.logger).With(logging.String("destination", t.Destination))

	if !e.inflight.TryAcquire(t.Destination) {
		logger.Info("destination already downloading; skipping",
			logging.String(logging.FieldEventType, "download_in_flight"),
		)
		return OutcomeSkipped, nil
	}
	defer e.inflight.Release(t.Destination)

	exists, err := fileutil.Exists(t.Destination)
	if err != nil {
		return e.fail(logger, "stat", err)
	}
	if exists {
		logger.Info("destination exists; skipping",
			logging.String(logging.FieldEventType, "download_exists"),
		)
		return OutcomeSkipped, nil
	}

	base, err := e.baseFor(t)
	if err != nil {
		return e.fail(logger, "resolve host", err)
	}
	client := e.clientFor(base)

	requestURL, err := joinURL(base, t.Path)
	if err != nil {
		return e.fail(logger, "build url", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return e.fail(logger, "build request", err)
	}
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}
	if t.Accept != "" {
		req.Header.Set("Accept", t.Accept)
	}

	logger.Info("downloading", logging.String("url", requestURL))
	start := time.Now()

	buf := getBuffer()
	defer putBuffer(buf)
	if err := fetch(client, req, buf); err != nil {
		return e.fail(logger, "fetch", err)
	}

	size := buf.Len()
	if err := writeNew(t.Destination, buf); err != nil {
		return e.fail(logger, "write", err)
	}

	logger.Info("download complete",
		logging.String(logging.FieldEventType, "download_complete"),
		logging.Int("bytes", size),
		logging.Duration("elapsed", time.Since(start)),
	)
	return OutcomeSuccess, nil
}

func (e *Engine) fail(logger *slog.Logger, op string, err error) (Outcome, error) {
	err = services.Wrap(services.ErrDownload, "download", op, "", err)
	logging.WarnWithContext(logger, "download failed",
		services.EventType(err),
		logging.Error(err),
		logging.String(logging.FieldImpact, "asset not saved"),
	)
	return OutcomeFailed, err
}

func (e *Engine) baseFor(t Target) (string, error) {
	if host := strings.TrimSpace(t.Host); host != "" {
		scheme := t.Scheme
		if scheme == "" {
			scheme = e.scheme
		}
		return scheme + "://" + host, nil
	}
	if e.baseAddress != "" {
		return e.baseAddress, nil
	}
	return "", errors.New("target has no host and no base address is configured")
}

// clientFor returns the cached client for base, creating it on first use.
func (e *Engine) clientFor(base string) *http.Client {
	e.clientsMu.Lock()
	defer e.clientsMu.Unlock()
	if client, ok := e.clients[base]; ok {
		return client
	}
	client := &http.Client{Timeout: e.timeout}
	if e.transport != nil {
		client.Transport = e.transport
	}
	e.clients[base] = client
	return client
}

func joinURL(base, requestPath string) (string, error) {
	if !strings.HasPrefix(requestPath, "/") {
		requestPath = "/" + requestPath
	}
	joined := base + requestPath
	if _, err := url.Parse(joined); err != nil {
		return "", err
	}
	return joined, nil
}

func fetch(client *http.Client, req *http.Request, buf io.Writer) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if _, err := io.Copy(buf, resp.Body); err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	return nil
}

// writeNew creates or truncates path and writes src. A failed write removes
// the partial file.
func writeNew(path string, src io.Reader) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, src); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}
