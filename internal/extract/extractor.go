package extract

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"sniffer/internal/capture"
	"sniffer/internal/logging"
	"sniffer/internal/services"
)

// Request holds the fields needed to replay a captured HTTP GET.
type Request struct {
	Host      string
	Path      string
	UserAgent string
	Accept    string
}

// Extractor recognizes asset requests addressed to a single CDN host.
type Extractor struct {
	host   string
	logger *slog.Logger
}

// New returns an extractor that matches requests mentioning host.
func New(host string, logger *slog.Logger) *Extractor {
	return &Extractor{
		host:   host,
		logger: logging.NewComponentLogger(logger, "extract"),
	}
}

// Extract returns the request carried by frame. ok is false when the frame is
// not a GET for the target host or when any required header line is missing;
// partial requests are never returned.
func (e *Extractor) Extract(frame capture.Frame) (Request, bool) {
	packet := gopacket.NewPacket(frame.Data, frame.LinkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	tcpLayer, ok := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
	if !ok || len(tcpLayer.Payload) == 0 {
		return Request{}, false
	}

	text := asciiString(tcpLayer.Payload)
	if !strings.Contains(text, "GET") || !strings.Contains(text, e.host) {
		return Request{}, false
	}

	e.logger.Info("captured request frame",
		logging.String("captured_at", frame.Timestamp.Format(time.RFC3339Nano)),
		logging.Int("length", frameLength(frame)),
		logging.String("flow", describeFlow(packet, tcpLayer)),
	)

	req, err := parseRequest(text)
	if err != nil {
		logging.WarnWithContext(e.logger, "incomplete request in captured frame",
			services.EventType(err),
			logging.Error(err),
			logging.String(logging.FieldImpact, "request ignored"),
		)
		return Request{}, false
	}
	req.Host = e.host
	return req, true
}

func parseRequest(text string) (Request, error) {
	lines := strings.Split(text, "\n")
	path, err := fieldFrom(lines, "GET")
	if err != nil {
		return Request{}, err
	}
	userAgent, err := fieldFrom(lines, "User-Agent")
	if err != nil {
		return Request{}, err
	}
	accept, err := fieldFrom(lines, "Accept")
	if err != nil {
		return Request{}, err
	}
	return Request{Path: path, UserAgent: userAgent, Accept: accept}, nil
}

// fieldFrom returns the second whitespace-separated token of the first line
// containing marker, with carriage returns removed.
func fieldFrom(lines []string, marker string) (string, error) {
	for _, line := range lines {
		if !strings.Contains(line, marker) {
			continue
		}
		tokens := strings.Fields(strings.ReplaceAll(line, "\r", ""))
		if len(tokens) < 2 {
			return "", services.Wrap(services.ErrExtraction, "extract", "parse", fmt.Sprintf("%s line has no value", marker), nil)
		}
		return strings.TrimSpace(tokens[1]), nil
	}
	return "", services.Wrap(services.ErrExtraction, "extract", "parse", fmt.Sprintf("no %s line", marker), nil)
}

// asciiString decodes b as 7-bit ASCII, substituting '?' for bytes above 0x7F.
func asciiString(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		if c > 0x7F {
			c = '?'
		}
		out[i] = c
	}
	return string(out)
}

func frameLength(frame capture.Frame) int {
	if frame.Length > 0 {
		return frame.Length
	}
	return len(frame.Data)
}

func describeFlow(packet gopacket.Packet, tcp *layers.TCP) string {
	src, dst := "?", "?"
	if network := packet.NetworkLayer(); network != nil {
		flow := network.NetworkFlow()
		src, dst = flow.Src().String(), flow.Dst().String()
	}
	return fmt.Sprintf("%s:%d->%s:%d", src, uint16(tcp.SrcPort), dst, uint16(tcp.DstPort))
}
