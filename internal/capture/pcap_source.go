package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/gopacket/pcap"
)

// LiveOptions configures a live capture handle.
type LiveOptions struct {
	Device        string
	SnapshotLen   int
	Promiscuous   bool
	PacketTimeout time.Duration
	BPFFilter     string
}

// PcapSource reads frames from a pcap handle, either live or from a file.
type PcapSource struct {
	handle    *pcap.Handle
	offline   bool
	delivered atomic.Int64
	closeOnce sync.Once
}

// OpenLive opens device for capture. A zero PacketTimeout blocks each read
// until a frame arrives.
func OpenLive(opts LiveOptions) (*PcapSource, error) {
	timeout := opts.PacketTimeout
	if timeout <= 0 {
		timeout = pcap.BlockForever
	}
	snaplen := opts.SnapshotLen
	if snaplen <= 0 {
		snaplen = 65535
	}
	handle, err := pcap.OpenLive(opts.Device, int32(snaplen), opts.Promiscuous, timeout)
	if err != nil {
		return nil, fmt.Errorf("open capture device %s: %w", opts.Device, err)
	}
	if opts.BPFFilter != "" {
		if err := handle.SetBPFFilter(opts.BPFFilter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("set capture filter %q: %w", opts.BPFFilter, err)
		}
	}
	return &PcapSource{handle: handle}, nil
}

// OpenFile replays frames from a pcap or pcapng capture file.
func OpenFile(path string) (*PcapSource, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, fmt.Errorf("open capture file %s: %w", path, err)
	}
	return &PcapSource{handle: handle, offline: true}, nil
}

// Next returns the next frame. The context is checked before each read; a
// read already in progress is not interrupted.
func (s *PcapSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	data, ci, err := s.handle.ReadPacketData()
	switch {
	case err == nil:
	case errors.Is(err, pcap.NextErrorTimeoutExpired):
		return Frame{}, ErrTimeout
	case errors.Is(err, io.EOF), errors.Is(err, pcap.NextErrorNoMorePackets):
		return Frame{}, io.EOF
	default:
		return Frame{}, fmt.Errorf("read frame: %w", err)
	}
	s.delivered.Add(1)
	return Frame{
		Data:      data,
		LinkType:  s.handle.LinkType(),
		Timestamp: ci.Timestamp,
		Length:    ci.Length,
	}, nil
}

// Stats reports device counters. Offline sources only report delivered frames.
func (s *PcapSource) Stats() (Stats, error) {
	out := Stats{FramesDelivered: s.delivered.Load()}
	if s.offline {
		return out, nil
	}
	stats, err := s.handle.Stats()
	if err != nil {
		return out, fmt.Errorf("capture statistics: %w", err)
	}
	out.Received = stats.PacketsReceived
	out.Dropped = stats.PacketsDropped
	out.InterfaceDrops = stats.PacketsIfDropped
	return out, nil
}

// Close releases the handle. It is safe to call more than once.
func (s *PcapSource) Close() {
	s.closeOnce.Do(s.handle.Close)
}
