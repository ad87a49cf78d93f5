package capture

import (
	"context"
	"errors"
	"time"

	"github.com/google/gopacket/layers"
)

// ErrTimeout reports that no frame arrived within the packet timeout.
var ErrTimeout = errors.New("capture: no frame before timeout")

// ErrNoDevices is returned when the host exposes no capture devices.
var ErrNoDevices = errors.New("capture: no capture devices found")

// Frame is one raw link-layer frame as read from a device.
type Frame struct {
	Data      []byte
	LinkType  layers.LinkType
	Timestamp time.Time
	// Length is the original wire length, which can exceed len(Data) when the
	// snapshot length truncated the frame.
	Length int
}

// Source yields captured frames. Next blocks for at most the configured packet
// timeout and returns ErrTimeout when nothing arrived; offline sources return
// io.EOF once exhausted.
type Source interface {
	Next(ctx context.Context) (Frame, error)
}

// Stats summarizes counters reported by the capture device.
type Stats struct {
	Received        int
	Dropped         int
	InterfaceDrops  int
	FramesDelivered int64
}
