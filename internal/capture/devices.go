package capture

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/google/gopacket/pcap"
)

// Device describes a capture interface.
type Device struct {
	Name        string
	Description string
	Addresses   []string
}

// String is the device descriptor shown to operators and matched against the
// local address during automatic selection.
func (d Device) String() string {
	var b strings.Builder
	b.WriteString(d.Name)
	if d.Description != "" {
		b.WriteString(" (")
		b.WriteString(d.Description)
		b.WriteByte(')')
	}
	if len(d.Addresses) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(d.Addresses, ", "))
		b.WriteByte(']')
	}
	return b.String()
}

// HasAddress reports whether the descriptor contains ip.
func (d Device) HasAddress(ip string) bool {
	return ip != "" && strings.Contains(d.String(), ip)
}

// Lister enumerates capture devices.
type Lister interface {
	Devices() ([]Device, error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func() ([]Device, error)

func (f ListerFunc) Devices() ([]Device, error) { return f() }

// PcapLister enumerates devices through libpcap.
var PcapLister Lister = ListerFunc(pcapDevices)

func pcapDevices() ([]Device, error) {
	ifaces, err := pcap.FindAllDevs()
	if err != nil {
		return nil, fmt.Errorf("enumerate capture devices: %w", err)
	}
	devices := make([]Device, 0, len(ifaces))
	for _, iface := range ifaces {
		dev := Device{Name: iface.Name, Description: iface.Description}
		for _, addr := range iface.Addresses {
			if addr.IP != nil {
				dev.Addresses = append(dev.Addresses, addr.IP.String())
			}
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// LocalIPv4 returns the first IPv4 address the host name resolves to, falling
// back to the first non-loopback IPv4 interface address.
func LocalIPv4() (string, error) {
	if host, err := os.Hostname(); err == nil {
		if ips, err := net.LookupIP(host); err == nil {
			for _, ip := range ips {
				if v4 := ip.To4(); v4 != nil && !v4.IsLoopback() {
					return v4.String(), nil
				}
			}
		}
	}
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", fmt.Errorf("list interface addresses: %w", err)
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil && !v4.IsLoopback() {
			return v4.String(), nil
		}
	}
	return "", errors.New("no local IPv4 address")
}

// Selector picks a device when automatic selection is ambiguous. It returns
// an index into devices.
type Selector interface {
	Select(devices []Device) (int, error)
}

// SelectionMethod records how SelectDevice reached its answer.
type SelectionMethod string

const (
	SelectedByName    SelectionMethod = "configured"
	SelectedByAddress SelectionMethod = "local_address"
	SelectedByPrompt  SelectionMethod = "prompt"
)

// SelectDevice chooses the capture device. A non-empty preferred name must
// match a device exactly. Otherwise the device is chosen automatically when
// exactly one descriptor contains localIP, and selector decides in every other
// case.
func SelectDevice(devices []Device, localIP, preferred string, selector Selector) (Device, SelectionMethod, error) {
	if len(devices) == 0 {
		return Device{}, "", ErrNoDevices
	}
	if preferred != "" {
		for _, dev := range devices {
			if dev.Name == preferred {
				return dev, SelectedByName, nil
			}
		}
		return Device{}, "", fmt.Errorf("capture device %q not found", preferred)
	}

	var matches []Device
	for _, dev := range devices {
		if dev.HasAddress(localIP) {
			matches = append(matches, dev)
		}
	}
	if len(matches) == 1 {
		return matches[0], SelectedByAddress, nil
	}

	if selector == nil {
		return Device{}, "", errors.New("capture device selection is ambiguous and no selector is available")
	}
	idx, err := selector.Select(devices)
	if err != nil {
		return Device{}, "", err
	}
	if idx < 0 || idx >= len(devices) {
		return Device{}, "", fmt.Errorf("selector returned out of range index %d", idx)
	}
	return devices[idx], SelectedByPrompt, nil
}
