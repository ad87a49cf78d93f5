package testsupport

import (
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"sniffer/internal/capture"
)

// HTTPGet renders a minimal GET request for path on host.
func HTTPGet(path, host, userAgent, accept string) string {
	return "GET " + path + " HTTP/1.1\r\n" +
		"Host: " + host + "\r\n" +
		"User-Agent: " + userAgent + "\r\n" +
		"Accept: " + accept + "\r\n\r\n"
}

// TCPFrame serializes payload into an Ethernet/IPv4/TCP frame.
func TCPFrame(t testing.TB, payload []byte) capture.Frame {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IP{192, 168, 1, 20},
		DstIP:    net.IP{203, 0, 113, 5},
	}
	tcp := &layers.TCP{
		SrcPort: 51000,
		DstPort: 80,
		Seq:     1,
		ACK:     true,
		PSH:     true,
		Window:  1024,
	}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("set checksum layer: %v", err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(payload)); err != nil {
		t.Fatalf("serialize frame: %v", err)
	}
	data := append([]byte(nil), buf.Bytes()...)
	return capture.Frame{
		Data:      data,
		LinkType:  layers.LinkTypeEthernet,
		Timestamp: time.Now(),
		Length:    len(data),
	}
}

// UDPFrame serializes payload into an Ethernet/IPv4/UDP frame.
func UDPFrame(t testing.TB, payload []byte) capture.Frame {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP{192, 168, 1, 20},
		DstIP:    net.IP{203, 0, 113, 5},
	}
	udp := &layers.UDP{SrcPort: 5353, DstPort: 80}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("set checksum layer: %v", err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		t.Fatalf("serialize frame: %v", err)
	}
	return capture.Frame{Data: append([]byte(nil), buf.Bytes()...), LinkType: layers.LinkTypeEthernet, Timestamp: time.Now()}
}
