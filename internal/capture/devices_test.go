package capture

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

type fixedSelector struct {
	idx   int
	err   error
	calls int
}

func (s *fixedSelector) Select([]Device) (int, error) {
	s.calls++
	return s.idx, s.err
}

func sampleDevices() []Device {
	return []Device{
		{Name: "lo", Addresses: []string{"127.0.0.1"}},
		{Name: "eth0", Description: "Ethernet", Addresses: []string{"192.168.1.20", "fe80::1"}},
		{Name: "wlan0", Addresses: []string{"10.0.0.7"}},
	}
}

func TestSelectDeviceByLocalAddress(t *testing.T) {
	sel := &fixedSelector{}
	dev, method, err := SelectDevice(sampleDevices(), "192.168.1.20", "", sel)
	if err != nil {
		t.Fatalf("SelectDevice: %v", err)
	}
	if dev.Name != "eth0" || method != SelectedByAddress {
		t.Fatalf("unexpected selection %s via %s", dev.Name, method)
	}
	if sel.calls != 0 {
		t.Fatal("selector must not be consulted for a unique match")
	}
}

func TestSelectDeviceFallsBackToSelector(t *testing.T) {
	devices := sampleDevices()
	devices[2].Addresses = append(devices[2].Addresses, "192.168.1.20")

	for _, ip := range []string{"192.168.1.20", "172.16.0.1", ""} {
		sel := &fixedSelector{idx: 2}
		dev, method, err := SelectDevice(devices, ip, "", sel)
		if err != nil {
			t.Fatalf("SelectDevice(%q): %v", ip, err)
		}
		if dev.Name != "wlan0" || method != SelectedByPrompt || sel.calls != 1 {
			t.Fatalf("ip %q: unexpected selection %s via %s (calls=%d)", ip, dev.Name, method, sel.calls)
		}
	}
}

func TestSelectDevicePreferredName(t *testing.T) {
	dev, method, err := SelectDevice(sampleDevices(), "192.168.1.20", "wlan0", nil)
	if err != nil || dev.Name != "wlan0" || method != SelectedByName {
		t.Fatalf("unexpected result %v %s %v", dev, method, err)
	}
	if _, _, err := SelectDevice(sampleDevices(), "", "eth9", nil); err == nil {
		t.Fatal("expected error for unknown preferred device")
	}
}

func TestSelectDeviceNoDevices(t *testing.T) {
	if _, _, err := SelectDevice(nil, "1.2.3.4", "", &fixedSelector{}); !errors.Is(err, ErrNoDevices) {
		t.Fatalf("expected ErrNoDevices, got %v", err)
	}
}

func TestSelectDeviceRejectsOutOfRangeIndex(t *testing.T) {
	if _, _, err := SelectDevice(sampleDevices(), "", "", &fixedSelector{idx: 9}); err == nil {
		t.Fatal("expected out of range error")
	}
}

func TestConsoleSelectorRepromptsUntilValid(t *testing.T) {
	var out bytes.Buffer
	sel := ConsoleSelector{In: strings.NewReader("abc\n7\n-1\n1\n"), Out: &out}
	idx, err := sel.Select(sampleDevices())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if idx != 1 {
		t.Fatalf("expected index 1, got %d", idx)
	}
	if got := strings.Count(out.String(), "Invalid selection."); got != 3 {
		t.Fatalf("expected 3 invalid prompts, got %d in %q", got, out.String())
	}
	if !strings.Contains(out.String(), "[1] eth0 (Ethernet) [192.168.1.20, fe80::1]") {
		t.Fatalf("device list missing descriptor: %q", out.String())
	}
}

func TestConsoleSelectorInputClosed(t *testing.T) {
	sel := ConsoleSelector{In: strings.NewReader("x\n"), Out: &bytes.Buffer{}}
	if _, err := sel.Select(sampleDevices()); err == nil {
		t.Fatal("expected error when input closes without a valid index")
	}
}
