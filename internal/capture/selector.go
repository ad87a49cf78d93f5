package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ConsoleSelector prints an indexed device list and reads indices from In
// until a valid one is entered.
type ConsoleSelector struct {
	In  io.Reader
	Out io.Writer
}

func (s ConsoleSelector) Select(devices []Device) (int, error) {
	if len(devices) == 0 {
		return 0, ErrNoDevices
	}
	fmt.Fprintln(s.Out, "Available capture devices:")
	for i, dev := range devices {
		fmt.Fprintf(s.Out, "  [%d] %s\n", i, dev)
	}

	scanner := bufio.NewScanner(s.In)
	for {
		fmt.Fprintf(s.Out, "Select a device [0-%d]: ", len(devices)-1)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, fmt.Errorf("read selection: %w", err)
			}
			return 0, errors.New("no device selected: input closed")
		}
		idx, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil || idx < 0 || idx >= len(devices) {
			fmt.Fprintln(s.Out, "Invalid selection.")
			continue
		}
		return idx, nil
	}
}
