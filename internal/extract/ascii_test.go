package extract

import "testing"

func TestASCIIStringReplacesHighBytes(t *testing.T) {
	if got := asciiString([]byte{'G', 0xC3, 0xA9, 'T'}); got != "G??T" {
		t.Fatalf("asciiString = %q", got)
	}
}

func TestFieldFromUsesFirstMatchingLine(t *testing.T) {
	lines := []string{"Accept-Language: ko\r", "Accept: */*\r"}
	got, err := fieldFrom(lines, "Accept")
	if err != nil {
		t.Fatalf("fieldFrom: %v", err)
	}
	if got != "ko" {
		t.Fatalf("expected first line containing marker to win, got %q", got)
	}
}
