package console

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPrintf(t *testing.T) {
	var out bytes.Buffer
	s := New(&out)

	s.Printf("CH%d (%d MHz)\n", 6, 2437)
	if got := out.String(); got != "CH6 (2437 MHz)\n" {
		t.Errorf("output = %q", got)
	}

	s.Mute(true)
	s.Printf("hidden\n")
	s.Mute(false)
	s.Printf("shown\n")
	if strings.Contains(out.String(), "hidden") {
		t.Error("muted line reached the terminal")
	}
	if !strings.HasSuffix(out.String(), "shown\n") {
		t.Errorf("output = %q", out.String())
	}
}

func TestLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gocw.log")

	var out bytes.Buffer
	s := NewWithFile(&out, FileOptions{Path: path, MaxSizeMB: 1})
	s.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	s.Mute(true)
	s.Printf("CW transmission enabled!\n")
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "2025-01-02T03:04:05Z CW transmission enabled!\n"
	if string(data) != want {
		t.Errorf("log file = %q, want %q", data, want)
	}
	if out.Len() != 0 {
		t.Errorf("terminal output while muted: %q", out.String())
	}

	// closing twice is fine
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestTee(t *testing.T) {
	var out bytes.Buffer
	var lines []string

	tee := New(&out).Tee(func(line string) { lines = append(lines, line) })
	tee.Printf("CH%d\n", 1)

	if out.String() != "CH1\n" || len(lines) != 1 || lines[0] != "CH1\n" {
		t.Errorf("out = %q, lines = %q", out.String(), lines)
	}
}
