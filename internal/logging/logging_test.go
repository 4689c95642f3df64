package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestJSONLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, Config{Level: slog.LevelInfo, Format: FormatJSON})
	log.Debug("hidden")
	log.Info("trial finished", "rt_ms", 312)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if rec["msg"] != "trial finished" || rec["app"] != "keyrec" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "keyrec.log")
	log, closer, err := New(Config{Level: slog.LevelDebug, Path: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	log.Debug("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "msg=hello") {
		t.Fatalf("expected message in log file, got %q", data)
	}
}

func TestNewWithoutPathDiscards(t *testing.T) {
	log, closer, err := New(Config{})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	log.Error("dropped")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
