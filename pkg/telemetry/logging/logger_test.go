package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"atrium-hq/vestibule/pkg/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if err != nil {
			t.Errorf("parseLevel(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := parseLevel("shout"); err == nil {
		t.Error("parseLevel(shout) = nil error")
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]LogFormat{
		"":        FormatJSON,
		"json":    FormatJSON,
		"text":    FormatText,
		"console": FormatText,
		"TEXT":    FormatText,
	} {
		got, err := parseFormat(in)
		if err != nil {
			t.Errorf("parseFormat(%q) error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("parseFormat(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := parseFormat("xml"); err == nil {
		t.Error("parseFormat(xml) = nil error")
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("request served", "host", "a.example.com", "status", 200)
	logger.Debug("suppressed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1 (debug below level)", len(lines))
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "request served" || entry["host"] != "a.example.com" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewTextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "debug", Format: "text"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	logger.Debug("listener bound", "addr", "127.0.0.1:8080")
	out := buf.String()
	if !strings.Contains(out, "listener bound") || !strings.Contains(out, "addr=127.0.0.1:8080") {
		t.Errorf("text output = %q", out)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(config.LoggingConfig{Level: "shout"}, &bytes.Buffer{}); err == nil {
		t.Error("bad level accepted")
	}
	if _, err := New(config.LoggingConfig{Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Error("bad format accepted")
	}
}

func TestOpenOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vestibule.log")
	logger, err := New(config.LoggingConfig{Output: path}, nil)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("file content = %q", data)
	}
}
