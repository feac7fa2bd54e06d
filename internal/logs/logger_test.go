package logs

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFansOut(t *testing.T) {
	var text, file bytes.Buffer
	logger := New(Options{Writer: &text, File: &file, Level: slog.LevelInfo})

	logger.Debug("hidden")
	logger.Info("solve finished", "status", "solved")

	if strings.Contains(text.String(), "hidden") {
		t.Error("debug record should be filtered at info level")
	}
	if !strings.Contains(text.String(), "status=solved") {
		t.Errorf("expected text record, got %q", text.String())
	}

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(file.Bytes()), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", file.String(), err)
	}
	if rec["msg"] != "solve finished" {
		t.Errorf("expected msg 'solve finished', got %v", rec["msg"])
	}
}

func TestSetLevel(t *testing.T) {
	var text bytes.Buffer
	logger := New(Options{Writer: &text, Level: slog.LevelWarn})
	logger.Info("quiet")
	SetLevel(slog.LevelDebug)
	logger.Debug("loud")

	if strings.Contains(text.String(), "quiet") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(text.String(), "loud") {
		t.Error("debug record should pass after SetLevel")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil || got != tt.expected {
			t.Errorf("%q: expected %v, got %v (%v)", tt.in, tt.expected, got, err)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}
