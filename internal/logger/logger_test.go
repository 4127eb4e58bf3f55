package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_DefaultsToInfoLevel(t *testing.T) {
	log := New()

	if log == nil {
		t.Fatal("expected logger to be created")
	}
	if log.GetLevel() != slog.LevelInfo {
		t.Errorf("expected info level, got %v", log.GetLevel())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{" error ", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewWithWriter_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, slog.LevelWarn, "text")

	log.Info("hidden message")
	log.Warn("visible message", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "visible message") || !strings.Contains(out, "key=value") {
		t.Errorf("expected warn message with attrs, got %q", out)
	}
}

func TestNewWithWriter_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, slog.LevelDebug, "json")

	log.Debug("json message", "count", 3)

	out := buf.String()
	if !strings.HasPrefix(out, "{") || !strings.Contains(out, `"count":3`) {
		t.Errorf("expected JSON output, got %q", out)
	}
}

func TestSetLevel_ChangesFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, slog.LevelInfo, "text")

	log.Debug("before")
	log.SetLevel(slog.LevelDebug)
	log.Debug("after")

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Error("debug message logged before level change")
	}
	if !strings.Contains(out, "after") {
		t.Error("debug message missing after level change")
	}
}

func TestWith_SharesLevelAndHTTPSwitch(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWithWriter(&buf, slog.LevelInfo, "text")
	child := parent.With("component", "records")

	parent.SetLevel(slog.LevelError)
	child.Warn("should be filtered")
	if buf.Len() != 0 {
		t.Errorf("child should follow parent level, got %q", buf.String())
	}

	parent.EnableHTTPLogging()
	if !child.IsHTTPLoggingEnabled() {
		t.Error("child should share HTTP logging switch")
	}

	child.Error("boom")
	if !strings.Contains(buf.String(), "component=records") {
		t.Errorf("expected child attributes in output, got %q", buf.String())
	}
}

func TestHTTPLoggingToggle(t *testing.T) {
	log := Nop()

	if log.IsHTTPLoggingEnabled() {
		t.Error("HTTP logging should be disabled by default")
	}
	log.EnableHTTPLogging()
	if !log.IsHTTPLoggingEnabled() {
		t.Error("expected HTTP logging enabled")
	}
	log.DisableHTTPLogging()
	if log.IsHTTPLoggingEnabled() {
		t.Error("expected HTTP logging disabled")
	}
}
