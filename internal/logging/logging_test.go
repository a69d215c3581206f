package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		hasError bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"invalid", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			level, err := ParseLevel(test.input)
			if test.hasError && err == nil {
				t.Error("expected error, got nil")
			}
			if !test.hasError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !test.hasError && level != test.expected {
				t.Errorf("expected %v, got %v", test.expected, level)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]Format{"": FormatText, "text": FormatText, "JSON": FormatJSON} {
		got, err := ParseFormat(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %v, got %v", input, want, got)
		}
	}
	if _, err := ParseFormat("logfmt"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLevelString(t *testing.T) {
	for level, want := range map[Level]string{LevelDebug: "debug", LevelInfo: "info", LevelWarn: "warn", LevelError: "error"} {
		if got := LevelString(level); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}

func TestNewTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Format: FormatText, Output: &buf, Component: "test"})

	logger.Info("hidden")
	logger.Warn("skipped file", "path", "src/lib.rs")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Fatalf("expected info record to be filtered, got %q", output)
	}
	for _, want := range []string{"skipped file", "path=src/lib.rs", "component=test"} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in %q", want, output)
		}
	}
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, Format: FormatJSON, Output: &buf})

	logger.Debug("evaluated file", "path", "src/lib.rs")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected one json record, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "evaluated file" || record["path"] != "src/lib.rs" {
		t.Fatalf("unexpected record: %v", record)
	}
	if _, ok := record["component"]; ok {
		t.Fatalf("expected no component without one configured, got %v", record)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != LevelWarn || cfg.Format != FormatText || cfg.Output == nil {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestDiscard(t *testing.T) {
	Discard().Error("dropped")
}
