package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
		ok       bool
	}{
		{"trace", LevelTrace, true},
		{"DEBUG", LevelDebug, true},
		{"", LevelInfo, true},
		{"Warn", LevelWarn, true},
		{"error", LevelError, true},
		{"none", LevelNone, true},
		{"verbose", LevelInfo, false},
	}

	for _, tt := range tests {
		level, err := ParseLevel(tt.input)
		if level != tt.expected {
			t.Errorf("%q: got %v, want %v", tt.input, level, tt.expected)
		}
		if (err == nil) != tt.ok {
			t.Errorf("%q: unexpected error state %v", tt.input, err)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("JSON"); err != nil || f != FormatJSON {
		t.Errorf("got %v %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("got %v %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "trace", Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	l.Log(context.Background(), LevelTrace, "tracing", slog.String("script", "arena"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if entry["level"] != "TRACE" || entry["msg"] != "tracing" || entry["script"] != "arena" {
		t.Errorf("wrong entry %v", entry)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "warn"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("wrong output %q", buf.String())
	}

	buf.Reset()
	none, err := New(Options{Level: "none"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	none.Error("silenced")
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestFileReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "zonescript.log")

	l, err := New(Options{Level: "info", File: path}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	l.Info("first")
	if err := os.Rename(path, path+".1"); err != nil {
		t.Fatal(err)
	}
	if err := l.Reopen(); err != nil {
		t.Fatal(err)
	}
	l.Info("second")

	rotated, _ := os.ReadFile(path + ".1")
	current, _ := os.ReadFile(path)
	if !strings.Contains(string(rotated), "first") || strings.Contains(string(rotated), "second") {
		t.Errorf("wrong rotated content %q", rotated)
	}
	if !strings.Contains(string(current), "second") {
		t.Errorf("wrong current content %q", current)
	}
}

func TestDiscard(t *testing.T) {
	if Discard().Enabled(context.Background(), LevelError) {
		t.Error("discard logger should not be enabled")
	}
}
