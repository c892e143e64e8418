package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zonescript.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
default_world = "overworld"
locale = "de"
queue_size = 8

[log]
level = "debug"
format = "json"

[store]
driver = "sqlite3"
dsn = "file:policies.db"
`)

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DefaultWorld != "overworld" || cfg.Locale != "de" || cfg.QueueSize != 8 {
		t.Errorf("wrong top level %+v", cfg)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" || cfg.Log.File != "" {
		t.Errorf("wrong log section %+v", cfg.Log)
	}
	if cfg.Store.Driver != "sqlite3" || cfg.Store.DSN != "file:policies.db" || cfg.Store.Dir != DefaultPolicyDir {
		t.Errorf("wrong store section %+v", cfg.Store)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", false)
	if err != nil {
		t.Fatal(err)
	}
	if cfg != Default() {
		t.Errorf("got %+v, want defaults", cfg)
	}

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.toml"), true)
	if err != nil || cfg != Default() {
		t.Errorf("optional missing file: %+v %v", cfg, err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml"), false); err == nil {
		t.Error("expected error for a required missing file")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		content string
		message string
	}{
		{`queue_size = 0`, "queue_size must be positive"},
		{`default_world = ""`, "default_world must not be empty"},
		{"[store]\ndriver = \"redis\"", `unknown store driver "redis"`},
		{"[store]\ndriver = \"mysql\"", "store.dsn is required"},
		{`colour = "blue"`, "unknown keys colour"},
		{`queue_size = "many"`, "decoding config"},
	}

	for _, tt := range tests {
		_, err := Load(writeConfig(t, tt.content), false)
		if err == nil || !strings.Contains(err.Error(), tt.message) {
			t.Errorf("%q: expected error containing %q, got %v", tt.content, tt.message, err)
		}
	}
}
