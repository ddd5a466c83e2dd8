package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:5030" {
		t.Fatalf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.DataDir != "data" {
		t.Fatalf("data dir = %q", cfg.DataDir)
	}
	if cfg.Memory {
		t.Fatal("memory mode should default to off")
	}
	if cfg.Transcription.Provider != "model" {
		t.Fatalf("provider = %q, want model", cfg.Transcription.Provider)
	}
	if cfg.Transcription.Model != "gpt-4o-mini-transcribe" {
		t.Fatalf("model = %q", cfg.Transcription.Model)
	}
	if cfg.Transcription.Timeout() != 120*time.Second {
		t.Fatalf("timeout = %v", cfg.Transcription.Timeout())
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexy.yaml")
	content := `
http_addr: 0.0.0.0:8080
data_dir: /var/lib/lexy
transcription:
  endpoint: http://localhost:3400/transcribe
  request_timeout_seconds: 30
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.Transcription.Provider != "endpoint" {
		t.Fatalf("provider = %q, want endpoint inferred from endpoint url", cfg.Transcription.Provider)
	}
	if cfg.Transcription.Timeout() != 30*time.Second {
		t.Fatalf("timeout = %v", cfg.Transcription.Timeout())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestNormalize(t *testing.T) {
	c := TranscriptionConfig{Provider: "  Model  ", Model: "  gpt-4o  "}
	c.Normalize()
	if c.Provider != "model" || c.Model != "gpt-4o" {
		t.Fatalf("normalize: %+v", c)
	}

	c = TranscriptionConfig{}
	c.Normalize()
	if c.Provider != "model" {
		t.Fatalf("empty config should default to the model provider, got %q", c.Provider)
	}
}

func TestFromMap(t *testing.T) {
	c := TranscriptionConfig{Provider: "model", Model: "gpt-4o-mini-transcribe"}
	err := c.FromMap(map[string]any{
		"provider": "endpoint",
		"endpoint": "http://localhost:3400/transcribe",
	})
	if err != nil {
		t.Fatalf("from map: %v", err)
	}
	if c.Provider != "endpoint" || c.Endpoint != "http://localhost:3400/transcribe" {
		t.Fatalf("settings not applied: %+v", c)
	}
	// untouched keys keep their values
	if c.Model != "gpt-4o-mini-transcribe" {
		t.Fatalf("model reset by partial update: %q", c.Model)
	}

	if err := c.FromMap(map[string]any{"temperature": "not-a-number"}); err == nil {
		t.Fatal("expected decode error for bad temperature")
	}
}

func TestPaths(t *testing.T) {
	cfg := Config{DataDir: "/var/lib/lexy"}
	if got := cfg.DatabasePath(); got != filepath.Join("/var/lib/lexy", "lexy.db") {
		t.Fatalf("database path = %q", got)
	}
	if got := cfg.SearchIndexPath(); got != filepath.Join("/var/lib/lexy", "search.bleve") {
		t.Fatalf("search index path = %q", got)
	}
	if got := cfg.AudioDir(); got != filepath.Join("/var/lib/lexy", "uploads") {
		t.Fatalf("audio dir = %q", got)
	}
}
