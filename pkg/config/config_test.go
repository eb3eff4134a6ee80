package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Gateway.Port != 18790 {
		t.Errorf("Port = %d, want 18790", cfg.Gateway.Port)
	}
	if cfg.Transcript.ChunkSize != 1500 {
		t.Errorf("Transcript.ChunkSize = %d, want 1500", cfg.Transcript.ChunkSize)
	}
	if cfg.Summarizer.Provider != "anthropic" {
		t.Errorf("Summarizer.Provider = %q, want %q", cfg.Summarizer.Provider, "anthropic")
	}
}

func TestLoadNonExistent(t *testing.T) {
	cfg, err := Load("/tmp/nonexistent-meetingmcp-config.toml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Gateway.Port != 18790 {
		t.Errorf("Port = %d, want 18790", cfg.Gateway.Port)
	}
}

func TestLoadValid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meetingmcp.toml")

	content := `
[gateway]
port = 9999
bind = "lan"

[summarizer]
provider = "openai"
model = "gpt-4o"

[transcript]
chunk_size = 800

[jira]
base_url = "https://example.atlassian.net"
project = "MEET"

[notify.slack]
enabled = true
webhook_url = "https://hooks.slack.com/services/T/B/X"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateway.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Gateway.Port)
	}
	if cfg.Gateway.Bind != "lan" {
		t.Errorf("Bind = %q, want %q", cfg.Gateway.Bind, "lan")
	}
	if cfg.Summarizer.Model != "gpt-4o" {
		t.Errorf("Model = %q, want %q", cfg.Summarizer.Model, "gpt-4o")
	}
	if cfg.Transcript.ChunkSize != 800 {
		t.Errorf("ChunkSize = %d, want 800", cfg.Transcript.ChunkSize)
	}
	if cfg.Jira.Project != "MEET" {
		t.Errorf("Jira.Project = %q, want %q", cfg.Jira.Project, "MEET")
	}
	sink, ok := cfg.Notify["slack"]
	if !ok || !sink.Enabled {
		t.Errorf("Notify[slack] = %+v, want enabled sink", sink)
	}
}

func TestLoadZeroChunkSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meetingmcp.toml")
	os.WriteFile(path, []byte("[transcript]\nchunk_size = 0\n"), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Transcript.ChunkSize != 1500 {
		t.Errorf("ChunkSize = %d, want fallback 1500", cfg.Transcript.ChunkSize)
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	os.WriteFile(path, []byte("not [valid toml"), 0644)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestCurrent(t *testing.T) {
	cfg := Current()
	if cfg == nil {
		t.Fatal("Current returned nil")
	}
}

func TestDataDir(t *testing.T) {
	dir := DataDir()
	if dir == "" {
		t.Fatal("DataDir returned empty")
	}
}

func TestDataDirEnv(t *testing.T) {
	t.Setenv("MEETINGMCP_DATA_DIR", "/tmp/custom-meetingmcp")
	dir := DataDir()
	if dir != "/tmp/custom-meetingmcp" {
		t.Errorf("DataDir = %q, want /tmp/custom-meetingmcp", dir)
	}
}
