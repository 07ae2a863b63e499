package config_test

import (
	"os"
	"strings"
	"testing"

	"github.com/scmem/scmem/internal/config"
)

func TestLoadFromReader_AppliesDefaults(t *testing.T) {
	t.Parallel()
	yamlSrc := `
index:
  repo_path: /tmp/scmem-repo
`
	cfg, err := config.LoadFromReader(strings.NewReader(yamlSrc))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Index.MaxStringsChannels == 0 {
		t.Error("expected default MaxStringsChannels to be applied")
	}
	if cfg.Events.QueueSize != config.DefaultEventQueueSize {
		t.Errorf("QueueSize = %d, want %d", cfg.Events.QueueSize, config.DefaultEventQueueSize)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("LogLevel = %q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	t.Parallel()
	yamlSrc := `
index:
  repo_path: /tmp/scmem-repo
bogus_field: true
`
	_, err := config.LoadFromReader(strings.NewReader(yamlSrc))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadFromReader_PropagatesValidationErrors(t *testing.T) {
	t.Parallel()
	yamlSrc := `
server:
  log_level: shouting
index:
  repo_path: /tmp/scmem-repo
`
	_, err := config.LoadFromReader(strings.NewReader(yamlSrc))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := config.Load("/nonexistent/path/to/scmem.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := dir + "/scmem.yaml"
	yamlSrc := `
server:
  listen_addr: ":5678"
  metrics_addr: ":9090"
  log_level: debug
events:
  queue_size: 512
  concurrency: 16
index:
  repo_path: ` + dir + `
`
	if err := os.WriteFile(path, []byte(yamlSrc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddr != ":5678" {
		t.Errorf("ListenAddr = %q, want :5678", cfg.Server.ListenAddr)
	}
	if cfg.Events.Concurrency != 16 {
		t.Errorf("Concurrency = %d, want 16", cfg.Events.Concurrency)
	}
}
