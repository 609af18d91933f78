package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 8787 {
		t.Errorf("server = %+v, want 127.0.0.1:8787", cfg.Server)
	}
	if cfg.LLM.Provider != "" {
		t.Errorf("llm provider = %q, want unset", cfg.LLM.Provider)
	}
	if cfg.Retrieval.DecayRate != 0.01 {
		t.Errorf("decay_rate = %v, want 0.01", cfg.Retrieval.DecayRate)
	}
	if cfg.Retrieval.Attempts != 5 || cfg.Retrieval.RetryDelay != 2*time.Second {
		t.Errorf("retry settings = %+v, want 5 attempts / 2s", cfg.Retrieval)
	}
	if !cfg.Retrieval.MultiQuery {
		t.Error("multi_query default = false, want true")
	}
	if cfg.Ingest.ChunkSize != 512 || cfg.Ingest.ChunkOverlap != 50 {
		t.Errorf("ingest = %+v, want 512/50", cfg.Ingest)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log_level = %q, want info", cfg.LogLevel)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 9090
llm:
  provider: ollama
  model: llama3.2
retrieval:
  decay_rate: 0.05
  retry_delay: 5s
  multi_query: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr() != "0.0.0.0:9090" {
		t.Errorf("ListenAddr = %q, want 0.0.0.0:9090", cfg.ListenAddr())
	}
	if cfg.LLM.Provider != "ollama" || cfg.LLM.Model != "llama3.2" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.Retrieval.DecayRate != 0.05 {
		t.Errorf("decay_rate = %v, want 0.05", cfg.Retrieval.DecayRate)
	}
	if cfg.Retrieval.RetryDelay != 5*time.Second {
		t.Errorf("retry_delay = %v, want 5s", cfg.Retrieval.RetryDelay)
	}
	if cfg.Retrieval.MultiQuery {
		t.Error("multi_query = true, want false")
	}
	// Untouched keys keep their defaults.
	if cfg.Retrieval.Attempts != 5 {
		t.Errorf("attempts = %d, want default 5", cfg.Retrieval.Attempts)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("RECALL_SERVER_PORT", "7000")
	t.Setenv("RECALL_LLM_PROVIDER", "anthropic")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("port = %d, want env override 7000", cfg.Server.Port)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("provider = %q, want anthropic", cfg.LLM.Provider)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for explicit missing config file")
	}
}
