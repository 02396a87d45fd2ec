package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if len(cfg.Models) == 0 {
		t.Fatalf("no models in default catalog")
	}
	for _, name := range []string{"legalbench", "cuad", "ifeval", "mmlupro"} {
		if _, ok := cfg.Benchmarks[name]; !ok {
			t.Fatalf("benchmark %s missing from defaults", name)
		}
	}
	if cfg.Run.Seed != 42 {
		t.Fatalf("seed: got %d", cfg.Run.Seed)
	}
	if cfg.Scoring.ErrorPolicy != ErrorPolicyCount {
		t.Fatalf("error policy: got %q", cfg.Scoring.ErrorPolicy)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Fatalf("ollama url: got %q", cfg.Ollama.BaseURL)
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
models:
  test-model:
    backend: ollama
    model: qwen3:14b
run:
  seed: 7
scoring:
  error_policy: exclude
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Run.Seed != 7 {
		t.Fatalf("seed: got %d", cfg.Run.Seed)
	}
	if cfg.Scoring.ErrorPolicy != ErrorPolicyExclude {
		t.Fatalf("error policy: got %q", cfg.Scoring.ErrorPolicy)
	}
	// Unset sections fall back to defaults.
	if cfg.Ollama.Timeout != 300*time.Second {
		t.Fatalf("ollama timeout: got %v", cfg.Ollama.Timeout)
	}
	if _, ok := cfg.Benchmarks["cuad"]; !ok {
		t.Fatalf("default benchmarks not applied")
	}
}

func TestLoadRejectsBadErrorPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
models:
  m:
    backend: ollama
    model: x
scoring:
  error_policy: sometimes
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "error_policy") {
		t.Fatalf("got err=%v", err)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
models:
  m:
    backend: carrier-pigeon
    model: x
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("unknown backend accepted")
	}
}

func TestSampleSize(t *testing.T) {
	cfg := Default()

	if got := cfg.SampleSize("legalbench", false); got != 24 {
		t.Fatalf("full: got %d", got)
	}
	if got := cfg.SampleSize("legalbench", true); got != 12 {
		t.Fatalf("quick: got %d", got)
	}
	if got := cfg.SampleSize("mmlupro", false); got != 200 {
		t.Fatalf("mmlupro: got %d", got)
	}
	if got := cfg.SampleSize("unknown", false); got != 20 {
		t.Fatalf("unknown benchmark fallback: got %d", got)
	}
}

func TestAnthropicKeyFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	cfg := Default()
	if cfg.Anthropic.APIKey != "sk-test" {
		t.Fatalf("api key: got %q", cfg.Anthropic.APIKey)
	}
}
