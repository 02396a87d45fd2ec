package task

import (
	"testing"

	"github.com/ttrsuite/lexeval/internal/config"
)

func TestFromConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Benchmarks: map[string]config.BenchmarkConfig{
			"legalbench": {Path: "data/legalbench"},
			"cuad":       {Path: "data/cuad.jsonl"},
		},
	}

	for _, name := range Names() {
		src, err := FromConfig(cfg, name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if src.Name() != name {
			t.Fatalf("%s: source named %q", name, src.Name())
		}
	}

	if _, err := FromConfig(cfg, "bar-exam"); err == nil {
		t.Fatalf("unknown benchmark accepted")
	}

	src, err := FromConfig(cfg, "legalbench")
	if err != nil {
		t.Fatalf("legalbench: %v", err)
	}
	if src.(*LegalBenchSource).Root != "data/legalbench" {
		t.Fatalf("configured path not wired: %+v", src)
	}
}
