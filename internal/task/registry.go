package task

import (
	"fmt"

	"github.com/ttrsuite/lexeval/internal/config"
)

// FromConfig resolves a benchmark name to its Source with the configured
// dataset path.
func FromConfig(cfg *config.Config, name string) (Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("task: nil config")
	}

	name = normalizeName(name)
	bc := cfg.Benchmarks[name]

	switch name {
	case "legalbench":
		return &LegalBenchSource{Root: bc.Path}, nil
	case "cuad":
		return &CUADSource{Path: bc.Path}, nil
	case "ifeval":
		return &IFEvalSource{Path: bc.Path}, nil
	case "mmlupro":
		return &MMLUProSource{Path: bc.Path}, nil
	default:
		return nil, fmt.Errorf("task: unknown benchmark %q", name)
	}
}

// Names lists the supported benchmarks in run order.
func Names() []string {
	return []string{"legalbench", "cuad", "ifeval", "mmlupro"}
}
