package scorer

import (
	"errors"
	"fmt"
	"strings"
)

// Result holds one scoring outcome. Parsed is the answer form the scorer
// actually compared, kept so records can be audited and re-scored offline.
type Result struct {
	Value   float64 // in [0,1]
	Correct bool
	Parsed  string
	Details map[string]float64
}

// Scorer is a pure function of (answer, ground truth, task metadata): no
// hidden state, no randomness, fully re-playable from a persisted record.
type Scorer interface {
	Name() string
	Score(answer, groundTruth string, metadata map[string]string) (Result, error)
}

// ErrAmbiguous marks inputs the scorer cannot compare. Callers surface it
// for manual audit instead of silently scoring zero.
var ErrAmbiguous = errors.New("ambiguous comparison")

// ForBenchmark returns the scoring strategy registered for a benchmark.
func ForBenchmark(benchmark string) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(benchmark)) {
	case "legalbench":
		return &Categorical{}, nil
	case "mmlupro":
		return &Categorical{}, nil
	case "cuad":
		return &SpanExtract{}, nil
	case "ifeval":
		return &Instruction{}, nil
	default:
		return nil, fmt.Errorf("scorer: no scorer for benchmark %q", benchmark)
	}
}

func boolScore(ok bool) (float64, bool) {
	if ok {
		return 1.0, true
	}
	return 0.0, false
}
