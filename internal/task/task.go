package task

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
)

// Task is one immutable evaluable prompt/ground-truth pair. The prompt is
// fully rendered; GroundTruth's format depends on the benchmark's scorer.
type Task struct {
	ID          string
	Benchmark   string
	Category    string
	Prompt      string
	GroundTruth string
	Metadata    map[string]string
}

// Options controls sampling. Seed is mandatory for comparability: every
// model must draw the identical ordered subset.
type Options struct {
	SampleSize int
	Seed       int64
}

// Source produces an ordered, deduplicated task sequence for one benchmark.
type Source interface {
	Name() string
	Load(ctx context.Context, opts Options) ([]Task, error)
}

// sampleSeeded returns up to n items drawn with a deterministic rng.
// Order of the returned slice is the draw order, stable for a fixed seed.
func sampleSeeded[T any](rng *rand.Rand, in []T, n int) []T {
	if n <= 0 || n >= len(in) {
		return in
	}
	idx := rng.Perm(len(in))[:n]
	out := make([]T, 0, n)
	for _, i := range idx {
		out = append(out, in[i])
	}
	return out
}

// perCategory splits a total sample size evenly across categories,
// at least one item each, so no category is silently starved.
func perCategory(total, categories int) int {
	if categories <= 0 {
		return total
	}
	n := total / categories
	if n < 1 {
		n = 1
	}
	return n
}

// dedupeByID drops later tasks whose ID repeats an earlier one, keeping
// load order.
func dedupeByID(in []Task) []Task {
	seen := make(map[string]bool, len(in))
	out := make([]Task, 0, len(in))
	for _, t := range in {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}

func taskID(benchmark string, idx int) string {
	return fmt.Sprintf("%s::%d", benchmark, idx)
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
