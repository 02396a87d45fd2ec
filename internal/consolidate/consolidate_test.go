package consolidate

import (
	"math"
	"testing"
	"time"

	"github.com/ttrsuite/lexeval/internal/config"
	"github.com/ttrsuite/lexeval/internal/results"
)

func rec(runID, modelID, benchmark, taskID, category string, score float64, errMsg string, ts time.Time) *results.ResultRecord {
	return &results.ResultRecord{
		RunID:     runID,
		ModelID:   modelID,
		Backend:   "ollama",
		Benchmark: benchmark,
		TaskID:    taskID,
		Category:  category,
		Score:     score,
		Correct:   score == 1.0,
		Error:     errMsg,
		Timestamp: ts,
	}
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestDedupLatestWins(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	in := []*results.ResultRecord{
		rec("run1", "m", "cuad", "cuad::0", "License-Grant", 0.0, "", t0),
		rec("run2", "m", "cuad", "cuad::0", "License-Grant", 1.0, "", t0.Add(time.Hour)),
		rec("run1", "m", "cuad", "cuad::1", "License-Grant", 1.0, "", t0),
	}

	out := Dedup(in)
	if len(out) != 2 {
		t.Fatalf("got %d records", len(out))
	}
	if out[0].RunID != "run2" || out[0].Score != 1.0 {
		t.Fatalf("older record won: %+v", out[0])
	}
}

func TestDedupRunIDTiebreak(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	in := []*results.ResultRecord{
		rec("run_20260801_a", "m", "cuad", "cuad::0", "License-Grant", 0.0, "", ts),
		rec("run_20260802_b", "m", "cuad", "cuad::0", "License-Grant", 1.0, "", ts),
	}
	out := Dedup(in)
	if len(out) != 1 || out[0].RunID != "run_20260802_b" {
		t.Fatalf("tiebreak: %+v", out[0])
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Benchmarks: map[string]config.BenchmarkConfig{
			"legalbench": {},
			"cuad":       {},
		},
		Scoring: config.ScoringConfig{ErrorPolicy: config.ErrorPolicyCount},
		Weights: map[string]float64{
			"legalbench:issue-spotting": 3.0,
			"cuad":                      3.0,
		},
	}
}

func TestConsolidateAggregates(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	in := []*results.ResultRecord{
		rec("run1", "m", "legalbench", "legalbench::0", "issue-spotting", 1.0, "", ts),
		rec("run1", "m", "legalbench", "legalbench::1", "issue-spotting", 0.0, "", ts),
		rec("run1", "m", "cuad", "cuad::0", "License-Grant", 1.0, "", ts),
		rec("run1", "m", "cuad", "cuad::1", "License-Grant", 1.0, "", ts),
	}

	report := New(testConfig()).Consolidate(in)
	if len(report.Models) != 1 {
		t.Fatalf("got %d models", len(report.Models))
	}

	ms := report.Models[0]
	if ms.Partial {
		t.Fatalf("complete model marked partial")
	}

	lb := ms.Benchmarks["legalbench"]
	if lb.Tasks != 2 || !almostEqual(lb.Accuracy, 0.5) {
		t.Fatalf("legalbench: tasks=%d accuracy=%v", lb.Tasks, lb.Accuracy)
	}
	cat := lb.Categories["issue-spotting"]
	if cat.Tasks != 2 || cat.Correct != 1 || !almostEqual(cat.Accuracy, 0.5) {
		t.Fatalf("category: %+v", cat)
	}

	// Composite: (0.5*3 + 1.0*3) / 6 = 0.75.
	if !almostEqual(ms.Composite, 0.75) {
		t.Fatalf("composite: %v", ms.Composite)
	}
}

func TestConsolidateErrorPolicies(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	in := []*results.ResultRecord{
		rec("run1", "m", "cuad", "cuad::0", "License-Grant", 1.0, "", ts),
		rec("run1", "m", "cuad", "cuad::1", "License-Grant", 0.0, "timeout after 5m0s", ts),
	}

	{
		cfg := testConfig()
		report := New(cfg).Consolidate(in)
		bs := report.Models[0].Benchmarks["cuad"]
		if bs.Tasks != 2 || !almostEqual(bs.Accuracy, 0.5) || bs.Failed != 1 {
			t.Fatalf("count policy: tasks=%d accuracy=%v failed=%d", bs.Tasks, bs.Accuracy, bs.Failed)
		}
	}
	{
		cfg := testConfig()
		cfg.Scoring.ErrorPolicy = config.ErrorPolicyExclude
		report := New(cfg).Consolidate(in)
		bs := report.Models[0].Benchmarks["cuad"]
		if bs.Tasks != 1 || !almostEqual(bs.Accuracy, 1.0) || bs.Failed != 1 {
			t.Fatalf("exclude policy: tasks=%d accuracy=%v failed=%d", bs.Tasks, bs.Accuracy, bs.Failed)
		}
	}
}

func TestConsolidateInstructionLevel(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	a := rec("run1", "m", "ifeval", "ifeval::0", "", 0.0, "", ts)
	a.InstLevelScore = 0.5
	b := rec("run1", "m", "ifeval", "ifeval::1", "", 1.0, "", ts)
	b.InstLevelScore = 1.0

	cfg := testConfig()
	cfg.Benchmarks["ifeval"] = config.BenchmarkConfig{}

	report := New(cfg).Consolidate([]*results.ResultRecord{a, b})
	bs := report.Models[0].Benchmarks["ifeval"]
	if !almostEqual(bs.Accuracy, 0.5) {
		t.Fatalf("prompt-level accuracy: %v", bs.Accuracy)
	}
	if !almostEqual(bs.InstLevelAccuracy, 0.75) {
		t.Fatalf("instruction-level accuracy: %v", bs.InstLevelAccuracy)
	}
}

func TestConsolidatePartialModel(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	in := []*results.ResultRecord{
		rec("run1", "complete", "legalbench", "legalbench::0", "issue-spotting", 1.0, "", ts),
		rec("run1", "complete", "cuad", "cuad::0", "License-Grant", 0.0, "", ts),
		rec("run1", "partial", "cuad", "cuad::0", "License-Grant", 1.0, "", ts),
	}

	report := New(testConfig()).Consolidate(in)
	if len(report.Models) != 2 {
		t.Fatalf("got %d models", len(report.Models))
	}

	// Complete models rank above partial ones regardless of composite.
	if report.Models[0].ModelID != "complete" || report.Models[0].Partial {
		t.Fatalf("first: %+v", report.Models[0])
	}
	if report.Models[1].ModelID != "partial" || !report.Models[1].Partial {
		t.Fatalf("second: %+v", report.Models[1])
	}
}
