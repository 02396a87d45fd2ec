// Package consolidate merges raw result records from one or more runs
// into per-model summaries and a weighted composite ranking.
package consolidate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ttrsuite/lexeval/internal/checkpoint"
	"github.com/ttrsuite/lexeval/internal/config"
	"github.com/ttrsuite/lexeval/internal/results"
)

// CategorySummary aggregates one benchmark category for one model.
type CategorySummary struct {
	Tasks    int     `json:"tasks"`
	Correct  int     `json:"correct"`
	Failed   int     `json:"failed"`
	Accuracy float64 `json:"accuracy"`
}

// BenchmarkSummary aggregates one benchmark for one model. Accuracy is
// prompt-level; InstLevelAccuracy is the mean per-instruction ratio and
// only meaningful for instruction benchmarks.
type BenchmarkSummary struct {
	Tasks             int                        `json:"tasks"`
	Correct           int                        `json:"correct"`
	Failed            int                        `json:"failed"`
	Accuracy          float64                    `json:"accuracy"`
	InstLevelAccuracy float64                    `json:"inst_level_accuracy,omitempty"`
	MeanTokensPerSec  float64                    `json:"mean_tok_s"`
	Categories        map[string]CategorySummary `json:"categories,omitempty"`
}

// ModelSummary is one model's consolidated standing. Partial marks a
// model with no records for one or more expected benchmarks; its
// composite is not comparable with complete models.
type ModelSummary struct {
	ModelID    string                       `json:"model_id"`
	Backend    string                       `json:"backend"`
	Benchmarks map[string]*BenchmarkSummary `json:"benchmarks"`
	Composite  float64                      `json:"composite"`
	Partial    bool                         `json:"partial"`
}

// Report is the consolidated output across all merged runs.
type Report struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Runs        []string        `json:"runs"`
	Records     int             `json:"records"`
	ErrorPolicy string          `json:"error_policy"`
	Models      []*ModelSummary `json:"models"`
}

// Consolidator folds raw records into a Report.
type Consolidator struct {
	weights    map[string]float64
	policy     config.ErrorPolicy
	benchmarks []string
}

// New builds a Consolidator from run configuration. The configured
// benchmark set defines completeness: a model missing any of them is
// marked partial.
func New(cfg *config.Config) *Consolidator {
	c := &Consolidator{policy: config.ErrorPolicyCount}
	if cfg != nil {
		c.weights = cfg.Weights
		if cfg.Scoring.ErrorPolicy != "" {
			c.policy = cfg.Scoring.ErrorPolicy
		}
		for name := range cfg.Benchmarks {
			c.benchmarks = append(c.benchmarks, name)
		}
		sort.Strings(c.benchmarks)
	}
	return c
}

// Dedup keeps the newest record per (model, task), so re-runs override
// older attempts. Order is decided by timestamp, then run id.
func Dedup(records []*results.ResultRecord) []*results.ResultRecord {
	type dedupKey struct {
		modelID string
		taskID  string
	}
	latest := make(map[dedupKey]*results.ResultRecord, len(records))
	order := make([]dedupKey, 0, len(records))

	for _, rec := range records {
		if rec == nil {
			continue
		}
		k := dedupKey{modelID: rec.ModelID, taskID: rec.TaskID}
		prev, ok := latest[k]
		if !ok {
			latest[k] = rec
			order = append(order, k)
			continue
		}
		if newerThan(rec, prev) {
			latest[k] = rec
		}
	}

	out := make([]*results.ResultRecord, 0, len(latest))
	for _, k := range order {
		out = append(out, latest[k])
	}
	return out
}

func newerThan(a, b *results.ResultRecord) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	// Run ids are timestamp-prefixed, so the lexicographic tiebreak
	// still favors the later run.
	return a.RunID > b.RunID
}

// Consolidate dedups records and computes every model's summary.
func (c *Consolidator) Consolidate(records []*results.ResultRecord) *Report {
	deduped := Dedup(records)

	runSet := make(map[string]bool)
	models := make(map[string]*ModelSummary)

	for _, rec := range deduped {
		runSet[rec.RunID] = true

		ms, ok := models[rec.ModelID]
		if !ok {
			ms = &ModelSummary{
				ModelID:    rec.ModelID,
				Backend:    rec.Backend,
				Benchmarks: make(map[string]*BenchmarkSummary),
			}
			models[rec.ModelID] = ms
		}

		bs, ok := ms.Benchmarks[rec.Benchmark]
		if !ok {
			bs = &BenchmarkSummary{Categories: make(map[string]CategorySummary)}
			ms.Benchmarks[rec.Benchmark] = bs
		}
		c.fold(bs, rec)
	}

	report := &Report{
		GeneratedAt: time.Now().UTC(),
		Records:     len(deduped),
		ErrorPolicy: string(c.policy),
	}
	for run := range runSet {
		report.Runs = append(report.Runs, run)
	}
	sort.Strings(report.Runs)

	for _, ms := range models {
		c.finish(ms)
		report.Models = append(report.Models, ms)
	}
	sort.Slice(report.Models, func(i, j int) bool {
		a, b := report.Models[i], report.Models[j]
		if a.Partial != b.Partial {
			return !a.Partial
		}
		if a.Composite != b.Composite {
			return a.Composite > b.Composite
		}
		return a.ModelID < b.ModelID
	})
	return report
}

// fold adds one record to a benchmark summary, honoring the error
// policy: "count" keeps failed tasks in denominators at score zero,
// "exclude" drops them.
func (c *Consolidator) fold(bs *BenchmarkSummary, rec *results.ResultRecord) {
	failed := rec.Error != ""
	if failed && c.policy == config.ErrorPolicyExclude {
		bs.Failed++
		cat := bs.Categories[rec.Category]
		cat.Failed++
		bs.Categories[rec.Category] = cat
		return
	}

	bs.Tasks++
	bs.Accuracy += rec.Score // running sum, normalized in finish
	bs.InstLevelAccuracy += rec.InstLevelScore
	bs.MeanTokensPerSec += rec.TokensPerSec

	cat := bs.Categories[rec.Category]
	cat.Tasks++
	cat.Accuracy += rec.Score
	if failed {
		bs.Failed++
		cat.Failed++
	} else if rec.Correct {
		bs.Correct++
		cat.Correct++
	}
	bs.Categories[rec.Category] = cat
}

func (c *Consolidator) finish(ms *ModelSummary) {
	for _, bs := range ms.Benchmarks {
		if bs.Tasks > 0 {
			bs.Accuracy /= float64(bs.Tasks)
			bs.InstLevelAccuracy /= float64(bs.Tasks)
			bs.MeanTokensPerSec /= float64(bs.Tasks)
		}
		for name, cat := range bs.Categories {
			if cat.Tasks > 0 {
				cat.Accuracy /= float64(cat.Tasks)
			}
			bs.Categories[name] = cat
		}
	}

	for _, bench := range c.benchmarks {
		if _, ok := ms.Benchmarks[bench]; !ok {
			ms.Partial = true
			break
		}
	}

	ms.Composite = c.composite(ms)
}

// composite is the weighted mean over scoring units: every legalbench
// category counts as its own unit under a "legalbench:<category>"
// weight, every other benchmark counts whole under its own name.
func (c *Consolidator) composite(ms *ModelSummary) float64 {
	var sum, weightSum float64

	add := func(key string, accuracy float64) {
		w, ok := c.weights[key]
		if !ok {
			w = 1.0
		}
		if w <= 0 {
			return
		}
		sum += accuracy * w
		weightSum += w
	}

	for bench, bs := range ms.Benchmarks {
		if bench == "legalbench" && len(bs.Categories) > 0 {
			for cat, cs := range bs.Categories {
				if cs.Tasks == 0 {
					continue
				}
				add("legalbench:"+cat, cs.Accuracy)
			}
			continue
		}
		if bs.Tasks == 0 {
			continue
		}
		add(bench, bs.Accuracy)
	}

	if weightSum == 0 {
		return 0
	}
	return sum / weightSum
}

// LoadDir reads every raw results log under dir and merges the records.
func LoadDir(dir string) ([]*results.ResultRecord, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "raw_results_*.csv"))
	if err != nil {
		return nil, fmt.Errorf("consolidate: glob %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("consolidate: no result logs under %s", dir)
	}
	sort.Strings(paths)

	var out []*results.ResultRecord
	for _, p := range paths {
		recs, err := results.ReadLog(p)
		if err != nil {
			return nil, fmt.Errorf("consolidate: read %s: %w", filepath.Base(p), err)
		}
		out = append(out, recs...)
	}
	return out, nil
}

// LoadStore reads records for the given runs from the checkpoint store.
// An empty run list loads every run in the store.
func LoadStore(ctx context.Context, store checkpoint.Store, runIDs []string) ([]*results.ResultRecord, error) {
	if store == nil {
		return nil, errors.New("consolidate: nil store")
	}
	if len(runIDs) == 0 {
		runs, err := store.Runs(ctx)
		if err != nil {
			return nil, err
		}
		for _, info := range runs {
			runIDs = append(runIDs, info.RunID)
		}
	}

	var out []*results.ResultRecord
	for _, run := range runIDs {
		run = strings.TrimSpace(run)
		if run == "" {
			continue
		}
		recs, err := store.Records(ctx, run)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

// WriteJSON persists a report next to the raw logs.
func WriteJSON(report *Report, path string) error {
	if report == nil {
		return errors.New("consolidate: nil report")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("consolidate: create dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("consolidate: encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("consolidate: write report: %w", err)
	}
	return nil
}
