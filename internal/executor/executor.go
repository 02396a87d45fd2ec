// Package executor drives benchmark runs: it walks the selected models
// and benchmarks sequentially, generates one completion per task, scores
// it, and checkpoints every outcome before advancing.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ttrsuite/lexeval/internal/backend"
	"github.com/ttrsuite/lexeval/internal/checkpoint"
	"github.com/ttrsuite/lexeval/internal/config"
	"github.com/ttrsuite/lexeval/internal/results"
	"github.com/ttrsuite/lexeval/internal/scorer"
	"github.com/ttrsuite/lexeval/internal/task"
)

// TaskState tracks a single task through its lifecycle.
type TaskState string

const (
	StatePending   TaskState = "PENDING"
	StateRunning   TaskState = "RUNNING"
	StateCompleted TaskState = "COMPLETED"
	StateFailed    TaskState = "FAILED"
	StateSkipped   TaskState = "SKIPPED"
)

// Options selects what a run covers. Zero values mean "everything in
// the config": all configured models, all configured benchmarks, full
// sample sizes, a fresh run.
type Options struct {
	Models     []string
	Benchmarks []string
	Quick      bool
	Resume     bool
	RunID      string
	SkipProbe  bool
	OutputDir  string
}

// TaskOutcome is the in-memory trace of one task execution.
type TaskOutcome struct {
	TaskID string
	State  TaskState
	Record *results.ResultRecord
}

// BenchmarkReport aggregates one model's pass over one benchmark.
type BenchmarkReport struct {
	Benchmark     string
	Total         int
	Completed     int
	Failed        int
	Skipped       int
	Correct       int
	ScoreSum      float64
	ExcludeErrors bool
	Outcomes      []TaskOutcome
}

// Accuracy is the mean score under the configured error policy: failed
// tasks count at zero in the denominator unless the policy excludes them.
func (r *BenchmarkReport) Accuracy() float64 {
	attempted := r.Completed
	if !r.ExcludeErrors {
		attempted += r.Failed
	}
	if attempted == 0 {
		return 0
	}
	return r.ScoreSum / float64(attempted)
}

// ModelReport aggregates one model's run across benchmarks.
type ModelReport struct {
	ModelID     string
	Backend     string
	Unreachable bool
	ProbeError  string
	Benchmarks  []BenchmarkReport
}

// RunReport is the result of a full Run invocation.
type RunReport struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Models    []ModelReport
	LogPath   string
}

// backendFactory builds a Backend for a configured model. Swappable in
// tests.
type backendFactory func(cfg *config.Config, name string) (backend.Backend, error)

// sourceFactory builds a task Source for a configured benchmark.
type sourceFactory func(cfg *config.Config, name string) (task.Source, error)

// Executor owns the run loop. It is not safe for concurrent Run calls.
type Executor struct {
	cfg   *config.Config
	store checkpoint.Store
	logf  *log.Logger

	newBackend backendFactory
	newSource  sourceFactory
}

// New creates an Executor over cfg and a checkpoint store.
func New(cfg *config.Config, store checkpoint.Store, logf *log.Logger) *Executor {
	if logf == nil {
		logf = log.Default()
	}
	return &Executor{
		cfg:        cfg,
		store:      store,
		logf:       logf,
		newBackend: backend.FromConfig,
		newSource:  task.FromConfig,
	}
}

// NewRunID returns a fresh run identifier. Timestamp first so run ids
// sort chronologically; a short random suffix keeps same-second runs
// distinct.
func NewRunID() string {
	return fmt.Sprintf("run_%s_%s",
		time.Now().UTC().Format("20060102_150405"),
		uuid.NewString()[:8])
}

// Run executes every selected model over every selected benchmark,
// sequentially. A model whose backend probe fails is reported
// unreachable and skipped whole; per-task errors are recorded and the
// run continues. Each outcome is checkpointed and logged before the
// next task starts.
func (e *Executor) Run(ctx context.Context, opts Options) (*RunReport, error) {
	if e == nil || e.cfg == nil {
		return nil, errors.New("executor: nil executor")
	}
	if ctx == nil {
		return nil, errors.New("executor: nil context")
	}
	if e.store == nil {
		return nil, errors.New("executor: nil checkpoint store")
	}

	models, err := e.selectModels(opts.Models)
	if err != nil {
		return nil, err
	}
	benchmarks, err := e.selectBenchmarks(opts.Benchmarks)
	if err != nil {
		return nil, err
	}

	runID := strings.TrimSpace(opts.RunID)
	if runID == "" {
		if opts.Resume {
			return nil, errors.New("executor: resume requires a run id")
		}
		runID = NewRunID()
	}

	outDir := strings.TrimSpace(opts.OutputDir)
	if outDir == "" {
		outDir = e.cfg.Storage.ResultsDir
	}
	logw, err := results.NewLogWriter(results.LogPath(outDir, runID))
	if err != nil {
		return nil, fmt.Errorf("executor: open results log: %w", err)
	}
	defer logw.Close()

	report := &RunReport{
		RunID:     runID,
		StartedAt: time.Now(),
		LogPath:   results.LogPath(outDir, runID),
	}

	e.logf.Printf("run %s: %d models, %d benchmarks (quick=%v resume=%v)",
		runID, len(models), len(benchmarks), opts.Quick, opts.Resume)

	for _, modelID := range models {
		mr, err := e.runModel(ctx, runID, modelID, benchmarks, opts, logw)
		if err != nil {
			return report, err
		}
		report.Models = append(report.Models, *mr)
	}

	report.Duration = time.Since(report.StartedAt)
	e.logf.Printf("run %s: finished in %s", runID, report.Duration.Round(time.Second))
	return report, nil
}

func (e *Executor) runModel(ctx context.Context, runID, modelID string, benchmarks []string, opts Options, logw *results.LogWriter) (*ModelReport, error) {
	mc := e.cfg.Models[modelID]
	mr := &ModelReport{ModelID: modelID, Backend: mc.Backend}

	be, err := e.newBackend(e.cfg, modelID)
	if err != nil {
		mr.Unreachable = true
		mr.ProbeError = err.Error()
		e.logf.Printf("model %s: %v, skipping", modelID, err)
		return mr, nil
	}

	if !opts.SkipProbe {
		if err := be.Probe(ctx); err != nil {
			if ctx.Err() != nil {
				return mr, ctx.Err()
			}
			mr.Unreachable = true
			mr.ProbeError = err.Error()
			e.logf.Printf("model %s: backend unreachable (%v), skipping", modelID, err)
			return mr, nil
		}
	}

	for _, bench := range benchmarks {
		br, err := e.runBenchmark(ctx, runID, modelID, mc.Backend, be, bench, opts, logw)
		if err != nil {
			return mr, err
		}
		mr.Benchmarks = append(mr.Benchmarks, *br)
	}
	return mr, nil
}

func (e *Executor) runBenchmark(ctx context.Context, runID, modelID, backendName string, be backend.Backend, bench string, opts Options, logw *results.LogWriter) (*BenchmarkReport, error) {
	br := &BenchmarkReport{
		Benchmark:     bench,
		ExcludeErrors: e.cfg.Scoring.ErrorPolicy == config.ErrorPolicyExclude,
	}

	src, err := e.newSource(e.cfg, bench)
	if err != nil {
		return br, fmt.Errorf("executor: benchmark %s: %w", bench, err)
	}

	tasks, err := src.Load(ctx, task.Options{
		SampleSize: e.cfg.SampleSize(bench, opts.Quick),
		Seed:       e.cfg.Run.Seed,
	})
	if err != nil {
		return br, fmt.Errorf("executor: load %s: %w", bench, err)
	}

	sc, err := scorer.ForBenchmark(bench)
	if err != nil {
		return br, fmt.Errorf("executor: %w", err)
	}

	br.Total = len(tasks)
	e.logf.Printf("model %s: benchmark %s: %d tasks", modelID, bench, len(tasks))

	for i := range tasks {
		t := &tasks[i]
		if ctx.Err() != nil {
			return br, ctx.Err()
		}

		key := results.Key{RunID: runID, ModelID: modelID, TaskID: t.ID}
		if opts.Resume && e.store.Contains(key) {
			br.Skipped++
			br.Outcomes = append(br.Outcomes, TaskOutcome{TaskID: t.ID, State: StateSkipped})
			continue
		}

		rec := e.executeTask(ctx, runID, modelID, backendName, be, sc, t)

		if err := e.store.Append(ctx, rec); err != nil {
			return br, fmt.Errorf("executor: checkpoint %s: %w", t.ID, err)
		}
		if err := logw.Append(rec); err != nil {
			return br, fmt.Errorf("executor: log %s: %w", t.ID, err)
		}

		state := StateCompleted
		if rec.Error != "" {
			state = StateFailed
			br.Failed++
		} else {
			br.Completed++
			br.ScoreSum += rec.Score
			if rec.Correct {
				br.Correct++
			}
		}
		br.Outcomes = append(br.Outcomes, TaskOutcome{TaskID: t.ID, State: state, Record: rec})
	}

	e.logf.Printf("model %s: benchmark %s: %d completed, %d failed, %d skipped",
		modelID, bench, br.Completed, br.Failed, br.Skipped)
	return br, nil
}

// executeTask runs one task end to end. It never returns an error:
// failures are folded into the record so the run can go on.
func (e *Executor) executeTask(ctx context.Context, runID, modelID, backendName string, be backend.Backend, sc scorer.Scorer, t *task.Task) *results.ResultRecord {
	rec := &results.ResultRecord{
		RunID:       runID,
		ModelID:     modelID,
		Backend:     backendName,
		Benchmark:   t.Benchmark,
		TaskID:      t.ID,
		Category:    t.Category,
		Prompt:      t.Prompt,
		GroundTruth: t.GroundTruth,
		Timestamp:   time.Now().UTC(),
	}

	timeout := e.cfg.Run.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	gen, err := be.Generate(taskCtx, &backend.GenerateRequest{
		Prompt: t.Prompt,
		Seed:   e.cfg.Run.Seed,
	})
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			rec.Error = fmt.Sprintf("timeout after %s", timeout)
		case errors.Is(err, backend.ErrEmptyResponse):
			rec.Error = "malformed response: empty completion"
		default:
			rec.Error = err.Error()
		}
		return rec
	}

	rec.RawResponse = gen.Text
	rec.LatencyMs = gen.LatencyMs
	rec.TokensGenerated = gen.TokensGenerated
	rec.ThinkingTokens = gen.ThinkingTokens
	rec.TokensPerSec = gen.TokensPerSec

	if strings.TrimSpace(gen.Text) == "" {
		rec.Error = "malformed response: empty completion"
		return rec
	}

	res, err := sc.Score(gen.Text, t.GroundTruth, t.Metadata)
	if err != nil {
		if errors.Is(err, scorer.ErrAmbiguous) {
			rec.Error = fmt.Sprintf("scoring ambiguity: %v", err)
		} else {
			rec.Error = fmt.Sprintf("scoring: %v", err)
		}
		return rec
	}

	rec.Score = res.Value
	rec.Correct = res.Correct
	rec.ParsedAnswer = res.Parsed
	// Instruction benchmarks carry a second granularity: the per-instruction
	// satisfaction ratio alongside the all-or-nothing prompt-level score.
	if v, ok := res.Details["instruction_level"]; ok {
		rec.InstLevelScore = v
	}
	return rec
}

func (e *Executor) selectModels(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return sortedKeys(e.cfg.Models), nil
	}
	out := make([]string, 0, len(requested))
	for _, name := range requested {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := e.cfg.Models[name]; !ok {
			return nil, fmt.Errorf("executor: unknown model %q", name)
		}
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil, errors.New("executor: no models selected")
	}
	return out, nil
}

func (e *Executor) selectBenchmarks(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return sortedKeys(e.cfg.Benchmarks), nil
	}
	out := make([]string, 0, len(requested))
	for _, name := range requested {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := e.cfg.Benchmarks[name]; !ok {
			return nil, fmt.Errorf("executor: unknown benchmark %q", name)
		}
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil, errors.New("executor: no benchmarks selected")
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
