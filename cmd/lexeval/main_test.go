package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ttrsuite/lexeval/internal/config"
	"github.com/ttrsuite/lexeval/internal/consolidate"
	"github.com/ttrsuite/lexeval/internal/executor"
	"github.com/ttrsuite/lexeval/internal/results"
)

func saveCLIGlobals(t *testing.T) func() {
	t.Helper()

	oldOsExit := osExit
	oldStderr := stderrWriter
	oldStdout := stdoutWriter

	return func() {
		osExit = oldOsExit
		stderrWriter = oldStderr
		stdoutWriter = oldStdout
	}
}

func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	restore := saveCLIGlobals(t)
	t.Cleanup(restore)

	outBuf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	stdoutWriter = outBuf
	stderrWriter = errBuf
	return outBuf, errBuf
}

func testCLIConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Models: map[string]config.ModelConfig{
			"m1": {Backend: "ollama", Model: "m1:latest"},
		},
		Benchmarks: map[string]config.BenchmarkConfig{
			"cuad": {SampleSize: 4, QuickSize: 2},
		},
		Run:     config.RunConfig{Seed: 42, Timeout: time.Second},
		Storage: config.StorageConfig{ResultsDir: t.TempDir(), CheckpointPath: ":memory:"},
	}
}

func TestNewRootCmd_Wiring(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	if root.Use != "lexeval" || !root.SilenceErrors || !root.SilenceUsage {
		t.Fatalf("root: %+v", root)
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Fatalf("missing --config flag")
	}

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "consolidate", "list"} {
		if !names[want] {
			t.Fatalf("missing subcommand %q (have %v)", want, names)
		}
	}
}

func TestLoadConfig_PrefersCachedConfig(t *testing.T) {
	t.Parallel()

	cfg := testCLIConfig(t)
	st := &cliState{cfg: cfg}

	got, err := loadConfig(st)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if got != cfg {
		t.Fatalf("cached config not reused")
	}
}

func TestLoadConfig_BuiltinFallback(t *testing.T) {
	dir := t.TempDir()
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldwd) })

	cfg, err := loadConfig(&cliState{})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if len(cfg.Models) == 0 || len(cfg.Benchmarks) == 0 {
		t.Fatalf("built-in catalog empty: %+v", cfg)
	}
}

func TestRunCmd_ResumeRunIDConflict(t *testing.T) {
	t.Parallel()

	st := &cliState{cfg: testCLIConfig(t)}
	err := runBenchmarks(st, &runOptions{resume: "run_a", runID: "run_b"})
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("got %v", err)
	}
}

func TestRunCmd_UnknownModelRejected(t *testing.T) {
	captureOutput(t)

	st := &cliState{cfg: testCLIConfig(t)}
	err := runBenchmarks(st, &runOptions{models: []string{"nope"}})
	if err == nil || !strings.Contains(err.Error(), "unknown model") {
		t.Fatalf("got %v", err)
	}
}

func TestListCatalog(t *testing.T) {
	out, _ := captureOutput(t)

	st := &cliState{cfg: testCLIConfig(t)}
	if err := listCatalog(st); err != nil {
		t.Fatalf("listCatalog: %v", err)
	}

	text := out.String()
	for _, want := range []string{"MODEL", "BENCHMARK", "m1", "ollama", "cuad"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}

func TestListRuns_EmptyStore(t *testing.T) {
	out, _ := captureOutput(t)

	st := &cliState{cfg: testCLIConfig(t)}
	if err := listRuns(st); err != nil {
		t.Fatalf("listRuns: %v", err)
	}
	if !strings.Contains(out.String(), "no runs stored") {
		t.Fatalf("output: %q", out.String())
	}
}

func TestConsolidateCmd_NoRecords(t *testing.T) {
	captureOutput(t)

	cfg := testCLIConfig(t)
	st := &cliState{cfg: cfg}
	err := runConsolidate(st, &consolidateOptions{dir: cfg.Storage.ResultsDir})
	if err == nil {
		t.Fatalf("expected error for empty results dir")
	}
}

func TestConsolidateCmd_FromLogs(t *testing.T) {
	out, _ := captureOutput(t)

	cfg := testCLIConfig(t)
	dir := cfg.Storage.ResultsDir

	lw, err := results.NewLogWriter(results.LogPath(dir, "run1"))
	if err != nil {
		t.Fatalf("NewLogWriter: %v", err)
	}
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	recs := []*results.ResultRecord{
		{RunID: "run1", ModelID: "m1", Backend: "ollama", Benchmark: "cuad",
			TaskID: "cuad::0", Category: "License-Grant", Score: 1.0, Correct: true, Timestamp: ts},
		{RunID: "run1", ModelID: "m1", Backend: "ollama", Benchmark: "cuad",
			TaskID: "cuad::1", Category: "License-Grant", Score: 0.0, Timestamp: ts},
	}
	for _, r := range recs {
		if err := lw.Append(r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := lw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	outPath := filepath.Join(dir, "report.json")
	st := &cliState{cfg: cfg}
	if err := runConsolidate(st, &consolidateOptions{dir: dir, output: outPath}); err != nil {
		t.Fatalf("runConsolidate: %v", err)
	}

	if !strings.Contains(out.String(), "m1") {
		t.Fatalf("leaderboard missing model:\n%s", out.String())
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report consolidate.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(report.Models) != 1 || report.Models[0].ModelID != "m1" {
		t.Fatalf("report: %+v", report.Models)
	}
}

func TestPrintRunSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	report := &executor.RunReport{
		RunID:    "run1",
		Duration: 3 * time.Second,
		LogPath:  "results/raw_results_run1.csv",
		Models: []executor.ModelReport{
			{
				ModelID: "m1",
				Backend: "ollama",
				Benchmarks: []executor.BenchmarkReport{
					{Benchmark: "cuad", Total: 2, Completed: 1, Failed: 1, ScoreSum: 1.0},
				},
			},
			{ModelID: "m2", Unreachable: true, ProbeError: "connection refused"},
		},
	}
	printRunSummary(&buf, report)

	text := buf.String()
	for _, want := range []string{"run1", "m1", "cuad", "50.0%", "m2: backend unreachable"} {
		if !strings.Contains(text, want) {
			t.Fatalf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestPrintLeaderboard(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	report := &consolidate.Report{
		Runs:        []string{"run1"},
		Records:     2,
		ErrorPolicy: "count",
		Models: []*consolidate.ModelSummary{
			{
				ModelID:   "m1",
				Composite: 0.75,
				Benchmarks: map[string]*consolidate.BenchmarkSummary{
					"cuad": {Tasks: 2, Accuracy: 0.75},
				},
			},
			{ModelID: "m2", Partial: true},
		},
	}
	printLeaderboard(&buf, report)

	text := buf.String()
	for _, want := range []string{"RANK", "m1", "75.0%", "m2 (partial)"} {
		if !strings.Contains(text, want) {
			t.Fatalf("leaderboard missing %q:\n%s", want, text)
		}
	}
}

func TestMain_UnknownCommandExits1(t *testing.T) {
	restore := saveCLIGlobals(t)
	t.Cleanup(restore)

	errBuf := &bytes.Buffer{}
	stderrWriter = errBuf
	stdoutWriter = io.Discard

	oldArgs := append([]string(nil), os.Args...)
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = []string{"lexeval", "bogus"}

	exitCode := 0
	osExit = func(code int) { exitCode = code }

	main()

	if exitCode != 1 {
		t.Fatalf("exit: got %d want 1", exitCode)
	}
	if errBuf.Len() == 0 {
		t.Fatalf("expected error output")
	}
}
