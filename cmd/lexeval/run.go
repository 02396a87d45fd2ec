package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ttrsuite/lexeval/internal/checkpoint"
	"github.com/ttrsuite/lexeval/internal/executor"
)

type runOptions struct {
	models     []string
	benchmarks []string
	quick      bool
	resume     string
	runID      string
	outputDir  string
	skipProbe  bool
}

func newRunCmd(st *cliState) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run benchmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmarks(st, &opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.models, "models", nil, "models to evaluate (default: all configured)")
	cmd.Flags().StringSliceVar(&opts.benchmarks, "benchmarks", nil, "benchmarks to run (default: all configured)")
	cmd.Flags().BoolVar(&opts.quick, "quick", false, "reduced sample sizes for a fast sanity pass")
	cmd.Flags().StringVar(&opts.resume, "resume", "", "run id to resume; completed tasks are skipped")
	cmd.Flags().StringVar(&opts.runID, "run-id", "", "explicit run id for a new run")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "directory for raw result logs (overrides config)")
	cmd.Flags().BoolVar(&opts.skipProbe, "skip-probe", false, "skip backend reachability checks")

	return cmd
}

func runBenchmarks(st *cliState, opts *runOptions) error {
	if opts == nil {
		return fmt.Errorf("run: nil options")
	}
	cfg, err := loadConfig(st)
	if err != nil {
		return err
	}

	resume := strings.TrimSpace(opts.resume)
	runID := strings.TrimSpace(opts.runID)
	if resume != "" && runID != "" && resume != runID {
		return fmt.Errorf("run: --resume and --run-id are mutually exclusive")
	}
	if resume != "" {
		runID = resume
	}

	store, err := checkpoint.Open(cfg.Storage.CheckpointPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logf := log.New(stderrWriter, "", log.LstdFlags)
	exec := executor.New(cfg, store, logf)

	report, err := exec.Run(ctx, executor.Options{
		Models:     opts.models,
		Benchmarks: opts.benchmarks,
		Quick:      opts.quick,
		Resume:     resume != "",
		RunID:      runID,
		SkipProbe:  opts.skipProbe,
		OutputDir:  opts.outputDir,
	})
	if report != nil {
		printRunSummary(stdoutWriter, report)
	}
	return err
}
