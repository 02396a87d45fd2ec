package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ttrsuite/lexeval/internal/checkpoint"
	"github.com/ttrsuite/lexeval/internal/consolidate"
	"github.com/ttrsuite/lexeval/internal/results"
)

type consolidateOptions struct {
	dir       string
	fromStore bool
	runs      []string
	output    string
}

func newConsolidateCmd(st *cliState) *cobra.Command {
	var opts consolidateOptions

	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Merge raw results into the ranked leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsolidate(st, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", "", "directory of raw result logs (default: configured results dir)")
	cmd.Flags().BoolVar(&opts.fromStore, "from-store", false, "read records from the checkpoint store instead of CSV logs")
	cmd.Flags().StringSliceVar(&opts.runs, "runs", nil, "restrict to these run ids")
	cmd.Flags().StringVar(&opts.output, "output", "", "write the consolidated report to this JSON file")

	return cmd
}

func runConsolidate(st *cliState, opts *consolidateOptions) error {
	if opts == nil {
		return fmt.Errorf("consolidate: nil options")
	}
	cfg, err := loadConfig(st)
	if err != nil {
		return err
	}

	dir := strings.TrimSpace(opts.dir)
	if dir == "" {
		dir = cfg.Storage.ResultsDir
	}

	var all []*results.ResultRecord
	if opts.fromStore {
		store, err := checkpoint.Open(cfg.Storage.CheckpointPath)
		if err != nil {
			return err
		}
		defer store.Close()
		all, err = consolidate.LoadStore(context.Background(), store, opts.runs)
		if err != nil {
			return err
		}
	} else {
		all, err = consolidate.LoadDir(dir)
		if err != nil {
			return err
		}
		if len(opts.runs) > 0 {
			keep := make(map[string]bool, len(opts.runs))
			for _, r := range opts.runs {
				keep[strings.TrimSpace(r)] = true
			}
			filtered := all[:0]
			for _, rec := range all {
				if keep[rec.RunID] {
					filtered = append(filtered, rec)
				}
			}
			all = filtered
		}
	}
	if len(all) == 0 {
		return fmt.Errorf("consolidate: no records matched")
	}

	report := consolidate.New(cfg).Consolidate(all)
	printLeaderboard(stdoutWriter, report)

	out := strings.TrimSpace(opts.output)
	if out == "" {
		out = filepath.Join(dir, "consolidated_results.json")
	}
	if err := consolidate.WriteJSON(report, out); err != nil {
		return err
	}
	fmt.Fprintf(stdoutWriter, "\nReport written to %s\n", out)
	return nil
}
