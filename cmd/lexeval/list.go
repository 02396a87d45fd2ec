package main

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ttrsuite/lexeval/internal/checkpoint"
)

func newListCmd(st *cliState) *cobra.Command {
	var showRuns bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured models and benchmarks, or stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showRuns {
				return listRuns(st)
			}
			return listCatalog(st)
		},
	}

	cmd.Flags().BoolVar(&showRuns, "runs", false, "list runs in the checkpoint store")
	return cmd
}

func listCatalog(st *cliState) error {
	cfg, err := loadConfig(st)
	if err != nil {
		return err
	}

	models := make([]string, 0, len(cfg.Models))
	for name := range cfg.Models {
		models = append(models, name)
	}
	sort.Strings(models)

	tw := tabwriter.NewWriter(stdoutWriter, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tBACKEND\tTAG")
	for _, name := range models {
		m := cfg.Models[name]
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, m.Backend, m.Model)
	}
	tw.Flush()

	benchmarks := make([]string, 0, len(cfg.Benchmarks))
	for name := range cfg.Benchmarks {
		benchmarks = append(benchmarks, name)
	}
	sort.Strings(benchmarks)

	fmt.Fprintln(stdoutWriter)
	tw = tabwriter.NewWriter(stdoutWriter, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BENCHMARK\tSAMPLE\tQUICK")
	for _, name := range benchmarks {
		b := cfg.Benchmarks[name]
		fmt.Fprintf(tw, "%s\t%d\t%d\n", name, b.SampleSize, b.QuickSize)
	}
	tw.Flush()
	return nil
}

func listRuns(st *cliState) error {
	cfg, err := loadConfig(st)
	if err != nil {
		return err
	}

	store, err := checkpoint.Open(cfg.Storage.CheckpointPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(context.Background())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdoutWriter, "no runs stored")
		return nil
	}

	tw := tabwriter.NewWriter(stdoutWriter, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tMODELS\tTASKS\tSTARTED\tLAST")
	for _, info := range runs {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n",
			info.RunID, info.Models, info.Tasks,
			info.StartedAt.Format(time.RFC3339),
			info.LastAt.Format(time.RFC3339))
	}
	tw.Flush()
	return nil
}
