package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/ttrsuite/lexeval/internal/consolidate"
	"github.com/ttrsuite/lexeval/internal/executor"
)

// printRunSummary renders the post-run table: one row per model and
// benchmark, plus unreachable models at the bottom.
func printRunSummary(w io.Writer, report *executor.RunReport) {
	if report == nil {
		return
	}

	fmt.Fprintf(w, "\nRun %s (%s)\n", report.RunID, report.Duration.Round(time.Second))
	fmt.Fprintf(w, "Raw results: %s\n\n", report.LogPath)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tBENCHMARK\tDONE\tFAILED\tSKIPPED\tACCURACY")

	for _, mr := range report.Models {
		if mr.Unreachable {
			continue
		}
		for _, br := range mr.Benchmarks {
			fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d\t%d\t%.1f%%\n",
				mr.ModelID, br.Benchmark,
				br.Completed, br.Total, br.Failed, br.Skipped,
				br.Accuracy()*100)
		}
	}
	tw.Flush()

	for _, mr := range report.Models {
		if mr.Unreachable {
			fmt.Fprintf(w, "\n%s: backend unreachable: %s\n", mr.ModelID, mr.ProbeError)
		}
	}
}

// printLeaderboard renders the consolidated ranking, complete models
// first, partial models flagged.
func printLeaderboard(w io.Writer, report *consolidate.Report) {
	if report == nil {
		return
	}

	fmt.Fprintf(w, "\nConsolidated over %d runs, %d records (error policy: %s)\n\n",
		len(report.Runs), report.Records, report.ErrorPolicy)

	benchSet := make(map[string]bool)
	for _, ms := range report.Models {
		for name := range ms.Benchmarks {
			benchSet[name] = true
		}
	}
	benchmarks := make([]string, 0, len(benchSet))
	for name := range benchSet {
		benchmarks = append(benchmarks, name)
	}
	sort.Strings(benchmarks)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "RANK\tMODEL\tCOMPOSITE")
	for _, name := range benchmarks {
		fmt.Fprintf(tw, "\t%s", name)
	}
	fmt.Fprintln(tw)

	for i, ms := range report.Models {
		marker := ""
		if ms.Partial {
			marker = " (partial)"
		}
		fmt.Fprintf(tw, "%d\t%s%s\t%.1f%%", i+1, ms.ModelID, marker, ms.Composite*100)
		for _, name := range benchmarks {
			bs, ok := ms.Benchmarks[name]
			if !ok || bs.Tasks == 0 {
				fmt.Fprint(tw, "\t-")
				continue
			}
			fmt.Fprintf(tw, "\t%.1f%%", bs.Accuracy*100)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}
