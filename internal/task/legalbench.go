package task

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

// Categories evaluated from the LegalBench battery, each backed by a set
// of task directories inside the dataset root.
var legalbenchCategories = map[string][]string{
	"issue-spotting": {
		"abercrombie",
		"learned_hands_benefits",
		"learned_hands_business",
		"learned_hands_consumer",
		"learned_hands_crime",
		"learned_hands_employment",
	},
	"rule-recall": {
		"definition_classification",
		"hearsay",
		"insurance_policy_interpretation",
		"contract_qa",
		"rule_qa",
	},
	"rule-conclusion": {
		"personal_jurisdiction",
		"canada_tax_court_outcomes",
		"proa",
		"scalr",
	},
	"rule-application": {
		"citation_prediction_classification",
		"diversity_1",
		"nys_judicial_ethics",
		"corporate_lobbying",
	},
	"interpretation": {
		"ucc_v_common_law",
		"successor_liability",
		"textualism_tool_dictionaries",
		"textualism_tool_plain",
	},
	"rhetorical-understanding": {
		"oral_argument_question_purpose",
		"function_of_decision_section",
	},
}

// legalbenchCategoryOrder fixes the iteration order so task IDs stay stable
// across runs.
var legalbenchCategoryOrder = []string{
	"issue-spotting",
	"rule-recall",
	"rule-conclusion",
	"rule-application",
	"interpretation",
	"rhetorical-understanding",
}

// LegalBenchSource loads classification-style legal reasoning items from a
// local clone of the LegalBench repository (tasks/<name>/*.{csv,tsv}).
type LegalBenchSource struct {
	Root string
}

func (s *LegalBenchSource) Name() string { return "legalbench" }

func (s *LegalBenchSource) Load(ctx context.Context, opts Options) ([]Task, error) {
	if ctx == nil {
		return nil, errors.New("legalbench: nil context")
	}
	root := strings.TrimSpace(s.Root)
	if root == "" {
		return nil, errors.New("legalbench: empty dataset root")
	}
	tasksDir := filepath.Join(root, "tasks")
	if _, err := os.Stat(tasksDir); err != nil {
		return nil, fmt.Errorf("legalbench: dataset root %q: %w", root, err)
	}

	nPerCat := perCategory(opts.SampleSize, len(legalbenchCategoryOrder))
	rng := rand.New(rand.NewSource(opts.Seed))

	var out []Task
	idx := 0
	for _, category := range legalbenchCategoryOrder {
		rows := s.collectCategory(ctx, tasksDir, category, nPerCat, rng)
		for _, row := range rows {
			out = append(out, Task{
				ID:          taskID("legalbench", idx),
				Benchmark:   "legalbench",
				Category:    category,
				Prompt:      buildLegalBenchPrompt(row),
				GroundTruth: row["answer"],
				Metadata: map[string]string{
					"task_name": row["task_name"],
				},
			})
			idx++
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("legalbench: no usable tasks under %q", tasksDir)
	}
	return dedupeByID(out), nil
}

// collectCategory tries category tasks in order until n rows are gathered,
// sampling each file with the shared seeded rng.
func (s *LegalBenchSource) collectCategory(ctx context.Context, tasksDir, category string, n int, rng *rand.Rand) []map[string]string {
	var collected []map[string]string
	for _, taskName := range legalbenchCategories[category] {
		if len(collected) >= n {
			break
		}
		if ctx.Err() != nil {
			break
		}

		dataFile := findTaskDataFile(filepath.Join(tasksDir, taskName))
		if dataFile == "" {
			continue
		}
		rows, err := readDelimited(dataFile)
		if err != nil || len(rows) == 0 {
			continue
		}

		need := n - len(collected)
		for _, row := range sampleSeeded(rng, rows, need) {
			row["task_name"] = taskName
			collected = append(collected, row)
		}
	}
	if len(collected) > n {
		collected = collected[:n]
	}
	return collected
}

func buildLegalBenchPrompt(row map[string]string) string {
	return fmt.Sprintf("Task: %s\n\n%s\n\nAnswer:", row["task_name"], row["text"])
}

func findTaskDataFile(taskDir string) string {
	for _, name := range []string{
		"base_task.csv", "test.csv", "data.csv", "train.csv",
		"base_task.tsv", "test.tsv", "train.tsv",
	} {
		p := filepath.Join(taskDir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, pattern := range []string{"*.csv", "*.tsv"} {
		if found, _ := filepath.Glob(filepath.Join(taskDir, pattern)); len(found) > 0 {
			return found[0]
		}
	}
	return ""
}

// readDelimited reads a CSV or TSV into rows keyed by lowercased header.
// Rows missing a text or answer column are dropped; question/paragraph
// columns alias to text.
func readDelimited(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		r.Comma = '\t'
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("legalbench: read %q: %w", path, err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var rows []map[string]string
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, v := range rec {
			if i >= len(header) {
				break
			}
			row[header[i]] = strings.TrimSpace(v)
		}
		for _, alias := range []string{"question", "paragraph"} {
			if row["text"] == "" && row[alias] != "" {
				row["text"] = row[alias]
			}
		}
		if row["text"] == "" || row["answer"] == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
