package task

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// MMLU-Pro uses up to 10 options, A through J.
const mmluProOptionLabels = "ABCDEFGHIJ"

var mmluProLawSubjects = map[string]bool{
	"law":           true,
	"jurisprudence": true,
}

type mmluProRow struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
	Category    string   `json:"category,omitempty"`
	Subject     string   `json:"subject,omitempty"`
}

// MMLUProSource loads multiple-choice law questions from a JSONL export of
// the MMLU-Pro dataset, filtered to the law split.
type MMLUProSource struct {
	Path string
}

func (s *MMLUProSource) Name() string { return "mmlupro" }

func (s *MMLUProSource) Load(ctx context.Context, opts Options) ([]Task, error) {
	if ctx == nil {
		return nil, errors.New("mmlupro: nil context")
	}
	path := strings.TrimSpace(s.Path)
	if path == "" {
		return nil, errors.New("mmlupro: empty dataset path")
	}

	rows, err := readJSONL[mmluProRow](ctx, path)
	if err != nil {
		return nil, fmt.Errorf("mmlupro: load %q: %w", path, err)
	}

	lawRows := make([]mmluProRow, 0, len(rows))
	for _, row := range rows {
		if mmluProLawSubjects[normalizeName(subjectOf(row))] {
			lawRows = append(lawRows, row)
		}
	}
	// An export already filtered to law lacks subject labels; use it whole.
	if len(lawRows) == 0 {
		lawRows = rows
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	sample := sampleSeeded(rng, lawRows, opts.SampleSize)

	out := make([]Task, 0, len(sample))
	for idx, row := range sample {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if strings.TrimSpace(row.Question) == "" || len(row.Options) == 0 {
			continue
		}
		if row.AnswerIndex < 0 || row.AnswerIndex >= len(row.Options) ||
			row.AnswerIndex >= len(mmluProOptionLabels) {
			continue
		}

		category := subjectOf(row)
		if category == "" {
			category = "law"
		}

		out = append(out, Task{
			ID:          taskID("mmlupro", idx),
			Benchmark:   "mmlupro",
			Category:    category,
			Prompt:      buildMMLUProPrompt(row),
			GroundTruth: string(mmluProOptionLabels[row.AnswerIndex]),
			Metadata: map[string]string{
				"multiple_choice": "true",
			},
		})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("mmlupro: no usable questions in %q", path)
	}
	return dedupeByID(out), nil
}

func subjectOf(row mmluProRow) string {
	if s := strings.TrimSpace(row.Category); s != "" {
		return s
	}
	return strings.TrimSpace(row.Subject)
}

func buildMMLUProPrompt(row mmluProRow) string {
	var sb strings.Builder
	sb.WriteString("Domanda: ")
	sb.WriteString(strings.TrimSpace(row.Question))
	sb.WriteString("\n\nOpzioni:\n")
	for i, opt := range row.Options {
		label := "?"
		if i < len(mmluProOptionLabels) {
			label = string(mmluProOptionLabels[i])
		}
		sb.WriteString(label)
		sb.WriteString(") ")
		sb.WriteString(strings.TrimSpace(opt))
		sb.WriteByte('\n')
	}
	sb.WriteString("\nRispondi con la sola lettera dell'opzione corretta (A, B, C, …).")
	return sb.String()
}
