package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type ifevalRow struct {
	Key            int              `json:"key,omitempty"`
	Prompt         string           `json:"prompt"`
	InstructionIDs []string         `json:"instruction_id_list"`
	Kwargs         []map[string]any `json:"kwargs,omitempty"`
}

// Constraint is one verifiable instruction attached to an IFEval prompt.
type Constraint struct {
	ID     string         `json:"id"`
	Kwargs map[string]any `json:"kwargs,omitempty"`
}

// IFEvalSource loads instruction-following prompts from a JSONL export of
// the IFEval dataset. The ground truth is the constraint list serialized
// as JSON, so a persisted record can be re-scored offline.
type IFEvalSource struct {
	Path string
}

func (s *IFEvalSource) Name() string { return "ifeval" }

func (s *IFEvalSource) Load(ctx context.Context, opts Options) ([]Task, error) {
	if ctx == nil {
		return nil, errors.New("ifeval: nil context")
	}
	path := strings.TrimSpace(s.Path)
	if path == "" {
		return nil, errors.New("ifeval: empty dataset path")
	}

	rows, err := readJSONL[ifevalRow](ctx, path)
	if err != nil {
		return nil, fmt.Errorf("ifeval: load %q: %w", path, err)
	}

	n := opts.SampleSize
	if n <= 0 || n > len(rows) {
		n = len(rows)
	}

	// IFEval is taken in file order: the dataset has no category axis and
	// a prefix is already deterministic.
	out := make([]Task, 0, n)
	for idx, row := range rows[:n] {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if strings.TrimSpace(row.Prompt) == "" {
			continue
		}

		gt, err := EncodeConstraints(row.InstructionIDs, row.Kwargs)
		if err != nil {
			return nil, fmt.Errorf("ifeval: item %d: %w", idx, err)
		}

		out = append(out, Task{
			ID:          taskID("ifeval", idx),
			Benchmark:   "ifeval",
			Category:    "instruction-following",
			Prompt:      row.Prompt,
			GroundTruth: gt,
		})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("ifeval: no usable prompts in %q", path)
	}
	return dedupeByID(out), nil
}

// EncodeConstraints serializes instruction ids and their kwargs into the
// JSON ground-truth format the instruction scorer consumes.
func EncodeConstraints(ids []string, kwargs []map[string]any) (string, error) {
	constraints := make([]Constraint, 0, len(ids))
	for i, id := range ids {
		c := Constraint{ID: strings.TrimSpace(id)}
		if c.ID == "" {
			continue
		}
		if i < len(kwargs) {
			c.Kwargs = kwargs[i]
		}
		constraints = append(constraints, c)
	}
	b, err := json.Marshal(constraints)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeConstraints parses the ground-truth JSON back into constraints.
func DecodeConstraints(groundTruth string) ([]Constraint, error) {
	var out []Constraint
	if err := json.Unmarshal([]byte(groundTruth), &out); err != nil {
		return nil, fmt.Errorf("ifeval: decode constraints: %w", err)
	}
	return out, nil
}
