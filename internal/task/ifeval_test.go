package task

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestIFEvalLoad(t *testing.T) {
	t.Parallel()

	path := writeTempFile(t, "ifeval.jsonl",
		`{"key": 1, "prompt": "Scrivi un parere senza virgole.", "instruction_id_list": ["punctuation:no_comma"], "kwargs": [{}]}
{"key": 2, "prompt": "Rispondi in JSON.", "instruction_id_list": ["detectable_format:json_format"], "kwargs": [{}]}
{"key": 3, "prompt": "Almeno 100 parole.", "instruction_id_list": ["length_constraints:number_words"], "kwargs": [{"num_words": 100, "relation": "at least"}]}
`)

	src := &IFEvalSource{Path: path}
	tasks, err := src.Load(context.Background(), Options{SampleSize: 2, Seed: 42})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks", len(tasks))
	}

	// File-order prefix, not a shuffle.
	if tasks[0].Prompt != "Scrivi un parere senza virgole." {
		t.Fatalf("first task: %q", tasks[0].Prompt)
	}

	cs, err := DecodeConstraints(tasks[0].GroundTruth)
	if err != nil {
		t.Fatalf("DecodeConstraints: %v", err)
	}
	if len(cs) != 1 || cs[0].ID != "punctuation:no_comma" {
		t.Fatalf("constraints: %+v", cs)
	}
}

func TestEncodeDecodeConstraints(t *testing.T) {
	t.Parallel()

	gt, err := EncodeConstraints(
		[]string{"length_constraints:number_words", " ", "keywords:existence"},
		[]map[string]any{
			{"num_words": 50, "relation": "at least"},
			nil,
			{"keywords": []any{"contratto"}},
		})
	if err != nil {
		t.Fatalf("EncodeConstraints: %v", err)
	}

	cs, err := DecodeConstraints(gt)
	if err != nil {
		t.Fatalf("DecodeConstraints: %v", err)
	}
	if len(cs) != 2 {
		t.Fatalf("blank id survived: %+v", cs)
	}
	if cs[0].ID != "length_constraints:number_words" {
		t.Fatalf("first constraint: %+v", cs[0])
	}
	if got := cs[0].Kwargs["num_words"]; got != float64(50) {
		t.Fatalf("num_words round-trip: %v (%T)", got, got)
	}
}

func TestDecodeConstraintsRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := DecodeConstraints("plain text answer"); err == nil {
		t.Fatalf("expected decode error")
	}
}
