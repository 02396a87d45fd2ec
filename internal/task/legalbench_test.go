package task

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func legalbenchFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	write := func(taskName, file, content string) {
		dir := filepath.Join(root, "tasks", taskName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	csv := "text,answer\n"
	for i := 0; i < 8; i++ {
		csv += fmt.Sprintf("Is mark %d generic or fanciful?,fanciful\n", i)
	}
	write("abercrombie", "base_task.csv", csv)

	tsv := "Question\tanswer\n"
	for i := 0; i < 8; i++ {
		tsv += fmt.Sprintf("Does statement %d count as hearsay?\tYes\n", i)
	}
	write("hearsay", "test.tsv", tsv)

	return root
}

func TestLegalBenchLoad(t *testing.T) {
	t.Parallel()

	src := &LegalBenchSource{Root: legalbenchFixture(t)}
	tasks, err := src.Load(context.Background(), Options{SampleSize: 12, Seed: 42})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tasks) == 0 {
		t.Fatalf("no tasks loaded")
	}

	byCategory := make(map[string]int)
	for _, tk := range tasks {
		byCategory[tk.Category]++
		if tk.GroundTruth == "" || tk.Prompt == "" {
			t.Fatalf("incomplete task: %+v", tk)
		}
	}
	// Only two task dirs exist, one per category; each caps at the
	// per-category share.
	if byCategory["issue-spotting"] != 2 || byCategory["rule-recall"] != 2 {
		t.Fatalf("per category: %v", byCategory)
	}
}

func TestLegalBenchLoadDeterministic(t *testing.T) {
	t.Parallel()

	src := &LegalBenchSource{Root: legalbenchFixture(t)}
	opts := Options{SampleSize: 12, Seed: 42}

	a, err := src.Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b, err := src.Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("lengths differ")
	}
	for i := range a {
		if a[i].Prompt != b[i].Prompt {
			t.Fatalf("item %d differs between identical-seed loads", i)
		}
	}
}

func TestLegalBenchMissingRoot(t *testing.T) {
	t.Parallel()

	src := &LegalBenchSource{Root: filepath.Join(t.TempDir(), "nope")}
	if _, err := src.Load(context.Background(), Options{SampleSize: 4, Seed: 1}); err == nil {
		t.Fatalf("missing root accepted")
	}
}

func TestReadDelimitedAliasesAndDrops(t *testing.T) {
	t.Parallel()

	path := writeTempFile(t, "t.csv",
		"Question,Answer\nwhat is consideration?,a bargained-for exchange\n,missing text\n")

	rows, err := readDelimited(path)
	if err != nil {
		t.Fatalf("readDelimited: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[0]["text"] != "what is consideration?" {
		t.Fatalf("question alias: %q", rows[0]["text"])
	}
}
