package scorer

import (
	"errors"
	"testing"
)

func TestCategoricalExactAndNormalized(t *testing.T) {
	t.Parallel()

	s := Categorical{}

	cases := []struct {
		name    string
		answer  string
		gt      string
		correct bool
	}{
		{"exact", "Yes", "Yes", true},
		{"case and whitespace", "b ", "B", true},
		{"mismatch", "No", "Yes", false},
		{"label inside reply", "The answer is Yes, the clause applies.", "Yes", true},
		{"prefix", "yes.", "yes", true},
		{"empty answer", "", "Yes", false},
	}
	for _, tc := range cases {
		res, err := s.Score(tc.answer, tc.gt, nil)
		if err != nil {
			t.Fatalf("%s: Score: %v", tc.name, err)
		}
		if res.Correct != tc.correct {
			t.Fatalf("%s: got correct=%v parsed=%q", tc.name, res.Correct, res.Parsed)
		}
	}
}

func TestCategoricalMultiLabel(t *testing.T) {
	t.Parallel()

	s := Categorical{}

	{
		res, err := s.Score("Both contract and tort claims apply here.", "contract, tort", nil)
		if err != nil {
			t.Fatalf("Score: %v", err)
		}
		if !res.Correct {
			t.Fatalf("all labels present: got correct=%v", res.Correct)
		}
	}
	{
		res, err := s.Score("Only contract claims apply.", "contract, tort", nil)
		if err != nil {
			t.Fatalf("Score: %v", err)
		}
		if res.Correct {
			t.Fatalf("missing label: got correct=%v", res.Correct)
		}
	}
}

func TestCategoricalMultipleChoice(t *testing.T) {
	t.Parallel()

	s := Categorical{}
	meta := map[string]string{"multiple_choice": "true"}

	cases := []struct {
		name    string
		answer  string
		correct bool
	}{
		{"bare letter", "B", true},
		{"lowercase letter", "b", true},
		{"answer is", "After consideration, the answer is B.", true},
		{"letter with paren", "B) Consideration", true},
		{"wrong letter", "The answer is C.", false},
	}
	for _, tc := range cases {
		res, err := s.Score(tc.answer, "B", meta)
		if err != nil {
			t.Fatalf("%s: Score: %v", tc.name, err)
		}
		if res.Correct != tc.correct {
			t.Fatalf("%s: got correct=%v parsed=%q", tc.name, res.Correct, res.Parsed)
		}
	}
}

func TestCategoricalEmptyGroundTruth(t *testing.T) {
	t.Parallel()

	s := Categorical{}
	_, err := s.Score("anything", "", nil)
	if !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("empty ground truth: got err=%v", err)
	}
}
