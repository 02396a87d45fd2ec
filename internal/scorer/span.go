package scorer

import (
	"fmt"
	"strings"
)

// SpanExtract scores contract clause extraction. Scoring is binary and
// format-strict: the answer must reproduce the expected span exactly, or
// be exactly the no-clause sentinel with no extraneous text. Partial
// overlap earns nothing, and a sentinel padded with explanation is wrong.
type SpanExtract struct{}

func (SpanExtract) Name() string { return "span-extract" }

func (SpanExtract) Score(answer, groundTruth string, metadata map[string]string) (Result, error) {
	gt := normalizeSpan(groundTruth)
	if gt == "" {
		return Result{}, fmt.Errorf("span-extract: empty ground truth: %w", ErrAmbiguous)
	}

	parsed := normalizeSpan(answer)
	value, correct := boolScore(parsed == gt)
	return Result{Value: value, Correct: correct, Parsed: parsed}, nil
}

// normalizeSpan collapses runs of whitespace and lowercases, leaving the
// span text itself untouched otherwise. Exactness is the point: any token
// beyond the expected span survives normalization and fails the match.
func normalizeSpan(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
