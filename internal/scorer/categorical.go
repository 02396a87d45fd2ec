package scorer

import (
	"fmt"
	"regexp"
	"strings"
)

// Categorical scores classification-style answers: correct iff the
// normalized answer matches the normalized ground truth. Besides strict
// equality it accepts the label as a whole word or prefix of a longer
// reply, and multi-label ground truths require every label present.
type Categorical struct{}

func (Categorical) Name() string { return "categorical" }

func (Categorical) Score(answer, groundTruth string, metadata map[string]string) (Result, error) {
	gt := normalizeLabel(groundTruth)
	if gt == "" {
		return Result{}, fmt.Errorf("categorical: empty ground truth: %w", ErrAmbiguous)
	}

	parsed := normalizeLabel(answer)
	if metadata["multiple_choice"] == "true" {
		parsed = normalizeLabel(extractOptionLetter(answer))
	}

	value, correct := boolScore(categoricalMatch(parsed, gt))
	return Result{Value: value, Correct: correct, Parsed: parsed}, nil
}

func categoricalMatch(pred, gt string) bool {
	if pred == "" {
		return false
	}
	if pred == gt {
		return true
	}
	if wholeWordRe(gt).MatchString(pred) {
		return true
	}
	if strings.HasPrefix(pred, gt) {
		return true
	}

	// Multi-label ground truth: every comma-separated label must appear.
	labels := splitLabels(gt)
	if len(labels) > 1 {
		for _, l := range labels {
			if !wholeWordRe(l).MatchString(pred) {
				return false
			}
		}
		return true
	}
	return false
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func splitLabels(gt string) []string {
	parts := strings.Split(gt, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func wholeWordRe(label string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(label) + `\b`)
}

var (
	answerIsRe    = regexp.MustCompile(`(?i)answer\s*(?:is|:)?\s*([A-Ja-j])\b`)
	leadLetterRe  = regexp.MustCompile(`^([A-Ja-j])[).]`)
	aloneLetterRe = regexp.MustCompile(`\b([A-J])\b`)
)

// extractOptionLetter pulls the chosen option letter out of a free-form
// multiple-choice reply: "A", "A.", "A)", "the answer is A", and so on.
func extractOptionLetter(text string) string {
	text = strings.TrimSpace(text)
	if len(text) == 1 && text[0] >= 'A' && text[0] <= 'J' {
		return text
	}
	if len(text) == 1 && text[0] >= 'a' && text[0] <= 'j' {
		return strings.ToUpper(text)
	}
	if m := answerIsRe.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := leadLetterRe.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := aloneLetterRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
