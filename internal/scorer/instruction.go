package scorer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ttrsuite/lexeval/internal/task"
)

// Instruction scores strict instruction compliance. The ground truth is a
// JSON constraint list (see task.EncodeConstraints). Correctness is
// prompt-level strict: every constraint satisfied. The per-instruction
// satisfaction ratio is reported separately in Details.
type Instruction struct{}

func (Instruction) Name() string { return "instruction" }

func (Instruction) Score(answer, groundTruth string, metadata map[string]string) (Result, error) {
	constraints, err := task.DecodeConstraints(groundTruth)
	if err != nil {
		return Result{}, fmt.Errorf("instruction: %w: %v", ErrAmbiguous, err)
	}

	passed := 0
	for _, c := range constraints {
		if checkInstruction(c.ID, answer, c.Kwargs) {
			passed++
		}
	}

	total := len(constraints)
	allPassed := passed == total
	value, correct := boolScore(allPassed)

	details := map[string]float64{
		"prompt_level":        value,
		"instructions_total":  float64(total),
		"instructions_passed": float64(passed),
		"instruction_level":   1.0,
	}
	if total > 0 {
		details["instruction_level"] = float64(passed) / float64(total)
	}

	return Result{Value: value, Correct: correct, Parsed: strings.TrimSpace(answer), Details: details}, nil
}

type verifier func(response string, kwargs map[string]any) bool

var verifierMap = map[string]verifier{
	"length_constraints:number_words":       verifyWordCount,
	"length_constraints:number_sentences":   verifySentenceCount,
	"length_constraints:number_paragraphs":  verifyParagraphCount,
	"detectable_format:json_format":         verifyJSONFormat,
	"detectable_format:number_bullet_lists": verifyBulletPoints,
	"detectable_format:title":               verifyTitle,
	"keywords:forbidden_words":              verifyForbiddenWords,
	"keywords:existence":                    verifyIncludeKeywords,
	"change_case:english_capital":           verifyUppercase,
	"change_case:english_lowercase":         verifyLowercase,
	"punctuation:no_comma":                  verifyNoComma,
	"startend:end_checker":                  verifyEndsWith,
	"startend:quotation":                    verifyQuotation,
	"combination:repeat_prompt":             verifyRepeatPrompt,
}

// checkInstruction dispatches to the verifier for an instruction id,
// falling back to a prefix match. Unknown constraint kinds pass: an
// unverifiable constraint must not fail a task it cannot judge.
func checkInstruction(id, response string, kwargs map[string]any) bool {
	v, ok := verifierMap[id]
	if !ok {
		for key, fn := range verifierMap {
			if strings.HasPrefix(id, key) {
				v = fn
				ok = true
				break
			}
		}
	}
	if !ok {
		return true
	}
	return v(response, kwargs)
}

func relationHolds(count int, kwargs map[string]any, targetKey string) bool {
	target := kwargsInt(kwargs, targetKey)
	switch kwargsString(kwargs, "relation") {
	case "at most", "less than", "fewer than":
		return count <= target
	case "exactly":
		return count == target
	default: // "at least", "more than", or unspecified
		return count >= target
	}
}

func verifyWordCount(response string, kwargs map[string]any) bool {
	return relationHolds(len(strings.Fields(response)), kwargs, "num_words")
}

func verifySentenceCount(response string, kwargs map[string]any) bool {
	parts := regexp.MustCompile(`[.!?]+`).Split(response, -1)
	count := 0
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			count++
		}
	}
	return relationHolds(count, kwargs, "num_sentences")
}

func verifyParagraphCount(response string, kwargs map[string]any) bool {
	count := 0
	for _, p := range strings.Split(response, "\n\n") {
		if strings.TrimSpace(p) != "" {
			count++
		}
	}
	return relationHolds(count, kwargs, "num_paragraphs")
}

var (
	codeFenceOpenRe  = regexp.MustCompile("^```(?:json)?\n?")
	codeFenceCloseRe = regexp.MustCompile("\n?```$")
	bulletRe         = regexp.MustCompile(`(?m)^\s*[-*•]\s+`)
)

func verifyJSONFormat(response string, kwargs map[string]any) bool {
	cleaned := strings.TrimSpace(response)
	cleaned = codeFenceOpenRe.ReplaceAllString(cleaned, "")
	cleaned = codeFenceCloseRe.ReplaceAllString(cleaned, "")
	return json.Valid([]byte(cleaned))
}

func verifyBulletPoints(response string, kwargs map[string]any) bool {
	return relationHolds(len(bulletRe.FindAllString(response, -1)), kwargs, "num_bullets")
}

func verifyTitle(response string, kwargs map[string]any) bool {
	// Doubled angle brackets mark a title, e.g. <<My Answer>>.
	return regexp.MustCompile(`<<[^<>]+>>`).MatchString(response)
}

func verifyForbiddenWords(response string, kwargs map[string]any) bool {
	lower := strings.ToLower(response)
	for _, w := range kwargsStrings(kwargs, "forbidden_words") {
		if strings.Contains(lower, strings.ToLower(w)) {
			return false
		}
	}
	return true
}

func verifyIncludeKeywords(response string, kwargs map[string]any) bool {
	lower := strings.ToLower(response)
	for _, kw := range kwargsStrings(kwargs, "keywords") {
		if !strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}

func verifyUppercase(response string, kwargs map[string]any) bool {
	return response == strings.ToUpper(response)
}

func verifyLowercase(response string, kwargs map[string]any) bool {
	return response == strings.ToLower(response)
}

func verifyNoComma(response string, kwargs map[string]any) bool {
	return !strings.Contains(response, ",")
}

func verifyEndsWith(response string, kwargs map[string]any) bool {
	ending := strings.TrimSpace(kwargsString(kwargs, "end_phrase"))
	if ending == "" {
		return true
	}
	return strings.HasSuffix(strings.TrimSpace(response), ending)
}

func verifyQuotation(response string, kwargs map[string]any) bool {
	s := strings.TrimSpace(response)
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

func verifyRepeatPrompt(response string, kwargs map[string]any) bool {
	prompt := strings.TrimSpace(kwargsString(kwargs, "prompt_to_repeat"))
	if prompt == "" {
		return true
	}
	return strings.HasPrefix(strings.TrimSpace(response), prompt)
}

func kwargsString(kwargs map[string]any, key string) string {
	if v, ok := kwargs[key].(string); ok {
		return v
	}
	return ""
}

func kwargsInt(kwargs map[string]any, key string) int {
	switch v := kwargs[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func kwargsStrings(kwargs map[string]any, key string) []string {
	raw, ok := kwargs[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
