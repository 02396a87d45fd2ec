package results

import (
	"fmt"
	"time"
)

// ResultRecord is the output of one (model, task) evaluation attempt.
// Records are append-only: a later record for the same (run, model, task)
// supersedes an earlier one only at consolidation time.
type ResultRecord struct {
	RunID           string    `json:"run_id"`
	ModelID         string    `json:"model"`
	Backend         string    `json:"backend"` // "ollama" or "anthropic"
	Benchmark       string    `json:"benchmark"`
	TaskID          string    `json:"task_id"`
	Category        string    `json:"category"`
	Prompt          string    `json:"prompt"`
	RawResponse     string    `json:"response"`
	ParsedAnswer    string    `json:"parsed_answer"`
	GroundTruth     string    `json:"ground_truth"`
	Score           float64   `json:"score"`
	Correct         bool      `json:"is_correct"`
	InstLevelScore  float64   `json:"inst_level_score"` // per-instruction satisfaction ratio, instruction benchmarks only
	LatencyMs       int64     `json:"latency_ms"`
	TokensGenerated int       `json:"tokens_generated"`
	ThinkingTokens  int       `json:"thinking_tokens"`
	TokensPerSec    float64   `json:"tok_s"`
	Error           string    `json:"error,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Key identifies one completed evaluation for checkpointing.
type Key struct {
	RunID   string
	ModelID string
	TaskID  string
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s", k.RunID, k.ModelID, k.TaskID)
}

// RecordKey derives the checkpoint key of a record.
func RecordKey(r *ResultRecord) Key {
	if r == nil {
		return Key{}
	}
	return Key{RunID: r.RunID, ModelID: r.ModelID, TaskID: r.TaskID}
}
