package backend

import (
	"context"
	"errors"
)

// Kind tags a backend variant. The executor dispatches on the variant's
// Generate implementation, never on string identifiers.
type Kind string

const (
	// KindLocal is a local streaming-inference service (Ollama). One
	// generation at a time; it shares the accelerator with nothing else.
	KindLocal Kind = "local"
	// KindHosted is a remote API (Anthropic). Its latency includes network
	// round-trip, so its tokens/sec is not comparable with KindLocal's.
	KindHosted Kind = "hosted"
)

// ModelSpec identifies a backend model and its invocation parameters.
// Immutable for the duration of a run.
type ModelSpec struct {
	Name      string // catalog name, used as model_id in result records
	Kind      Kind
	Model     string // ollama tag or anthropic model id
	Thinking  bool   // internal-reasoning phase expected
	MaxTokens int    // generation budget, thinking tokens included
}

// GenerateRequest is a single prompt to evaluate.
type GenerateRequest struct {
	Prompt string
	System string
	Seed   int64 // deterministic seed where the backend supports one
}

// GenerateResult reports one completed generation. Text excludes the
// internal-reasoning phase; ThinkingTokens counts it separately.
type GenerateResult struct {
	Text            string
	TokensGenerated int
	ThinkingTokens  int
	LatencyMs       int64
	TokensPerSec    float64
}

// Backend is the uniform request/response abstraction over the two
// backend protocols.
type Backend interface {
	Name() string
	Kind() Kind
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error)
	// Probe checks the backend is reachable before a run starts.
	// A failure wraps ErrUnreachable.
	Probe(ctx context.Context) error
}

// ErrUnreachable marks a backend that cannot be reached at all. Fatal for
// every task targeting that backend; the run continues for other models.
var ErrUnreachable = errors.New("backend unreachable")

// ErrEmptyResponse marks a response with no answer text, typically a
// generation budget exhausted by internal reasoning.
var ErrEmptyResponse = errors.New("empty response")
