package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicVersionHeader = "2023-06-01"

// AnthropicBackend talks to the hosted Anthropic messages API. The bearer
// credential comes from config or the environment; latency and tokens/sec
// include network round-trip and must not be compared against local
// backends directly.
type AnthropicBackend struct {
	client *anthropic.Client
	apiKey string
	spec   ModelSpec
}

func NewAnthropicBackend(spec ModelSpec, apiKey, baseURL string, timeout time.Duration) *AnthropicBackend {
	opts := make([]option.RequestOption, 0, 4)
	if base := strings.TrimRight(strings.TrimSpace(baseURL), "/"); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if key := strings.TrimSpace(apiKey); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	if timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: timeout}))
	}
	opts = append(opts, option.WithMaxRetries(0))
	opts = append(opts, option.WithHeader("anthropic-version", anthropicVersionHeader))

	client := anthropic.NewClient(opts...)
	spec.Kind = KindHosted
	return &AnthropicBackend{
		client: &client,
		apiKey: strings.TrimSpace(apiKey),
		spec:   spec,
	}
}

func (b *AnthropicBackend) Name() string { return b.spec.Name }

func (b *AnthropicBackend) Kind() Kind { return KindHosted }

func (b *AnthropicBackend) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	if b == nil || b.client == nil {
		return nil, errors.New("anthropic: nil client")
	}
	if ctx == nil {
		return nil, errors.New("anthropic: nil context")
	}
	if req == nil {
		return nil, errors.New("anthropic: nil request")
	}

	maxTokens := b.spec.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(strings.TrimSpace(b.spec.Model)),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(req.Prompt),
				},
			},
		},
	}
	if system := strings.TrimSpace(req.System); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system, Type: "text"}}
	}

	start := time.Now()
	msg, err := b.client.Messages.New(ctx, params)
	elapsed := time.Since(start)

	if err != nil {
		return nil, fmt.Errorf("anthropic: messages %q: %w", b.spec.Model, err)
	}
	if msg == nil || len(msg.Content) == 0 {
		return nil, fmt.Errorf("anthropic: messages %q: %w", b.spec.Model, ErrEmptyResponse)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}

	out := &GenerateResult{
		Text:            strings.TrimSpace(sb.String()),
		TokensGenerated: int(msg.Usage.OutputTokens),
		LatencyMs:       elapsed.Milliseconds(),
	}
	if secs := elapsed.Seconds(); secs > 0 && out.TokensGenerated > 0 {
		out.TokensPerSec = float64(out.TokensGenerated) / secs
	}
	return out, nil
}

// Probe only checks the credential is present. Hosted models need no local
// provisioning and a real call would cost tokens.
func (b *AnthropicBackend) Probe(ctx context.Context) error {
	if b == nil {
		return errors.New("anthropic: nil backend")
	}
	if b.apiKey == "" {
		return fmt.Errorf("anthropic: %w: missing api key (set ANTHROPIC_API_KEY)", ErrUnreachable)
	}
	return nil
}
