package backend

import (
	"fmt"
	"strings"

	"github.com/ttrsuite/lexeval/internal/config"
)

// FromConfig resolves a catalog model name to a Backend variant.
func FromConfig(cfg *config.Config, name string) (Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("backend: nil config")
	}
	name = strings.TrimSpace(name)
	mc, ok := cfg.Models[name]
	if !ok {
		return nil, fmt.Errorf("backend: unknown model %q", name)
	}

	spec := ModelSpec{
		Name:      name,
		Model:     mc.Model,
		Thinking:  mc.Thinking,
		MaxTokens: mc.MaxTokens,
	}

	switch strings.ToLower(strings.TrimSpace(mc.Backend)) {
	case "ollama":
		return NewOllamaBackend(spec, cfg.Ollama.BaseURL, cfg.Ollama.Timeout), nil
	case "anthropic":
		return NewAnthropicBackend(spec, cfg.Anthropic.APIKey, cfg.Anthropic.BaseURL, cfg.Anthropic.Timeout), nil
	default:
		return nil, fmt.Errorf("backend: model %q: unknown backend %q", name, mc.Backend)
	}
}
