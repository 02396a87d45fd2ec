package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

// ErrorPolicy decides how failed tasks enter accuracy denominators.
// It is a single run-wide choice, applied uniformly at consolidation.
type ErrorPolicy string

const (
	// ErrorPolicyCount scores failed tasks as zero and keeps them in the
	// denominator.
	ErrorPolicyCount ErrorPolicy = "count"
	// ErrorPolicyExclude drops failed tasks from accuracy denominators.
	ErrorPolicyExclude ErrorPolicy = "exclude"
)

type Config struct {
	Ollama     OllamaConfig               `yaml:"ollama"`
	Anthropic  AnthropicConfig            `yaml:"anthropic"`
	Models     map[string]ModelConfig     `yaml:"models,omitempty"`
	Benchmarks map[string]BenchmarkConfig `yaml:"benchmarks,omitempty"`
	Run        RunConfig                  `yaml:"run"`
	Scoring    ScoringConfig              `yaml:"scoring"`
	Storage    StorageConfig              `yaml:"storage"`
	Weights    map[string]float64         `yaml:"weights,omitempty"`
}

type OllamaConfig struct {
	BaseURL string        `yaml:"base_url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
	NumCtx  int           `yaml:"num_ctx,omitempty"`
}

type AnthropicConfig struct {
	APIKey  string        `yaml:"api_key,omitempty"`
	BaseURL string        `yaml:"base_url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// ModelConfig describes one entry of the model catalog.
type ModelConfig struct {
	Backend   string `yaml:"backend"`              // "ollama" or "anthropic"
	Model     string `yaml:"model"`                // ollama tag or anthropic model id
	Thinking  bool   `yaml:"thinking,omitempty"`   // internal-reasoning phase expected
	MaxTokens int    `yaml:"max_tokens,omitempty"` // generation budget
}

type BenchmarkConfig struct {
	Path       string `yaml:"path,omitempty"` // dataset root
	SampleSize int    `yaml:"sample_size,omitempty"`
	QuickSize  int    `yaml:"quick_size,omitempty"`
}

type RunConfig struct {
	Models     []string      `yaml:"models,omitempty"`
	Benchmarks []string      `yaml:"benchmarks,omitempty"`
	Seed       int64         `yaml:"seed,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"` // per-task bound
}

type ScoringConfig struct {
	ErrorPolicy ErrorPolicy `yaml:"error_policy,omitempty"`
}

type StorageConfig struct {
	ResultsDir     string `yaml:"results_dir,omitempty"`
	CheckpointPath string `yaml:"checkpoint_path,omitempty"`
}

func Load(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with the built-in model catalog and benchmark
// battery, used when no config file is given.
func Default() *Config {
	cfg := &Config{
		Models: map[string]ModelConfig{
			"qwen3-14b":         {Backend: "ollama", Model: "qwen3:14b"},
			"qwen3-30b-a3b":     {Backend: "ollama", Model: "qwen3:30b"},
			"qwen3-32b":         {Backend: "ollama", Model: "qwen3:32b-q4_K_M"},
			"mistral-small-24b": {Backend: "ollama", Model: "mistral-small:24b"},
			"claude-sonnet-4-5": {Backend: "anthropic", Model: "claude-sonnet-4-5-20251022"},
		},
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Models == nil {
		c.Models = make(map[string]ModelConfig)
	}
	for name, m := range c.Models {
		if m.MaxTokens <= 0 {
			m.MaxTokens = 1024
		}
		if strings.TrimSpace(m.Backend) == "" {
			m.Backend = "ollama"
		}
		c.Models[name] = m
	}

	if strings.TrimSpace(c.Ollama.BaseURL) == "" {
		c.Ollama.BaseURL = "http://localhost:11434"
	}
	if c.Ollama.Timeout <= 0 {
		c.Ollama.Timeout = 300 * time.Second
	}
	if c.Ollama.NumCtx <= 0 {
		c.Ollama.NumCtx = 4096
	}
	if c.Anthropic.Timeout <= 0 {
		c.Anthropic.Timeout = 120 * time.Second
	}

	if c.Benchmarks == nil {
		c.Benchmarks = make(map[string]BenchmarkConfig)
	}
	for name, def := range defaultBenchmarks() {
		b, ok := c.Benchmarks[name]
		if !ok {
			c.Benchmarks[name] = def
			continue
		}
		if strings.TrimSpace(b.Path) == "" {
			b.Path = def.Path
		}
		if b.SampleSize <= 0 {
			b.SampleSize = def.SampleSize
		}
		if b.QuickSize <= 0 {
			b.QuickSize = def.QuickSize
		}
		c.Benchmarks[name] = b
	}

	if len(c.Run.Benchmarks) == 0 {
		c.Run.Benchmarks = []string{"legalbench", "cuad", "ifeval", "mmlupro"}
	}
	if c.Run.Seed == 0 {
		c.Run.Seed = 42
	}
	if c.Run.Timeout <= 0 {
		c.Run.Timeout = c.Ollama.Timeout
	}

	if c.Scoring.ErrorPolicy == "" {
		c.Scoring.ErrorPolicy = ErrorPolicyCount
	}

	if strings.TrimSpace(c.Storage.ResultsDir) == "" {
		c.Storage.ResultsDir = "results"
	}
	if strings.TrimSpace(c.Storage.CheckpointPath) == "" {
		c.Storage.CheckpointPath = "data/checkpoints.db"
	}

	if c.Weights == nil {
		c.Weights = defaultWeights()
	}
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		c.Anthropic.APIKey = v
	} else if v := strings.TrimSpace(os.Getenv("ANTHROPIC_AUTH_TOKEN")); v != "" && c.Anthropic.APIKey == "" {
		c.Anthropic.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("LEXEVAL_OLLAMA_URL")); v != "" {
		c.Ollama.BaseURL = strings.TrimRight(v, "/")
	}
}

func (c *Config) validate() error {
	switch c.Scoring.ErrorPolicy {
	case ErrorPolicyCount, ErrorPolicyExclude:
	default:
		return fmt.Errorf("config: unknown error_policy %q", c.Scoring.ErrorPolicy)
	}
	for name, m := range c.Models {
		switch strings.ToLower(strings.TrimSpace(m.Backend)) {
		case "ollama", "anthropic":
		default:
			return fmt.Errorf("config: model %q: unknown backend %q", name, m.Backend)
		}
		if strings.TrimSpace(m.Model) == "" {
			return fmt.Errorf("config: model %q: missing model identifier", name)
		}
	}
	return nil
}

// SampleSize returns the task count for a benchmark in full or quick mode.
func (c *Config) SampleSize(benchmark string, quick bool) int {
	b, ok := c.Benchmarks[strings.ToLower(strings.TrimSpace(benchmark))]
	if !ok {
		if quick {
			return 5
		}
		return 20
	}
	if quick {
		return b.QuickSize
	}
	return b.SampleSize
}

func defaultBenchmarks() map[string]BenchmarkConfig {
	return map[string]BenchmarkConfig{
		"legalbench": {Path: "data/legalbench", SampleSize: 24, QuickSize: 12},
		"cuad":       {Path: "data/cuad", SampleSize: 80, QuickSize: 24},
		"ifeval":     {Path: "data/ifeval", SampleSize: 100, QuickSize: 10},
		"mmlupro":    {Path: "data/mmlupro", SampleSize: 200, QuickSize: 20},
	}
}

// defaultWeights reflects how much each sub-task matters for contract/IP
// analysis. Keys are either "<benchmark>" or "legalbench:<category>".
func defaultWeights() map[string]float64 {
	return map[string]float64{
		"legalbench:issue-spotting":           3.0,
		"legalbench:rule-application":         3.0,
		"legalbench:interpretation":           3.0,
		"legalbench:rule-conclusion":          2.0,
		"legalbench:rule-recall":              1.0,
		"legalbench:rhetorical-understanding": 0.5,
		"cuad":                                3.0,
		"ifeval":                              2.0,
		"mmlupro":                             1.0,
	}
}
