package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

// Evaluation defaults. The demo sample size matches the builtin demo
// benchmarks; sample runs typically use 100/500/1000.
const (
	DefaultSampleSize  = 8
	DefaultSeed        = 42
	DefaultConcurrency = 4
	DefaultRetries     = 3
	DefaultTimeout     = 30 * time.Second
	DefaultConfidence  = 0.95
)

type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Storage    StorageConfig    `yaml:"storage"`
}

type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider,omitempty"`
	Providers       map[string]ProviderConfig `yaml:"providers,omitempty"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

type EvaluationConfig struct {
	SampleSize      int           `yaml:"sample_size,omitempty"`
	Seed            int64         `yaml:"seed,omitempty"`
	Concurrency     int           `yaml:"concurrency,omitempty"`
	Retries         int           `yaml:"retries,omitempty"`
	RetryBaseDelay  time.Duration `yaml:"retry_base_delay,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty"` // per inference call
	Confidence      float64       `yaml:"confidence,omitempty"`
	IncludeFailures *bool         `yaml:"include_failures,omitempty"`
}

type StorageConfig struct {
	Type string `yaml:"type,omitempty"` // "sqlite" or "memory"
	Path string `yaml:"path,omitempty"` // SQLite file path
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

	applyDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg, nil
}

// Default returns a usable config without a file on disk.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg
}

// IncludeFailures reports whether exhausted-retry inference failures count
// as scored zeros (true) or are excluded from the sample (false).
func (c *Config) IncludeFailures() bool {
	if c == nil || c.Evaluation.IncludeFailures == nil {
		return true
	}
	return *c.Evaluation.IncludeFailures
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.Providers == nil {
		cfg.LLM.Providers = make(map[string]ProviderConfig)
	}
	if strings.TrimSpace(cfg.LLM.DefaultProvider) == "" {
		cfg.LLM.DefaultProvider = "claude"
	}

	ev := &cfg.Evaluation
	if ev.SampleSize <= 0 {
		ev.SampleSize = DefaultSampleSize
	}
	if ev.Seed == 0 {
		ev.Seed = DefaultSeed
	}
	if ev.Concurrency <= 0 {
		ev.Concurrency = DefaultConcurrency
	}
	if ev.Retries <= 0 {
		ev.Retries = DefaultRetries
	}
	if ev.RetryBaseDelay <= 0 {
		ev.RetryBaseDelay = time.Second
	}
	if ev.Timeout <= 0 {
		ev.Timeout = DefaultTimeout
	}
	if ev.Confidence <= 0 || ev.Confidence >= 1 {
		ev.Confidence = DefaultConfidence
	}
	if ev.IncludeFailures == nil {
		v := true
		ev.IncludeFailures = &v
	}
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		p := cfg.LLM.Providers["claude"]
		p.APIKey = v
		cfg.LLM.Providers["claude"] = p
	} else if v := strings.TrimSpace(os.Getenv("ANTHROPIC_AUTH_TOKEN")); v != "" {
		p := cfg.LLM.Providers["claude"]
		p.APIKey = v
		cfg.LLM.Providers["claude"] = p
	}

	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		p := cfg.LLM.Providers["openai"]
		p.APIKey = v
		cfg.LLM.Providers["openai"] = p
	}

	if v := strings.TrimSpace(os.Getenv("OLLAMA_HOST")); v != "" {
		p := cfg.LLM.Providers["ollama"]
		p.BaseURL = v
		cfg.LLM.Providers["ollama"] = p
	}
}
