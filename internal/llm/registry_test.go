package llm

import (
	"context"
	"sort"
	"testing"

	"github.com/evalforge/evalforge/internal/config"
)

type stubProvider struct {
	name string
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	return &Response{Text: "stub"}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "Claude"})

	if _, ok := r.Get("claude"); !ok {
		t.Fatal("lookup must be case-insensitive")
	}
	if _, ok := r.Get("  CLAUDE  "); !ok {
		t.Fatal("lookup must trim whitespace")
	}
	if _, ok := r.Get("openai"); ok {
		t.Fatal("unexpected provider")
	}
	if _, ok := r.Get(""); ok {
		t.Fatal("empty name must not resolve")
	}
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "claude"})
	r.Register(&stubProvider{name: "ollama"})

	names := r.Names()
	sort.Strings(names)
	if len(names) != 2 || names[0] != "claude" || names[1] != "ollama" {
		t.Fatalf("Names() = %v", names)
	}
}

func TestAPIErrorFormatting(t *testing.T) {
	cases := []struct {
		err  *APIError
		want string
	}{
		{&APIError{Provider: "claude", StatusCode: 429, Type: "rate_limit_error", Message: "slow down"},
			"llm: claude: api error (429): rate_limit_error: slow down"},
		{&APIError{Provider: "openai", StatusCode: 500, Message: "boom"},
			"llm: openai: api error (500): boom"},
		{&APIError{Provider: "ollama", StatusCode: 404},
			"llm: ollama: api error (404)"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Fatalf("Error() = %q, want %q", got, tc.want)
		}
	}
}

func TestNewRegistryFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.Providers = map[string]config.ProviderConfig{
		"claude": {APIKey: "k1", Model: "claude-sonnet-4-5"},
		"openai": {APIKey: "k2"},
		"ollama": {BaseURL: "http://localhost:11434"},
	}

	r, err := NewRegistryFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewRegistryFromConfig: %v", err)
	}
	for _, name := range []string{"claude", "openai", "ollama"} {
		if _, ok := r.Get(name); !ok {
			t.Fatalf("provider %q not registered", name)
		}
	}
}

func TestNewRegistryFromConfigUnknownProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.Providers = map[string]config.ProviderConfig{"bogus": {}}
	if _, err := NewRegistryFromConfig(cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestDefaultProviderFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.DefaultProvider = "claude"
	cfg.LLM.Providers = map[string]config.ProviderConfig{
		"claude": {APIKey: "k"},
	}

	p, err := DefaultProviderFromConfig(cfg)
	if err != nil {
		t.Fatalf("DefaultProviderFromConfig: %v", err)
	}
	if p.Name() != "claude" {
		t.Fatalf("provider = %q", p.Name())
	}
}

func TestDefaultProviderSingleFallback(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.DefaultProvider = "claude"
	cfg.LLM.Providers = map[string]config.ProviderConfig{
		"ollama": {BaseURL: "http://localhost:11434"},
	}

	p, err := DefaultProviderFromConfig(cfg)
	if err != nil {
		t.Fatalf("DefaultProviderFromConfig: %v", err)
	}
	if p.Name() != "ollama" {
		t.Fatalf("single configured provider must win, got %q", p.Name())
	}
}

func TestDefaultProviderMissing(t *testing.T) {
	if _, err := DefaultProviderFromConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	cfg := &config.Config{}
	cfg.LLM.DefaultProvider = "claude"
	cfg.LLM.Providers = map[string]config.ProviderConfig{
		"openai": {APIKey: "a"},
		"ollama": {},
	}
	if _, err := DefaultProviderFromConfig(cfg); err == nil {
		t.Fatal("expected error when the default is absent among several providers")
	}
}
