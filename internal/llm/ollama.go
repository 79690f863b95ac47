package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaProvider talks to a local Ollama server via its HTTP API.
type OllamaProvider struct {
	client  *resty.Client
	baseURL string
	model   string
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Options map[string]any `json:"options,omitempty"`
	Stream  bool           `json:"stream"`
}

type ollamaResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
	Error           string `json:"error,omitempty"`
}

func NewOllamaProvider(baseURL string, model string) *OllamaProvider {
	url := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if url == "" {
		url = defaultOllamaURL
	}
	return &OllamaProvider{
		client:  resty.New(),
		baseURL: url,
		model:   strings.TrimSpace(model),
	}
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable checks whether the Ollama server answers at all.
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	if p == nil || p.client == nil {
		return false
	}
	resp, err := p.client.R().SetContext(ctx).Get(p.baseURL + "/api/tags")
	return err == nil && resp.StatusCode() == 200
}

func (p *OllamaProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	if p == nil || p.client == nil {
		return nil, errors.New("llm: ollama: nil client")
	}
	if ctx == nil {
		return nil, errors.New("llm: ollama: nil context")
	}
	if req == nil {
		return nil, errors.New("llm: ollama: nil request")
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = p.model
	}
	if model == "" {
		return nil, errors.New("llm: ollama: missing model")
	}

	body := ollamaRequest{
		Model:  model,
		Prompt: req.Prompt,
		System: strings.TrimSpace(req.System),
		Stream: false,
		Options: map[string]any{
			"temperature": req.Temperature,
			"num_predict": clampMaxTokens(req.MaxTokens),
		},
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(p.baseURL + "/api/generate")
	if err != nil {
		return nil, fmt.Errorf("llm: ollama: %w", err)
	}

	var out ollamaResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		if resp.StatusCode() >= 400 {
			return nil, &APIError{Provider: "ollama", StatusCode: resp.StatusCode()}
		}
		return nil, fmt.Errorf("llm: ollama: decode response: %w", err)
	}

	if resp.StatusCode() >= 400 {
		return nil, &APIError{
			Provider:   "ollama",
			StatusCode: resp.StatusCode(),
			Message:    strings.TrimSpace(out.Error),
		}
	}

	return &Response{
		Text:         out.Response,
		Model:        out.Model,
		InputTokens:  out.PromptEvalCount,
		OutputTokens: out.EvalCount,
	}, nil
}
