package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider is the narrow contract a model backend must satisfy. Providers
// perform a single completion call per Complete; retry and throttling live
// in the gateway so the budget is shared across workers.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req *Request) (*Response, error)
}

type Request struct {
	Model       string
	Prompt      string
	System      string
	MaxTokens   int
	Temperature float64
}

type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// APIError represents a non-2xx response from a model backend. The gateway
// classifies retryability from the status code.
type APIError struct {
	Provider   string
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return "llm: api error <nil>"
	}

	msg := strings.TrimSpace(e.Message)
	switch {
	case e.Type != "" && msg != "":
		return fmt.Sprintf("llm: %s: api error (%d): %s: %s", e.Provider, e.StatusCode, e.Type, msg)
	case msg != "":
		return fmt.Sprintf("llm: %s: api error (%d): %s", e.Provider, e.StatusCode, msg)
	default:
		return fmt.Sprintf("llm: %s: api error (%d)", e.Provider, e.StatusCode)
	}
}
