package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/evalforge/evalforge/internal/llm"
)

const (
	defaultRetryMax  = 3
	defaultRetryBase = time.Second
	defaultMaxDelay  = 30 * time.Second
	defaultTimeout   = 30 * time.Second
)

// FatalError marks a non-retryable inference failure (malformed request,
// model not found). The evaluation runner aborts the whole model-benchmark
// pair on it, preserving partial results.
type FatalError struct {
	Model string
	Err   error
}

func (e *FatalError) Error() string {
	if e == nil {
		return "gateway: fatal inference error <nil>"
	}
	return fmt.Sprintf("gateway: fatal inference error (model %s): %v", e.Model, e.Err)
}

func (e *FatalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Result reports one inference outcome after retries. Err is set when all
// retries were exhausted on transient failures; the caller decides whether
// that counts as a scored failure or an excluded sample.
type Result struct {
	Text    string
	Latency time.Duration
	Retries int
	Err     error
}

func (r *Result) OK() bool {
	return r != nil && r.Err == nil
}

// Config tunes the gateway. Zero values fall back to defaults.
type Config struct {
	Timeout     time.Duration // per inference call
	RetryMax    int
	RetryBase   time.Duration
	MaxDelay    time.Duration
	Concurrency int // max in-flight calls against the backend
}

// Gateway wraps a provider with per-call timeout, transient retry with
// capped exponential backoff, and a shared in-flight limit. It is the
// single throttling point for a backend: workers must not retry on their
// own.
type Gateway struct {
	provider  llm.Provider
	timeout   time.Duration
	retryMax  int
	retryBase time.Duration
	maxDelay  time.Duration
	sem       chan struct{}
	log       *zap.Logger
}

func New(provider llm.Provider, cfg Config, log *zap.Logger) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryMax == 0 {
		cfg.RetryMax = defaultRetryMax
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = defaultRetryBase
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Gateway{
		provider:  provider,
		timeout:   cfg.Timeout,
		retryMax:  cfg.RetryMax,
		retryBase: cfg.RetryBase,
		maxDelay:  cfg.MaxDelay,
		sem:       make(chan struct{}, cfg.Concurrency),
		log:       log,
	}
}

// Infer performs one logical inference with retries. A non-nil error is
// returned only for fatal failures and cancellation; exhausted transient
// retries come back as a Result with Err populated.
func (g *Gateway) Infer(ctx context.Context, model string, prompt string) (*Result, error) {
	if g == nil || g.provider == nil {
		return nil, errors.New("gateway: nil gateway")
	}
	if ctx == nil {
		return nil, errors.New("gateway: nil context")
	}

	if err := g.acquire(ctx); err != nil {
		return nil, err
	}
	defer g.release()

	start := time.Now()
	out := &Result{}

	var lastErr error
	for attempt := 0; attempt <= g.retryMax; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out.Retries = attempt

		text, err := g.call(ctx, model, prompt)
		if err == nil {
			out.Text = text
			out.Latency = time.Since(start)
			return out, nil
		}

		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isTransient(err) {
			g.log.Debug("inference failed fatally",
				zap.String("model", model),
				zap.Error(err))
			return nil, &FatalError{Model: strings.TrimSpace(model), Err: err}
		}

		lastErr = err
		g.log.Debug("transient inference failure",
			zap.String("model", model),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < g.retryMax {
			if err := sleepWithContext(ctx, g.backoff(attempt)); err != nil {
				return nil, err
			}
		}
	}

	out.Err = fmt.Errorf("gateway: retries exhausted after %d attempts: %w", g.retryMax+1, lastErr)
	out.Latency = time.Since(start)
	return out, nil
}

func (g *Gateway) call(ctx context.Context, model string, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.provider.Complete(callCtx, &llm.Request{
		Model:       model,
		Prompt:      prompt,
		MaxTokens:   1024,
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("gateway: nil response")
	}
	return resp.Text, nil
}

func (g *Gateway) acquire(ctx context.Context) error {
	select {
	case g.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gateway) release() {
	<-g.sem
}

func (g *Gateway) backoff(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	d := g.retryBase * time.Duration(1<<uint(attempt))
	if d > g.maxDelay || d <= 0 {
		d = g.maxDelay
	}
	return d
}

// isTransient classifies retryable failures: rate limits, server errors,
// timeouts, and refused connections. Everything else (bad request, model
// not found, auth) is fatal.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 {
			return true
		}
		return apiErr.StatusCode >= 500 && apiErr.StatusCode <= 599
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
