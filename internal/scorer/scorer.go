package scorer

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/evalforge/evalforge/internal/question"
)

var ErrUnknownScorer = errors.New("scorer: no scorer registered for benchmark")

// Scorer grades a raw model response against one question, returning a
// correctness score in [0,1]. Implementations must be deterministic and
// pure: no side effects, no network.
type Scorer interface {
	Name() string
	Score(q *question.Question, response string) (float64, error)
}

// Registry maps benchmark identifiers to scoring strategies.
type Registry struct {
	mu      sync.RWMutex
	scorers map[string]Scorer
}

func NewRegistry() *Registry {
	return &Registry{
		scorers: make(map[string]Scorer),
	}
}

// Register binds a scorer to a benchmark identifier.
func (r *Registry) Register(benchmark string, s Scorer) {
	if r == nil || s == nil {
		return
	}
	name := strings.ToLower(strings.TrimSpace(benchmark))
	if name == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scorers == nil {
		r.scorers = make(map[string]Scorer)
	}
	r.scorers[name] = s
}

func (r *Registry) Get(benchmark string) (Scorer, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scorers[strings.ToLower(strings.TrimSpace(benchmark))]
	return s, ok
}

// Score grades a response using the scorer bound to the benchmark.
func (r *Registry) Score(benchmark string, q *question.Question, response string) (float64, error) {
	s, ok := r.Get(benchmark)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownScorer, benchmark)
	}
	if q == nil {
		return 0, errors.New("scorer: nil question")
	}
	return s.Score(q, response)
}

// NewDefaultRegistry binds the standard scorers for the builtin demo
// benchmarks.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("mmlu", MultipleChoiceScorer{})
	r.Register("hellaswag", MultipleChoiceScorer{})
	r.Register("truthfulqa", UncertaintyScorer{})
	return r
}
