package question

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
)

var (
	ErrNotFound    = errors.New("question: benchmark not found")
	ErrInvalidSize = errors.New("question: sample size must be > 0")
)

// Store holds registered benchmark sources and caches their loaded
// question sets. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	sources map[string]Source
	cache   map[string][]Question
}

func NewStore() *Store {
	return &Store{
		sources: make(map[string]Source),
		cache:   make(map[string][]Question),
	}
}

func (s *Store) Register(src Source) {
	if s == nil || src == nil {
		return
	}
	name := strings.ToLower(strings.TrimSpace(src.Name()))
	if name == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sources == nil {
		s.sources = make(map[string]Source)
	}
	s.sources[name] = src
	delete(s.cache, name)
}

// Benchmarks lists registered benchmark identifiers, sorted.
func (s *Store) Benchmarks() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.sources))
	for k := range s.sources {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Load returns the full ordered question set for a benchmark, loading from
// the source on first use.
func (s *Store) Load(ctx context.Context, benchmark string) ([]Question, error) {
	if s == nil {
		return nil, errors.New("question: nil store")
	}
	if ctx == nil {
		return nil, errors.New("question: nil context")
	}
	name := strings.ToLower(strings.TrimSpace(benchmark))
	if name == "" {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, benchmark)
	}

	s.mu.RLock()
	if qs, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return qs, nil
	}
	src, ok := s.sources[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, benchmark)
	}

	qs, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("question: load %q: %w", name, err)
	}
	for i := range qs {
		if strings.TrimSpace(qs[i].Benchmark) == "" {
			qs[i].Benchmark = name
		}
		if strings.TrimSpace(qs[i].ID) == "" {
			qs[i].ID = fmt.Sprintf("%s-%d", name, i+1)
		}
	}

	s.mu.Lock()
	s.cache[name] = qs
	s.mu.Unlock()
	return qs, nil
}

// Sample draws size questions without replacement using a seeded shuffle.
// The same (benchmark, size, seed) always yields the identical ordered
// SampleSet; size >= the full set returns the full set in original order.
func (s *Store) Sample(ctx context.Context, benchmark string, size int, seed int64) (*SampleSet, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidSize, size)
	}

	qs, err := s.Load(ctx, benchmark)
	if err != nil {
		return nil, err
	}

	name := strings.ToLower(strings.TrimSpace(benchmark))
	out := &SampleSet{
		Benchmark: name,
		Seed:      seed,
	}

	picked := qs
	if size < len(qs) {
		idx := make([]int, len(qs))
		for i := range idx {
			idx[i] = i
		}
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(len(idx), func(i, j int) {
			idx[i], idx[j] = idx[j], idx[i]
		})

		picked = make([]Question, 0, size)
		for _, i := range idx[:size] {
			picked = append(picked, qs[i])
		}
	}

	out.Questions = picked
	out.Size = len(picked)
	out.IDs = make([]string, 0, len(picked))
	for _, q := range picked {
		out.IDs = append(out.IDs, q.ID)
	}
	return out, nil
}
