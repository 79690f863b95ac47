package question

import "context"

// Question is one benchmark item. Immutable once loaded.
type Question struct {
	ID        string
	Benchmark string
	Prompt    string
	Choices   []string
	Answer    string
	Category  string
}

// Source provides the full question set for one benchmark. The store only
// requires this iteration contract, not a specific file format.
type Source interface {
	Name() string
	Description() string
	Load(ctx context.Context) ([]Question, error)
}

// SampleSet is an ordered, reproducible subset of a benchmark's questions.
// IDs are the canonical identity; Questions carries the resolved items in
// the same order so callers avoid a second store round-trip.
type SampleSet struct {
	Benchmark string
	Seed      int64
	Size      int
	IDs       []string
	Questions []Question
}
