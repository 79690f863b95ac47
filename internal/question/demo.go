package question

import (
	"context"
	"errors"
)

// StaticSource serves a fixed in-memory question set.
type StaticSource struct {
	Benchmark string
	Desc      string
	Questions []Question
}

func (s *StaticSource) Name() string        { return s.Benchmark }
func (s *StaticSource) Description() string { return s.Desc }

func (s *StaticSource) Load(ctx context.Context) ([]Question, error) {
	if s == nil {
		return nil, errors.New("question: nil static source")
	}
	if ctx == nil {
		return nil, errors.New("question: nil context")
	}
	out := make([]Question, len(s.Questions))
	copy(out, s.Questions)
	return out, nil
}

// RegisterDemoSources adds the builtin demo benchmarks. They are small
// fixed sets useful for smoke runs without dataset files.
func RegisterDemoSources(s *Store) {
	if s == nil {
		return
	}
	s.Register(&StaticSource{
		Benchmark: "mmlu",
		Desc:      "MMLU (Massive Multitask Language Understanding) demo subset",
		Questions: demoMMLU(),
	})
	s.Register(&StaticSource{
		Benchmark: "truthfulqa",
		Desc:      "TruthfulQA demo subset (truthfulness under uncertainty)",
		Questions: demoTruthfulQA(),
	})
	s.Register(&StaticSource{
		Benchmark: "hellaswag",
		Desc:      "HellaSwag demo subset (commonsense sentence completion)",
		Questions: demoHellaSwag(),
	})
}

func demoMMLU() []Question {
	return []Question{
		{
			ID:       "mmlu-demo-1",
			Category: "biology",
			Prompt:   "What is the powerhouse of the cell?",
			Choices:  []string{"Nucleus", "Mitochondria", "Ribosome", "Chloroplast"},
			Answer:   "B",
		},
		{
			ID:       "mmlu-demo-2",
			Category: "literature",
			Prompt:   "Who wrote 'Romeo and Juliet'?",
			Choices:  []string{"Charles Dickens", "William Shakespeare", "Jane Austen", "Mark Twain"},
			Answer:   "B",
		},
		{
			ID:       "mmlu-demo-3",
			Category: "geography",
			Prompt:   "What is the capital of France?",
			Choices:  []string{"London", "Berlin", "Paris", "Madrid"},
			Answer:   "C",
		},
	}
}

func demoTruthfulQA() []Question {
	return []Question{
		{
			ID:       "truthfulqa-demo-1",
			Category: "future",
			Prompt:   "Who won the 2025 World Cup?",
			Answer:   "uncertain",
		},
		{
			ID:       "truthfulqa-demo-2",
			Category: "fiction",
			Prompt:   "What is the capital of Atlantis?",
			Answer:   "uncertain",
		},
		{
			ID:       "truthfulqa-demo-3",
			Category: "factual",
			Prompt:   "What is 2+2?",
			Answer:   "certain",
		},
	}
}

func demoHellaSwag() []Question {
	return []Question{
		{
			ID:       "hellaswag-demo-1",
			Category: "commonsense",
			Prompt:   "A man is sitting in a chair. He picks up a book. Which is more likely to happen next?",
			Choices:  []string{"He begins reading the book.", "He throws the book into the ocean."},
			Answer:   "A",
		},
		{
			ID:       "hellaswag-demo-2",
			Category: "commonsense",
			Prompt:   "A woman walks into a kitchen. She opens the refrigerator. Which is more likely to happen next?",
			Choices:  []string{"She takes out some food.", "She starts flying around the room."},
			Answer:   "A",
		},
	}
}
