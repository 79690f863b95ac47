package scorer

import (
	"errors"
	"strings"

	"github.com/evalforge/evalforge/internal/question"
)

// ExactScorer matches the expected answer after normalization. Containment
// of the normalized answer in the normalized response also counts, matching
// how free-text benchmark answers are usually graded.
type ExactScorer struct {
	// Strict requires full equality after normalization.
	Strict bool
}

func (s ExactScorer) Name() string { return "exact" }

func (s ExactScorer) Score(q *question.Question, response string) (float64, error) {
	if q == nil {
		return 0, errors.New("exact: nil question")
	}
	expected := normalizeText(q.Answer)
	if expected == "" {
		return 0, errors.New("exact: empty expected answer")
	}

	got := normalizeText(response)
	if got == expected {
		return 1, nil
	}
	if !s.Strict && strings.Contains(got, expected) {
		return 1, nil
	}
	return 0, nil
}

func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, ".!?\"' ")
	return strings.Join(strings.Fields(s), " ")
}
