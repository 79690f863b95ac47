package scorer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/evalforge/evalforge/internal/question"
)

// MultipleChoiceScorer grades letter-answer questions. The expected answer
// may be a letter ("B"), a 0- or 1-based index, or the choice text; the
// model response is parsed for a standalone letter token, a number, or a
// choice-text match, in that order.
type MultipleChoiceScorer struct{}

func (MultipleChoiceScorer) Name() string { return "multiple_choice" }

func (MultipleChoiceScorer) Score(q *question.Question, response string) (float64, error) {
	if q == nil {
		return 0, errors.New("multiple_choice: nil question")
	}

	correctIdx, err := expectedChoiceIndex(q.Answer, q.Choices)
	if err != nil {
		return 0, err
	}

	gotIdx, ok := parseChoiceResponse(response, q.Choices)
	if !ok {
		return 0, errors.New("multiple_choice: could not parse model answer")
	}
	if gotIdx == correctIdx {
		return 1, nil
	}
	return 0, nil
}

func expectedChoiceIndex(answer string, choices []string) (int, error) {
	max := len(choices)
	if max == 0 {
		max = 4
	}
	if max > 26 {
		max = 26
	}

	s := strings.TrimSpace(answer)
	if s == "" {
		return -1, errors.New("multiple_choice: empty expected answer")
	}

	if len(s) == 1 {
		c := s[0]
		if c >= 'a' && c <= 'z' {
			c = c - 'a' + 'A'
		}
		if c >= 'A' && c <= 'Z' {
			idx := int(c - 'A')
			if idx < max {
				return idx, nil
			}
		}
	}

	if n, err := strconv.Atoi(s); err == nil {
		return normalizeIndex(n, max)
	}

	needle := strings.ToLower(s)
	for i, c := range choices {
		if strings.ToLower(strings.TrimSpace(c)) == needle {
			if i < max {
				return i, nil
			}
		}
	}

	return -1, fmt.Errorf("multiple_choice: could not parse expected answer %q", answer)
}

// normalizeIndex accepts 1-based indices first so "2" means the second
// choice, matching how responses are parsed. Zero stays 0-based.
func normalizeIndex(idx int, max int) (int, error) {
	switch {
	case idx >= 1 && idx <= max:
		return idx - 1, nil
	case idx == 0 && max > 0:
		return 0, nil
	default:
		return -1, fmt.Errorf("multiple_choice: expected answer out of range (got %d, max %d)", idx, max)
	}
}

func parseChoiceResponse(response string, choices []string) (int, bool) {
	s := strings.TrimSpace(response)
	if s == "" {
		return -1, false
	}

	max := len(choices)
	if max <= 0 {
		max = 4
	}
	if max > 26 {
		max = 26
	}

	if idx, ok := extractLetterToken(s, max); ok {
		return idx, true
	}
	if idx, ok := extractNumberToken(s, max); ok {
		return idx, true
	}
	if idx, ok := matchChoiceText(s, choices, max); ok {
		return idx, true
	}
	return -1, false
}

func extractLetterToken(s string, max int) (int, bool) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c = c - 'a' + 'A'
		}
		if c < 'A' || c > 'Z' {
			continue
		}
		idx := int(c - 'A')
		if idx < 0 || idx >= max {
			continue
		}

		prevOK := i == 0 || !isAlphaNum(s[i-1])
		nextOK := i+1 == len(s) || !isAlphaNum(s[i+1])
		if prevOK && nextOK {
			return idx, true
		}
	}
	return -1, false
}

func extractNumberToken(s string, max int) (int, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			continue
		}
		j := i
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		n, err := strconv.Atoi(s[i:j])
		if err != nil {
			continue
		}
		if n >= 1 && n <= max {
			return n - 1, true
		}
		if n >= 0 && n < max {
			return n, true
		}
		i = j - 1
	}
	return -1, false
}

func matchChoiceText(s string, choices []string, max int) (int, bool) {
	if len(choices) == 0 {
		return -1, false
	}
	ls := strings.ToLower(s)
	for i, c := range choices {
		if i >= max {
			return -1, false
		}
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if strings.Contains(ls, c) {
			return i, true
		}
	}
	return -1, false
}

func isAlphaNum(b byte) bool {
	return (b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
