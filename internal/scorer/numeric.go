package scorer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/evalforge/evalforge/internal/question"
)

// NumericScorer compares the last number in the response against the
// expected value within a tolerance.
type NumericScorer struct {
	// Tolerance for equality; <= 0 means 1e-9.
	Tolerance float64
}

func (NumericScorer) Name() string { return "numeric" }

func (s NumericScorer) Score(q *question.Question, response string) (float64, error) {
	if q == nil {
		return 0, errors.New("numeric: nil question")
	}

	expNum, ok := parseFloat(extractExpectedNumber(q.Answer))
	if !ok {
		return 0, fmt.Errorf("numeric: invalid expected number %q", q.Answer)
	}

	gotStr, ok := extractLastNumber(response)
	if !ok {
		return 0, errors.New("numeric: could not extract number from response")
	}
	gotNum, ok := parseFloat(gotStr)
	if !ok {
		return 0, fmt.Errorf("numeric: invalid predicted number %q", gotStr)
	}

	tol := s.Tolerance
	if tol <= 0 {
		tol = 1e-9
	}
	if math.Abs(expNum-gotNum) < tol {
		return 1, nil
	}
	return 0, nil
}

func extractExpectedNumber(answer string) string {
	s := strings.TrimSpace(answer)
	if idx := strings.LastIndex(s, "####"); idx >= 0 {
		s = strings.TrimSpace(s[idx+4:])
	}
	if n, ok := extractLastNumber(s); ok {
		return n
	}
	return strings.TrimSpace(s)
}

func extractLastNumber(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	start := -1
	end := -1
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' || c == ',' {
			end = i + 1
			start = i
			for start > 0 {
				pc := s[start-1]
				if (pc >= '0' && pc <= '9') || pc == '.' || pc == ',' || pc == '-' {
					start--
					continue
				}
				break
			}
			break
		}
	}
	if start < 0 || end < 0 || start >= end {
		return "", false
	}
	raw := strings.TrimSpace(s[start:end])
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.Trim(raw, ".")
	if raw == "" || raw == "-" {
		return "", false
	}
	return raw, true
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}
