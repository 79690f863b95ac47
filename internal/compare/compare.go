package compare

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/evalforge/evalforge/internal/runner"
	"github.com/evalforge/evalforge/internal/stats"
)

// Pair names one model-benchmark combination.
type Pair struct {
	Model     string `json:"model"`
	Benchmark string `json:"benchmark"`
}

func (p Pair) String() string {
	return p.Model + "/" + p.Benchmark
}

// IncompleteError reports which model-benchmark pairs a comparison is
// missing. The caller can run the missing pairs and retry.
type IncompleteError struct {
	Missing []Pair
}

func (e *IncompleteError) Error() string {
	if e == nil || len(e.Missing) == 0 {
		return "compare: incomplete comparison"
	}
	names := make([]string, len(e.Missing))
	for i, p := range e.Missing {
		names[i] = p.String()
	}
	return fmt.Sprintf("compare: incomplete comparison, missing %d pair(s): %s",
		len(e.Missing), strings.Join(names, ", "))
}

// Entry is one model's row in a benchmark ranking.
type Entry struct {
	Rank  int                   `json:"rank"`
	Score *stats.BenchmarkScore `json:"score"`
}

// BenchmarkRanking orders all models on one benchmark.
type BenchmarkRanking struct {
	Benchmark string  `json:"benchmark"`
	Entries   []Entry `json:"entries"`
}

// OverallEntry ranks a model across every benchmark by mean accuracy.
type OverallEntry struct {
	Rank         int     `json:"rank"`
	Model        string  `json:"model"`
	MeanAccuracy float64 `json:"mean_accuracy"`
}

// Report is a complete cross-model comparison.
type Report struct {
	Models     []string           `json:"models"`
	Benchmarks []BenchmarkRanking `json:"benchmarks"`
	Overall    []OverallEntry     `json:"overall"`
}

// Build assembles a comparison report from aggregated scores. Every model
// must have a score on every benchmark; otherwise an *IncompleteError
// listing all missing pairs is returned and no report is built.
func Build(models, benchmarks []string, scores []*stats.BenchmarkScore) (*Report, error) {
	if len(models) == 0 {
		return nil, errors.New("compare: no models")
	}
	if len(benchmarks) == 0 {
		return nil, errors.New("compare: no benchmarks")
	}

	byPair := make(map[Pair]*stats.BenchmarkScore, len(scores))
	for _, s := range scores {
		if s == nil {
			continue
		}
		byPair[Pair{Model: s.Model, Benchmark: s.Benchmark}] = s
	}

	var missing []Pair
	for _, m := range models {
		for _, b := range benchmarks {
			if _, ok := byPair[Pair{Model: m, Benchmark: b}]; !ok {
				missing = append(missing, Pair{Model: m, Benchmark: b})
			}
		}
	}
	if len(missing) > 0 {
		return nil, &IncompleteError{Missing: missing}
	}

	report := &Report{Models: append([]string(nil), models...)}
	sort.Strings(report.Models)

	meanByModel := make(map[string]float64, len(models))
	for _, b := range benchmarks {
		ranking := BenchmarkRanking{Benchmark: b}
		for _, m := range models {
			s := byPair[Pair{Model: m, Benchmark: b}]
			ranking.Entries = append(ranking.Entries, Entry{Score: s})
			meanByModel[m] += s.Accuracy
		}
		rankEntries(ranking.Entries)
		report.Benchmarks = append(report.Benchmarks, ranking)
	}
	sort.Slice(report.Benchmarks, func(i, j int) bool {
		return report.Benchmarks[i].Benchmark < report.Benchmarks[j].Benchmark
	})

	for _, m := range report.Models {
		report.Overall = append(report.Overall, OverallEntry{
			Model:        m,
			MeanAccuracy: meanByModel[m] / float64(len(benchmarks)),
		})
	}
	sort.SliceStable(report.Overall, func(i, j int) bool {
		a, b := report.Overall[i], report.Overall[j]
		if a.MeanAccuracy != b.MeanAccuracy {
			return a.MeanAccuracy > b.MeanAccuracy
		}
		return a.Model < b.Model
	})
	for i := range report.Overall {
		report.Overall[i].Rank = i + 1
	}

	return report, nil
}

// rankEntries sorts one benchmark's entries: accuracy descending, then
// narrower margin first, then model ID.
func rankEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Score, entries[j].Score
		if a.Accuracy != b.Accuracy {
			return a.Accuracy > b.Accuracy
		}
		if a.Margin != b.Margin {
			return a.Margin < b.Margin
		}
		return a.Model < b.Model
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

// HeadToHead runs a paired significance test between two runs of the same
// benchmark, matching questions by ID.
type HeadToHead struct {
	ModelA    string  `json:"model_a"`
	ModelB    string  `json:"model_b"`
	Benchmark string  `json:"benchmark"`
	OnlyA     int     `json:"only_a"` // questions only A got right
	OnlyB     int     `json:"only_b"`
	Shared    int     `json:"shared"` // questions both answered
	ChiSq     float64 `json:"chi_sq"`
	PValue    float64 `json:"p_value"`
	CohensH   float64 `json:"cohens_h"`
	Magnitude string  `json:"magnitude"`
}

func BuildHeadToHead(a, b *runner.PairResult) (*HeadToHead, error) {
	if a == nil || b == nil {
		return nil, errors.New("compare: nil pair result")
	}
	if a.Benchmark != b.Benchmark {
		return nil, fmt.Errorf("compare: benchmark mismatch: %s vs %s", a.Benchmark, b.Benchmark)
	}

	passedA := passedByQuestion(a)
	h := &HeadToHead{
		ModelA:    a.Model,
		ModelB:    b.Model,
		Benchmark: a.Benchmark,
	}
	for _, qr := range b.Results {
		if qr.Err != nil {
			continue
		}
		pa, ok := passedA[qr.QuestionID]
		if !ok {
			continue
		}
		h.Shared++
		switch {
		case pa && !qr.Passed:
			h.OnlyA++
		case !pa && qr.Passed:
			h.OnlyB++
		}
	}
	if h.Shared == 0 {
		return nil, errors.New("compare: no shared questions")
	}

	h.ChiSq, h.PValue = stats.McNemar(h.OnlyA, h.OnlyB)
	pA := proportionPassed(a)
	pB := proportionPassed(b)
	h.CohensH = stats.CohensH(pA, pB)
	h.Magnitude = stats.EffectMagnitude(h.CohensH)
	return h, nil
}

func passedByQuestion(pr *runner.PairResult) map[string]bool {
	out := make(map[string]bool, len(pr.Results))
	for _, qr := range pr.Results {
		if qr.Err != nil {
			continue
		}
		out[qr.QuestionID] = qr.Passed
	}
	return out
}

func proportionPassed(pr *runner.PairResult) float64 {
	var n, passed int
	for _, qr := range pr.Results {
		if qr.Err != nil {
			continue
		}
		n++
		if qr.Passed {
			passed++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(passed) / float64(n)
}
