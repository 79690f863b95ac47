package stats

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrEmptySample is returned when aggregation is asked to summarize zero
// scored questions.
var ErrEmptySample = errors.New("stats: empty sample")

const DefaultConfidence = 0.95

// zValues holds two-sided critical values for the supported confidence
// levels.
var zValues = map[float64]float64{
	0.90: 1.6449,
	0.95: 1.959964,
	0.99: 2.5758,
}

// BenchmarkScore summarizes one model on one benchmark.
type BenchmarkScore struct {
	Model      string        `json:"model"`
	Benchmark  string        `json:"benchmark"`
	Accuracy   float64       `json:"accuracy"`
	Margin     float64       `json:"margin"`
	Confidence float64       `json:"confidence"`
	SampleSize int           `json:"sample_size"`
	WilsonLow  float64       `json:"wilson_low"`
	WilsonHigh float64       `json:"wilson_high"`
	StdErr     float64       `json:"std_err"`
	Elapsed    time.Duration `json:"elapsed"`
}

// ZValue returns the critical value for a confidence level. Unsupported
// levels fall back to 0.95.
func ZValue(confidence float64) float64 {
	if z, ok := zValues[confidence]; ok {
		return z
	}
	return zValues[DefaultConfidence]
}

// Aggregate computes mean accuracy and a normal-approximation confidence
// margin over per-question scores in [0, 1].
func Aggregate(model, benchmark string, scores []float64, confidence float64) (*BenchmarkScore, error) {
	if len(scores) == 0 {
		return nil, fmt.Errorf("aggregate %s on %s: %w", model, benchmark, ErrEmptySample)
	}
	if _, ok := zValues[confidence]; !ok {
		confidence = DefaultConfidence
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	n := float64(len(scores))
	p := sum / n

	low, high := WilsonInterval(p, len(scores), confidence)

	return &BenchmarkScore{
		Model:      model,
		Benchmark:  benchmark,
		Accuracy:   p,
		Margin:     Margin(p, len(scores), confidence),
		Confidence: confidence,
		SampleSize: len(scores),
		WilsonLow:  low,
		WilsonHigh: high,
		StdErr:     StandardError(p, len(scores)),
	}, nil
}

// Margin is the half-width of the normal-approximation interval,
// z * sqrt(p(1-p)/n). It is 0 when p is 0 or 1.
func Margin(p float64, n int, confidence float64) float64 {
	if n <= 0 {
		return 0
	}
	return ZValue(confidence) * StandardError(p, n)
}

// StandardError is sqrt(p(1-p)/n) for a proportion p over n trials.
func StandardError(p float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return math.Sqrt(p * (1 - p) / float64(n))
}

// WilsonInterval computes the Wilson score interval, which stays inside
// [0, 1] and behaves better than the normal approximation at extreme
// accuracies and small samples.
func WilsonInterval(p float64, n int, confidence float64) (low, high float64) {
	if n <= 0 {
		return 0, 0
	}
	z := ZValue(confidence)
	nf := float64(n)
	z2 := z * z

	denom := 1 + z2/nf
	center := (p + z2/(2*nf)) / denom
	margin := (z / denom) * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf))

	low = math.Max(0, center-margin)
	high = math.Min(1, center+margin)
	return low, high
}

// McNemar runs McNemar's test with continuity correction on paired
// per-question outcomes. b counts questions only the first model got
// right, c questions only the second did. Returns the chi-squared
// statistic and its p-value (1 df). With b+c == 0 the models never
// disagreed and p is 1.
func McNemar(b, c int) (stat, p float64) {
	if b+c == 0 {
		return 0, 1
	}
	diff := math.Abs(float64(b-c)) - 1
	if diff < 0 {
		diff = 0
	}
	stat = diff * diff / float64(b+c)
	return stat, 1 - chiSquaredCDF1(stat)
}

// chiSquaredCDF1 is the CDF of chi-squared with one degree of freedom,
// erf(sqrt(x/2)).
func chiSquaredCDF1(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Erf(math.Sqrt(x / 2))
}

// CohensH measures the effect size between two proportions via the
// arcsine transform, h = 2*asin(sqrt(p1)) - 2*asin(sqrt(p2)).
func CohensH(p1, p2 float64) float64 {
	return 2*math.Asin(math.Sqrt(clamp01(p1))) - 2*math.Asin(math.Sqrt(clamp01(p2)))
}

// EffectMagnitude labels |h| with the conventional thresholds.
func EffectMagnitude(h float64) string {
	a := math.Abs(h)
	switch {
	case a < 0.2:
		return "negligible"
	case a < 0.5:
		return "small"
	case a < 0.8:
		return "medium"
	default:
		return "large"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
