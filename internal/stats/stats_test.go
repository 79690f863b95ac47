package stats

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestAggregateMean(t *testing.T) {
	scores := []float64{1, 0, 1, 1, 0, 1, 1, 1}
	bs, err := Aggregate("m1", "mmlu", scores, 0.95)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !almostEqual(bs.Accuracy, 0.75, 1e-12) {
		t.Fatalf("accuracy = %v, want 0.75", bs.Accuracy)
	}
	if bs.SampleSize != 8 {
		t.Fatalf("sample size = %d, want 8", bs.SampleSize)
	}
	if bs.Confidence != 0.95 {
		t.Fatalf("confidence = %v, want 0.95", bs.Confidence)
	}
}

func TestAggregateEmpty(t *testing.T) {
	_, err := Aggregate("m1", "mmlu", nil, 0.95)
	if !errors.Is(err, ErrEmptySample) {
		t.Fatalf("expected ErrEmptySample, got %v", err)
	}
}

func TestPerfectAccuracyZeroMargin(t *testing.T) {
	scores := []float64{1, 1, 1, 1, 1, 1, 1, 1}
	bs, err := Aggregate("m1", "demo", scores, 0.95)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if bs.Accuracy != 1.0 {
		t.Fatalf("accuracy = %v, want 1.0", bs.Accuracy)
	}
	if bs.Margin != 0 {
		t.Fatalf("margin = %v, want 0 at p=1", bs.Margin)
	}
}

func TestHalfAccuracyMargin(t *testing.T) {
	// 4 of 8 correct: margin = 1.96 * sqrt(0.25/8) ~ 0.3465.
	scores := []float64{1, 1, 1, 1, 0, 0, 0, 0}
	bs, err := Aggregate("m1", "demo", scores, 0.95)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !almostEqual(bs.Accuracy, 0.5, 1e-12) {
		t.Fatalf("accuracy = %v, want 0.5", bs.Accuracy)
	}
	if !almostEqual(bs.Margin, 0.3465, 5e-4) {
		t.Fatalf("margin = %v, want ~0.3465", bs.Margin)
	}
}

func TestMarginShrinksWithSampleSize(t *testing.T) {
	small := Margin(0.7, 100, 0.95)
	large := Margin(0.7, 1000, 0.95)
	if large >= small {
		t.Fatalf("margin must shrink with n: n=100 %v, n=1000 %v", small, large)
	}
	// n=500 at p=0.5 gives roughly +-4.4 points.
	if m := Margin(0.5, 500, 0.95); !almostEqual(m, 0.0438, 5e-4) {
		t.Fatalf("margin(0.5, 500) = %v, want ~0.0438", m)
	}
}

func TestZValueFallback(t *testing.T) {
	if z := ZValue(0.95); !almostEqual(z, 1.959964, 1e-6) {
		t.Fatalf("z(0.95) = %v", z)
	}
	if z := ZValue(0.123); !almostEqual(z, 1.959964, 1e-6) {
		t.Fatalf("unsupported confidence must fall back to 0.95, got %v", z)
	}
}

func TestWilsonIntervalBounds(t *testing.T) {
	low, high := WilsonInterval(1.0, 8, 0.95)
	if low < 0 || high > 1 {
		t.Fatalf("wilson interval out of [0,1]: [%v, %v]", low, high)
	}
	if high != 1 {
		t.Fatalf("wilson high at p=1 should hit 1, got %v", high)
	}
	if low <= 0.6 || low >= 1 {
		t.Fatalf("wilson low at p=1, n=8 should stay below 1 and well above 0.6, got %v", low)
	}

	low, high = WilsonInterval(0.5, 100, 0.95)
	if !(low < 0.5 && 0.5 < high) {
		t.Fatalf("interval must bracket p: [%v, %v]", low, high)
	}
}

func TestMcNemar(t *testing.T) {
	stat, p := McNemar(0, 0)
	if stat != 0 || p != 1 {
		t.Fatalf("no disagreement: stat=%v p=%v, want 0 and 1", stat, p)
	}

	// b=15, c=5: stat = (|15-5|-1)^2 / 20 = 4.05.
	stat, p = McNemar(15, 5)
	if !almostEqual(stat, 4.05, 1e-12) {
		t.Fatalf("stat = %v, want 4.05", stat)
	}
	if p <= 0 || p >= 0.05 {
		t.Fatalf("p = %v, want significant at 0.05", p)
	}

	_, pEven := McNemar(10, 10)
	if pEven < 0.5 {
		t.Fatalf("balanced disagreement should be far from significant, p=%v", pEven)
	}
}

func TestCohensH(t *testing.T) {
	if h := CohensH(0.5, 0.5); h != 0 {
		t.Fatalf("equal proportions: h = %v, want 0", h)
	}
	h := CohensH(0.8, 0.5)
	if h <= 0 {
		t.Fatalf("p1 > p2 must give positive h, got %v", h)
	}
	if got := EffectMagnitude(h); got != "medium" {
		t.Fatalf("effect magnitude = %q, want medium (h=%v)", got, h)
	}
	if got := EffectMagnitude(0.05); got != "negligible" {
		t.Fatalf("h=0.05 magnitude = %q", got)
	}
	if got := EffectMagnitude(-0.9); got != "large" {
		t.Fatalf("h=-0.9 magnitude = %q", got)
	}
}
