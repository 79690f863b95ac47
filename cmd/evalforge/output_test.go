package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/evalforge/evalforge/internal/compare"
	"github.com/evalforge/evalforge/internal/leaderboard"
	"github.com/evalforge/evalforge/internal/runner"
	"github.com/evalforge/evalforge/internal/stats"
)

func captureCmd() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	return cmd, &buf
}

func TestResolveOutputFormat(t *testing.T) {
	cases := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yaml", "", true},
	}
	for _, tc := range cases {
		got, err := resolveOutputFormat(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("resolveOutputFormat(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("resolveOutputFormat(%q) = %v, %v", tc.in, got, err)
		}
	}
}

func TestRenderRunTable(t *testing.T) {
	cmd, buf := captureCmd()
	pr := &runner.PairResult{
		RunID:     "run-1",
		Model:     "m1",
		Benchmark: "mmlu",
		State:     runner.StateDone,
		Elapsed:   1500 * time.Millisecond,
		Score: &stats.BenchmarkScore{
			Model:      "m1",
			Benchmark:  "mmlu",
			Accuracy:   0.75,
			Margin:     0.1,
			Confidence: 0.95,
			SampleSize: 8,
			WilsonLow:  0.6,
			WilsonHigh: 0.85,
		},
	}
	if err := renderRun(cmd, pr, FormatTable); err != nil {
		t.Fatalf("renderRun: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"m1 on mmlu", "0.7500", "n=8", "Wilson"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderRunJSON(t *testing.T) {
	cmd, buf := captureCmd()
	pr := &runner.PairResult{RunID: "run-1", Model: "m1", Benchmark: "mmlu"}
	if err := renderRun(cmd, pr, FormatJSON); err != nil {
		t.Fatalf("renderRun: %v", err)
	}
	if !strings.Contains(buf.String(), `"run_id": "run-1"`) {
		t.Fatalf("json output missing run id:\n%s", buf.String())
	}
}

func TestRenderLeaderboard(t *testing.T) {
	cmd, buf := captureCmd()
	entries := []leaderboard.Entry{
		{Model: "m1", Provider: "claude", Accuracy: 0.9, Margin: 0.05, SampleSize: 100, EvalDate: time.UnixMilli(0).UTC()},
		{Model: "m2", Provider: "openai", Accuracy: 0.8, Margin: 0.06, SampleSize: 100, EvalDate: time.UnixMilli(0).UTC()},
	}
	if err := renderLeaderboard(cmd, entries, FormatTable); err != nil {
		t.Fatalf("renderLeaderboard: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "RANK") || !strings.Contains(out, "m1") {
		t.Fatalf("table missing content:\n%s", out)
	}
	if strings.Index(out, "m1") > strings.Index(out, "m2") {
		t.Fatalf("entries out of order:\n%s", out)
	}
}

func TestRenderReport(t *testing.T) {
	cmd, buf := captureCmd()
	report := &compare.Report{
		Models: []string{"m1", "m2"},
		Benchmarks: []compare.BenchmarkRanking{{
			Benchmark: "mmlu",
			Entries: []compare.Entry{
				{Rank: 1, Score: &stats.BenchmarkScore{Model: "m1", Accuracy: 0.9, Margin: 0.05, SampleSize: 100}},
				{Rank: 2, Score: &stats.BenchmarkScore{Model: "m2", Accuracy: 0.8, Margin: 0.05, SampleSize: 100}},
			},
		}},
		Overall: []compare.OverallEntry{
			{Rank: 1, Model: "m1", MeanAccuracy: 0.9},
			{Rank: 2, Model: "m2", MeanAccuracy: 0.8},
		},
	}
	if err := renderReport(cmd, report, FormatTable); err != nil {
		t.Fatalf("renderReport: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Benchmark: mmlu", "Overall", "m1", "0.9000"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestCompactArgs(t *testing.T) {
	got := compactArgs([]string{" m1 ", "", "m2"})
	if len(got) != 2 || got[0] != "m1" || got[1] != "m2" {
		t.Fatalf("compactArgs = %v", got)
	}
}
