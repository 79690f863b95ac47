package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/evalforge/evalforge/internal/compare"
	"github.com/evalforge/evalforge/internal/leaderboard"
	"github.com/evalforge/evalforge/internal/runner"
)

type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
)

func resolveOutputFormat(flagValue string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(flagValue)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("invalid --output %q (expected table|json)", flagValue)
	}
}

func renderJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderRun(cmd *cobra.Command, pr *runner.PairResult, format OutputFormat) error {
	if pr == nil {
		return nil
	}
	if format == FormatJSON {
		return renderJSON(cmd, pr)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %s on %s (%s)\n", pr.RunID, pr.Model, pr.Benchmark, pr.State)
	if pr.Score != nil {
		s := pr.Score
		fmt.Fprintf(out, "Accuracy: %.4f +- %.4f (%.0f%% confidence, n=%d)\n",
			s.Accuracy, s.Margin, s.Confidence*100, s.SampleSize)
		fmt.Fprintf(out, "Wilson interval: [%.4f, %.4f], elapsed: %s\n",
			s.WilsonLow, s.WilsonHigh, pr.Elapsed.Round(time.Millisecond))
	}

	var failed int
	for _, qr := range pr.Results {
		if qr.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		fmt.Fprintf(out, "Failed questions: %d of %d\n", failed, len(pr.Results))
	}
	return nil
}

func renderLeaderboard(cmd *cobra.Command, entries []leaderboard.Entry, format OutputFormat) error {
	if format == FormatJSON {
		return renderJSON(cmd, entries)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tMODEL\tPROVIDER\tACCURACY\tMARGIN\tN\tDATE")
	for i, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.4f\t%.4f\t%d\t%s\n",
			i+1, e.Model, e.Provider, e.Accuracy, e.Margin, e.SampleSize,
			e.EvalDate.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func renderReport(cmd *cobra.Command, report *compare.Report, format OutputFormat) error {
	if report == nil {
		return nil
	}
	if format == FormatJSON {
		return renderJSON(cmd, report)
	}

	out := cmd.OutOrStdout()
	for _, ranking := range report.Benchmarks {
		fmt.Fprintf(out, "Benchmark: %s\n", ranking.Benchmark)
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RANK\tMODEL\tACCURACY\tMARGIN\tN")
		for _, e := range ranking.Entries {
			fmt.Fprintf(w, "%d\t%s\t%.4f\t%.4f\t%d\n",
				e.Rank, e.Score.Model, e.Score.Accuracy, e.Score.Margin, e.Score.SampleSize)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "Overall (mean accuracy):")
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tMODEL\tMEAN ACCURACY")
	for _, e := range report.Overall {
		fmt.Fprintf(w, "%d\t%s\t%.4f\n", e.Rank, e.Model, e.MeanAccuracy)
	}
	return w.Flush()
}
