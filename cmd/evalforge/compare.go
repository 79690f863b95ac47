package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evalforge/evalforge/internal/compare"
)

type compareOptions struct {
	models     []string
	benchmarks []string
	output     string
}

func newCompareCmd(st *cliState) *cobra.Command {
	var opts compareOptions

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Build a ranking report from saved evaluation results",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadState(st)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, st, &opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.models, "models", nil, "models to compare (comma separated)")
	cmd.Flags().StringSliceVar(&opts.benchmarks, "benchmarks", nil, "benchmarks to compare on (comma separated)")
	cmd.Flags().StringVar(&opts.output, "output", "", "output format: table|json")

	return cmd
}

func runCompare(cmd *cobra.Command, st *cliState, opts *compareOptions) error {
	if st == nil || st.cfg == nil {
		return fmt.Errorf("compare: missing config (internal error)")
	}
	models := compactArgs(opts.models)
	benchmarks := compactArgs(opts.benchmarks)
	if len(models) < 2 {
		return fmt.Errorf("compare: need at least two --models")
	}
	if len(benchmarks) == 0 {
		return fmt.Errorf("compare: missing --benchmarks")
	}

	format, err := resolveOutputFormat(opts.output)
	if err != nil {
		return err
	}

	lb, err := openLeaderboardStore(st.cfg)
	if err != nil {
		return err
	}
	defer lb.Close()

	scores, err := lb.LatestScores(cmd.Context(), models, benchmarks)
	if err != nil {
		return err
	}

	report, err := compare.Build(models, benchmarks, scores)
	if err != nil {
		var inc *compare.IncompleteError
		if errors.As(err, &inc) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Comparison is incomplete. Run these pairs first:")
			for _, p := range inc.Missing {
				fmt.Fprintf(out, "  evalforge run --model %s --benchmark %s\n", p.Model, p.Benchmark)
			}
		}
		return err
	}

	return renderReport(cmd, report, format)
}

func compactArgs(in []string) []string {
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
