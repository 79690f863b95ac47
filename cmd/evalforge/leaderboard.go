package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type leaderboardOptions struct {
	benchmark string
	model     string
	limit     int
	output    string
}

func newLeaderboardCmd(st *cliState) *cobra.Command {
	var opts leaderboardOptions

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show ranked results for a benchmark",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadState(st)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeaderboard(cmd, st, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.benchmark, "benchmark", "", "benchmark to list")
	cmd.Flags().StringVar(&opts.model, "model", "", "show history for one model instead")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "max entries")
	cmd.Flags().StringVar(&opts.output, "output", "", "output format: table|json")

	return cmd
}

func runLeaderboard(cmd *cobra.Command, st *cliState, opts *leaderboardOptions) error {
	if st == nil || st.cfg == nil {
		return fmt.Errorf("leaderboard: missing config (internal error)")
	}
	benchmark := strings.TrimSpace(opts.benchmark)
	if benchmark == "" {
		return fmt.Errorf("leaderboard: missing --benchmark")
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

	if model := strings.TrimSpace(opts.model); model != "" {
		entries, err := lb.GetModelHistory(cmd.Context(), model, benchmark)
		if err != nil {
			return err
		}
		return renderLeaderboard(cmd, entries, format)
	}

	entries, err := lb.GetLeaderboard(cmd.Context(), benchmark, opts.limit)
	if err != nil {
		return err
	}
	return renderLeaderboard(cmd, entries, format)
}
