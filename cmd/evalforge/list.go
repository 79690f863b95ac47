package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newBenchmarksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "benchmarks",
		Short: "List available benchmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := newQuestionStore()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "BENCHMARK\tQUESTIONS")
			for _, name := range store.Benchmarks() {
				qs, err := store.Load(context.Background(), name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%d\n", name, len(qs))
			}
			return w.Flush()
		},
	}
}
