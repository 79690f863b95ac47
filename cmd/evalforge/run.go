package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"github.com/evalforge/evalforge/internal/gateway"
	"github.com/evalforge/evalforge/internal/leaderboard"
	"github.com/evalforge/evalforge/internal/runner"
)

type runOptions struct {
	model       string
	provider    string
	benchmark   string
	sampleSize  int
	seed        int64
	concurrency int
	output      string
	noProgress  bool
	noSave      bool
}

func newRunCmd(st *cliState) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate a model on a benchmark and save the result",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadState(st)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, st, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.model, "model", "", "model name (overrides config)")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "provider: claude|openai|ollama (overrides config)")
	cmd.Flags().StringVar(&opts.benchmark, "benchmark", "", "benchmark: mmlu|truthfulqa|hellaswag")
	cmd.Flags().IntVar(&opts.sampleSize, "sample-size", 0, "questions to sample (0 = config default)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "sampling seed (0 = config default)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "concurrent inferences (0 = config default)")
	cmd.Flags().StringVar(&opts.output, "output", "", "output format: table|json")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "disable the progress bar")
	cmd.Flags().BoolVar(&opts.noSave, "no-save", false, "skip saving to the leaderboard")

	return cmd
}

func runEval(cmd *cobra.Command, st *cliState, opts *runOptions) error {
	if st == nil || st.cfg == nil {
		return fmt.Errorf("run: missing config (internal error)")
	}
	benchmark := strings.ToLower(strings.TrimSpace(opts.benchmark))
	if benchmark == "" {
		return fmt.Errorf("run: missing --benchmark (mmlu|truthfulqa|hellaswag)")
	}

	provider, model, err := resolveProvider(st.cfg, opts.provider, opts.model)
	if err != nil {
		return err
	}

	format, err := resolveOutputFormat(opts.output)
	if err != nil {
		return err
	}

	runOpts := runner.Options{
		SampleSize:      st.cfg.Evaluation.SampleSize,
		Seed:            st.cfg.Evaluation.Seed,
		Concurrency:     st.cfg.Evaluation.Concurrency,
		Confidence:      st.cfg.Evaluation.Confidence,
		IncludeFailures: st.cfg.Evaluation.IncludeFailures,
	}
	if opts.sampleSize > 0 {
		runOpts.SampleSize = opts.sampleSize
	}
	if opts.seed != 0 {
		runOpts.Seed = opts.seed
	}
	if opts.concurrency > 0 {
		runOpts.Concurrency = opts.concurrency
	}

	var bar *pb.ProgressBar
	if !opts.noProgress && format == FormatTable {
		runOpts.OnProgress = func(p runner.Progress) {
			switch p.State {
			case runner.StateRunning:
				if bar == nil && p.Total > 0 {
					bar = pb.StartNew(p.Total)
				}
				if bar != nil {
					bar.SetCurrent(int64(p.Done))
				}
			case runner.StateAggregating, runner.StateDone, runner.StateFailed:
				if bar != nil {
					bar.SetCurrent(int64(p.Done))
					bar.Finish()
					bar = nil
				}
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := newRunnerFromConfig(st.cfg, provider, st.logger())
	pr, runErr := r.Run(ctx, model, benchmark, runOpts)
	if bar != nil {
		bar.Finish()
	}
	if runErr != nil {
		var fatal *gateway.FatalError
		if errors.As(runErr, &fatal) && pr != nil {
			// Show what finished before the abort.
			if err := renderRun(cmd, pr, format); err != nil {
				return err
			}
		}
		return runErr
	}

	if !opts.noSave {
		lb, err := openLeaderboardStore(st.cfg)
		if err != nil {
			return err
		}
		defer lb.Close()

		entry := leaderboard.FromScore(pr.RunID, provider.Name(), pr.Score)
		entry.EvalDate = time.Now().UTC()
		if err := lb.Save(cmd.Context(), entry); err != nil {
			return err
		}
	}

	return renderRun(cmd, pr, format)
}
