package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evalforge/evalforge/internal/config"
	"github.com/evalforge/evalforge/internal/gateway"
	"github.com/evalforge/evalforge/internal/leaderboard"
	"github.com/evalforge/evalforge/internal/llm"
	"github.com/evalforge/evalforge/internal/question"
	"github.com/evalforge/evalforge/internal/runner"
	"github.com/evalforge/evalforge/internal/scorer"
)

type cliState struct {
	configPath string
	verbose    bool
	cfg        *config.Config
}

func (st *cliState) logger() *zap.Logger {
	if st == nil || !st.verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

var (
	osExit                 = os.Exit
	stderrWriter io.Writer = os.Stderr
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderrWriter, err)
		osExit(1)
	}
}

func newRootCmd() *cobra.Command {
	st := &cliState{configPath: config.DefaultPath}

	root := &cobra.Command{
		Use:           "evalforge",
		Short:         "Evaluate and compare language models on benchmarks",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&st.configPath, "config", st.configPath, "path to config file")
	root.PersistentFlags().BoolVar(&st.verbose, "verbose", false, "enable debug logging")

	root.AddCommand(newRunCmd(st))
	root.AddCommand(newCompareCmd(st))
	root.AddCommand(newLeaderboardCmd(st))
	root.AddCommand(newBenchmarksCmd())
	return root
}

// loadState fills st.cfg, falling back to builtin defaults when no config
// file exists at the default path.
func loadState(st *cliState) error {
	cfg, err := config.Load(st.configPath)
	if err != nil {
		if st.configPath == config.DefaultPath && errors.Is(err, os.ErrNotExist) {
			st.cfg = config.Default()
			return nil
		}
		return err
	}
	st.cfg = cfg
	return nil
}

func newQuestionStore() *question.Store {
	store := question.NewStore()
	question.RegisterDemoSources(store)
	return store
}

func resolveProvider(cfg *config.Config, providerFlag, modelFlag string) (llm.Provider, string, error) {
	if cfg == nil {
		return nil, "", fmt.Errorf("evalforge: missing config")
	}

	name := strings.ToLower(strings.TrimSpace(providerFlag))
	if name == "anthropic" {
		name = "claude"
	}

	var provider llm.Provider
	var err error
	if name == "" {
		provider, err = llm.DefaultProviderFromConfig(cfg)
		if err != nil {
			return nil, "", err
		}
	} else {
		reg, rerr := llm.NewRegistryFromConfig(cfg)
		if rerr != nil {
			return nil, "", rerr
		}
		p, ok := reg.Get(name)
		if !ok {
			available := reg.Names()
			sort.Strings(available)
			return nil, "", fmt.Errorf("evalforge: provider %q not configured (available: %s)", name, strings.Join(available, ", "))
		}
		provider = p
	}

	model := strings.TrimSpace(modelFlag)
	if model == "" {
		if pcfg, ok := cfg.LLM.Providers[provider.Name()]; ok {
			model = strings.TrimSpace(pcfg.Model)
		}
	}
	if model == "" {
		model = "default"
	}
	return provider, model, nil
}

func newRunnerFromConfig(cfg *config.Config, provider llm.Provider, log *zap.Logger) *runner.Runner {
	gw := gateway.New(provider, gateway.Config{
		Timeout:     cfg.Evaluation.Timeout,
		RetryMax:    cfg.Evaluation.Retries,
		RetryBase:   cfg.Evaluation.RetryBaseDelay,
		Concurrency: cfg.Evaluation.Concurrency,
	}, log)
	return runner.New(newQuestionStore(), scorer.NewDefaultRegistry(), gw, log)
}

func openLeaderboardStore(cfg *config.Config) (*leaderboard.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("leaderboard: missing config")
	}

	storageType := strings.ToLower(strings.TrimSpace(cfg.Storage.Type))
	if storageType == "" {
		storageType = "sqlite"
	}

	switch storageType {
	case "sqlite":
		path := strings.TrimSpace(cfg.Storage.Path)
		if path == "" {
			path = leaderboard.DefaultSQLitePath
		}
		return leaderboard.NewStore(path)
	case "memory":
		return leaderboard.NewStore(":memory:")
	default:
		return nil, fmt.Errorf("leaderboard: unsupported type %q", storageType)
	}
}
