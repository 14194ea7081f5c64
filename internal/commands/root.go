// Package commands wires the CLI. Commands stay thin: they load state,
// call into the pipeline, persist, and print. Domain behavior lives in the
// internal packages, never here.
package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/finsight-dev/finsight/internal/buildinfo"
	"github.com/finsight-dev/finsight/internal/config"
	"github.com/finsight-dev/finsight/internal/pipeline"
	"github.com/finsight-dev/finsight/internal/store"
)

const (
	configFile = "finsight.yaml"
	dbFile     = "finsight.db"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var dataDir string

	rootCmd := &cobra.Command{
		Use:     "finsight",
		Short:   "Bank export reconciliation and transaction intelligence",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "dir", ".", "data directory")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newIngestCommand(&dataDir))
	rootCmd.AddCommand(newReportCommand(&dataDir))
	rootCmd.AddCommand(newLabelCommand(&dataDir))
	rootCmd.AddCommand(newRulesCommand(&dataDir))

	return rootCmd
}

func loadConfig(dataDir string) (*config.Config, error) {
	cfg, err := config.Load(filepath.Join(dataDir, configFile))
	if err != nil {
		return nil, fmt.Errorf("loading config (run 'finsight init' first?): %w", err)
	}
	return cfg, nil
}

func loadState(dataDir string) (pipeline.State, *store.Store, error) {
	s, err := store.Open(filepath.Join(dataDir, dbFile))
	if err != nil {
		return pipeline.State{}, nil, err
	}
	led, err := s.LoadLedger()
	if err != nil {
		s.Close()
		return pipeline.State{}, nil, err
	}
	rs, err := s.LoadRules()
	if err != nil {
		s.Close()
		return pipeline.State{}, nil, err
	}
	return pipeline.State{Ledger: led, Rules: rs}, s, nil
}

func saveState(s *store.Store, state pipeline.State) error {
	if err := s.SaveLedger(state.Ledger); err != nil {
		return err
	}
	return s.SaveRules(state.Rules.Snapshot())
}
