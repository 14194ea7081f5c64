package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/finsight-dev/finsight/internal/pipeline"
	"github.com/finsight-dev/finsight/internal/rulelog"
)

func newLabelCommand(dataDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "label <txn-id> <category>",
		Short: "Assign a category to a transaction and learn from it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*dataDir)
			if err != nil {
				return err
			}
			state, s, err := loadState(*dataDir)
			if err != nil {
				return err
			}
			defer s.Close()

			labels := []pipeline.Label{{TransactionID: args[0], Category: args[1]}}
			next, report, err := pipeline.ApplyLabels(state, labels, time.Now().UTC(), cfg)
			if err != nil {
				return err
			}
			if err := saveState(s, next); err != nil {
				return err
			}
			if err := rulelog.Append(*dataDir, report.Events); err != nil {
				return err
			}

			fmt.Printf("Labeled %s as %s\n", args[0], args[1])
			for _, e := range report.Events {
				fmt.Printf("  %s %s: %s\n", e.Action, e.RuleID, e.Detail)
			}
			for _, d := range report.Diagnostics {
				fmt.Printf("  warning: %s\n", d)
			}
			return nil
		},
	}

	return cmd
}
