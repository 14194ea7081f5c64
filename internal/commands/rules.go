package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newRulesCommand(dataDir *string) *cobra.Command {
	var showRetired bool

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List classification rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, s, err := loadState(*dataDir)
			if err != nil {
				return err
			}
			defer s.Close()

			all := state.Rules.Rules()
			if len(all) == 0 {
				fmt.Println("No rules yet. Label some transactions first.")
				return nil
			}

			for _, r := range all {
				if !r.Active && !showRetired {
					continue
				}
				line := fmt.Sprintf("%-40s %-14s %-20s conf %s  hits %d  (%s)",
					r.ID, r.Kind, r.Category, r.Confidence.StringFixed(2), r.Hits, r.Source)
				if r.Active {
					fmt.Println(line)
				} else {
					color.New(color.Faint).Printf("%s retired\n", line)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showRetired, "all", false, "include retired rules")
	return cmd
}
