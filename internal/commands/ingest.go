package commands

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/finsight-dev/finsight/internal/importer"
	"github.com/finsight-dev/finsight/internal/model"
	"github.com/finsight-dev/finsight/internal/pipeline"
)

func newIngestCommand(dataDir *string) *cobra.Command {
	var (
		format   string
		account  string
		currency string
	)

	cmd := &cobra.Command{
		Use:   "ingest <files...>",
		Short: "Parse bank exports and reconcile them into the ledger",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*dataDir)
			if err != nil {
				return err
			}

			registry := importer.DefaultRegistry()
			var rows []model.RawRow
			for _, path := range args {
				parsed, err := registry.ParseFile(format, path, account, currency)
				if err != nil {
					return err
				}
				rows = append(rows, parsed...)
			}

			state, s, err := loadState(*dataDir)
			if err != nil {
				return err
			}
			defer s.Close()

			next, report, err := pipeline.Run(state, rows, time.Now().UTC(), cfg)
			if err != nil {
				return err
			}
			if err := saveState(s, next); err != nil {
				return err
			}

			printIngestReport(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "generic", "import format (generic, swiss)")
	cmd.Flags().StringVar(&account, "account", "", "account the export belongs to (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVar(&currency, "currency", "USD", "fallback currency when the export has no currency column")

	return cmd
}

func printIngestReport(report pipeline.Report) {
	fmt.Printf("Batch %s: %d added, %d duplicates, %d classified\n",
		report.Merge.BatchID, report.Merge.Added, report.Merge.Duplicates, report.Classified)

	score := report.Merge.Quality.Score()
	fmt.Printf("Quality score: %s\n", score.StringFixed(2))

	if len(report.Merge.Malformed) > 0 {
		color.Red("%d malformed rows:", len(report.Merge.Malformed))
		for _, m := range report.Merge.Malformed {
			color.Red("  %v", m)
		}
	}
	for _, d := range report.Merge.Diagnostics {
		color.Yellow("  %s", d)
	}
	if len(report.Series) > 0 {
		fmt.Printf("%d recurring series tracked\n", len(report.Series))
	}
	if len(report.Anomalies) > 0 {
		color.Red("%d anomalies flagged", len(report.Anomalies))
	}
	if len(report.Actions) > 0 {
		fmt.Printf("%d open actions (see 'finsight report')\n", len(report.Actions))
	}
}
