package commands

import (
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/finsight-dev/finsight/internal/actions"
	"github.com/finsight-dev/finsight/internal/detect"
	"github.com/finsight-dev/finsight/internal/forecast"
	"github.com/finsight-dev/finsight/internal/ledger"
	"github.com/finsight-dev/finsight/internal/model"
	"github.com/finsight-dev/finsight/internal/suggest"
)

func newReportCommand(dataDir *string) *cobra.Command {
	var withSuggestions bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show ledger totals, recurring series, forecast, and open actions",
		Args:  cobra.NoArgs,
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

			now := time.Now().UTC()
			txns := state.Ledger.Transactions()

			bold := color.New(color.Bold)
			bold.Println("Accounts")
			totalsByAccount := state.Ledger.TotalsByAccount(false)
			accounts := make([]string, 0, len(totalsByAccount))
			for account := range totalsByAccount {
				accounts = append(accounts, account)
			}
			sort.Strings(accounts)
			for _, account := range accounts {
				totals := totalsByAccount[account]
				fmt.Printf("  %-20s in %12s  out %12s  net %12s\n",
					account, totals.Income.StringFixed(2), totals.Spend.StringFixed(2), totals.Net().StringFixed(2))
			}

			series := detect.Recurring(txns, cfg.Detection)
			if len(series) > 0 {
				bold.Println("\nRecurring")
				for _, sr := range series {
					fmt.Printf("  %-30s every %3dd  ~%10s  next %s\n",
						sr.MerchantToken, sr.PeriodDays, sr.ExpectedAmount.StringFixed(2), sr.ExpectedNext.Format("2006-01-02"))
				}
			}

			projection := forecast.Project(txns, series, now, cfg.Forecast)
			bold.Println("\nForecast")
			for _, h := range projection.Horizons {
				fmt.Printf("  %3dd  net %12s  (recurring %s, run-rate %s)\n",
					h.Days, h.Net.StringFixed(2), h.RecurringNet.StringFixed(2), h.RunRateNet.StringFixed(2))
			}

			anomalies := detect.Anomalies(txns, series, cfg.Detection)
			overdue := detect.Overdue(series, now, cfg.Actions.MissedRecurringGraceDays)
			queue := actions.Build(txns, nil, anomalies, overdue, now, cfg.Actions)
			if len(queue) > 0 {
				bold.Println("\nActions")
				for _, item := range queue {
					line := fmt.Sprintf("[%s] %s", item.Kind, item.Reason)
					switch item.Kind {
					case model.ActionAnomaly, model.ActionMissedRecurring:
						color.Red("  %s", line)
					default:
						color.Yellow("  %s", line)
					}
				}
			}

			if withSuggestions {
				printSuggestions(state.Ledger, bold)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withSuggestions, "suggest", false, "propose categories for uncategorized transactions")
	return cmd
}

func printSuggestions(led *ledger.Ledger, bold *color.Color) {
	suggester, err := suggest.Train(led.Transactions())
	if err != nil {
		fmt.Printf("\nNo suggestions yet: %v\n", err)
		return
	}
	uncategorized := led.Uncategorized()
	if len(uncategorized) == 0 {
		return
	}
	bold.Println("\nSuggestions")
	for _, txn := range uncategorized {
		proposals := suggester.Suggest(txn, 2)
		if len(proposals) == 0 {
			continue
		}
		fmt.Printf("  %s %-40s -> %s\n", txn.ID, txn.Description, proposals[0].Category)
	}
}
