// Package pipeline drives a full processing pass over a batch of raw rows:
// normalize, merge, classify, detect, forecast, prioritize, in that strict
// order. State in, state out; the caller decides what to persist.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finsight-dev/finsight/internal/actions"
	"github.com/finsight-dev/finsight/internal/config"
	"github.com/finsight-dev/finsight/internal/detect"
	"github.com/finsight-dev/finsight/internal/forecast"
	"github.com/finsight-dev/finsight/internal/ledger"
	"github.com/finsight-dev/finsight/internal/model"
	"github.com/finsight-dev/finsight/internal/normalize"
	"github.com/finsight-dev/finsight/internal/rules"
)

// ErrEmptyBatch rejects an ingestion run with no rows. An empty batch is an
// operator mistake, not a data quality issue.
var ErrEmptyBatch = errors.New("ingestion batch contains no rows")

// State is everything the pipeline reads and writes. Each successful pass
// returns a new State with the version bumped; the input State is never
// mutated.
type State struct {
	Version int
	Ledger  *ledger.Ledger
	Rules   *rules.Store
}

// NewState returns an empty version-zero State.
func NewState() State {
	return State{Ledger: ledger.New(), Rules: rules.NewStore()}
}

func (s State) clone() State {
	return State{
		Version: s.Version,
		Ledger:  ledger.FromSnapshot(s.Ledger.Transactions(), s.Ledger.Accounts()),
		Rules:   rules.FromSnapshot(s.Rules.Snapshot()),
	}
}

// Report is the complete outcome of one ingestion pass.
type Report struct {
	Merge      ledger.MergeReport
	Classified int
	Series     []model.RecurringSeries
	Anomalies  []model.Anomaly
	Forecast   forecast.Projection
	Actions    []model.ActionItem
}

// Run executes one full pass: the batch is normalized and merged, the rule
// store classifies whatever it can, and the detection, forecast, and action
// stages recompute their derived state from the merged ledger. Row-level
// problems surface in the report; only an empty batch fails the run.
func Run(state State, rows []model.RawRow, now time.Time, cfg *config.Config) (State, Report, error) {
	if len(rows) == 0 {
		return state, Report{}, ErrEmptyBatch
	}

	next := state.clone()
	next.Version++

	batch, malformed := normalize.Rows(rows)
	report := Report{Merge: next.Ledger.Merge(batch, malformed, cfg.Ledger)}
	report.Classified = classify(next.Ledger, next.Rules)

	txns := next.Ledger.Transactions()
	report.Series = detect.Recurring(txns, cfg.Detection)
	report.Anomalies = detect.Anomalies(txns, report.Series, cfg.Detection)
	report.Forecast = forecast.Project(txns, report.Series, now, cfg.Forecast)

	overdue := detect.Overdue(report.Series, now, cfg.Actions.MissedRecurringGraceDays)
	report.Actions = actions.Build(txns, []model.QualityReport{report.Merge.Quality}, report.Anomalies, overdue, now, cfg.Actions)

	return next, report, nil
}

// classify applies the rule store to every uncategorized transaction and
// returns how many were labeled. Matching never mutates the rule store.
func classify(led *ledger.Ledger, store *rules.Store) int {
	classified := 0
	for _, t := range led.Uncategorized() {
		match, ok := store.Classify(t)
		if !ok {
			continue
		}
		if err := led.SetCategory(t.ID, match.Category, match.Confidence, match.RuleID); err != nil {
			continue
		}
		classified++
	}
	return classified
}

// Label is one user-confirmed category assignment.
type Label struct {
	TransactionID string
	Category      string
}

// LabelReport is the outcome of one learning pass.
type LabelReport struct {
	Events      []rules.Event
	Diagnostics []model.Diagnostic
}

// ApplyLabels runs the learning phase: each label is written to the ledger
// with full confidence and fed to the learner so future batches classify
// the same merchants automatically. Learning and ingestion never run in the
// same pass.
func ApplyLabels(state State, labels []Label, now time.Time, cfg *config.Config) (State, LabelReport, error) {
	next := state.clone()
	next.Version++

	learner := rules.NewLearner(next.Rules, cfg.Learning)
	var report LabelReport
	for _, label := range labels {
		txn, ok := next.Ledger.Get(label.TransactionID)
		if !ok {
			return state, LabelReport{}, fmt.Errorf("labeling %s: unknown transaction", label.TransactionID)
		}
		events, diags := learner.ObserveLabel(txn, label.Category, now)
		report.Events = append(report.Events, events...)
		report.Diagnostics = append(report.Diagnostics, diags...)
		if err := next.Ledger.SetCategory(txn.ID, label.Category, decimal.NewFromInt(1), ""); err != nil {
			return state, LabelReport{}, fmt.Errorf("labeling %s: %w", label.TransactionID, err)
		}
	}
	return next, report, nil
}
