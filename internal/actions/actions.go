// Package actions turns the pipeline's findings into a prioritized work
// queue. The queue is derived state: it is rebuilt from scratch on every
// pass and never persisted, so resolving an item is just fixing the
// underlying data.
package actions

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finsight-dev/finsight/internal/config"
	"github.com/finsight-dev/finsight/internal/model"
)

// Base severity per kind. Anomalies and missed recurring payments always
// outrank routine categorization work; the sub-unit magnitude and recency
// components only reorder items within a kind.
var kindWeights = map[model.ActionKind]decimal.Decimal{
	model.ActionAnomaly:         decimal.NewFromInt(3),
	model.ActionMissedRecurring: decimal.NewFromInt(3),
	model.ActionLowQuality:      decimal.NewFromInt(2),
	model.ActionUncategorized:   decimal.NewFromInt(1),
}

// Build assembles the action queue from the current ledger state and the
// latest detection pass. Items come back sorted by severity descending with
// a deterministic tie-break, so two identical states always produce the
// identical queue.
func Build(txns []model.Transaction, quality []model.QualityReport, anomalies []model.Anomaly, overdue []model.RecurringSeries, now time.Time, cfg config.ActionsConfig) []model.ActionItem {
	materiality, err := decimal.NewFromString(cfg.MaterialityThreshold)
	if err != nil {
		materiality = decimal.Zero
	}
	floor := decimal.NewFromFloat(cfg.QualityFloor)

	byID := make(map[string]model.Transaction, len(txns))
	for _, t := range txns {
		byID[t.ID] = t
	}

	var items []model.ActionItem
	items = append(items, uncategorizedItems(txns, materiality, now)...)
	items = append(items, lowQualityItems(quality, floor)...)
	items = append(items, anomalyItems(anomalies, byID, now)...)
	items = append(items, missedRecurringItems(overdue, now)...)

	sort.Slice(items, func(i, j int) bool {
		if !items[i].Severity.Equal(items[j].Severity) {
			return items[i].Severity.GreaterThan(items[j].Severity)
		}
		if items[i].Kind != items[j].Kind {
			return items[i].Kind < items[j].Kind
		}
		return items[i].RefID() < items[j].RefID()
	})
	return items
}

func uncategorizedItems(txns []model.Transaction, materiality decimal.Decimal, now time.Time) []model.ActionItem {
	var items []model.ActionItem
	for _, t := range txns {
		if t.Categorized() || t.IsTransfer() {
			continue
		}
		if t.Magnitude().LessThan(materiality) {
			continue
		}
		items = append(items, model.ActionItem{
			Kind:           model.ActionUncategorized,
			Severity:       severity(model.ActionUncategorized, t.Magnitude(), ageDays(t.Time, now)),
			TransactionIDs: []string{t.ID},
			Reason:         fmt.Sprintf("uncategorized %s %s at %s", t.Amount.StringFixed(2), t.Currency, t.MerchantToken),
		})
	}
	return items
}

func lowQualityItems(quality []model.QualityReport, floor decimal.Decimal) []model.ActionItem {
	var items []model.ActionItem
	for _, q := range quality {
		score := q.Score()
		if score.GreaterThanOrEqual(floor) {
			continue
		}
		// Worse batches rank higher: severity grows as the score drops.
		sev := kindWeights[model.ActionLowQuality].Add(decimal.NewFromInt(1).Sub(score))
		items = append(items, model.ActionItem{
			Kind:     model.ActionLowQuality,
			Severity: sev.Round(4),
			BatchID:  q.BatchID,
			Reason:   fmt.Sprintf("ingestion batch %s scored %s (%d malformed, %d fallback-dated of %d rows)", q.BatchID, score.StringFixed(2), q.Malformed, q.FallbackDated, q.Rows),
		})
	}
	return items
}

func anomalyItems(anomalies []model.Anomaly, byID map[string]model.Transaction, now time.Time) []model.ActionItem {
	var items []model.ActionItem
	for _, a := range anomalies {
		t, ok := byID[a.TransactionID]
		if !ok {
			continue
		}
		items = append(items, model.ActionItem{
			Kind:           model.ActionAnomaly,
			Severity:       severity(model.ActionAnomaly, t.Magnitude(), ageDays(t.Time, now)),
			TransactionIDs: []string{a.TransactionID},
			SeriesKey:      a.SeriesKey,
			Reason:         fmt.Sprintf("%s: %s %s at %s", a.Reason, t.Amount.StringFixed(2), t.Currency, t.MerchantToken),
		})
	}
	return items
}

func missedRecurringItems(overdue []model.RecurringSeries, now time.Time) []model.ActionItem {
	var items []model.ActionItem
	for _, s := range overdue {
		// The longer a payment is overdue, the more urgent the follow-up.
		lateness := ageDays(s.ExpectedNext, now)
		sev := kindWeights[model.ActionMissedRecurring].
			Add(boundedScore(s.ExpectedAmount, decimal.NewFromInt(100))).
			Add(boundedScore(decimal.NewFromInt(int64(lateness)), decimal.NewFromInt(30)))
		items = append(items, model.ActionItem{
			Kind:      model.ActionMissedRecurring,
			Severity:  sev.Round(4),
			SeriesKey: s.Key(),
			Reason:    fmt.Sprintf("%s expected around %s (about %s), not seen", s.MerchantToken, s.ExpectedNext.Format("2006-01-02"), s.ExpectedAmount.StringFixed(2)),
		})
	}
	return items
}

// severity combines the kind weight with magnitude and recency components.
// Both are monotonic; recency tops out at exactly 1 for a same-day item
// while the magnitude term stays strictly below 1, so their sum never
// reaches 2 and can never promote an item past a kind two weights up.
func severity(kind model.ActionKind, magnitude decimal.Decimal, age int) decimal.Decimal {
	recency := decimal.NewFromInt(1).DivRound(decimal.NewFromInt(int64(age+1)), 4)
	return kindWeights[kind].
		Add(boundedScore(magnitude, decimal.NewFromInt(100))).
		Add(recency).
		Round(4)
}

// boundedScore maps v into [0, 1): v / (v + scale). Larger values score
// higher but never reach 1.
func boundedScore(v, scale decimal.Decimal) decimal.Decimal {
	if v.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return v.DivRound(v.Add(scale), 4)
}

func ageDays(t, now time.Time) int {
	days := int(now.Sub(t).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
