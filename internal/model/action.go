package model

import "github.com/shopspring/decimal"

// ActionKind categorizes an outstanding issue surfaced to the user.
type ActionKind string

const (
	ActionUncategorized   ActionKind = "uncategorized-transaction"
	ActionLowQuality      ActionKind = "low-quality-ingestion"
	ActionAnomaly         ActionKind = "anomaly"
	ActionMissedRecurring ActionKind = "missed-recurring"
)

// ActionItem is a derived, ephemeral unit of work. Items are never persisted;
// the whole queue is recomputed on each pass.
type ActionItem struct {
	Kind           ActionKind
	Severity       decimal.Decimal
	TransactionIDs []string
	SeriesKey      string // set for missed-recurring items
	BatchID        string // set for low-quality-ingestion items
	Reason         string
}

// RefID returns the stable identifier used for deterministic tie-breaking.
func (a ActionItem) RefID() string {
	if len(a.TransactionIDs) > 0 {
		return a.TransactionIDs[0]
	}
	if a.SeriesKey != "" {
		return a.SeriesKey
	}
	return a.BatchID
}
