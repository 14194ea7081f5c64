package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecurringSeries is a detected group of periodically repeating transactions
// from the same merchant token.
type RecurringSeries struct {
	MerchantToken   string
	Negative        bool // true for recurring outflows
	PeriodDays      int
	Occurrences     int
	LastSeen        time.Time
	ExpectedNext    time.Time
	ExpectedAmount  decimal.Decimal
	AmountTolerance decimal.Decimal
	Confidence      decimal.Decimal
	TransactionIDs  []string
}

// Key identifies a series within one detection pass.
func (s RecurringSeries) Key() string {
	if s.Negative {
		return s.MerchantToken + "/-"
	}
	return s.MerchantToken + "/+"
}

// AmountWithinExpectation reports whether an amount magnitude falls inside
// the series' expected range.
func (s RecurringSeries) AmountWithinExpectation(magnitude decimal.Decimal) bool {
	diff := magnitude.Sub(s.ExpectedAmount).Abs()
	return diff.LessThanOrEqual(s.AmountTolerance)
}

// AnomalyReason explains why a transaction was flagged.
type AnomalyReason string

const (
	AnomalyCategoryOutlier AnomalyReason = "category-outlier"
	AnomalySeriesAmount    AnomalyReason = "series-amount"
)

// Anomaly flags one transaction as a statistical outlier.
type Anomaly struct {
	TransactionID string
	Category      string
	Reason        AnomalyReason
	Score         decimal.Decimal // robust z-score, zero for series breaks
	SeriesKey     string          // set when Reason is AnomalySeriesAmount
}
