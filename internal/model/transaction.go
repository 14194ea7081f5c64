package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRow is one unparsed transaction row handed over by a file-parsing
// collaborator. All fields are raw strings; the normalizer resolves them.
type RawRow struct {
	SourceFile  string
	Index       int // position within the source file, used as a last-resort ordering key
	Account     string
	Currency    string
	Description string
	Amount      string
	Timestamp   string // precise date+time, may be empty
	BookingDate string
	ValueDate   string
}

// DateSource records which raw field a transaction's time was resolved from.
type DateSource string

const (
	DateFromTimestamp DateSource = "timestamp"
	DateFromBooking   DateSource = "booking"
	DateFromValue     DateSource = "value"
)

// Fallback reports whether the date was resolved from anything weaker than a
// precise timestamp.
func (d DateSource) Fallback() bool { return d != DateFromTimestamp }

// Transaction is a canonical ledger record. Once reconciled it is treated as
// immutable except for classification and transfer-link fields.
type Transaction struct {
	ID            string
	Time          time.Time
	DateSource    DateSource
	FileOrder     int // intra-day tiebreak when time-of-day is absent
	Amount        decimal.Decimal // negative = expense, positive = income
	Currency      string
	Account       string
	Description   string
	MerchantToken string
	Category      string // empty until classified
	Confidence    decimal.Decimal
	RuleID        string // rule that produced the category, empty for user labels
	Sources       []string
	TransferPeer  string // ID of the paired transaction on another account
}

// Categorized reports whether a category has been assigned.
func (t Transaction) Categorized() bool { return t.Category != "" }

// IsTransfer reports whether the transaction is linked to a peer on another
// of the user's accounts.
func (t Transaction) IsTransfer() bool { return t.TransferPeer != "" }

// Magnitude returns the absolute amount.
func (t Transaction) Magnitude() decimal.Decimal { return t.Amount.Abs() }

// Before orders transactions chronologically, breaking intra-day ties by file
// order and then by ID so ordering is deterministic.
func (t Transaction) Before(other Transaction) bool {
	if !t.Time.Equal(other.Time) {
		return t.Time.Before(other.Time)
	}
	if t.FileOrder != other.FileOrder {
		return t.FileOrder < other.FileOrder
	}
	return t.ID < other.ID
}
