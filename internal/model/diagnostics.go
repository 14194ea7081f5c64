package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MalformedRowError reports a raw row whose date or amount could not be
// resolved. The row is retained for operator inspection and never silently
// dropped.
type MalformedRowError struct {
	Row    RawRow
	Field  string // "date" or "amount"
	Detail string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row %s:%d: unresolved %s: %s", e.Row.SourceFile, e.Row.Index, e.Field, e.Detail)
}

// DiagnosticKind names a non-fatal finding produced during reconciliation or
// learning.
type DiagnosticKind string

const (
	DiagnosticAmbiguousTransfer DiagnosticKind = "ambiguous-transfer"
	DiagnosticNearDuplicate     DiagnosticKind = "near-duplicate"
	DiagnosticRuleConflict      DiagnosticKind = "rule-conflict"
)

// Diagnostic is a per-row or per-rule finding collected and returned next to
// successful results. Diagnostics never abort a batch.
type Diagnostic struct {
	Kind           DiagnosticKind
	TransactionIDs []string
	RuleID         string
	Detail         string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Kind, d.Detail)
}

// QualityReport scores one ingestion batch. Fractions are in [0, 1].
type QualityReport struct {
	BatchID        string
	Rows           int
	Malformed      int
	Duplicated     int
	FallbackDated  int
	MalformedFrac  decimal.Decimal
	DuplicatedFrac decimal.Decimal
	FallbackFrac   decimal.Decimal
}

// Score is 1 minus the worst offending fraction; a batch with no issues
// scores 1.
func (q QualityReport) Score() decimal.Decimal {
	worst := q.MalformedFrac
	if q.DuplicatedFrac.GreaterThan(worst) {
		worst = q.DuplicatedFrac
	}
	if q.FallbackFrac.GreaterThan(worst) {
		worst = q.FallbackFrac
	}
	return decimal.NewFromInt(1).Sub(worst)
}
