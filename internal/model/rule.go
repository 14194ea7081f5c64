package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleKind distinguishes exact-merchant rules from token-pattern rules.
type RuleKind string

const (
	RuleExactMerchant RuleKind = "exact-merchant"
	RuleTokenPattern  RuleKind = "token-pattern"
)

// RuleSource records how a rule came into existence.
type RuleSource string

const (
	RuleLearned      RuleSource = "learned"
	RuleUserAuthored RuleSource = "user"
)

// Rule maps a merchant pattern to a category. Rules are append-only: a rule
// that loses too much confidence is retired (Active=false), never deleted.
type Rule struct {
	ID         string
	Kind       RuleKind
	Pattern    string
	Category   string
	Priority   int
	Confidence decimal.Decimal
	Hits       int
	Source     RuleSource
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Outranks reports whether r wins over other when both match the same
// transaction: exact beats token, then priority, confidence, recency, and
// finally ID for a deterministic total order.
func (r Rule) Outranks(other Rule) bool {
	if r.Kind != other.Kind {
		return r.Kind == RuleExactMerchant
	}
	if r.Priority != other.Priority {
		return r.Priority > other.Priority
	}
	if !r.Confidence.Equal(other.Confidence) {
		return r.Confidence.GreaterThan(other.Confidence)
	}
	if !r.UpdatedAt.Equal(other.UpdatedAt) {
		return r.UpdatedAt.After(other.UpdatedAt)
	}
	return r.ID < other.ID
}
