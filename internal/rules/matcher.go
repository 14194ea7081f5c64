package rules

import (
	"github.com/shopspring/decimal"

	"github.com/finsight-dev/finsight/internal/model"
	"github.com/finsight-dev/finsight/internal/normalize"
)

// Match is the result of classifying one transaction.
type Match struct {
	Category   string
	Confidence decimal.Decimal
	RuleID     string
}

// Classify returns the winning category for a transaction, or false when no
// active rule matches. Uncategorized is a valid, stable state, not an error.
// Classification is deterministic and never mutates the store: exact-merchant
// rules match on full token equality first, then token-pattern rules match
// against the description's token set, ranked by priority, confidence,
// recency, and ID.
func (s *Store) Classify(txn model.Transaction) (Match, bool) {
	if rule, ok := s.bestMatch(txn); ok {
		return Match{Category: rule.Category, Confidence: rule.Confidence, RuleID: rule.ID}, true
	}
	return Match{}, false
}

// bestMatch returns the single winning rule for a transaction.
func (s *Store) bestMatch(txn model.Transaction) (model.Rule, bool) {
	var (
		best  model.Rule
		found bool
	)
	consider := func(r model.Rule) {
		if !found || r.Outranks(best) {
			best = r
			found = true
		}
	}

	for _, r := range s.rules {
		if !r.Active || r.Kind != model.RuleExactMerchant {
			continue
		}
		if r.Pattern == txn.MerchantToken {
			consider(r)
		}
	}
	if found {
		// Kind specificity: any exact match beats every token rule.
		return best, true
	}

	fields := tokenSet(txn)
	for _, r := range s.rules {
		if !r.Active || r.Kind != model.RuleTokenPattern {
			continue
		}
		if fields[r.Pattern] {
			consider(r)
		}
	}
	return best, found
}

// tokenSet builds the matchable token set for a transaction from its raw
// description and normalized merchant token.
func tokenSet(txn model.Transaction) map[string]bool {
	set := make(map[string]bool)
	for _, f := range normalize.Fields(txn.Description) {
		set[f] = true
	}
	for _, f := range normalize.Fields(txn.MerchantToken) {
		set[f] = true
	}
	return set
}
