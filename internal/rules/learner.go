package rules

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finsight-dev/finsight/internal/config"
	"github.com/finsight-dev/finsight/internal/model"
	"github.com/finsight-dev/finsight/internal/normalize"
)

// EventAction names a rule mutation produced by learning.
type EventAction string

const (
	EventCreated    EventAction = "created"
	EventReinforced EventAction = "reinforced"
	EventDecayed    EventAction = "decayed"
	EventRetired    EventAction = "retired"
)

// Event records one rule mutation for the audit log.
type Event struct {
	Action EventAction
	RuleID string
	Detail string
	At     time.Time
}

// Learner derives rules from labeled transactions. All writes go through the
// store it wraps; reads (classification) and writes (learning) must never be
// interleaved within one ingestion cycle.
type Learner struct {
	store *Store
	cfg   config.LearningConfig
}

// NewLearner creates a Learner over a store.
func NewLearner(store *Store, cfg config.LearningConfig) *Learner {
	return &Learner{store: store, cfg: cfg}
}

// Confidence a learner-created exact rule starts with. Narrow scope keeps
// the risk of a single mislabel low.
var initialExactConfidence = decimal.RequireFromString("0.8")

// Minimum share of observations that must agree on one category before a
// token rule is promoted.
const promotePrecision = 0.8

// ObserveLabel records a user (or system) assigning a category to a
// transaction and updates the rule set: reinforcing agreeing rules, decaying
// and eventually retiring contradicted ones, creating an exact-merchant rule
// immediately, and promoting a token-pattern rule once enough consistent
// observations accumulate. Returned events feed the audit log; diagnostics
// surface rule conflicts.
func (l *Learner) ObserveLabel(txn model.Transaction, category string, now time.Time) ([]Event, []model.Diagnostic) {
	if category == "" || txn.MerchantToken == "" {
		return nil, nil
	}

	var (
		events []Event
		diags  []model.Diagnostic
	)

	if winner, ok := l.store.bestMatch(txn); ok {
		if winner.Category == category {
			events = append(events, l.reinforce(winner, now))
		} else {
			evs, diag := l.decay(winner, category, now)
			events = append(events, evs...)
			diags = append(diags, diag)
		}
	}

	if _, ok := l.store.activeFor(model.RuleExactMerchant, txn.MerchantToken); !ok {
		rule := l.store.append(model.RuleExactMerchant, txn.MerchantToken, category, 0, initialExactConfidence, model.RuleLearned, now)
		events = append(events, Event{
			Action: EventCreated,
			RuleID: rule.ID,
			Detail: fmt.Sprintf("exact rule %q -> %q from labeled transaction %s", rule.Pattern, category, txn.ID),
			At:     now,
		})
	}

	events = append(events, l.observeTokens(txn, category, now)...)
	return events, diags
}

// reinforce nudges a confirmed rule's confidence toward 1.
func (l *Learner) reinforce(rule model.Rule, now time.Time) Event {
	step := decimal.NewFromFloat(l.cfg.ReinforceStep)
	rule.Confidence = rule.Confidence.Add(decimal.NewFromInt(1).Sub(rule.Confidence).Mul(step)).Round(4)
	rule.Hits++
	rule.UpdatedAt = now
	l.store.update(rule)
	return Event{
		Action: EventReinforced,
		RuleID: rule.ID,
		Detail: fmt.Sprintf("confidence %s after %d confirmations", rule.Confidence, rule.Hits),
		At:     now,
	}
}

// decay shrinks a contradicted rule's confidence and retires it below the
// floor. Decay rather than deletion keeps one outlier correction from
// flipping an established rule while still letting genuine shifts win.
func (l *Learner) decay(rule model.Rule, contradictingCategory string, now time.Time) ([]Event, model.Diagnostic) {
	rule.Confidence = rule.Confidence.Mul(decimal.NewFromFloat(l.cfg.DecayFactor)).Round(4)
	rule.UpdatedAt = now

	diag := model.Diagnostic{
		Kind:   model.DiagnosticRuleConflict,
		RuleID: rule.ID,
		Detail: fmt.Sprintf("label %q contradicts rule %s (%q); confidence now %s",
			contradictingCategory, rule.ID, rule.Category, rule.Confidence),
	}

	events := []Event{{
		Action: EventDecayed,
		RuleID: rule.ID,
		Detail: fmt.Sprintf("contradicted by %q, confidence %s", contradictingCategory, rule.Confidence),
		At:     now,
	}}

	if rule.Confidence.LessThan(decimal.NewFromFloat(l.cfg.ConfidenceFloor)) {
		rule.Active = false
		events = append(events, Event{
			Action: EventRetired,
			RuleID: rule.ID,
			Detail: fmt.Sprintf("confidence %s below floor", rule.Confidence),
			At:     now,
		})
	}
	l.store.update(rule)
	return events, diag
}

// observeTokens counts (token, category) sightings and promotes a
// token-pattern rule once a token crosses the threshold with consistent
// labels.
func (l *Learner) observeTokens(txn model.Transaction, category string, now time.Time) []Event {
	var events []Event
	for _, token := range normalize.Fields(txn.Description) {
		cats := l.store.observations[token]
		if cats == nil {
			cats = make(map[string]int)
			l.store.observations[token] = cats
		}
		cats[category]++

		total := 0
		for _, n := range cats {
			total += n
		}
		if cats[category] < l.cfg.PromoteThreshold {
			continue
		}
		if float64(cats[category]) < promotePrecision*float64(total) {
			continue
		}
		if existing, ok := l.store.activeFor(model.RuleTokenPattern, token); ok && existing.Category == category {
			continue
		}

		confidence := decimal.NewFromInt(int64(cats[category])).
			DivRound(decimal.NewFromInt(int64(total)), 4).
			Mul(decimal.RequireFromString("0.9")).Round(4)
		rule := l.store.append(model.RuleTokenPattern, token, category, 0, confidence, model.RuleLearned, now)
		events = append(events, Event{
			Action: EventCreated,
			RuleID: rule.ID,
			Detail: fmt.Sprintf("token rule %q -> %q after %d consistent labels", token, category, cats[category]),
			At:     now,
		})
	}
	return events
}
