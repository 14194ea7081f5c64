// Package rules holds the learned classification rule set: an append-only
// rule log with active/retired status, a deterministic matcher, and a
// learner that turns user corrections into rules.
package rules

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finsight-dev/finsight/internal/model"
)

// Store owns rule lifecycle. Rules are appended, reinforced, decayed, and
// retired; they are never deleted, so every decision stays auditable.
type Store struct {
	rules []model.Rule
	byID  map[string]int

	// observations tracks labeled (token, category) counts that have not
	// yet crossed the promotion threshold.
	observations map[string]map[string]int
}

// NewStore creates an empty rule store.
func NewStore() *Store {
	return &Store{
		byID:         make(map[string]int),
		observations: make(map[string]map[string]int),
	}
}

// Snapshot is the full persistable learning state.
type Snapshot struct {
	Rules        []model.Rule              `json:"rules"`
	Observations map[string]map[string]int `json:"observations"`
}

// FromSnapshot rebuilds a Store from persisted state.
func FromSnapshot(s Snapshot) *Store {
	st := NewStore()
	for _, r := range s.Rules {
		st.byID[r.ID] = len(st.rules)
		st.rules = append(st.rules, r)
	}
	for token, cats := range s.Observations {
		st.observations[token] = make(map[string]int, len(cats))
		for c, n := range cats {
			st.observations[token][c] = n
		}
	}
	return st
}

// Snapshot returns a deep copy of the store's state for persistence.
func (s *Store) Snapshot() Snapshot {
	out := Snapshot{
		Rules:        make([]model.Rule, len(s.rules)),
		Observations: make(map[string]map[string]int, len(s.observations)),
	}
	copy(out.Rules, s.rules)
	for token, cats := range s.observations {
		out.Observations[token] = make(map[string]int, len(cats))
		for c, n := range cats {
			out.Observations[token][c] = n
		}
	}
	return out
}

// Rules returns all rules in append order, retired ones included.
func (s *Store) Rules() []model.Rule {
	out := make([]model.Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Get returns a rule by ID.
func (s *Store) Get(id string) (model.Rule, bool) {
	idx, ok := s.byID[id]
	if !ok {
		return model.Rule{}, false
	}
	return s.rules[idx], true
}

// AddUserRule appends a user-authored rule. User rules start at full
// confidence and a priority above anything the learner creates.
func (s *Store) AddUserRule(kind model.RuleKind, pattern, category string, priority int, now time.Time) (model.Rule, error) {
	if pattern == "" || category == "" {
		return model.Rule{}, fmt.Errorf("rule pattern and category must be non-empty")
	}
	if existing, ok := s.activeFor(kind, pattern); ok && existing.Category == category {
		return existing, nil
	}
	return s.append(kind, pattern, category, priority, decimal.NewFromInt(1), model.RuleUserAuthored, now), nil
}

// append creates a new active rule with a fresh ID.
func (s *Store) append(kind model.RuleKind, pattern, category string, priority int, confidence decimal.Decimal, source model.RuleSource, now time.Time) model.Rule {
	rule := model.Rule{
		ID:         s.nextID(kind, pattern),
		Kind:       kind,
		Pattern:    pattern,
		Category:   category,
		Priority:   priority,
		Confidence: confidence,
		Hits:       1,
		Source:     source,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.byID[rule.ID] = len(s.rules)
	s.rules = append(s.rules, rule)
	return rule
}

// nextID derives a readable rule ID from kind and pattern, suffixing a
// generation counter when the pattern has had earlier (retired) rules.
func (s *Store) nextID(kind model.RuleKind, pattern string) string {
	prefix := "token"
	if kind == model.RuleExactMerchant {
		prefix = "exact"
	}
	base := fmt.Sprintf("%s:%s", prefix, pattern)
	id := base
	for gen := 2; ; gen++ {
		if _, taken := s.byID[id]; !taken {
			return id
		}
		id = fmt.Sprintf("%s#%d", base, gen)
	}
}

// activeFor returns the active rule for a (kind, pattern) key, if any.
func (s *Store) activeFor(kind model.RuleKind, pattern string) (model.Rule, bool) {
	for i := len(s.rules) - 1; i >= 0; i-- {
		r := s.rules[i]
		if r.Active && r.Kind == kind && r.Pattern == pattern {
			return r, true
		}
	}
	return model.Rule{}, false
}

func (s *Store) update(rule model.Rule) {
	if idx, ok := s.byID[rule.ID]; ok {
		s.rules[idx] = rule
	}
}
