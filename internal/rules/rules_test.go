package rules

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-dev/finsight/internal/config"
	"github.com/finsight-dev/finsight/internal/model"
	"github.com/finsight-dev/finsight/internal/normalize"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func at(day int) time.Time {
	return time.Date(2024, 3, day, 12, 0, 0, 0, time.UTC)
}

func uberTxn(t *testing.T, idSuffix string) model.Transaction {
	t.Helper()
	txn, err := normalize.Row(model.RawRow{
		SourceFile:  "test.csv",
		Account:     "Card",
		Currency:    "CHF",
		Description: "UBER *TRIP " + idSuffix,
		Amount:      "-23.40",
		BookingDate: "2024-03-0" + idSuffix,
	})
	require.NoError(t, err)
	return txn
}

func learningCfg() config.LearningConfig { return config.Default().Learning }

func TestClassify_NoRules(t *testing.T) {
	s := NewStore()
	_, ok := s.Classify(uberTxn(t, "1"))
	assert.False(t, ok, "uncategorized is a valid state, not an error")
}

func TestLearner_ExactRuleImmediately(t *testing.T) {
	s := NewStore()
	l := NewLearner(s, learningCfg())
	txn := uberTxn(t, "1")

	events, diags := l.ObserveLabel(txn, "Transport", at(1))
	assert.Empty(t, diags)
	require.NotEmpty(t, events)
	assert.Equal(t, EventCreated, events[0].Action)

	// A transaction with the same merchant token classifies right away.
	match, ok := s.Classify(uberTxn(t, "1"))
	require.True(t, ok)
	assert.Equal(t, "Transport", match.Category)
	assert.Equal(t, "exact:"+txn.MerchantToken, match.RuleID)
}

func TestLearner_TokenRuleConvergence(t *testing.T) {
	s := NewStore()
	l := NewLearner(s, learningCfg())

	// Distinct UBER *TRIP transactions labeled Transport.
	for i, suffix := range []string{"1", "2", "3"} {
		l.ObserveLabel(uberTxn(t, suffix), "Transport", at(i+1))
	}

	var tokenRule model.Rule
	for _, r := range s.Rules() {
		if r.Kind == model.RuleTokenPattern && r.Pattern == "uber" {
			tokenRule = r
		}
	}
	require.NotEmpty(t, tokenRule.ID, "token rule for 'uber' should exist after threshold labels")
	assert.True(t, tokenRule.Active)

	// An unseen UBER transaction with a different merchant token still matches.
	unseen, err := normalize.Row(model.RawRow{
		SourceFile: "x.csv", Account: "Card", Currency: "CHF",
		Description: "UBER *EATS 999", Amount: "-31.00", BookingDate: "2024-03-09",
	})
	require.NoError(t, err)
	match, ok := s.Classify(unseen)
	require.True(t, ok)
	assert.Equal(t, "Transport", match.Category)
}

func TestClassify_ExactBeatsToken(t *testing.T) {
	s := NewStore()
	now := at(1)
	_, err := s.AddUserRule(model.RuleTokenPattern, "uber", "Transport", 10, now)
	require.NoError(t, err)
	_, err = s.AddUserRule(model.RuleExactMerchant, "uber eats", "Food", 0, now)
	require.NoError(t, err)

	txn, err := normalize.Row(model.RawRow{
		SourceFile: "x.csv", Account: "Card", Currency: "CHF",
		Description: "UBER * EATS", Amount: "-31.00", BookingDate: "2024-03-09",
	})
	require.NoError(t, err)
	require.Equal(t, "uber eats", txn.MerchantToken)

	match, ok := s.Classify(txn)
	require.True(t, ok)
	assert.Equal(t, "Food", match.Category, "exact rule wins despite lower priority")
}

func TestClassify_TokenTieBreaks(t *testing.T) {
	s := NewStore()
	_, err := s.AddUserRule(model.RuleTokenPattern, "uber", "Transport", 1, at(1))
	require.NoError(t, err)
	_, err = s.AddUserRule(model.RuleTokenPattern, "trip", "Travel", 2, at(2))
	require.NoError(t, err)

	match, ok := s.Classify(uberTxn(t, "1"))
	require.True(t, ok)
	assert.Equal(t, "Travel", match.Category, "higher priority token rule wins")
}

func TestClassify_Deterministic(t *testing.T) {
	s := NewStore()
	l := NewLearner(s, learningCfg())
	for i, suffix := range []string{"1", "2", "3"} {
		l.ObserveLabel(uberTxn(t, suffix), "Transport", at(i+1))
	}

	txn := uberTxn(t, "4")
	first, ok := s.Classify(txn)
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		again, ok := s.Classify(txn)
		require.True(t, ok)
		assert.Equal(t, first, again)
	}
}

func TestLearner_ReinforceIncreasesConfidence(t *testing.T) {
	s := NewStore()
	l := NewLearner(s, learningCfg())
	txn := uberTxn(t, "1")

	l.ObserveLabel(txn, "Transport", at(1))
	before, _ := s.activeFor(model.RuleExactMerchant, txn.MerchantToken)

	events, _ := l.ObserveLabel(txn, "Transport", at(2))
	after, _ := s.activeFor(model.RuleExactMerchant, txn.MerchantToken)

	assert.True(t, after.Confidence.GreaterThan(before.Confidence))
	assert.Equal(t, EventReinforced, events[0].Action)
}

func TestLearner_DecayAndRetire(t *testing.T) {
	s := NewStore()
	l := NewLearner(s, learningCfg())
	txn := uberTxn(t, "1")

	l.ObserveLabel(txn, "Transport", at(1))
	rule, ok := s.activeFor(model.RuleExactMerchant, txn.MerchantToken)
	require.True(t, ok)

	prev := rule.Confidence
	retired := false
	for day := 2; day <= 6; day++ {
		_, diags := l.ObserveLabel(txn, "Food", at(day))
		got, _ := s.Get(rule.ID)
		if !got.Active {
			retired = true
			break
		}
		require.NotEmpty(t, diags)
		assert.Equal(t, model.DiagnosticRuleConflict, diags[0].Kind)
		assert.True(t, got.Confidence.LessThan(prev), "confidence must strictly decrease")
		prev = got.Confidence
	}
	assert.True(t, retired, "rule must retire once confidence crosses the floor")

	got, ok := s.Get(rule.ID)
	require.True(t, ok, "retired rules stay in the store for audit")
	assert.False(t, got.Active)
}

func TestLearner_RelearnsAfterRetirement(t *testing.T) {
	s := NewStore()
	l := NewLearner(s, learningCfg())
	txn := uberTxn(t, "1")

	l.ObserveLabel(txn, "Transport", at(1))
	// Contradict until the Transport exact rule retires.
	for day := 2; day <= 8; day++ {
		l.ObserveLabel(txn, "Food", at(day))
	}

	match, ok := s.Classify(txn)
	require.True(t, ok)
	assert.Equal(t, "Food", match.Category, "a genuine shift eventually wins")
}

func TestAddUserRule(t *testing.T) {
	s := NewStore()
	rule, err := s.AddUserRule(model.RuleTokenPattern, "sbb", "Transport", 5, at(1))
	require.NoError(t, err)
	assert.Equal(t, model.RuleUserAuthored, rule.Source)
	assert.True(t, rule.Confidence.Equal(dec("1")))

	// Re-adding the same mapping is a no-op.
	again, err := s.AddUserRule(model.RuleTokenPattern, "sbb", "Transport", 5, at(2))
	require.NoError(t, err)
	assert.Equal(t, rule.ID, again.ID)

	_, err = s.AddUserRule(model.RuleTokenPattern, "", "Transport", 0, at(1))
	require.Error(t, err)
}

func TestSnapshot_RoundTrip(t *testing.T) {
	s := NewStore()
	l := NewLearner(s, learningCfg())
	l.ObserveLabel(uberTxn(t, "1"), "Transport", at(1))
	l.ObserveLabel(uberTxn(t, "2"), "Transport", at(2))

	restored := FromSnapshot(s.Snapshot())
	assert.Equal(t, s.Rules(), restored.Rules())

	// Observation counts survive, so learning continues where it left off.
	match, ok := restored.Classify(uberTxn(t, "3"))
	require.True(t, ok)
	assert.Equal(t, "Transport", match.Category)
}
