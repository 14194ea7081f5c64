// Package ledger owns transaction identity: it merges overlapping export
// batches into one deduplicated ledger, links transfers between the user's
// own accounts, and scores ingestion quality per batch.
package ledger

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finsight-dev/finsight/internal/config"
	"github.com/finsight-dev/finsight/internal/model"
)

// Ledger is the deduplicated set of all known transactions across accounts.
type Ledger struct {
	txns     []model.Transaction
	byID     map[string]int
	accounts []model.Account
	acctByID map[string]int
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{
		byID:     make(map[string]int),
		acctByID: make(map[string]int),
	}
}

// FromSnapshot rebuilds a Ledger from persisted transactions and accounts.
func FromSnapshot(txns []model.Transaction, accounts []model.Account) *Ledger {
	l := New()
	for _, a := range accounts {
		l.acctByID[a.ID] = len(l.accounts)
		l.accounts = append(l.accounts, a)
	}
	for _, t := range txns {
		if _, ok := l.byID[t.ID]; ok {
			continue
		}
		l.byID[t.ID] = len(l.txns)
		l.txns = append(l.txns, t)
		l.ensureAccount(t.Account, t.Currency)
	}
	l.sort()
	return l
}

// MergeReport summarizes one batch merge.
type MergeReport struct {
	BatchID     string
	Added       int
	Duplicates  int
	Quality     model.QualityReport
	Diagnostics []model.Diagnostic
	Malformed   []*model.MalformedRowError
}

// Merge folds a batch of normalized transactions into the ledger. Identical
// IDs collapse into the existing record, keeping the union of source
// provenance. Merge is idempotent: re-ingesting an already-merged batch adds
// no records. Malformed rows from normalization are carried through into the
// report so nothing is silently dropped.
func (l *Ledger) Merge(batch []model.Transaction, malformed []*model.MalformedRowError, cfg config.LedgerConfig) MergeReport {
	report := MergeReport{
		BatchID:   uuid.NewString(),
		Malformed: malformed,
	}

	fallbackDated := 0
	var added []string
	for _, txn := range batch {
		if txn.DateSource.Fallback() {
			fallbackDated++
		}
		if idx, ok := l.byID[txn.ID]; ok {
			l.txns[idx].Sources = unionSources(l.txns[idx].Sources, txn.Sources)
			report.Duplicates++
			continue
		}
		l.ensureAccount(txn.Account, txn.Currency)
		l.byID[txn.ID] = len(l.txns)
		l.txns = append(l.txns, txn)
		added = append(added, txn.ID)
		report.Added++
	}
	l.sort()

	report.Diagnostics = append(report.Diagnostics, l.linkTransfers(cfg)...)
	report.Diagnostics = append(report.Diagnostics, l.nearDuplicates(added, cfg)...)
	report.Quality = quality(report.BatchID, len(batch), len(malformed), report.Duplicates, fallbackDated)
	return report
}

// Transactions returns the ledger in deterministic chronological order. The
// returned slice is a copy; the ledger's own records stay immutable to
// callers.
func (l *Ledger) Transactions() []model.Transaction {
	out := make([]model.Transaction, len(l.txns))
	copy(out, l.txns)
	return out
}

// Get returns a transaction by ID.
func (l *Ledger) Get(id string) (model.Transaction, bool) {
	idx, ok := l.byID[id]
	if !ok {
		return model.Transaction{}, false
	}
	return l.txns[idx], true
}

// Len returns the number of reconciled transactions.
func (l *Ledger) Len() int { return len(l.txns) }

// SetCategory records a classification result on a transaction.
func (l *Ledger) SetCategory(id, category string, confidence decimal.Decimal, ruleID string) error {
	idx, ok := l.byID[id]
	if !ok {
		return fmt.Errorf("unknown transaction %q", id)
	}
	l.txns[idx].Category = category
	l.txns[idx].Confidence = confidence
	l.txns[idx].RuleID = ruleID
	return nil
}

// Accounts returns all known accounts.
func (l *Ledger) Accounts() []model.Account {
	out := make([]model.Account, len(l.accounts))
	copy(out, l.accounts)
	return out
}

// Relabel changes an account's display name. Accounts are never deleted.
func (l *Ledger) Relabel(accountID, name string) error {
	idx, ok := l.acctByID[accountID]
	if !ok {
		return fmt.Errorf("unknown account %q", accountID)
	}
	l.accounts[idx].Name = name
	return nil
}

// ensureAccount registers an account on first sighting of its identifier.
func (l *Ledger) ensureAccount(accountID, currency string) {
	if accountID == "" {
		return
	}
	if _, ok := l.acctByID[accountID]; ok {
		return
	}
	l.acctByID[accountID] = len(l.accounts)
	l.accounts = append(l.accounts, model.Account{
		ID:       accountID,
		Name:     accountID,
		Type:     model.AccountTypeBank,
		Currency: currency,
	})
}

func (l *Ledger) sort() {
	sort.Slice(l.txns, func(i, j int) bool { return l.txns[i].Before(l.txns[j]) })
	for i, t := range l.txns {
		l.byID[t.ID] = i
	}
}

func unionSources(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		seen[s] = true
	}
	for _, s := range incoming {
		if !seen[s] {
			seen[s] = true
			existing = append(existing, s)
		}
	}
	return existing
}

func quality(batchID string, rows, malformed, duplicated, fallbackDated int) model.QualityReport {
	total := rows + malformed
	q := model.QualityReport{
		BatchID:       batchID,
		Rows:          total,
		Malformed:     malformed,
		Duplicated:    duplicated,
		FallbackDated: fallbackDated,
	}
	if total == 0 {
		return q
	}
	denom := decimal.NewFromInt(int64(total))
	q.MalformedFrac = decimal.NewFromInt(int64(malformed)).DivRound(denom, 4)
	q.DuplicatedFrac = decimal.NewFromInt(int64(duplicated)).DivRound(denom, 4)
	q.FallbackFrac = decimal.NewFromInt(int64(fallbackDated)).DivRound(denom, 4)
	return q
}
