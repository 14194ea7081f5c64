package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/finsight-dev/finsight/internal/model"
)

// Totals aggregates income and spend per account. Transfer pairs are
// excluded unless includeTransfers is set, since money moving between the
// user's own accounts is neither income nor spend.
type Totals struct {
	Income decimal.Decimal
	Spend  decimal.Decimal
}

// Net returns income minus spend.
func (t Totals) Net() decimal.Decimal { return t.Income.Sub(t.Spend) }

// TotalsByAccount sums the ledger per account.
func (l *Ledger) TotalsByAccount(includeTransfers bool) map[string]Totals {
	out := make(map[string]Totals)
	for _, txn := range l.txns {
		if txn.IsTransfer() && !includeTransfers {
			continue
		}
		t := out[txn.Account]
		if txn.Amount.IsNegative() {
			t.Spend = t.Spend.Add(txn.Amount.Neg())
		} else {
			t.Income = t.Income.Add(txn.Amount)
		}
		out[txn.Account] = t
	}
	return out
}

// Uncategorized returns transactions that still lack a category, excluding
// transfer pairs, in ledger order.
func (l *Ledger) Uncategorized() []model.Transaction {
	var out []model.Transaction
	for _, txn := range l.txns {
		if !txn.Categorized() && !txn.IsTransfer() {
			out = append(out, txn)
		}
	}
	return out
}
