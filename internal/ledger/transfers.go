package ledger

import (
	"fmt"
	"time"

	"github.com/finsight-dev/finsight/internal/config"
	"github.com/finsight-dev/finsight/internal/model"
)

// linkTransfers pairs opposite-signed transactions of equal magnitude on
// different accounts within the configured date window. The relation is
// symmetric and exclusive: a pair links only when each side is the other's
// unique plausible peer. Any transaction with two or more plausible
// pairings, from either direction, is left unlinked and surfaced as an
// ambiguous-transfer diagnostic instead of guessed.
func (l *Ledger) linkTransfers(cfg config.LedgerConfig) []model.Diagnostic {
	window := time.Duration(cfg.TransferWindowDays) * 24 * time.Hour

	// Candidate sets are collected over the full unlinked snapshot before
	// any link is made, so ambiguity is judged bidirectionally rather than
	// resolved by scan order.
	debitPeers := make(map[int][]int)
	creditPeers := make(map[int][]int)
	for i := range l.txns {
		out := &l.txns[i]
		if out.TransferPeer != "" || !out.Amount.IsNegative() {
			continue
		}
		for j := range l.txns {
			in := &l.txns[j]
			if in.TransferPeer != "" || in.Account == out.Account {
				continue
			}
			if in.Currency != out.Currency {
				continue
			}
			if !in.Amount.Equal(out.Amount.Neg()) {
				continue
			}
			if absDuration(in.Time.Sub(out.Time)) > window {
				continue
			}
			debitPeers[i] = append(debitPeers[i], j)
			creditPeers[j] = append(creditPeers[j], i)
		}
	}

	var diags []model.Diagnostic
	// l.txns is sorted, so index iteration keeps diagnostics deterministic.
	for i := range l.txns {
		candidates, ok := debitPeers[i]
		if !ok {
			continue
		}
		out := &l.txns[i]
		if len(candidates) > 1 {
			ids := []string{out.ID}
			for _, j := range candidates {
				ids = append(ids, l.txns[j].ID)
			}
			diags = append(diags, model.Diagnostic{
				Kind:           model.DiagnosticAmbiguousTransfer,
				TransactionIDs: ids,
				Detail: fmt.Sprintf("%d plausible transfer pairings for %s (%s on %s), left unlinked",
					len(candidates), out.ID, out.Amount.StringFixed(2), out.Account),
			})
			continue
		}
		j := candidates[0]
		if len(creditPeers[j]) > 1 {
			// Contested credit, reported below.
			continue
		}
		peer := &l.txns[j]
		out.TransferPeer = peer.ID
		peer.TransferPeer = out.ID
	}

	for j := range l.txns {
		contenders := creditPeers[j]
		if len(contenders) <= 1 {
			continue
		}
		in := &l.txns[j]
		ids := []string{in.ID}
		for _, i := range contenders {
			ids = append(ids, l.txns[i].ID)
		}
		diags = append(diags, model.Diagnostic{
			Kind:           model.DiagnosticAmbiguousTransfer,
			TransactionIDs: ids,
			Detail: fmt.Sprintf("%d plausible transfer pairings for %s (%s on %s), left unlinked",
				len(contenders), in.ID, in.Amount.StringFixed(2), in.Account),
		})
	}
	return diags
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
