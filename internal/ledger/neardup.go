package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/finsight-dev/finsight/internal/config"
	"github.com/finsight-dev/finsight/internal/model"
)

// nearDuplicates scans freshly added transactions against the rest of the
// ledger for records that share account, amount, and a close date but carry
// differently worded descriptions. Those may be the same economic event
// exported twice with reformatted text; they are surfaced as diagnostics for
// review, never auto-merged.
func (l *Ledger) nearDuplicates(addedIDs []string, cfg config.LedgerConfig) []model.Diagnostic {
	window := time.Duration(cfg.NearDupWindowDays) * 24 * time.Hour
	addedSet := make(map[string]bool, len(addedIDs))
	for _, id := range addedIDs {
		addedSet[id] = true
	}

	var diags []model.Diagnostic
	for _, id := range addedIDs {
		a, _ := l.Get(id)
		for j := range l.txns {
			b := l.txns[j]
			if b.ID == a.ID || addedSet[b.ID] && b.ID < a.ID {
				continue
			}
			if b.Account != a.Account || !b.Amount.Equal(a.Amount) {
				continue
			}
			if absDuration(b.Time.Sub(a.Time)) > window {
				continue
			}
			if !similarDescriptions(a.Description, b.Description, cfg.NearDupMaxDistanceRatio) {
				continue
			}
			diags = append(diags, model.Diagnostic{
				Kind:           model.DiagnosticNearDuplicate,
				TransactionIDs: []string{a.ID, b.ID},
				Detail:         fmt.Sprintf("%q and %q look like the same event (%s)", a.Description, b.Description, a.Amount.StringFixed(2)),
			})
		}
	}
	return diags
}

// similarDescriptions compares upper-cased descriptions by levenshtein
// distance relative to the longer length.
func similarDescriptions(a, b string, maxRatio float64) bool {
	ua, ub := strings.ToUpper(a), strings.ToUpper(b)
	if ua == ub {
		return false // identical text with a different ID is a different transaction
	}
	longest := len(ua)
	if len(ub) > longest {
		longest = len(ub)
	}
	if longest == 0 {
		return false
	}
	dist := levenshtein.ComputeDistance(ua, ub)
	return float64(dist)/float64(longest) <= maxRatio
}
