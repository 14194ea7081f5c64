// Package detect derives time-series signals from the reconciled ledger:
// recurring payment series and statistical outliers. The ledger is read-only
// input; everything here is recomputed per pass.
package detect

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finsight-dev/finsight/internal/config"
	"github.com/finsight-dev/finsight/internal/model"
)

// Recurring groups transactions by (merchant token, sign) and keeps the
// groups whose inter-transaction day gaps cluster tightly around one period.
// Transfer pairs never form series; moving money between own accounts is not
// a payment.
func Recurring(txns []model.Transaction, cfg config.DetectionConfig) []model.RecurringSeries {
	type key struct {
		token    string
		negative bool
	}
	groups := make(map[key][]model.Transaction)
	for _, t := range txns {
		if t.MerchantToken == "" || t.IsTransfer() || t.Amount.IsZero() {
			continue
		}
		k := key{token: t.MerchantToken, negative: t.Amount.IsNegative()}
		groups[k] = append(groups[k], t)
	}

	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].token != keys[j].token {
			return keys[i].token < keys[j].token
		}
		return keys[i].negative
	})

	var series []model.RecurringSeries
	for _, k := range keys {
		if s, ok := seriesFromGroup(k.token, k.negative, groups[k], cfg); ok {
			series = append(series, s)
		}
	}
	return series
}

func seriesFromGroup(token string, negative bool, txns []model.Transaction, cfg config.DetectionConfig) (model.RecurringSeries, bool) {
	if len(txns) < cfg.MinRecurringOccurrences {
		return model.RecurringSeries{}, false
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].Before(txns[j]) })

	gaps := dayGaps(txns)
	if len(gaps) == 0 {
		return model.RecurringSeries{}, false
	}

	period := medianInt(gaps)
	if period < 2 {
		return model.RecurringSeries{}, false
	}
	tolerance := float64(period) * cfg.PeriodTolerancePct
	if tolerance < float64(cfg.MinPeriodToleranceDays) {
		tolerance = float64(cfg.MinPeriodToleranceDays)
	}

	spread := 0
	for _, g := range gaps {
		dev := g - period
		if dev < 0 {
			dev = -dev
		}
		if float64(dev) > tolerance {
			return model.RecurringSeries{}, false
		}
		if dev > spread {
			spread = dev
		}
	}

	magnitudes := make([]decimal.Decimal, len(txns))
	ids := make([]string, len(txns))
	for i, t := range txns {
		magnitudes[i] = t.Magnitude()
		ids[i] = t.ID
	}
	// Median, not mean: one off-amount occurrence must not drag the
	// expectation toward itself and retroactively implicate the rest of
	// the series.
	expected := median(magnitudes)
	amountTol := maxDecimal(
		mad(magnitudes).Mul(decimal.NewFromInt(2)),
		expected.Mul(decimal.NewFromFloat(cfg.AmountTolerancePct)),
	)

	last := day(txns[len(txns)-1].Time)
	confidence := decimal.NewFromFloat(1 - float64(spread)/float64(period)).Round(2)

	return model.RecurringSeries{
		MerchantToken:   token,
		Negative:        negative,
		PeriodDays:      period,
		Occurrences:     len(txns),
		LastSeen:        last,
		ExpectedNext:    nextOccurrence(last, period),
		ExpectedAmount:  expected.Round(2),
		AmountTolerance: amountTol.Round(2),
		Confidence:      confidence,
		TransactionIDs:  ids,
	}, true
}

// nextOccurrence projects the next due date. Monthly cadences keep the
// day-of-month rather than adding a fixed day count, so a Jan 5 / Feb 5 /
// Mar 5 series predicts Apr 5 even across short months.
func nextOccurrence(last time.Time, periodDays int) time.Time {
	if periodDays >= 28 && periodDays <= 31 {
		return last.AddDate(0, 1, 0)
	}
	return last.AddDate(0, 0, periodDays)
}

// Overdue returns series whose expected next date plus grace has passed
// without a new occurrence, relative to the supplied time.
func Overdue(series []model.RecurringSeries, now time.Time, graceDays int) []model.RecurringSeries {
	var out []model.RecurringSeries
	for _, s := range series {
		if day(now).After(s.ExpectedNext.AddDate(0, 0, graceDays)) {
			out = append(out, s)
		}
	}
	return out
}

func dayGaps(txns []model.Transaction) []int {
	var gaps []int
	prev := day(txns[0].Time)
	for _, t := range txns[1:] {
		d := day(t.Time)
		if d.Equal(prev) {
			continue // same-day repeats do not contribute cadence information
		}
		gaps = append(gaps, int(d.Sub(prev).Hours()/24))
		prev = d
	}
	return gaps
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func medianInt(values []int) int {
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
