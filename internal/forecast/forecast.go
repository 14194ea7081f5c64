// Package forecast projects near-term cashflow from two sources: detected
// recurring series, and per-category run rates extrapolated from a trailing
// window of ordinary spending. Every projection carries the assumptions it
// was built from so the numbers can be audited.
package forecast

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finsight-dev/finsight/internal/config"
	"github.com/finsight-dev/finsight/internal/model"
)

// CategoryRunRate is the observed per-day net for one category inside the
// trailing window.
type CategoryRunRate struct {
	Category string
	PerDay   decimal.Decimal
	Sampled  int
}

// Assumptions records the inputs a projection was derived from.
type Assumptions struct {
	RunRateWindowDays int
	WindowStart       time.Time
	WindowEnd         time.Time
	SeriesKeys        []string
	RunRates          []CategoryRunRate
}

// Horizon is the projected net cashflow over one forward-looking window.
type Horizon struct {
	Days         int
	RecurringNet decimal.Decimal
	RunRateNet   decimal.Decimal
	Net          decimal.Decimal
}

// Projection is the full forecast output.
type Projection struct {
	GeneratedAt time.Time
	Horizons    []Horizon
	Assumptions Assumptions
}

// Project forecasts net cashflow over each configured horizon. Recurring
// series contribute their expected amount once per projected occurrence;
// everything else is extrapolated linearly from the trailing run-rate
// window. Series members and transfer legs are excluded from the run rate
// so recurring money is never counted twice.
func Project(txns []model.Transaction, series []model.RecurringSeries, now time.Time, cfg config.ForecastConfig) Projection {
	windowEnd := now
	windowStart := now.AddDate(0, 0, -cfg.RunRateWindowDays)

	rates := runRates(txns, series, windowStart, windowEnd, cfg.RunRateWindowDays)

	keys := make([]string, 0, len(series))
	for _, s := range series {
		keys = append(keys, s.Key())
	}
	sort.Strings(keys)

	horizons := make([]Horizon, 0, len(cfg.HorizonsDays))
	for _, days := range cfg.HorizonsDays {
		recurring := recurringNet(series, now, days)
		runRate := decimal.Zero
		for _, r := range rates {
			runRate = runRate.Add(r.PerDay.Mul(decimal.NewFromInt(int64(days))))
		}
		runRate = runRate.Round(2)
		horizons = append(horizons, Horizon{
			Days:         days,
			RecurringNet: recurring,
			RunRateNet:   runRate,
			Net:          recurring.Add(runRate),
		})
	}

	return Projection{
		GeneratedAt: now,
		Horizons:    horizons,
		Assumptions: Assumptions{
			RunRateWindowDays: cfg.RunRateWindowDays,
			WindowStart:       windowStart,
			WindowEnd:         windowEnd,
			SeriesKeys:        keys,
			RunRates:          rates,
		},
	}
}

// recurringNet sums the expected amount of every series occurrence that
// falls due within the horizon. An overdue occurrence counts toward every
// horizon since the cash movement is still expected.
func recurringNet(series []model.RecurringSeries, now time.Time, horizonDays int) decimal.Decimal {
	end := now.AddDate(0, 0, horizonDays)
	total := decimal.Zero
	for _, s := range series {
		if s.PeriodDays < 1 {
			continue
		}
		amount := s.ExpectedAmount
		if s.Negative {
			amount = amount.Neg()
		}
		for due := s.ExpectedNext; !due.After(end); due = nextDue(due, s.PeriodDays) {
			total = total.Add(amount)
		}
	}
	return total.Round(2)
}

// nextDue mirrors the detector's projection rule: monthly cadences keep the
// day-of-month, everything else steps by the period.
func nextDue(last time.Time, periodDays int) time.Time {
	if periodDays >= 28 && periodDays <= 31 {
		return last.AddDate(0, 1, 0)
	}
	return last.AddDate(0, 0, periodDays)
}

func runRates(txns []model.Transaction, series []model.RecurringSeries, start, end time.Time, windowDays int) []CategoryRunRate {
	if windowDays < 1 {
		return nil
	}
	inSeries := make(map[string]bool)
	for _, s := range series {
		for _, id := range s.TransactionIDs {
			inSeries[id] = true
		}
	}

	type bucket struct {
		net     decimal.Decimal
		sampled int
	}
	byCategory := make(map[string]*bucket)
	for _, t := range txns {
		if t.IsTransfer() || inSeries[t.ID] {
			continue
		}
		if t.Time.Before(start) || t.Time.After(end) {
			continue
		}
		b := byCategory[t.Category]
		if b == nil {
			b = &bucket{net: decimal.Zero}
			byCategory[t.Category] = b
		}
		b.net = b.net.Add(t.Amount)
		b.sampled++
	}

	days := decimal.NewFromInt(int64(windowDays))
	rates := make([]CategoryRunRate, 0, len(byCategory))
	for category, b := range byCategory {
		rates = append(rates, CategoryRunRate{
			Category: category,
			PerDay:   b.net.DivRound(days, 6),
			Sampled:  b.sampled,
		})
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].Category < rates[j].Category })
	return rates
}
