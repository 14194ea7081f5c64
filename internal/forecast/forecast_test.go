package forecast

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-dev/finsight/internal/config"
	"github.com/finsight-dev/finsight/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestProject_RecurringContributions(t *testing.T) {
	series := []model.RecurringSeries{{
		MerchantToken:  "netflix.com",
		Negative:       true,
		PeriodDays:     30,
		ExpectedNext:   date(2024, 4, 5),
		ExpectedAmount: dec("15.99"),
	}}

	now := date(2024, 4, 1)
	p := Project(nil, series, now, config.Default().Forecast)
	require.Len(t, p.Horizons, 3)

	// Apr 5 within 30 days; May 5 within 60; Jun 5 within 90.
	assert.True(t, p.Horizons[0].RecurringNet.Equal(dec("-15.99")), "30d got %s", p.Horizons[0].RecurringNet)
	assert.True(t, p.Horizons[1].RecurringNet.Equal(dec("-31.98")), "60d got %s", p.Horizons[1].RecurringNet)
	assert.True(t, p.Horizons[2].RecurringNet.Equal(dec("-47.97")), "90d got %s", p.Horizons[2].RecurringNet)
}

func TestProject_OverdueOccurrenceStillCounted(t *testing.T) {
	series := []model.RecurringSeries{{
		MerchantToken:  "gym",
		Negative:       true,
		PeriodDays:     30,
		ExpectedNext:   date(2024, 3, 28),
		ExpectedAmount: dec("99.00"),
	}}

	p := Project(nil, series, date(2024, 4, 2), config.Default().Forecast)
	// Overdue Mar 28 plus Apr 28 both land inside the 30-day horizon.
	assert.True(t, p.Horizons[0].RecurringNet.Equal(dec("-198.00")), "got %s", p.Horizons[0].RecurringNet)
}

func TestProject_RunRateExcludesTransfersAndSeriesMembers(t *testing.T) {
	now := date(2024, 4, 1)
	txns := []model.Transaction{
		{ID: "a", Time: date(2024, 3, 10), Amount: dec("-225.00"), Category: "Food"},
		{ID: "b", Time: date(2024, 3, 20), Amount: dec("-225.00"), Category: "Food"},
		{ID: "c", Time: date(2024, 3, 15), Amount: dec("-500.00"), TransferPeer: "d"},
		{ID: "e", Time: date(2024, 3, 5), Amount: dec("-15.99"), Category: "Entertainment"},
		{ID: "old", Time: date(2023, 11, 1), Amount: dec("-999.00"), Category: "Food"},
	}
	series := []model.RecurringSeries{{
		MerchantToken:  "netflix.com",
		Negative:       true,
		PeriodDays:     30,
		ExpectedNext:   date(2024, 6, 5), // beyond every horizon
		ExpectedAmount: dec("15.99"),
		TransactionIDs: []string{"e"},
	}}

	p := Project(txns, series, now, config.Default().Forecast)

	require.Len(t, p.Assumptions.RunRates, 1)
	food := p.Assumptions.RunRates[0]
	assert.Equal(t, "Food", food.Category)
	assert.Equal(t, 2, food.Sampled)
	// -450 over 90 days is -5/day.
	assert.True(t, food.PerDay.Equal(dec("-5")), "got %s", food.PerDay)
	assert.True(t, p.Horizons[0].RunRateNet.Equal(dec("-150.00")), "got %s", p.Horizons[0].RunRateNet)
	assert.True(t, p.Horizons[0].RecurringNet.IsZero())
	assert.True(t, p.Horizons[0].Net.Equal(dec("-150.00")))
}

func TestProject_AssumptionsAuditable(t *testing.T) {
	series := []model.RecurringSeries{
		{MerchantToken: "spotify", Negative: true, PeriodDays: 30, ExpectedNext: date(2024, 9, 1), ExpectedAmount: dec("12.00")},
		{MerchantToken: "acme payroll", Negative: false, PeriodDays: 30, ExpectedNext: date(2024, 9, 1), ExpectedAmount: dec("6500.00")},
	}
	now := date(2024, 4, 1)
	p := Project(nil, series, now, config.Default().Forecast)

	assert.Equal(t, now, p.GeneratedAt)
	assert.Equal(t, 90, p.Assumptions.RunRateWindowDays)
	assert.Equal(t, date(2024, 1, 2), p.Assumptions.WindowStart)
	assert.Equal(t, now, p.Assumptions.WindowEnd)
	assert.Equal(t, []string{"acme payroll/+", "spotify/-"}, p.Assumptions.SeriesKeys)
}
