package detect

import (
	"fmt"
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

func detectionCfg() config.DetectionConfig { return config.Default().Detection }

func txn(t *testing.T, account, bookingDate, amount, desc string) model.Transaction {
	t.Helper()
	out, err := normalize.Row(model.RawRow{
		SourceFile:  "test.csv",
		Account:     account,
		Currency:    "CHF",
		Description: desc,
		Amount:      amount,
		BookingDate: bookingDate,
	})
	require.NoError(t, err)
	return out
}

func TestRecurring_MonthlySeries(t *testing.T) {
	txns := []model.Transaction{
		txn(t, "Checking", "2024-01-05", "-15.99", "NETFLIX.COM"),
		txn(t, "Checking", "2024-02-05", "-15.99", "NETFLIX.COM"),
		txn(t, "Checking", "2024-03-05", "-15.99", "NETFLIX.COM"),
		txn(t, "Checking", "2024-03-07", "-8.50", "COOP"), // noise
	}

	series := Recurring(txns, detectionCfg())
	require.Len(t, series, 1)

	s := series[0]
	assert.Equal(t, "netflix.com", s.MerchantToken)
	assert.True(t, s.Negative)
	assert.Equal(t, 3, s.Occurrences)
	assert.Equal(t, time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC), s.ExpectedNext)
	assert.True(t, s.ExpectedAmount.Equal(dec("15.99")))
	assert.True(t, s.AmountWithinExpectation(dec("15.99")))
	assert.True(t, s.AmountWithinExpectation(dec("17.50")), "within tolerance band")
	assert.False(t, s.AmountWithinExpectation(dec("45.00")))
}

func TestRecurring_FourConsecutiveMonthsSameDay(t *testing.T) {
	var txns []model.Transaction
	for m := time.January; m <= time.April; m++ {
		txns = append(txns, txn(t, "Checking", fmt.Sprintf("2024-%02d-15", m), "-99.00", "GYM MEMBERSHIP"))
	}

	series := Recurring(txns, detectionCfg())
	require.Len(t, series, 1)
	assert.Equal(t, time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), series[0].ExpectedNext)
	assert.Equal(t, 4, series[0].Occurrences)
}

func TestRecurring_WeeklySeries(t *testing.T) {
	txns := []model.Transaction{
		txn(t, "Card", "2024-03-01", "-12.00", "SPOTIFY WEEKLY"),
		txn(t, "Card", "2024-03-08", "-12.00", "SPOTIFY WEEKLY"),
		txn(t, "Card", "2024-03-15", "-12.00", "SPOTIFY WEEKLY"),
		txn(t, "Card", "2024-03-22", "-12.00", "SPOTIFY WEEKLY"),
	}

	series := Recurring(txns, detectionCfg())
	require.Len(t, series, 1)
	assert.Equal(t, 7, series[0].PeriodDays)
	assert.Equal(t, time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC), series[0].ExpectedNext)
}

func TestRecurring_IrregularGapsRejected(t *testing.T) {
	txns := []model.Transaction{
		txn(t, "Card", "2024-01-03", "-40.00", "RESTAURANT KINTARO"),
		txn(t, "Card", "2024-01-20", "-40.00", "RESTAURANT KINTARO"),
		txn(t, "Card", "2024-03-28", "-40.00", "RESTAURANT KINTARO"),
	}

	assert.Empty(t, Recurring(txns, detectionCfg()))
}

func TestRecurring_TooFewOccurrences(t *testing.T) {
	txns := []model.Transaction{
		txn(t, "Checking", "2024-01-05", "-15.99", "NETFLIX.COM"),
		txn(t, "Checking", "2024-02-05", "-15.99", "NETFLIX.COM"),
	}
	assert.Empty(t, Recurring(txns, detectionCfg()))
}

func TestRecurring_TransfersExcluded(t *testing.T) {
	var txns []model.Transaction
	for m := 1; m <= 4; m++ {
		tx := txn(t, "Checking", fmt.Sprintf("2024-0%d-01", m), "-500.00", "STANDING ORDER SAVINGS")
		tx.TransferPeer = "peer-" + tx.ID
		txns = append(txns, tx)
	}
	assert.Empty(t, Recurring(txns, detectionCfg()))
}

func TestOverdue(t *testing.T) {
	series := []model.RecurringSeries{{
		MerchantToken: "netflix.com",
		Negative:      true,
		ExpectedNext:  time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC),
	}}

	grace := config.Default().Actions.MissedRecurringGraceDays
	assert.Empty(t, Overdue(series, time.Date(2024, 4, 6, 12, 0, 0, 0, time.UTC), grace))
	assert.Len(t, Overdue(series, time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC), grace), 1)
}

func TestAnomalies_CategoryOutlier(t *testing.T) {
	var txns []model.Transaction
	for d := 1; d <= 8; d++ {
		tx := txn(t, "Card", fmt.Sprintf("2024-03-0%d", d), "-20.00", fmt.Sprintf("CAFE %d", d))
		tx.Category = "Food"
		txns = append(txns, tx)
	}
	outlier := txn(t, "Card", "2024-03-09", "-900.00", "CAFE BLOWOUT")
	outlier.Category = "Food"
	txns = append(txns, outlier)

	anomalies := Anomalies(txns, nil, detectionCfg())
	require.Len(t, anomalies, 1)
	assert.Equal(t, outlier.ID, anomalies[0].TransactionID)
	assert.Equal(t, model.AnomalyCategoryOutlier, anomalies[0].Reason)
	assert.True(t, anomalies[0].Score.GreaterThan(dec("3.5")))
}

func TestAnomalies_RoutineSpreadNotFlagged(t *testing.T) {
	var txns []model.Transaction
	amounts := []string{"-18.00", "-20.00", "-22.00", "-19.50", "-21.00", "-24.00"}
	for i, a := range amounts {
		tx := txn(t, "Card", fmt.Sprintf("2024-03-0%d", i+1), a, fmt.Sprintf("CAFE %d", i))
		tx.Category = "Food"
		txns = append(txns, tx)
	}
	assert.Empty(t, Anomalies(txns, nil, detectionCfg()))
}

func TestAnomalies_SeriesAmountBreak(t *testing.T) {
	var txns []model.Transaction
	for m := 1; m <= 3; m++ {
		txns = append(txns, txn(t, "Checking", fmt.Sprintf("2024-0%d-05", m), "-15.99", "NETFLIX.COM"))
	}
	series := Recurring(txns, detectionCfg())
	require.Len(t, series, 1)

	// Next month's charge triples without explanation.
	spike := txn(t, "Checking", "2024-04-05", "-47.99", "NETFLIX.COM")
	all := append(txns, spike)

	anomalies := Anomalies(all, series, detectionCfg())
	require.Len(t, anomalies, 1)
	assert.Equal(t, spike.ID, anomalies[0].TransactionID)
	assert.Equal(t, model.AnomalySeriesAmount, anomalies[0].Reason)
	assert.Equal(t, series[0].Key(), anomalies[0].SeriesKey)
}

func TestAnomalies_SeriesSpikeDoesNotImplicateHistory(t *testing.T) {
	txns := []model.Transaction{
		txn(t, "Checking", "2024-01-05", "-15.99", "NETFLIX.COM"),
		txn(t, "Checking", "2024-02-05", "-15.99", "NETFLIX.COM"),
		txn(t, "Checking", "2024-03-05", "-15.99", "NETFLIX.COM"),
		txn(t, "Checking", "2024-04-05", "-47.99", "NETFLIX.COM"),
	}

	// The spike is itself a series member here; the expectation must stay
	// anchored on the routine charges, not drift toward the spike.
	series := Recurring(txns, detectionCfg())
	require.Len(t, series, 1)
	assert.True(t, series[0].ExpectedAmount.Equal(dec("15.99")), "got %s", series[0].ExpectedAmount)

	anomalies := Anomalies(txns, series, detectionCfg())
	require.Len(t, anomalies, 1)
	assert.Equal(t, txns[3].ID, anomalies[0].TransactionID)
	assert.Equal(t, model.AnomalySeriesAmount, anomalies[0].Reason)
}

func TestAnomalies_UncategorizedIgnoredByOutlierScan(t *testing.T) {
	var txns []model.Transaction
	for d := 1; d <= 6; d++ {
		txns = append(txns, txn(t, "Card", fmt.Sprintf("2024-03-0%d", d), "-20.00", fmt.Sprintf("SHOP %d", d)))
	}
	big := txn(t, "Card", "2024-03-09", "-5000.00", "SHOP HUGE")
	txns = append(txns, big)

	assert.Empty(t, Anomalies(txns, nil, detectionCfg()))
}
