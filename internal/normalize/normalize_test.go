package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-dev/finsight/internal/model"
)

func row(desc, amount string) model.RawRow {
	return model.RawRow{
		SourceFile:  "export.csv",
		Index:       1,
		Account:     "Checking",
		Currency:    "CHF",
		Description: desc,
		Amount:      amount,
		BookingDate: "2024-03-10",
	}
}

func TestRow_Basic(t *testing.T) {
	txn, err := Row(row("NETFLIX.COM 4029357733", "-15.99"))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), txn.Time)
	assert.Equal(t, model.DateFromBooking, txn.DateSource)
	assert.True(t, txn.Amount.Equal(dec("-15.99")))
	assert.Equal(t, "netflix.com", txn.MerchantToken)
	assert.Equal(t, "CHF", txn.Currency)
	assert.Equal(t, []string{"export.csv"}, txn.Sources)
	assert.Len(t, txn.ID, 12)
}

func TestRow_DateFallbackOrder(t *testing.T) {
	r := row("COOP", "-20.00")
	r.Timestamp = "2024-03-09 18:30:00"
	r.ValueDate = "2024-03-11"

	txn, err := Row(r)
	require.NoError(t, err)
	assert.Equal(t, model.DateFromTimestamp, txn.DateSource)
	assert.Equal(t, 9, txn.Time.Day())
	assert.False(t, txn.DateSource.Fallback())

	r.Timestamp = ""
	r.BookingDate = ""
	txn, err = Row(r)
	require.NoError(t, err)
	assert.Equal(t, model.DateFromValue, txn.DateSource)
	assert.True(t, txn.DateSource.Fallback())
}

func TestRow_MalformedDate(t *testing.T) {
	r := row("COOP", "-20.00")
	r.BookingDate = "not a date"

	_, err := Row(r)
	require.Error(t, err)
	var malformed *model.MalformedRowError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "date", malformed.Field)
	assert.Equal(t, "COOP", malformed.Row.Description)
}

func TestRow_MalformedAmount(t *testing.T) {
	_, err := Row(row("COOP", "abc"))
	var malformed *model.MalformedRowError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "amount", malformed.Field)
}

func TestRow_SwissAmountNotation(t *testing.T) {
	txn, err := Row(row("SALARY", "12'345.60"))
	require.NoError(t, err)
	assert.True(t, txn.Amount.Equal(dec("12345.60")))

	txn, err = Row(row("MIETE", "-1'200,50"))
	require.NoError(t, err)
	assert.True(t, txn.Amount.Equal(dec("-1200.50")))
}

func TestRows_CollectsFailures(t *testing.T) {
	batch := []model.RawRow{
		row("COOP", "-20.00"),
		row("BROKEN", "xx"),
		row("MIGROS", "-5.00"),
	}

	txns, failed := Rows(batch)
	assert.Len(t, txns, 2)
	require.Len(t, failed, 1)
	assert.Equal(t, "BROKEN", failed[0].Row.Description)
}

func TestRow_SameRowSameID(t *testing.T) {
	a, err := Row(row("NETFLIX.COM", "-15.99"))
	require.NoError(t, err)
	b, err := Row(row("NETFLIX.COM", "-15.99"))
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
}

func TestToken(t *testing.T) {
	cases := map[string]string{
		"UBER *TRIP":                 "uber trip",
		"NETFLIX.COM 4029357733":    "netflix.com",
		"PAYPAL *SPOTIFY":           "spotify",
		"COOP-2345 ZUERICH 0042":    "coop 2345 zuerich", // embedded numbers stay, trailing refs go
		"UBER   * EATS PENDING":     "uber eats",
	}
	for in, want := range cases {
		assert.Equal(t, want, Token(in), "Token(%q)", in)
	}
}

func TestFields(t *testing.T) {
	assert.Equal(t, []string{"trip", "uber"}, Fields("UBER *TRIP"))
	assert.Equal(t, []string{"netflix.com"}, Fields("NETFLIX.COM 4029357733"))
	// stopwords and short tokens are dropped
	assert.Equal(t, []string{"migros"}, Fields("MIGROS CARD PAYMENT CHF"))
}
