// Package normalize converts heterogeneous raw export rows into canonical
// transactions: typed date with documented fallback order, fixed-point
// amount, and a normalized merchant token for rule matching.
package normalize

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finsight-dev/finsight/internal/model"
	"github.com/finsight-dev/finsight/internal/txid"
)

// Date layouts seen across bank exports: ISO with and without time,
// Swiss dotted, and US slash formats.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006",
	"01/02/2006",
}

// Row normalizes one raw row. It fails with *model.MalformedRowError when
// the date or the amount cannot be resolved; the raw row rides along in the
// error so the caller can report it instead of dropping it.
func Row(raw model.RawRow) (model.Transaction, error) {
	when, source, err := resolveDate(raw)
	if err != nil {
		return model.Transaction{}, err
	}

	amount, err := parseAmount(raw.Amount)
	if err != nil {
		return model.Transaction{}, &model.MalformedRowError{Row: raw, Field: "amount", Detail: err.Error()}
	}

	txn := model.Transaction{
		Time:          when,
		DateSource:    source,
		FileOrder:     raw.Index,
		Amount:        amount,
		Currency:      strings.ToUpper(strings.TrimSpace(raw.Currency)),
		Account:       strings.TrimSpace(raw.Account),
		Description:   strings.TrimSpace(raw.Description),
		MerchantToken: Token(raw.Description),
		Sources:       []string{raw.SourceFile},
	}
	txn.ID = txid.New(txn.Account, txn.Time, txn.Amount, txn.Description)
	return txn, nil
}

// Rows normalizes a batch, collecting per-row failures instead of aborting.
func Rows(batch []model.RawRow) ([]model.Transaction, []*model.MalformedRowError) {
	var (
		txns   []model.Transaction
		failed []*model.MalformedRowError
	)
	for _, raw := range batch {
		txn, err := Row(raw)
		if err != nil {
			var malformed *model.MalformedRowError
			if errors.As(err, &malformed) {
				failed = append(failed, malformed)
			} else {
				failed = append(failed, &model.MalformedRowError{Row: raw, Field: "row", Detail: err.Error()})
			}
			continue
		}
		txns = append(txns, txn)
	}
	return txns, failed
}

// resolveDate applies the fallback chain: precise timestamp > booking date >
// value date. A row with no resolvable date at all is malformed; file order
// only breaks intra-day ordering, it never substitutes for a date.
func resolveDate(raw model.RawRow) (time.Time, model.DateSource, error) {
	candidates := []struct {
		value  string
		source model.DateSource
	}{
		{raw.Timestamp, model.DateFromTimestamp},
		{raw.BookingDate, model.DateFromBooking},
		{raw.ValueDate, model.DateFromValue},
	}
	for _, c := range candidates {
		value := strings.TrimSpace(c.value)
		if value == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if when, err := time.Parse(layout, value); err == nil {
				return when.UTC(), c.source, nil
			}
		}
	}
	return time.Time{}, "", &model.MalformedRowError{Row: raw, Field: "date", Detail: "no parseable timestamp, booking date, or value date"}
}

// parseAmount cleans bank-export amount notation: apostrophe thousands
// separators (Swiss), plain thousands commas, and comma decimal points.
func parseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, "'", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if strings.Contains(cleaned, ",") {
		if strings.Contains(cleaned, ".") {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		}
	}
	return decimal.NewFromString(cleaned)
}
