package importer

import "strings"

// columns maps a header row to the fields a RawRow needs. Aliases cover the
// header spellings seen across common bank exports; matching is
// case-insensitive on the trimmed header text.
type columns struct {
	timestamp   int
	bookingDate int
	valueDate   int
	description int
	amount      int
	debit       int
	credit      int
	currency    int
}

var headerAliases = map[string][]string{
	"timestamp":   {"timestamp", "datetime", "date time"},
	"bookingDate": {"date", "booking date", "transaction date", "posted date", "datum", "buchungsdatum"},
	"valueDate":   {"value date", "valuta", "valutadatum"},
	"description": {"description", "details", "text", "narrative", "payee", "buchungstext", "beschreibung"},
	"amount":      {"amount", "value", "betrag"},
	"debit":       {"debit", "withdrawal", "belastung"},
	"credit":      {"credit", "deposit", "gutschrift"},
	"currency":    {"currency", "ccy", "währung", "waehrung"},
}

func mapColumns(header []string) columns {
	c := columns{
		timestamp: -1, bookingDate: -1, valueDate: -1, description: -1,
		amount: -1, debit: -1, credit: -1, currency: -1,
	}
	targets := map[string]*int{
		"timestamp":   &c.timestamp,
		"bookingDate": &c.bookingDate,
		"valueDate":   &c.valueDate,
		"description": &c.description,
		"amount":      &c.amount,
		"debit":       &c.debit,
		"credit":      &c.credit,
		"currency":    &c.currency,
	}
	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell))
		for field, aliases := range headerAliases {
			for _, alias := range aliases {
				if name == alias && *targets[field] == -1 {
					*targets[field] = i
				}
			}
		}
	}
	return c
}

// usable reports whether the mapping covers the minimum a row needs: a date,
// a description, and either a combined amount or a debit/credit split.
func (c columns) usable() bool {
	hasDate := c.timestamp >= 0 || c.bookingDate >= 0 || c.valueDate >= 0
	hasAmount := c.amount >= 0 || c.debit >= 0 || c.credit >= 0
	return hasDate && hasAmount && c.description >= 0
}

func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

// rawAmount resolves a combined amount column or a debit/credit split. Debit
// columns hold positive figures that mean money out, so they are negated
// here as plain string prefixing; numeric parsing stays downstream.
func (c columns) rawAmount(rec []string) string {
	if c.amount >= 0 {
		if v := cell(rec, c.amount); v != "" {
			return v
		}
	}
	if v := cell(rec, c.credit); v != "" {
		return v
	}
	if v := cell(rec, c.debit); v != "" {
		if strings.HasPrefix(v, "-") {
			return v
		}
		return "-" + v
	}
	return ""
}
