package importer

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/finsight-dev/finsight/internal/model"
)

// GenericParser parses comma-separated exports whose first row is a header.
// Column meaning is resolved by header alias, so most anglophone bank
// exports work without a dedicated parser.
type GenericParser struct{}

// Format returns the parser name.
func (p *GenericParser) Format() string { return "generic" }

// Parse reads a generic CSV and returns raw rows.
func (p *GenericParser) Parse(r io.Reader, src Source) ([]model.RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := mapColumns(records[0])
	if !cols.usable() {
		return nil, fmt.Errorf("header row %v is missing a date, description, or amount column", records[0])
	}

	var rows []model.RawRow
	for i, rec := range records[1:] {
		if blankRecord(rec) {
			continue
		}
		rows = append(rows, model.RawRow{
			SourceFile:  src.File,
			Index:       i,
			Account:     src.Account,
			Currency:    currencyOr(rec, cols, src.Currency),
			Description: cell(rec, cols.description),
			Amount:      cols.rawAmount(rec),
			Timestamp:   cell(rec, cols.timestamp),
			BookingDate: cell(rec, cols.bookingDate),
			ValueDate:   cell(rec, cols.valueDate),
		})
	}
	return rows, nil
}

func currencyOr(rec []string, cols columns, fallback string) string {
	if v := cell(rec, cols.currency); v != "" {
		return v
	}
	return fallback
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if v != "" {
			return false
		}
	}
	return true
}
