package importer

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/finsight-dev/finsight/internal/model"
)

// SwissParser parses semicolon-separated exports from Swiss banks. These
// files often open with preamble lines (account holder, IBAN, period), use
// apostrophe thousands separators, and split money movement into Belastung
// and Gutschrift columns. The header row is located by scanning for a row
// that maps to usable columns.
type SwissParser struct{}

// Preamble lines before the header row rarely exceed a handful; scanning is
// capped so a headerless file fails fast.
const swissHeaderScanLimit = 10

// Format returns the parser name.
func (p *SwissParser) Format() string { return "swiss" }

// Parse reads a Swiss semicolon CSV and returns raw rows.
func (p *SwissParser) Parse(r io.Reader, src Source) ([]model.RawRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading semicolon CSV: %w", err)
	}

	headerIdx := -1
	var cols columns
	for i, rec := range records {
		if i >= swissHeaderScanLimit {
			break
		}
		if c := mapColumns(rec); c.usable() {
			headerIdx = i
			cols = c
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("no usable header row found in first %d lines", swissHeaderScanLimit)
	}

	var rows []model.RawRow
	for i, rec := range records[headerIdx+1:] {
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
