// Package rulelog keeps an append-only CSV audit trail of rule lifecycle
// events. Every create, reinforce, decay, and retire lands here with a
// timestamp, so any rule's current confidence can be traced back through
// the labels that shaped it.
package rulelog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/finsight-dev/finsight/internal/rules"
)

// Header is the CSV header for rule-log.csv.
const Header = "timestamp,action,rule_id,detail"

const (
	numFields    = 4
	logDir       = "logs"
	logFile      = "logs/rule-log.csv"
	colTimestamp = 0
	colAction    = 1
	colRuleID    = 2
	colDetail    = 3
)

// MarshalEvent converts a learner event to a CSV row.
func MarshalEvent(e rules.Event) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.At.Format(time.RFC3339)
	row[colAction] = string(e.Action)
	row[colRuleID] = e.RuleID
	row[colDetail] = e.Detail
	return row
}

// UnmarshalEvent converts a CSV row back to a learner event.
func UnmarshalEvent(record []string) (rules.Event, error) {
	if len(record) != numFields {
		return rules.Event{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	at, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return rules.Event{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	return rules.Event{
		At:     at,
		Action: rules.EventAction(record[colAction]),
		RuleID: record[colRuleID],
		Detail: record[colDetail],
	}, nil
}

// Append writes events to <dataDir>/logs/rule-log.csv, creating the file and
// header if needed. Existing rows are never rewritten.
func Append(dataDir string, events []rules.Event) error {
	dir := filepath.Join(dataDir, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(dataDir, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening rule log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range events {
		if err := cw.Write(MarshalEvent(e)); err != nil {
			return fmt.Errorf("writing event %d: %w", i, err)
		}
	}

	return cw.Error()
}

// Read returns all events from <dataDir>/logs/rule-log.csv in file order.
// Returns an empty slice if the file does not exist.
func Read(dataDir string) ([]rules.Event, error) {
	path := filepath.Join(dataDir, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening rule log: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	var events []rules.Event
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading rule log: %w", err)
		}
		line++
		if line == 1 && record[colTimestamp] == "timestamp" {
			continue
		}
		e, err := UnmarshalEvent(record)
		if err != nil {
			return nil, fmt.Errorf("rule log line %d: %w", line, err)
		}
		events = append(events, e)
	}
	return events, nil
}
