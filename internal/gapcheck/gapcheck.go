// Package gapcheck computes which calendar dates are missing from the ledger.
package gapcheck

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// ErrNoPriorDate is returned when the ledger has no recorded last date to
// anchor the gap to. The run must abort: without an anchor there is no way to
// tell which dates are missing.
var ErrNoPriorDate = errors.New("gapcheck: no prior date recorded in ledger")

// cellLayouts are the date formats the ledger date cell has been observed in.
// The sheet writes "15 Jun 24"; older rows and the diagnostic output use
// "15-Jun-24".
var cellLayouts = []string{
	"2 Jan 06",
	"2-Jan-06",
	"2 Jan 2006",
	"2-Jan-2006",
	"2006-01-02",
}

// ParseLedgerDate parses the ledger's locale-formatted date cell.
func ParseLedgerDate(cell string) (civil.Date, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return civil.Date{}, ErrNoPriorDate
	}
	for _, layout := range cellLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("gapcheck: unable to parse ledger date %q: %w", cell, ErrNoPriorDate)
}

// Missing returns the ordered dates strictly after the last recorded ledger
// date and strictly before today. Today is excluded because its report is not
// complete yet. An empty slice means the ledger is up to date.
func Missing(lastDateCell string, today civil.Date) ([]civil.Date, error) {
	last, err := ParseLedgerDate(lastDateCell)
	if err != nil {
		return nil, err
	}

	var dates []civil.Date
	for d := last.AddDays(1); d.Before(today); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates, nil
}

// ISO formats d as YYYY-MM-DD, the machine-sortable form driving the pipeline.
func ISO(d civil.Date) string { return d.String() }

// Display formats d as DD-Mon-YY for log output.
func Display(d civil.Date) string { return d.In(time.UTC).Format("02-Jan-06") }

// LedgerCell formats d the way the ledger date column stores it.
func LedgerCell(d civil.Date) string { return d.In(time.UTC).Format("2 Jan 06") }

// WeekdayName returns the en-GB long weekday name for the ledger's day column.
func WeekdayName(d civil.Date) string { return d.In(time.UTC).Weekday().String() }

// WriteGapFile writes the gap dates plus the day after today as
// newline-separated ISO dates. The file doubles as a resumable work queue.
func WriteGapFile(path string, dates []civil.Date, today civil.Date) error {
	var sb strings.Builder
	for _, d := range dates {
		sb.WriteString(ISO(d))
		sb.WriteByte('\n')
	}
	sb.WriteString(ISO(today.AddDays(1)))
	sb.WriteByte('\n')

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("gapcheck: writing gap file %q: %w", path, err)
	}
	return nil
}
