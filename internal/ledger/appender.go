// Package ledger appends daily settlement rows to the spreadsheet ledger.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/tradebook-sync/internal/domain"
	"github.com/dvloznov/tradebook-sync/internal/gapcheck"
	"github.com/dvloznov/tradebook-sync/internal/sheet"
	"github.com/dvloznov/tradebook-sync/internal/tracker"
)

var (
	// ErrDuplicateDate means the ledger already shows the target date. The
	// append performed no mutation; the caller treats the date as done.
	ErrDuplicateDate = errors.New("ledger: date already recorded")

	// ErrEmptySummary means the summary carried no account entries. Nothing
	// meaningful to record, no mutation performed.
	ErrEmptySummary = errors.New("ledger: summary has no account entries")
)

// SheetService is the slice of the spreadsheet backend the appender uses.
type SheetService interface {
	GetRange(ctx context.Context, rangeA1 string) ([][]interface{}, error)
	UpdateRange(ctx context.Context, rangeA1 string, values [][]interface{}) error
	InsertRow(ctx context.Context, row int) error
	CopyFormulas(ctx context.Context, srcRow, dstRow, startCol, endCol int) error
	ColumnLength(ctx context.Context, column string) (int, error)
}

// RowTracker persists the last written row pointer.
type RowTracker interface {
	Read() (int, error)
	Commit(row int) error
}

// Appender performs the idempotent single-row ledger insert.
type Appender struct {
	sheet       SheetService
	tracker     RowTracker
	formulaCols int
}

// NewAppender creates an appender. formulaCols is the width of the trailing
// formula block copied forward from the previous row.
func NewAppender(sheet SheetService, tracker RowTracker, formulaCols int) *Appender {
	return &Appender{
		sheet:       sheet,
		tracker:     tracker,
		formulaCols: formulaCols,
	}
}

// AppendRow writes exactly one ledger row for targetDate and commits the new
// row pointer. The data columns are sequence number, weekday, date, then one
// (payin, brokerage) pair per configured account id in accountIDs order;
// accounts missing from the summary contribute (0, 0). Returns the inserted
// row number.
//
// ErrDuplicateDate and ErrEmptySummary are returned before any mutation.
func (a *Appender) AppendRow(ctx context.Context, targetDate civil.Date, summary *domain.DailySummary, accountIDs []string) (int, error) {
	lastRow, err := a.lastRow(ctx)
	if err != nil {
		return 0, err
	}

	dataCols := 3 + 2*len(accountIDs)
	totalCols := dataCols + a.formulaCols

	prev, err := a.readRow(ctx, lastRow, totalCols)
	if err != nil {
		return 0, err
	}

	// Idempotency guard: the most recently written row carries the newest
	// date, so re-running an already-recorded date is detected here.
	if len(prev) > 2 {
		if cellDate, err := gapcheck.ParseLedgerDate(cellString(prev[2])); err == nil && cellDate == targetDate {
			return 0, fmt.Errorf("%w: %s at row %d", ErrDuplicateDate, gapcheck.LedgerCell(targetDate), lastRow)
		}
	}

	if summary.Empty() {
		return 0, fmt.Errorf("%w for %s", ErrEmptySummary, gapcheck.LedgerCell(targetDate))
	}

	// The sequence number continues from the previous row's first cell, not
	// from the physical row number: unrelated insertions may have shifted
	// rows down since the sequence started.
	prevSeq, err := numericCell(prev, 0)
	if err != nil {
		return 0, fmt.Errorf("ledger: reading sequence number of row %d: %w", lastRow, err)
	}

	newRow := lastRow + 1
	values := buildRowValues(int(prevSeq)+1, targetDate, summary, accountIDs)

	if err := a.sheet.InsertRow(ctx, newRow); err != nil {
		return 0, err
	}

	dataRange := fmt.Sprintf("A%d:%s%d", newRow, sheet.ColumnLetter(dataCols), newRow)
	if err := a.sheet.UpdateRange(ctx, dataRange, [][]interface{}{values}); err != nil {
		return 0, err
	}

	if a.formulaCols > 0 && len(prev) > dataCols {
		if err := a.sheet.CopyFormulas(ctx, lastRow, newRow, dataCols, dataCols+a.formulaCols); err != nil {
			return 0, err
		}
	}

	if err := a.tracker.Commit(newRow); err != nil {
		return 0, err
	}
	return newRow, nil
}

func (a *Appender) lastRow(ctx context.Context) (int, error) {
	return ResolveLastRow(ctx, a.sheet, a.tracker)
}

// ResolveLastRow returns the last written ledger row from the tracker,
// falling back to the length of the ledger's key column when no tracker
// state exists.
func ResolveLastRow(ctx context.Context, sheetSvc SheetService, trk RowTracker) (int, error) {
	row, err := trk.Read()
	if err == nil && row > 0 {
		return row, nil
	}
	if err != nil && !errors.Is(err, tracker.ErrNoState) {
		return 0, err
	}

	length, err := sheetSvc.ColumnLength(ctx, "A")
	if err != nil {
		return 0, err
	}
	if length == 0 {
		return 0, fmt.Errorf("ledger: sheet has no rows to append after")
	}
	return length, nil
}

// LastDateCell reads the ledger's date cell at the given row.
func LastDateCell(ctx context.Context, sheetSvc SheetService, row int) (string, error) {
	values, err := sheetSvc.GetRange(ctx, fmt.Sprintf("C%d:C%d", row, row))
	if err != nil {
		return "", err
	}
	if len(values) == 0 || len(values[0]) == 0 {
		return "", nil
	}
	s, _ := values[0][0].(string)
	return s, nil
}

func (a *Appender) readRow(ctx context.Context, row, cols int) ([]interface{}, error) {
	rangeA1 := fmt.Sprintf("A%d:%s%d", row, sheet.ColumnLetter(cols), row)
	values, err := a.sheet.GetRange(ctx, rangeA1)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("ledger: row %d is empty", row)
	}
	return values[0], nil
}

func buildRowValues(seq int, targetDate civil.Date, summary *domain.DailySummary, accountIDs []string) []interface{} {
	values := []interface{}{
		seq,
		gapcheck.WeekdayName(targetDate),
		gapcheck.LedgerCell(targetDate),
	}
	for _, id := range accountIDs {
		if entry, ok := summary.FindAccount(id); ok {
			values = append(values, entry.PayinPayoutObligation, entry.NetBrokerage)
		} else {
			values = append(values, 0.0, 0.0)
		}
	}
	return values
}

func cellString(v interface{}) string {
	s, _ := v.(string)
	return s
}

// numericCell parses the cell at idx as a number. The values API returns
// strings for formatted cells and float64 for raw ones.
func numericCell(row []interface{}, idx int) (float64, error) {
	if idx >= len(row) {
		return 0, fmt.Errorf("cell %d missing", idx)
	}
	switch v := row[idx].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("cell %d is not numeric: %q", idx, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cell %d has unexpected type %T", idx, row[idx])
	}
}
