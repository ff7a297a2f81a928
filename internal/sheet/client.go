// Package sheet wraps the Sheets v4 API with the handful of operations the
// ledger needs: range get, value update, row insert and formula copy.
package sheet

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Client talks to one sheet of one spreadsheet.
type Client struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetID       int64
	sheetName     string
}

// NewClient builds a client authenticated with the given service-account key.
func NewClient(ctx context.Context, credentialsJSON []byte, spreadsheetID string, sheetID int64, sheetName string) (*Client, error) {
	cfg, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("sheet: parsing credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("sheet: creating sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetID:       sheetID,
		sheetName:     sheetName,
	}, nil
}

func (c *Client) ref(rangeA1 string) string {
	return fmt.Sprintf("%s!%s", c.sheetName, rangeA1)
}

// GetRange reads cell values for an A1 range like "A20:K20".
func (c *Client) GetRange(ctx context.Context, rangeA1 string) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.ref(rangeA1)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheet: get %s: %w", rangeA1, err)
	}
	return resp.Values, nil
}

// UpdateRange writes raw values into an A1 range.
func (c *Client) UpdateRange(ctx context.Context, rangeA1 string, values [][]interface{}) error {
	vr := &sheets.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.ref(rangeA1), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheet: update %s: %w", rangeA1, err)
	}
	return nil
}

// InsertRow physically inserts a new row at the given 1-based row number,
// shifting everything below it down.
func (c *Client) InsertRow(ctx context.Context, row int) error {
	req := &sheets.Request{
		InsertDimension: &sheets.InsertDimensionRequest{
			Range: &sheets.DimensionRange{
				SheetId:    c.sheetID,
				Dimension:  "ROWS",
				StartIndex: int64(row - 1),
				EndIndex:   int64(row),
			},
			InheritFromBefore: true,
		},
	}
	if err := c.batchUpdate(ctx, req); err != nil {
		return fmt.Errorf("sheet: insert row %d: %w", row, err)
	}
	return nil
}

// CopyFormulas copies the formulas (not values) of columns [startCol, endCol)
// from srcRow to dstRow. Rows are 1-based, columns 0-based half-open to match
// the API's grid ranges.
func (c *Client) CopyFormulas(ctx context.Context, srcRow, dstRow, startCol, endCol int) error {
	req := &sheets.Request{
		CopyPaste: &sheets.CopyPasteRequest{
			Source: &sheets.GridRange{
				SheetId:          c.sheetID,
				StartRowIndex:    int64(srcRow - 1),
				EndRowIndex:      int64(srcRow),
				StartColumnIndex: int64(startCol),
				EndColumnIndex:   int64(endCol),
			},
			Destination: &sheets.GridRange{
				SheetId:          c.sheetID,
				StartRowIndex:    int64(dstRow - 1),
				EndRowIndex:      int64(dstRow),
				StartColumnIndex: int64(startCol),
				EndColumnIndex:   int64(endCol),
			},
			PasteType: "PASTE_FORMULA",
		},
	}
	if err := c.batchUpdate(ctx, req); err != nil {
		return fmt.Errorf("sheet: copy formulas %d -> %d: %w", srcRow, dstRow, err)
	}
	return nil
}

// ColumnLength returns how many cells of the given column hold values.
func (c *Client) ColumnLength(ctx context.Context, column string) (int, error) {
	values, err := c.GetRange(ctx, fmt.Sprintf("%s:%s", column, column))
	if err != nil {
		return 0, err
	}
	return len(values), nil
}

func (c *Client) batchUpdate(ctx context.Context, reqs ...*sheets.Request) error {
	_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: reqs,
	}).Context(ctx).Do()
	return err
}

// ColumnLetter converts a 1-based column number to its A1 letter form
// (1 -> A, 27 -> AA).
func ColumnLetter(n int) string {
	letters := ""
	for n > 0 {
		n--
		letters = string(rune('A'+n%26)) + letters
		n /= 26
	}
	return letters
}
