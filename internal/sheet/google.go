// README: Google Sheets workbook; one spreadsheet, one sheet per table.
package sheet

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/api/sheets/v4"
)

type GoogleWorkbook struct {
	svc           *sheets.Service
	spreadsheetID string

	mu     sync.Mutex
	tables map[string]*GoogleTable
}

func NewGoogleWorkbook(svc *sheets.Service, spreadsheetID string) *GoogleWorkbook {
	return &GoogleWorkbook{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		tables:        make(map[string]*GoogleTable),
	}
}

// Table returns the sheet titled name, adding it to the spreadsheet if missing.
func (w *GoogleWorkbook) Table(ctx context.Context, name string, header []string) (Table, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.tables[name]; ok {
		return t, nil
	}

	sheetID, err := w.lookupSheet(ctx, name)
	if err == ErrTableNotFound {
		sheetID, err = w.addSheet(ctx, name)
	}
	if err != nil {
		return nil, fmt.Errorf("acquire sheet %q: %w", name, err)
	}

	t := &GoogleTable{svc: w.svc, spreadsheetID: w.spreadsheetID, sheetID: sheetID, name: name}
	if err := EnsureHeader(ctx, t, header); err != nil {
		return nil, fmt.Errorf("header for sheet %q: %w", name, err)
	}
	w.tables[name] = t
	return t, nil
}

func (w *GoogleWorkbook) lookupSheet(ctx context.Context, name string) (int64, error) {
	ss, err := w.svc.Spreadsheets.Get(w.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == name {
			return s.Properties.SheetId, nil
		}
	}
	return 0, ErrTableNotFound
}

func (w *GoogleWorkbook) addSheet(ctx context.Context, name string) (int64, error) {
	resp, err := w.svc.Spreadsheets.BatchUpdate(w.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: name},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return 0, fmt.Errorf("add sheet %q: empty reply", name)
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

type GoogleTable struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetID       int64
	name          string
}

func (t *GoogleTable) Name() string { return t.name }

func (t *GoogleTable) Rows(ctx context.Context) ([][]string, error) {
	resp, err := t.svc.Spreadsheets.Values.Get(t.spreadsheetID, t.quoted()).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	rows := make([][]string, len(resp.Values))
	for i, r := range resp.Values {
		cells := make([]string, len(r))
		for j, c := range r {
			cells[j] = fmt.Sprint(c)
		}
		rows[i] = cells
	}
	return rows, nil
}

func (t *GoogleTable) Append(ctx context.Context, row []string) error {
	_, err := t.svc.Spreadsheets.Values.Append(t.spreadsheetID, t.quoted(), toValueRange(row)).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	return err
}

func (t *GoogleTable) Update(ctx context.Context, pos int, row []string) error {
	if pos < 1 {
		return ErrInvalidPosition
	}
	_, err := t.svc.Spreadsheets.Values.Update(t.spreadsheetID, fmt.Sprintf("%s!A%d", t.quoted(), pos), toValueRange(row)).
		ValueInputOption("RAW").
		Context(ctx).Do()
	return err
}

func (t *GoogleTable) Delete(ctx context.Context, pos int) error {
	if pos < 1 {
		return ErrInvalidPosition
	}
	_, err := t.svc.Spreadsheets.BatchUpdate(t.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    t.sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(pos - 1),
					EndIndex:   int64(pos),
				},
			},
		}},
	}).Context(ctx).Do()
	return err
}

func (t *GoogleTable) Clear(ctx context.Context) error {
	_, err := t.svc.Spreadsheets.Values.Clear(t.spreadsheetID, t.quoted(), &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// Replace overwrites the sheet from A1 in one update and then clears the rows
// left below it. A failed write leaves the old rows in place; a failed clear
// leaves stale rows after the new ones, never an empty sheet.
func (t *GoogleTable) Replace(ctx context.Context, rows [][]string) error {
	old, err := t.Rows(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return t.Clear(ctx)
	}

	// Pad to the old width so cells right of a narrower row are blanked.
	width := 0
	for _, r := range old {
		width = max(width, len(r))
	}
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		values[i] = toCells(Pad(r, width))
	}
	_, err = t.svc.Spreadsheets.Values.Update(t.spreadsheetID, t.quoted()+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return err
	}
	if len(old) <= len(rows) {
		return nil
	}
	tail := fmt.Sprintf("%s!%d:%d", t.quoted(), len(rows)+1, len(old))
	_, err = t.svc.Spreadsheets.Values.Clear(t.spreadsheetID, tail, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear rows below %d: %w", len(rows), err)
	}
	return nil
}

// quoted returns the sheet title as an A1 range prefix.
func (t *GoogleTable) quoted() string {
	return "'" + strings.ReplaceAll(t.name, "'", "''") + "'"
}

func toValueRange(row []string) *sheets.ValueRange {
	return &sheets.ValueRange{Values: [][]interface{}{toCells(row)}}
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, c := range row {
		cells[i] = c
	}
	return cells
}
