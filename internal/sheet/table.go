// README: Tabular store contract: named tables of string rows addressed by 1-based position.
package sheet

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrTableNotFound   = errors.New("table not found")
	ErrInvalidPosition = errors.New("row position out of range")
)

// Table is one named sheet. Position 1 is the header row.
type Table interface {
	Name() string
	Rows(ctx context.Context) ([][]string, error)
	Append(ctx context.Context, row []string) error
	Update(ctx context.Context, pos int, row []string) error
	Delete(ctx context.Context, pos int) error
	Clear(ctx context.Context) error
	// Replace clears the table and writes rows starting at position 1.
	Replace(ctx context.Context, rows [][]string) error
}

// Workbook hands out tables by name, creating missing ones. The header is
// checked with EnsureHeader the first time a table is acquired.
type Workbook interface {
	Table(ctx context.Context, name string, header []string) (Table, error)
}

// EnsureHeader rewrites the header row when the table is empty or its first
// row differs from header. Existing rows are cleared in the mismatch case.
func EnsureHeader(ctx context.Context, t Table, header []string) error {
	rows, err := t.Rows(ctx)
	if err != nil {
		return err
	}
	if len(rows) > 0 && SameRow(rows[0], header) {
		return nil
	}
	if len(rows) > 0 {
		if err := t.Clear(ctx); err != nil {
			return err
		}
	}
	return t.Append(ctx, header)
}

// SameRow compares two rows ignoring trailing blank cells, which the Sheets
// API drops on read.
func SameRow(a, b []string) bool {
	a, b = trimTrailing(a), trimTrailing(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.TrimSpace(a[i]) != strings.TrimSpace(b[i]) {
			return false
		}
	}
	return true
}

// Pad returns row extended with blank cells up to n columns.
func Pad(row []string, n int) []string {
	if len(row) >= n {
		return row
	}
	out := make([]string, n)
	copy(out, row)
	return out
}

// ColumnIndex maps header names to their zero-based column.
func ColumnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

func trimTrailing(row []string) []string {
	n := len(row)
	for n > 0 && strings.TrimSpace(row[n-1]) == "" {
		n--
	}
	return row[:n]
}
