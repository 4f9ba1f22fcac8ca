// README: In-memory workbook used by tests and local runs without Google credentials.
package sheet

import (
	"context"
	"sync"
)

type Op string

const (
	OpRows    Op = "rows"
	OpAppend  Op = "append"
	OpUpdate  Op = "update"
	OpDelete  Op = "delete"
	OpClear   Op = "clear"
	OpReplace Op = "replace"
	// OpTruncate fails Replace after the new rows are written but before
	// leftover rows below them are removed.
	OpTruncate Op = "truncate"
)

type MemoryWorkbook struct {
	mu     sync.Mutex
	tables map[string]*MemoryTable
}

func NewMemoryWorkbook() *MemoryWorkbook {
	return &MemoryWorkbook{tables: make(map[string]*MemoryTable)}
}

func (w *MemoryWorkbook) Table(ctx context.Context, name string, header []string) (Table, error) {
	t, err := w.table(ctx, name, header)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// MemoryTable is Table with test hooks exposed.
func (w *MemoryWorkbook) MemoryTable(ctx context.Context, name string, header []string) (*MemoryTable, error) {
	return w.table(ctx, name, header)
}

func (w *MemoryWorkbook) table(ctx context.Context, name string, header []string) (*MemoryTable, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.tables[name]; ok {
		return t, nil
	}
	t := &MemoryTable{name: name, failures: make(map[Op]error)}
	if err := EnsureHeader(ctx, t, header); err != nil {
		return nil, err
	}
	w.tables[name] = t
	return t, nil
}

type MemoryTable struct {
	name     string
	mu       sync.Mutex
	rows     [][]string
	failures map[Op]error
}

// FailNext makes the next call of op return err.
func (t *MemoryTable) FailNext(op Op, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[op] = err
}

func (t *MemoryTable) Name() string { return t.name }

func (t *MemoryTable) Rows(_ context.Context) ([][]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.takeFailure(OpRows); err != nil {
		return nil, err
	}
	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (t *MemoryTable) Append(_ context.Context, row []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.takeFailure(OpAppend); err != nil {
		return err
	}
	t.rows = append(t.rows, append([]string(nil), row...))
	return nil
}

func (t *MemoryTable) Update(_ context.Context, pos int, row []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.takeFailure(OpUpdate); err != nil {
		return err
	}
	if pos < 1 || pos > len(t.rows) {
		return ErrInvalidPosition
	}
	t.rows[pos-1] = append([]string(nil), row...)
	return nil
}

func (t *MemoryTable) Delete(_ context.Context, pos int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.takeFailure(OpDelete); err != nil {
		return err
	}
	if pos < 1 || pos > len(t.rows) {
		return ErrInvalidPosition
	}
	t.rows = append(t.rows[:pos-1], t.rows[pos:]...)
	return nil
}

func (t *MemoryTable) Clear(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.takeFailure(OpClear); err != nil {
		return err
	}
	t.rows = nil
	return nil
}

func (t *MemoryTable) Replace(_ context.Context, rows [][]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.takeFailure(OpReplace); err != nil {
		return err
	}
	for i, r := range rows {
		r = append([]string(nil), r...)
		if i < len(t.rows) {
			t.rows[i] = r
		} else {
			t.rows = append(t.rows, r)
		}
	}
	if err := t.takeFailure(OpTruncate); err != nil {
		return err
	}
	t.rows = t.rows[:len(rows)]
	return nil
}

func (t *MemoryTable) takeFailure(op Op) error {
	err := t.failures[op]
	delete(t.failures, op)
	return err
}
