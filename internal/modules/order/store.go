// README: Order repository over the live and archive sheets (scan, append, archive, update in place).
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yen1506/linebot-coffee/internal/sheet"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrInvalidPosition  = errors.New("invalid row position")
	ErrArchivedNotFreed = errors.New("order archived but still live")
)

// Located is an order together with the 1-based live row it was read from.
type Located struct {
	Order    Order
	Position int
	Row      []string
}

type Store struct {
	live    sheet.Table
	archive sheet.Table
}

// NewStore guards live so every writer in the process, including the report
// jobs reached through Live, is serialized.
func NewStore(live, archive sheet.Table) *Store {
	return &Store{live: sheet.Guard(live), archive: archive}
}

// Live returns the guarded live table. Jobs that rewrite it must use
// sheet.Exclusive on this value.
func (s *Store) Live() sheet.Table {
	return s.live
}

// OpenStore acquires both tables from wb, writing their headers if needed.
func OpenStore(ctx context.Context, wb sheet.Workbook, liveName, archiveName string) (*Store, error) {
	live, err := wb.Table(ctx, liveName, Columns)
	if err != nil {
		return nil, err
	}
	archive, err := wb.Table(ctx, archiveName, ArchiveColumns)
	if err != nil {
		return nil, err
	}
	return NewStore(live, archive), nil
}

// Append adds o at the end of the live table. Id uniqueness is the caller's job.
func (s *Store) Append(ctx context.Context, o Order) error {
	if err := s.live.Append(ctx, o.Row()); err != nil {
		return fmt.Errorf("append order %s: %w", o.ID, err)
	}
	return nil
}

// FindByIDAndOwner returns the first live row, scanning top to bottom, whose id
// and owner both match.
func (s *Store) FindByIDAndOwner(ctx context.Context, id, owner string) (Located, error) {
	id = strings.TrimSpace(id)
	if id == "" || owner == "" {
		return Located{}, ErrNotFound
	}
	rows, err := s.live.Rows(ctx)
	if err != nil {
		return Located{}, fmt.Errorf("read orders: %w", err)
	}
	for i := 1; i < len(rows); i++ {
		row := sheet.Pad(rows[i], len(Columns))
		if strings.EqualFold(strings.TrimSpace(row[ColID]), id) && row[ColOwner] == owner {
			return Located{Order: FromRow(row), Position: i + 1, Row: rows[i]}, nil
		}
	}
	return Located{}, ErrNotFound
}

// List returns every live order with its position.
func (s *Store) List(ctx context.Context) ([]Located, error) {
	rows, err := s.live.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read orders: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	out := make([]Located, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		out = append(out, Located{Order: FromRow(rows[i]), Position: i + 1, Row: rows[i]})
	}
	return out, nil
}

// ArchiveAndDelete copies row plus deletedAt to the archive table, then removes
// the live row at pos. The archive append always happens first; if the delete
// then fails the order is left in both tables and ErrArchivedNotFreed is returned.
func (s *Store) ArchiveAndDelete(ctx context.Context, pos int, row []string, deletedAt string) error {
	if pos < 2 {
		return ErrInvalidPosition
	}
	archived := append(append([]string(nil), sheet.Pad(row, len(Columns))...), deletedAt)
	if err := s.archive.Append(ctx, archived); err != nil {
		return fmt.Errorf("archive row %d: %w", pos, err)
	}
	if err := s.live.Delete(ctx, pos); err != nil {
		return fmt.Errorf("%w: delete row %d: %v", ErrArchivedNotFreed, pos, err)
	}
	return nil
}

// UpdateRow overwrites the live row at pos with o. No version check is made.
func (s *Store) UpdateRow(ctx context.Context, pos int, o Order) error {
	if pos < 2 {
		return ErrInvalidPosition
	}
	if err := s.live.Update(ctx, pos, o.Row()); err != nil {
		return fmt.Errorf("update order %s: %w", o.ID, err)
	}
	return nil
}
