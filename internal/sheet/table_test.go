// README: Tests for header handling and the in-memory workbook.
package sheet

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEnsureHeaderWritesEmptyTable(t *testing.T) {
	ctx := context.Background()
	wb := NewMemoryWorkbook()
	tbl, err := wb.Table(ctx, "Orders", []string{"a", "b"})
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	rows, _ := tbl.Rows(ctx)
	if len(rows) != 1 || !SameRow(rows[0], []string{"a", "b"}) {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestEnsureHeaderIdempotent(t *testing.T) {
	ctx := context.Background()
	tbl := &MemoryTable{name: "x", failures: map[Op]error{}}
	_ = tbl.Append(ctx, []string{"a", "b"})
	_ = tbl.Append(ctx, []string{"1", "2"})

	if err := EnsureHeader(ctx, tbl, []string{"a", "b"}); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	rows, _ := tbl.Rows(ctx)
	if len(rows) != 2 {
		t.Fatalf("expected data row kept, got %v", rows)
	}
}

func TestEnsureHeaderMismatchRewrites(t *testing.T) {
	ctx := context.Background()
	tbl := &MemoryTable{name: "x", failures: map[Op]error{}}
	_ = tbl.Append(ctx, []string{"old"})
	_ = tbl.Append(ctx, []string{"1"})

	if err := EnsureHeader(ctx, tbl, []string{"a", "b"}); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	rows, _ := tbl.Rows(ctx)
	if len(rows) != 1 || !SameRow(rows[0], []string{"a", "b"}) {
		t.Fatalf("expected fresh header, got %v", rows)
	}
}

func TestSameRowIgnoresTrailingBlanks(t *testing.T) {
	if !SameRow([]string{"a", "b", ""}, []string{"a", "b"}) {
		t.Fatal("trailing blank should be ignored")
	}
	if SameRow([]string{"a", "", "c"}, []string{"a", "c"}) {
		t.Fatal("inner blank must count")
	}
}

func TestMemoryTablePositions(t *testing.T) {
	ctx := context.Background()
	wb := NewMemoryWorkbook()
	tbl, _ := wb.Table(ctx, "t", []string{"h"})
	_ = tbl.Append(ctx, []string{"r1"})
	_ = tbl.Append(ctx, []string{"r2"})

	if err := tbl.Update(ctx, 3, []string{"r2x"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := tbl.Delete(ctx, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rows, _ := tbl.Rows(ctx)
	if len(rows) != 2 || rows[1][0] != "r2x" {
		t.Fatalf("unexpected rows: %v", rows)
	}
	if err := tbl.Delete(ctx, 9); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition, got %v", err)
	}
}

func TestMemoryTableFailNext(t *testing.T) {
	ctx := context.Background()
	wb := NewMemoryWorkbook()
	tbl, _ := wb.MemoryTable(ctx, "t", []string{"h"})
	boom := errors.New("boom")
	tbl.FailNext(OpAppend, boom)

	if err := tbl.Append(ctx, []string{"x"}); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if err := tbl.Append(ctx, []string{"x"}); err != nil {
		t.Fatalf("failure should be one-shot, got %v", err)
	}
}

func TestColumnIndexAndPad(t *testing.T) {
	idx := ColumnIndex([]string{"a", " b ", "a"})
	if idx["a"] != 0 || idx["b"] != 1 {
		t.Fatalf("unexpected index: %v", idx)
	}
	if got := Pad([]string{"x"}, 3); len(got) != 3 || got[0] != "x" {
		t.Fatalf("unexpected pad: %v", got)
	}
}

func TestReplaceFailureNeverEmptiesTable(t *testing.T) {
	ctx := context.Background()
	seed := func() *MemoryTable {
		tbl := &MemoryTable{name: "x", failures: map[Op]error{}}
		for _, r := range [][]string{{"h"}, {"1"}, {"2"}, {"3"}} {
			_ = tbl.Append(ctx, r)
		}
		return tbl
	}
	newRows := [][]string{{"h"}, {"9"}}

	cases := []struct {
		name string
		op   Op
		want [][]string
	}{
		{"write fails", OpReplace, [][]string{{"h"}, {"1"}, {"2"}, {"3"}}},
		{"truncate fails", OpTruncate, [][]string{{"h"}, {"9"}, {"2"}, {"3"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tbl := seed()
			tbl.FailNext(tc.op, errors.New("quota"))
			if err := tbl.Replace(ctx, newRows); err == nil {
				t.Fatal("expected error")
			}
			rows, _ := tbl.Rows(ctx)
			if len(rows) != len(tc.want) {
				t.Fatalf("got %v, want %v", rows, tc.want)
			}
			for i := range rows {
				if !SameRow(rows[i], tc.want[i]) {
					t.Fatalf("got %v, want %v", rows, tc.want)
				}
			}
		})
	}

	tbl := seed()
	if err := tbl.Replace(ctx, newRows); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if rows, _ := tbl.Rows(ctx); len(rows) != 2 || rows[1][0] != "9" {
		t.Fatalf("unexpected rows after replace: %v", rows)
	}
}

func TestGuardedExclusiveBlocksWriters(t *testing.T) {
	ctx := context.Background()
	tbl := &MemoryTable{name: "x", failures: map[Op]error{}}
	_ = tbl.Append(ctx, []string{"h"})
	g := Guard(tbl)
	if Guard(g) != g {
		t.Fatal("guarding twice must return the same lock")
	}

	appended := make(chan error, 1)
	early := false
	err := Exclusive(ctx, g, func(ctx context.Context, inner Table) error {
		rows, _ := inner.Rows(ctx)
		go func() { appended <- g.Append(ctx, []string{"late"}) }()
		select {
		case <-appended:
			early = true
			t.Error("append ran while the table was held")
		case <-time.After(50 * time.Millisecond):
		}
		return inner.Replace(ctx, append(rows, []string{"merged"}))
	})
	if err != nil {
		t.Fatalf("exclusive: %v", err)
	}
	if early {
		t.FailNow()
	}
	if err := <-appended; err != nil {
		t.Fatalf("append: %v", err)
	}
	rows, _ := g.Rows(ctx)
	if len(rows) != 3 || rows[1][0] != "merged" || rows[2][0] != "late" {
		t.Fatalf("append lost or reordered: %v", rows)
	}
}
