// README: Process-wide write lock around one table.
package sheet

import (
	"context"
	"sync"
)

// Guarded serializes every write to the wrapped table. Reads are not locked.
// A read-modify-write cycle such as a full rewrite must run inside Exclusive
// so no append, update or delete lands between its read and its write.
type Guarded struct {
	mu sync.Mutex
	t  Table
}

func Guard(t Table) *Guarded {
	if g, ok := t.(*Guarded); ok {
		return g
	}
	return &Guarded{t: t}
}

func (g *Guarded) Name() string { return g.t.Name() }

func (g *Guarded) Rows(ctx context.Context) ([][]string, error) {
	return g.t.Rows(ctx)
}

func (g *Guarded) Append(ctx context.Context, row []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.t.Append(ctx, row)
}

func (g *Guarded) Update(ctx context.Context, pos int, row []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.t.Update(ctx, pos, row)
}

func (g *Guarded) Delete(ctx context.Context, pos int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.t.Delete(ctx, pos)
}

func (g *Guarded) Clear(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.t.Clear(ctx)
}

func (g *Guarded) Replace(ctx context.Context, rows [][]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.t.Replace(ctx, rows)
}

// Exclusive runs fn holding the write lock. fn gets the unwrapped table and
// must not call back into g.
func (g *Guarded) Exclusive(ctx context.Context, fn func(ctx context.Context, t Table) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(ctx, g.t)
}

// Exclusive runs fn under t's write lock when t is Guarded, and directly otherwise.
func Exclusive(ctx context.Context, t Table, fn func(ctx context.Context, t Table) error) error {
	if g, ok := t.(*Guarded); ok {
		return g.Exclusive(ctx, fn)
	}
	return fn(ctx, t)
}
