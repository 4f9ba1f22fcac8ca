// README: Order event kinds recorded after each committed workflow outcome.
package journal

import (
	"context"
	"time"
)

type Kind string

const (
	KindPlaced    Kind = "placed"
	KindCancelled Kind = "cancelled"
	KindModified  Kind = "modified"
)

type Event struct {
	ID        int64
	OrderID   string
	OwnerID   string
	Kind      Kind
	Payload   map[string]string
	CreatedAt time.Time
}

// Nop discards events; used when no database is configured.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }
