// README: Append-only order event journal backed by PostgreSQL.
package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS order_events (
    id         BIGSERIAL PRIMARY KEY,
    order_id   TEXT        NOT NULL,
    owner_id   TEXT        NOT NULL,
    kind       TEXT        NOT NULL,
    payload    JSONB       NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS order_events_order_id_idx ON order_events (order_id, id);`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

func (s *Store) Record(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	_, err = s.db.Exec(ctx, `
        INSERT INTO order_events (order_id, owner_id, kind, payload, created_at)
        VALUES ($1, $2, $3, $4, $5)`,
		e.OrderID, e.OwnerID, string(e.Kind), payload, e.CreatedAt,
	)
	return err
}

// ListByOrder returns the events of one order, oldest first.
func (s *Store) ListByOrder(ctx context.Context, orderID string) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, order_id, owner_id, kind, payload, created_at
        FROM order_events
        WHERE order_id = $1
        ORDER BY id`, orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e       Event
			kind    string
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.OrderID, &e.OwnerID, &kind, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = Kind(kind)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("decode payload: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
