package journal

import (
	"context"

	"paperdash/internal/types"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS action_journal (
	id       TEXT PRIMARY KEY,
	at       TIMESTAMPTZ NOT NULL,
	action   TEXT NOT NULL,
	symbol   TEXT NOT NULL DEFAULT '',
	order_id TEXT NOT NULL DEFAULT '',
	side     TEXT NOT NULL DEFAULT '',
	qty      TEXT NOT NULL DEFAULT '',
	message  TEXT NOT NULL,
	failed   BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS action_journal_at_idx ON action_journal (at DESC);
`

type PGStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PGStore)(nil)

// NewPGStore creates the journal table when missing.
func NewPGStore(ctx context.Context, pool *pgxpool.Pool) (*PGStore, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, err
	}
	return &PGStore{pool: pool}, nil
}

func (s *PGStore) Record(ctx context.Context, e Entry) error {
	e = stamp(e)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO action_journal (id, at, action, symbol, order_id, side, qty, message, failed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.At, string(e.Action), e.Symbol, e.OrderID, e.Side, e.Qty, e.Message, e.Failed)
	return err
}

func (s *PGStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultCapacity
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, at, action, symbol, order_id, side, qty, message, failed
		FROM action_journal ORDER BY at DESC, id DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var action string
		if err := rows.Scan(&e.ID, &e.At, &action, &e.Symbol, &e.OrderID, &e.Side, &e.Qty, &e.Message, &e.Failed); err != nil {
			return nil, err
		}
		e.Action = types.Action(action)
		out = append(out, e)
	}
	return out, rows.Err()
}
