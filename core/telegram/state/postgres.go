package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const (
	selectSessionSQL = `SELECT state FROM dialogue_sessions WHERE conversation_id = $1`
	upsertSessionSQL = `INSERT INTO dialogue_sessions (conversation_id, state, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (conversation_id) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`
)

// PostgresStore keeps sessions in the dialogue_sessions table created by the
// core/database migrations.
type PostgresStore[T any] struct {
	db    *sqlx.DB
	codec Codec[T]
}

// NewPostgresStore creates a postgres-backed store.
func NewPostgresStore[T any](db *sqlx.DB, codec Codec[T]) *PostgresStore[T] {
	return &PostgresStore[T]{db: db, codec: codec}
}

// Get implements Store.
func (s *PostgresStore[T]) Get(ctx context.Context, id int64) (T, bool, error) {
	var (
		zero T
		raw  []byte
	)
	err := s.db.GetContext(ctx, &raw, selectSessionSQL, id)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("state: select session %d: %w", id, err)
	}
	v, err := s.codec.Decode(raw)
	if err != nil {
		return zero, false, fmt.Errorf("state: decode session %d: %w", id, err)
	}
	return v, true, nil
}

// Set implements Store.
func (s *PostgresStore[T]) Set(ctx context.Context, id int64, v T) error {
	raw, err := s.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("state: encode session %d: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx, upsertSessionSQL, id, string(raw)); err != nil {
		return fmt.Errorf("state: upsert session %d: %w", id, err)
	}
	return nil
}

// Close implements Store.
func (s *PostgresStore[T]) Close() error {
	return s.db.Close()
}
