package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists audit events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the audit table when absent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			id        TEXT PRIMARY KEY,
			ts        TIMESTAMPTZ NOT NULL,
			owner_id  TEXT NOT NULL,
			action    TEXT NOT NULL,
			outcome   TEXT NOT NULL,
			detail    TEXT NOT NULL DEFAULT '',
			count     INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS audit_events_owner_ts_idx ON audit_events (owner_id, ts DESC)
	`)
	if err != nil {
		return fmt.Errorf("ensure audit index: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, ts, owner_id, action, outcome, detail, count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, event.ID, event.Timestamp, event.OwnerID, event.Action, event.Outcome, event.Detail, event.Count)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, owner_id, action, outcome, detail, count
		FROM audit_events
		WHERE owner_id = $1
		ORDER BY ts DESC
		LIMIT 500
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.OwnerID, &e.Action, &e.Outcome, &e.Detail, &e.Count); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}
