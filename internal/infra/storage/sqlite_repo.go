package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event StoredEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO events (id, session_id, timestamp, event_type, payload)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.SessionID, event.Timestamp.UTC(), event.EventType, string(payloadBytes),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]StoredEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []StoredEvent
	for rows.Next() {
		var e StoredEvent
		var payloadStr string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Timestamp, &e.EventType, &payloadStr); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, fmt.Errorf("event %s: %w", e.ID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

const selectEvents = `SELECT id, session_id, timestamp, event_type, payload FROM events`

func (r *SQLiteEventRepository) GetBySession(ctx context.Context, sessionID string) ([]StoredEvent, error) {
	return r.getMany(ctx, selectEvents+` WHERE session_id = ? ORDER BY timestamp ASC, rowid ASC`, sessionID)
}

func (r *SQLiteEventRepository) GetByType(ctx context.Context, sessionID string, eventType string) ([]StoredEvent, error) {
	return r.getMany(ctx, selectEvents+` WHERE session_id = ? AND event_type = ? ORDER BY timestamp ASC, rowid ASC`, sessionID, eventType)
}

// ---------------------------------------------------------
// SQLiteSessionRepository
// ---------------------------------------------------------

// SQLiteSessionRepository keeps one row per persisted session field.
type SQLiteSessionRepository struct {
	db *sql.DB
}

func NewSQLiteSessionRepository(db *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

// LoadFields returns the stored fields of a session; an unknown session
// yields an empty map.
func (r *SQLiteSessionRepository) LoadFields(ctx context.Context, sessionID string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM session_state WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	defer rows.Close()

	fields := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		fields[k] = v
	}
	return fields, rows.Err()
}

// SaveFields upserts every field in a single transaction.
func (r *SQLiteSessionRepository) SaveFields(ctx context.Context, sessionID string, fields map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO session_state (session_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, key) DO UPDATE SET
			value=excluded.value,
			updated_at=excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for k, v := range fields {
		if _, err := stmt.ExecContext(ctx, sessionID, k, v, now); err != nil {
			return fmt.Errorf("failed to save %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// DeleteSession removes all progress of a session. Its events are kept.
func (r *SQLiteSessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session_state WHERE session_id = ?`, sessionID)
	return err
}
