// Package storage provides the persistence layer for the detective server.
// This package implements the repository pattern to keep the engine pure.
package storage

import (
	"context"
	"time"
)

// StoredEvent mirrors events.GameEvent for persistence. Payloads come back
// from the database as generic JSON objects.
type StoredEvent struct {
	ID        string                 `json:"id" db:"id"`
	SessionID string                 `json:"session_id" db:"session_id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	EventType string                 `json:"event_type" db:"event_type"`
	Payload   map[string]interface{} `json:"payload" db:"payload"`
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event StoredEvent) error

	// GetBySession retrieves all events of a session in order.
	GetBySession(ctx context.Context, sessionID string) ([]StoredEvent, error)

	// GetByType retrieves all events of a specific type.
	GetByType(ctx context.Context, sessionID string, eventType string) ([]StoredEvent, error)
}

// SessionRepository is the key-addressed store behind a Kids Mode session.
type SessionRepository interface {
	LoadFields(ctx context.Context, sessionID string) (map[string]string, error)

	// SaveFields writes every field in one transaction.
	SaveFields(ctx context.Context, sessionID string, fields map[string]string) error
}
