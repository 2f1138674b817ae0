package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/events"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/platform/metrics"
)

// EventPersister writes the in-memory event log through to an EventRepository.
type EventPersister struct {
	repo    EventRepository
	timeout time.Duration
}

// NewEventPersister wraps repo as an events.EventPersister.
func NewEventPersister(repo EventRepository) *EventPersister {
	return &EventPersister{repo: repo, timeout: 5 * time.Second}
}

// Append implements events.EventPersister.
func (p *EventPersister) Append(e events.GameEvent) error {
	stored, err := ToStoredEvent(e)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	err = p.repo.Append(ctx, stored)
	metrics.Get().RecordEventWrite(err)
	return err
}

// ToStoredEvent flattens a typed payload into the generic JSON form the
// repository stores.
func ToStoredEvent(e events.GameEvent) (StoredEvent, error) {
	payload := map[string]interface{}{}
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return StoredEvent{}, fmt.Errorf("failed to marshal payload: %w", err)
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return StoredEvent{}, fmt.Errorf("payload of %s is not an object: %w", e.Type, err)
		}
	}
	return StoredEvent{
		ID:        e.ID,
		SessionID: e.SessionID,
		Timestamp: e.Timestamp,
		EventType: string(e.Type),
		Payload:   payload,
	}, nil
}
