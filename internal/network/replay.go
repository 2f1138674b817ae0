package network

import (
	"time"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/events"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/infra/storage"
)

// ReplayFilter narrows a live replay.
type ReplayFilter struct {
	Type  string `json:"type" form:"type"`
	Limit int    `json:"limit" form:"limit"`
}

// ReplayEvent is one live event with its recap line.
type ReplayEvent struct {
	ID string `json:"id"`
	storage.RecapEvent
	Details map[string]interface{} `json:"details,omitempty"`
}

// ReplayResponse is the live history of the in-memory event log.
type ReplayResponse struct {
	SessionID   string        `json:"session_id"`
	TotalEvents int           `json:"total_events"`
	FilteredBy  string        `json:"filtered_by,omitempty"`
	GeneratedAt string        `json:"generated_at"`
	Events      []ReplayEvent `json:"events"`
}

// BuildReplay lists the events of this process, oldest first. A positive
// Limit keeps only the most recent matches.
func BuildReplay(el *events.EventLog, sessionID string, f ReplayFilter) ReplayResponse {
	out := ReplayResponse{
		SessionID:   sessionID,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Events:      []ReplayEvent{},
	}
	if f.Type != "" {
		out.FilteredBy = "type " + f.Type
	}

	for _, e := range el.Replay() {
		if e.SessionID != sessionID {
			continue
		}
		if f.Type != "" && string(e.Type) != f.Type {
			continue
		}
		out.Events = append(out.Events, toReplayEvent(e))
	}
	if f.Limit > 0 && len(out.Events) > f.Limit {
		out.Events = out.Events[len(out.Events)-f.Limit:]
	}
	out.TotalEvents = len(out.Events)
	return out
}

// FindEvent returns one event with its full payload.
func FindEvent(el *events.EventLog, id string) (ReplayEvent, bool) {
	for _, e := range el.Replay() {
		if e.ID == id {
			return toReplayEvent(e), true
		}
	}
	return ReplayEvent{}, false
}

// ReplayStats counts events per type.
func ReplayStats(el *events.EventLog) map[string]int {
	stats := map[string]int{"total_events": 0}
	for _, e := range el.Replay() {
		stats["total_events"]++
		stats[string(e.Type)]++
	}
	return stats
}

func toReplayEvent(e events.GameEvent) ReplayEvent {
	stored, err := storage.ToStoredEvent(e)
	if err != nil {
		stored = storage.StoredEvent{
			ID:        e.ID,
			SessionID: e.SessionID,
			Timestamp: e.Timestamp,
			EventType: string(e.Type),
		}
	}
	return ReplayEvent{
		ID:         e.ID,
		RecapEvent: storage.Describe(stored),
		Details:    stored.Payload,
	}
}
