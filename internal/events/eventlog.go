// Package events provides the append-only log of Kids Mode progression events.
// Storage, the recap screen and the websocket hub all read from it.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a progression event.
type EventType string

const (
	EventTypeStepChanged       EventType = "STEP_CHANGED"
	EventTypeMysterySelected   EventType = "MYSTERY_SELECTED"
	EventTypeGuessJudged       EventType = "GUESS_JUDGED"
	EventTypeMysteryCompleted  EventType = "MYSTERY_COMPLETED"
	EventTypeMysterySetRotated EventType = "MYSTERY_SET_ROTATED"
	EventTypeRewardRedeemed    EventType = "REWARD_REDEEMED"
	EventTypeRewardDenied      EventType = "REWARD_DENIED"
	EventTypeHintUsed          EventType = "HINT_USED"
)

// GuessPayload is attached to GUESS_JUDGED events.
type GuessPayload struct {
	MysteryID     int    `json:"mystery_id"`
	Title         string `json:"title"`
	Guess         string `json:"guess"`
	Answer        string `json:"answer"`
	Correct       bool   `json:"correct"`
	PointsAwarded int    `json:"points_awarded"`
	Points        int    `json:"points"`
}

// RewardPayload is attached to REWARD_REDEEMED and REWARD_DENIED events.
type RewardPayload struct {
	Kind    string `json:"kind"`
	Cost    int    `json:"cost"`
	Points  int    `json:"points"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

// StepPayload is attached to STEP_CHANGED events.
type StepPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// MysteryPayload is attached to MYSTERY_SELECTED, MYSTERY_COMPLETED and HINT_USED events.
type MysteryPayload struct {
	MysteryID int    `json:"mystery_id"`
	Title     string `json:"title"`
	Detail    string `json:"detail,omitempty"`
}

// RotationPayload is attached to MYSTERY_SET_ROTATED events.
type RotationPayload struct {
	NewSet  []int  `json:"new_set"`
	Message string `json:"message"`
}

// GameEvent represents an immutable record of a progression change.
type GameEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id"`
	Payload   interface{} `json:"payload"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// ErrorHandler is told about persister failures; Append itself never fails.
type ErrorHandler func(event GameEvent, err error)

// EventLog is the in-memory append-only log of progression events.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	persister EventPersister
	onError   ErrorHandler
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister, onError ErrorHandler) *EventLog {
	return &EventLog{
		events:    make([]GameEvent, 0),
		persister: persister,
		onError:   onError,
	}
}

// Append stamps and adds an event to the log, writing it through to the persister.
func (el *EventLog) Append(event GameEvent) GameEvent {
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	el.mu.Lock()
	el.events = append(el.events, event)
	el.mu.Unlock()

	if el.persister != nil {
		if err := el.persister.Append(event); err != nil && el.onError != nil {
			el.onError(event, err)
		}
	}
	return event
}

// Len returns the number of events appended so far.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

// Since returns a copy of the events appended after the first n.
func (el *EventLog) Since(n int) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	if n >= len(el.events) {
		return nil
	}
	if n < 0 {
		n = 0
	}
	out := make([]GameEvent, len(el.events)-n)
	copy(out, el.events[n:])
	return out
}

// GetByType returns all events of one type.
func (el *EventLog) GetByType(t EventType) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns a copy of the full history.
func (el *EventLog) Replay() []GameEvent {
	return el.Since(0)
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
