// Package storage - reconstructor.go
// Progress recap: rebuilds an explorer's history from the event log.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/events"
)

// Recapper turns stored progression events into the recap screen.
type Recapper struct {
	eventRepo EventRepository
}

// NewRecapper creates a new recap builder.
func NewRecapper(eventRepo EventRepository) *Recapper {
	return &Recapper{eventRepo: eventRepo}
}

// Impact values.
const (
	ImpactPositive = "POSITIVE"
	ImpactNegative = "NEGATIVE"
	ImpactNeutral  = "NEUTRAL"
)

// RecapEvent is a simplified event for the recap screen.
type RecapEvent struct {
	Timestamp string `json:"timestamp"`
	EventType string `json:"event_type"`
	Summary   string `json:"summary"`
	Impact    string `json:"impact"`
}

// Totals are counters rebuilt purely from events.
type Totals struct {
	Guesses        int `json:"guesses"`
	CorrectGuesses int `json:"correct_guesses"`
	Discoveries    int `json:"discoveries"`
	PointsEarned   int `json:"points_earned"`
	PointsSpent    int `json:"points_spent"`
	Completed      int `json:"completed"`
	Rotations      int `json:"rotations"`
	Rewards        int `json:"rewards"`
	HintsUsed      int `json:"hints_used"`
}

// Recap is the full response of the recap screen.
type Recap struct {
	SessionID string       `json:"session_id"`
	Totals    Totals       `json:"totals"`
	Events    []RecapEvent `json:"events"`
}

// GenerateRecap summarizes every event of a session at or after since. A zero
// since means the whole history.
func (r *Recapper) GenerateRecap(ctx context.Context, sessionID string, since time.Time) (*Recap, error) {
	all, err := r.eventRepo.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session events: %w", err)
	}

	recap := &Recap{SessionID: sessionID, Events: []RecapEvent{}}
	for _, e := range all {
		recap.Totals.Add(e)
		if e.Timestamp.Before(since) {
			continue
		}
		recap.Events = append(recap.Events, Describe(e))
	}
	return recap, nil
}

// Describe turns one stored event into its recap line.
func Describe(e StoredEvent) RecapEvent {
	return RecapEvent{
		Timestamp: e.Timestamp.Format(time.RFC3339),
		EventType: e.EventType,
		Summary:   summarizeEvent(e),
		Impact:    determineImpact(e),
	}
}

func intField(p map[string]interface{}, key string) int {
	if v, ok := p[key].(float64); ok {
		return int(v)
	}
	return 0
}

func stringField(p map[string]interface{}, key string) string {
	s, _ := p[key].(string)
	return s
}

func boolField(p map[string]interface{}, key string) bool {
	b, _ := p[key].(bool)
	return b
}

// Add counts e into the totals.
func (t *Totals) Add(e StoredEvent) {
	switch events.EventType(e.EventType) {
	case events.EventTypeGuessJudged:
		t.Guesses++
		if boolField(e.Payload, "correct") {
			t.CorrectGuesses++
			if stringField(e.Payload, "guess") == "CONFIRMED" {
				t.Discoveries++
			}
		}
		t.PointsEarned += intField(e.Payload, "points_awarded")
	case events.EventTypeRewardRedeemed:
		t.Rewards++
		t.PointsSpent += intField(e.Payload, "cost")
	case events.EventTypeMysteryCompleted:
		t.Completed++
	case events.EventTypeMysterySetRotated:
		t.Rotations++
	case events.EventTypeHintUsed:
		t.HintsUsed++
	}
}

func summarizeEvent(e StoredEvent) string {
	p := e.Payload
	switch events.EventType(e.EventType) {
	case events.EventTypeStepChanged:
		return fmt.Sprintf("Moved from %s to %s.", stringField(p, "from"), stringField(p, "to"))
	case events.EventTypeMysterySelected:
		return fmt.Sprintf("Started investigating %s.", stringField(p, "title"))
	case events.EventTypeGuessJudged:
		if boolField(p, "correct") {
			return fmt.Sprintf("Solved %s: it was %s! +%d points.",
				stringField(p, "title"), stringField(p, "answer"), intField(p, "points_awarded"))
		}
		return fmt.Sprintf("Guessed %s for %s, but it was %s.",
			stringField(p, "guess"), stringField(p, "title"), stringField(p, "answer"))
	case events.EventTypeMysteryCompleted:
		return fmt.Sprintf("Closed the case on %s.", stringField(p, "title"))
	case events.EventTypeMysterySetRotated:
		return "Finished a whole set! New mysteries arrived."
	case events.EventTypeRewardRedeemed:
		return fmt.Sprintf("Unlocked %s for %d points.", stringField(p, "kind"), intField(p, "cost"))
	case events.EventTypeRewardDenied:
		return fmt.Sprintf("Tried to unlock %s but needed %d points.", stringField(p, "kind"), intField(p, "cost"))
	case events.EventTypeHintUsed:
		return stringField(p, "detail")
	default:
		return "Something happened on the mission."
	}
}

func determineImpact(e StoredEvent) string {
	switch events.EventType(e.EventType) {
	case events.EventTypeGuessJudged:
		if boolField(e.Payload, "correct") {
			return ImpactPositive
		}
		return ImpactNegative
	case events.EventTypeRewardRedeemed, events.EventTypeMysterySetRotated:
		return ImpactPositive
	case events.EventTypeRewardDenied:
		return ImpactNegative
	default:
		return ImpactNeutral
	}
}
