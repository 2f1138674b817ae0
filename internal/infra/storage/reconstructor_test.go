package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/events"
)

type fakeEventRepo struct {
	events []StoredEvent
	err    error
}

func (f *fakeEventRepo) Append(_ context.Context, e StoredEvent) error {
	f.events = append(f.events, e)
	return f.err
}

func (f *fakeEventRepo) GetBySession(_ context.Context, _ string) ([]StoredEvent, error) {
	return f.events, f.err
}

func (f *fakeEventRepo) GetByType(_ context.Context, _ string, t string) ([]StoredEvent, error) {
	var out []StoredEvent
	for _, e := range f.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out, f.err
}

func stored(t *testing.T, at time.Time, typ events.EventType, payload interface{}) StoredEvent {
	t.Helper()
	e, err := ToStoredEvent(events.GameEvent{ID: events.GenerateEventID(), Timestamp: at, Type: typ, Payload: payload})
	require.NoError(t, err)
	return e
}

func TestGenerateRecap(t *testing.T) {
	t0 := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	repo := &fakeEventRepo{events: []StoredEvent{
		stored(t, t0, events.EventTypeGuessJudged, events.GuessPayload{
			MysteryID: 1, Title: "The Giant Blue Planet", Guess: "CONFIRMED", Answer: "CONFIRMED", Correct: true, PointsAwarded: 100, Points: 100,
		}),
		stored(t, t0.Add(time.Minute), events.EventTypeMysteryCompleted, events.MysteryPayload{MysteryID: 1, Title: "The Giant Blue Planet"}),
		stored(t, t0.Add(2*time.Minute), events.EventTypeRewardRedeemed, events.RewardPayload{Kind: "clue", Cost: 50, Points: 50}),
		stored(t, t0.Add(3*time.Minute), events.EventTypeGuessJudged, events.GuessPayload{
			MysteryID: 3, Title: "Mystery Signal", Guess: "CONFIRMED", Answer: "FALSE POSITIVE", Correct: false,
		}),
		stored(t, t0.Add(4*time.Minute), events.EventTypeRewardDenied, events.RewardPayload{Kind: "theme", Cost: 200, Points: 50, Reason: "insufficient_points"}),
	}}

	recap, err := NewRecapper(repo).GenerateRecap(context.Background(), "kid-1", time.Time{})
	require.NoError(t, err)

	assert.Equal(t, Totals{
		Guesses: 2, CorrectGuesses: 1, Discoveries: 1, PointsEarned: 100, PointsSpent: 50, Completed: 1, Rewards: 1,
	}, recap.Totals)
	require.Len(t, recap.Events, 5)
	assert.Equal(t, "Solved The Giant Blue Planet: it was CONFIRMED! +100 points.", recap.Events[0].Summary)
	assert.Equal(t, ImpactPositive, recap.Events[0].Impact)
	assert.Equal(t, "Unlocked clue for 50 points.", recap.Events[2].Summary)
	assert.Equal(t, ImpactNegative, recap.Events[3].Impact)
	assert.Equal(t, ImpactNegative, recap.Events[4].Impact)
}

func TestGenerateRecapSinceKeepsFullTotals(t *testing.T) {
	t0 := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	repo := &fakeEventRepo{events: []StoredEvent{
		stored(t, t0, events.EventTypeMysterySetRotated, events.RotationPayload{NewSet: []int{1, 2, 3, 4}}),
		stored(t, t0.Add(time.Hour), events.EventTypeStepChanged, events.StepPayload{From: "mysteries", To: "learn"}),
	}}

	recap, err := NewRecapper(repo).GenerateRecap(context.Background(), "kid-1", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, recap.Totals.Rotations)
	require.Len(t, recap.Events, 1)
	assert.Equal(t, "Moved from mysteries to learn.", recap.Events[0].Summary)
	assert.Equal(t, ImpactNeutral, recap.Events[0].Impact)
}

func TestGenerateRecapPropagatesErrors(t *testing.T) {
	_, err := NewRecapper(&fakeEventRepo{err: errors.New("db gone")}).GenerateRecap(context.Background(), "kid-1", time.Time{})
	assert.ErrorContains(t, err, "db gone")
}
