package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPersister struct {
	got []GameEvent
	err error
}

func (p *recordingPersister) Append(e GameEvent) error {
	p.got = append(p.got, e)
	return p.err
}

func TestAppendStampsAndPersists(t *testing.T) {
	p := &recordingPersister{}
	el := NewEventLog(p, nil)

	e := el.Append(GameEvent{Type: EventTypeGuessJudged, SessionID: "s1"})
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())

	require.Len(t, p.got, 1)
	assert.Equal(t, e.ID, p.got[0].ID)
	assert.Equal(t, 1, el.Len())
}

func TestPersisterFailureIsReported(t *testing.T) {
	p := &recordingPersister{err: errors.New("disk full")}
	var reported error
	el := NewEventLog(p, func(_ GameEvent, err error) { reported = err })

	el.Append(GameEvent{Type: EventTypeHintUsed})
	assert.EqualError(t, reported, "disk full")
	assert.Equal(t, 1, el.Len(), "in-memory log keeps the event")
}

func TestSinceAndGetByType(t *testing.T) {
	el := NewEventLog(nil, nil)
	el.Append(GameEvent{Type: EventTypeStepChanged})
	el.Append(GameEvent{Type: EventTypeGuessJudged})
	el.Append(GameEvent{Type: EventTypeStepChanged})

	assert.Len(t, el.Since(1), 2)
	assert.Empty(t, el.Since(3))
	assert.Len(t, el.Since(-5), 3)
	assert.Len(t, el.GetByType(EventTypeStepChanged), 2)
	assert.Len(t, el.Replay(), 3)

	// Since returns a copy
	got := el.Since(0)
	got[0].Type = "MUTATED"
	assert.Equal(t, EventTypeStepChanged, el.Replay()[0].Type)
}

func TestGenerateEventIDIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateEventID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
