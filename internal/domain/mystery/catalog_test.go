package mystery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)
	require.Equal(t, 100, c.Len())

	first, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "The Super Hot Giant", first.Title)
	assert.Equal(t, AnswerConfirmed, first.Answer)
	assert.Equal(t, "Very Big (like Jupiter)", first.Clue(ClueSize))

	tricky, ok := c.Get(3)
	require.True(t, ok)
	assert.Equal(t, AnswerFalsePositive, tricky.Answer)

	seen := make(map[int]bool)
	for _, m := range c.All() {
		assert.False(t, seen[m.ID], "duplicate id %d", m.ID)
		seen[m.ID] = true
		assert.True(t, m.Answer.Valid(), "mystery %d", m.ID)
		for _, k := range ClueOrder {
			assert.NotEmpty(t, m.Clue(k), "mystery %d clue %s", m.ID, k)
		}
	}
}

func TestGeneratedMysteries(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)

	// 5 % 7 == 5 -> Tidally Locked World, 5 % 3 == 2 -> Hard / "Just perfect distance"
	m, ok := c.Get(5)
	require.True(t, ok)
	assert.Equal(t, "Tidally Locked World #5", m.Title)
	assert.Equal(t, DifficultyHard, m.Difficulty)
	assert.Equal(t, "Just perfect distance", m.Clue(ClueDistance))
	assert.Equal(t, AnswerConfirmed, m.Answer)
	assert.Equal(t, "Generated Data ID 5", m.RealExample)

	// 10 % 7 == 3 -> Starspot Signal, a false positive
	m, ok = c.Get(10)
	require.True(t, ok)
	assert.Equal(t, AnswerFalsePositive, m.Answer)
	assert.Contains(t, m.FunFact, "caused by a star")
	assert.Contains(t, m.Description, "starspot signal")

	m, ok = c.Get(100)
	require.True(t, ok)
	assert.Equal(t, 100, m.ID)
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog([]Mystery{
		{ID: 1, Answer: AnswerConfirmed},
		{ID: 1, Answer: AnswerCandidate},
	})
	assert.ErrorIs(t, err, ErrDuplicateID)

	_, err = NewCatalog([]Mystery{{ID: 2, Answer: "MAYBE"}})
	assert.ErrorIs(t, err, ErrInvalidMystery)
}

func TestResolve(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)

	ms, err := c.Resolve([]int{4, 2})
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, 4, ms[0].ID)
	assert.Equal(t, 2, ms[1].ID)

	_, err = c.Resolve([]int{1, 999})
	assert.ErrorIs(t, err, ErrMysteryNotFound)
}

func TestParseAnswer(t *testing.T) {
	cases := map[string]Answer{
		"CONFIRMED":      AnswerConfirmed,
		"candidate":      AnswerCandidate,
		"FALSE POSITIVE": AnswerFalsePositive,
		"false_positive": AnswerFalsePositive,
	}
	for in, want := range cases {
		got, err := ParseAnswer(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseAnswer("PLANET")
	assert.ErrorIs(t, err, ErrUnknownAnswer)
}
