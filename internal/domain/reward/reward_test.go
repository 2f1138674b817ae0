package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostTable(t *testing.T) {
	want := map[Kind]int{
		KindClue:            50,
		KindTheme:           200,
		KindAstronaut:       150,
		KindUFO:             100,
		KindRocketCompanion: 200,
		KindAlien:           125,
		KindStar:            100,
	}
	require.Len(t, Registry, len(want))
	for k, cost := range want {
		def, err := Lookup(k)
		require.NoError(t, err)
		assert.Equal(t, cost, def.Cost, "cost of %s", k)
		assert.NotEmpty(t, def.Confirmation)
	}
	assert.Len(t, Kinds, len(want))
}

func TestParse(t *testing.T) {
	k, err := Parse("RocketCompanion")
	require.NoError(t, err)
	assert.Equal(t, KindRocketCompanion, k)

	k, err = Parse(" UFO ")
	require.NoError(t, err)
	assert.Equal(t, KindUFO, k)

	_, err = Parse("spaceship")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestUnlocksAreOneWay(t *testing.T) {
	var u Unlocks
	for _, k := range Kinds {
		assert.False(t, u.Has(k))
		require.NoError(t, u.Unlock(k))
		assert.True(t, u.Has(k))
		require.NoError(t, u.Unlock(k))
		assert.True(t, u.Has(k))
	}
	assert.Equal(t, Unlocks{true, true, true, true, true, true, true}, u)

	assert.ErrorIs(t, u.Unlock("cape"), ErrUnknownKind)
	assert.False(t, u.Has("cape"))
}
