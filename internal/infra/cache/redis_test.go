package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	hashes  map[string]map[string]string
	hsetErr error
	calls   int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{hashes: map[string]map[string]string{}}
}

func (f *fakeRedis) HGetAll(_ context.Context, key string) (map[string]string, error) {
	out := map[string]string{}
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeRedis) HSet(_ context.Context, key string, values ...interface{}) error {
	f.calls++
	if f.hsetErr != nil {
		return f.hsetErr
	}
	h, ok := f.hashes[key]
	if !ok {
		h = map[string]string{}
		f.hashes[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		h[values[i].(string)] = values[i+1].(string)
	}
	return nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.hashes, k)
	}
	return nil
}

func (f *fakeRedis) Close() error { return nil }

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	store := NewRedisSessionStore(client)

	fields, err := store.LoadFields(ctx, "kid-1")
	require.NoError(t, err)
	assert.Empty(t, fields)

	require.NoError(t, store.SaveFields(ctx, "kid-1", map[string]string{
		"kidsModePoints": "100",
		"kidsModeClue":   "true",
		"kidsModeStep":   `"learn"`,
	}))
	assert.Equal(t, 1, client.calls, "all fields in one HSET")
	assert.Contains(t, client.hashes, "exoplanet:kids:session:kid-1")

	fields, err = store.LoadFields(ctx, "kid-1")
	require.NoError(t, err)
	assert.Equal(t, "100", fields["kidsModePoints"])
	assert.Equal(t, `"learn"`, fields["kidsModeStep"])

	require.NoError(t, store.DeleteSession(ctx, "kid-1"))
	fields, err = store.LoadFields(ctx, "kid-1")
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestRedisSessionStoreSaveError(t *testing.T) {
	client := newFakeRedis()
	client.hsetErr = errors.New("READONLY")
	store := NewRedisSessionStore(client)

	err := store.SaveFields(context.Background(), "kid-1", map[string]string{"kidsModePoints": "1"})
	assert.ErrorContains(t, err, "READONLY")
}
