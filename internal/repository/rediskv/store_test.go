package rediskv

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/spaceai-console/internal/kv"
)

func newStore(t *testing.T, prefix string) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, prefix), mr
}

func TestGetMissingIsNotFound(t *testing.T) {
	s, _ := newStore(t, "")
	_, err := s.Get(context.Background(), "console:bots")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, "")

	require.NoError(t, s.Set(ctx, "console:bots", []byte(`[{"id":"b1"}]`)))
	got, err := s.Get(ctx, "console:bots")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"b1"}]`, string(got))

	raw, err := mr.Get("kv:console:bots")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"b1"}]`, raw)
	assert.Zero(t, mr.TTL("kv:console:bots"))

	require.NoError(t, s.Set(ctx, "console:bots", []byte(`[]`)))
	got, err = s.Get(ctx, "console:bots")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func TestKeyPrefix(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, "tenant")

	require.NoError(t, s.Set(ctx, "console:agents", []byte(`[]`)))
	assert.True(t, mr.Exists("tenant:kv:console:agents"))
	assert.False(t, mr.Exists("kv:console:agents"))
}

func TestUnavailableRedisIsNotNotFound(t *testing.T) {
	s, mr := newStore(t, "")
	mr.Close()

	_, err := s.Get(context.Background(), "console:bots")
	require.Error(t, err)
	assert.NotErrorIs(t, err, kv.ErrNotFound)
	assert.Error(t, s.Set(context.Background(), "console:bots", []byte(`[]`)))
}
