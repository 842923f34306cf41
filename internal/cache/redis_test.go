package cache

import (
	"context"
	"testing"
	"time"

	"metabento/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	UserID uint  `json:"id"`
	Points int64 `json:"points"`
}

func setupCache(t *testing.T) (*LeaderboardCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewRedisClient(&config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	require.NotNil(t, client)
	t.Cleanup(func() { client.Close() })

	return NewLeaderboardCache(client, time.Minute), mr
}

func TestLeaderboardCache_SetGetInvalidate(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	var got []entry
	hit, err := c.Get(ctx, &got)
	require.NoError(t, err)
	assert.False(t, hit)

	want := []entry{{UserID: 1, Points: 90}, {UserID: 2, Points: 40}}
	require.NoError(t, c.Set(ctx, want))
	assert.True(t, mr.Exists(leaderboardKey))

	hit, err = c.Get(ctx, &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, want, got)

	require.NoError(t, c.Invalidate(ctx))
	hit, err = c.Get(ctx, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestLeaderboardCache_Expires(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, []entry{{UserID: 1, Points: 5}}))
	mr.FastForward(2 * time.Minute)

	var got []entry
	hit, err := c.Get(ctx, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestLeaderboardCache_NilIsAlwaysEmpty(t *testing.T) {
	var c *LeaderboardCache
	ctx := context.Background()

	assert.Nil(t, NewLeaderboardCache(nil, time.Minute))
	require.NoError(t, c.Set(ctx, []entry{{UserID: 1}}))
	require.NoError(t, c.Invalidate(ctx))
	var got []entry
	hit, err := c.Get(ctx, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestNewRedisClient(t *testing.T) {
	client, err := NewRedisClient(&config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisClient(&config.RedisConfig{Addr: addr})
	assert.Error(t, err)
}
