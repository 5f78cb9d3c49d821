package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRevocationList(t *testing.T) {
	mr, client := newTestRedis(t)
	list := NewRevocationList(client)
	ctx := context.Background()

	revoked, err := list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, list.Revoke(ctx, "jti-1", time.Now().Add(time.Minute)))
	revoked, err = list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, err = list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationList_ExpiredTokenIsNotStored(t *testing.T) {
	mr, client := newTestRedis(t)
	list := NewRevocationList(client)

	require.NoError(t, list.Revoke(context.Background(), "jti-1", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists(revokedKeyPrefix+"jti-1"))
}

func TestRevocationList_Disabled(t *testing.T) {
	list := NewRevocationList(nil)
	assert.False(t, list.Enabled())
	require.NoError(t, list.Revoke(context.Background(), "jti-1", time.Now().Add(time.Minute)))

	revoked, err := list.IsRevoked(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	var missing *RevocationList
	revoked, err = missing.IsRevoked(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationList_RedisDown(t *testing.T) {
	mr, client := newTestRedis(t)
	list := NewRevocationList(client)
	mr.Close()

	_, err := list.IsRevoked(context.Background(), "jti-1")
	assert.Error(t, err)
}
