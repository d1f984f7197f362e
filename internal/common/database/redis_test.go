package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vinreport-workers/internal/common/config"
)

func newTestRedis(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestNewRedis_RequiresAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

func TestRedisClient_Ping(t *testing.T) {
	client, _ := newTestRedis(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestRedisClient_TokenLifecycle(t *testing.T) {
	client, mr := newTestRedis(t)
	ctx := context.Background()

	ok, err := client.AcquireToken(ctx, "lease:r.pdf", "owner-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.AcquireToken(ctx, "lease:r.pdf", "owner-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	released, err := client.ReleaseToken(ctx, "lease:r.pdf", "owner-b")
	require.NoError(t, err)
	assert.False(t, released)
	assert.True(t, mr.Exists("lease:r.pdf"))

	released, err = client.ReleaseToken(ctx, "lease:r.pdf", "owner-a")
	require.NoError(t, err)
	assert.True(t, released)
	assert.False(t, mr.Exists("lease:r.pdf"))
}

func TestRedisClient_TokenExpires(t *testing.T) {
	client, mr := newTestRedis(t)
	ctx := context.Background()

	ok, err := client.AcquireToken(ctx, "lease:x", "a", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, err = client.AcquireToken(ctx, "lease:x", "b", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}
