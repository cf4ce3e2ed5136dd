package repository

import (
	"context"
	"testing"
	"time"

	"gallan_chat/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRateLimit(t *testing.T) (RateLimitRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRateLimitRepository(client, logger.NewNop()), mr
}

func TestRateLimitWindow(t *testing.T) {
	repo, mr := newTestRateLimit(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		n, err := repo.Increment(ctx, "rl:1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	assert.Equal(t, time.Minute, mr.TTL("rl:1"))

	mr.FastForward(time.Minute + time.Second)
	n, err := repo.Increment(ctx, "rl:1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
