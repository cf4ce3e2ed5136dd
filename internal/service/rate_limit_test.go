package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gallan_chat/internal/repository"
	"gallan_chat/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRateLimitService(t *testing.T) RateLimitService {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRateLimitService(repository.NewRateLimitRepository(client, logger.NewNop()), logger.NewNop())
}

func TestAllowCountsDown(t *testing.T) {
	svc := newTestRateLimitService(t)
	ctx := context.Background()

	for want := 2; want >= 0; want-- {
		allowed, remaining, err := svc.Allow(ctx, "ratelimit:api:user:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, want, remaining)
	}

	allowed, remaining, err := svc.Allow(ctx, "ratelimit:api:user:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Zero(t, remaining)
}

func TestAllowConcurrentHitsRespectLimit(t *testing.T) {
	svc := newTestRateLimitService(t)
	const limit = 5

	var allowedCount int64
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, _, err := svc.Allow(context.Background(), "ratelimit:auth:ip:10.0.0.1", limit, time.Minute)
			if assert.NoError(t, err) && allowed {
				atomic.AddInt64(&allowedCount, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), allowedCount)
}
