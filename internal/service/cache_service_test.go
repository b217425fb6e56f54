package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/crew-shifts-backend/internal/models"
)

func TestCacheService_ExpiryAndSweep(t *testing.T) {
	cs := NewCacheService()
	defer cs.Close()

	cs.Set("fresh", 1, time.Hour)
	cs.Set("stale", 2, -time.Second)

	v, ok := cs.Get("fresh")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = cs.Get("stale")
	assert.False(t, ok)

	cs.sweep(time.Now())
	cs.mu.RLock()
	_, present := cs.entries["stale"]
	cs.mu.RUnlock()
	assert.False(t, present)

	cs.Close()
}

func TestMemoryStatCache_StoresCopy(t *testing.T) {
	cs := NewCacheService()
	defer cs.Close()
	cache := NewMemoryStatCache(cs, time.Minute)
	ctx := context.Background()

	stat := &models.UserRatingStat{UserID: uuid.New(), Average: 4.5, RatingCount: 2}
	cache.Set(ctx, stat)
	stat.RatingCount = 99

	got, ok := cache.Get(ctx, stat.UserID)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.RatingCount)

	cache.Invalidate(ctx, stat.UserID)
	_, ok = cache.Get(ctx, stat.UserID)
	assert.False(t, ok)
}
