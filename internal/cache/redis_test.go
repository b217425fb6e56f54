package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/crew-shifts-backend/internal/models"
)

func TestNewRedisClient_EmptyAddr(t *testing.T) {
	assert.Nil(t, NewRedisClient("", "", 0))
}

func TestRedisStatCache_UnreachableServerIsAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := NewRedisStatCache(client, time.Minute)
	userID := uuid.New()

	c.Set(context.Background(), &models.UserRatingStat{UserID: userID, Average: 4, RatingCount: 2})
	stat, ok := c.Get(context.Background(), userID)

	assert.False(t, ok)
	assert.Nil(t, stat)
	c.Invalidate(context.Background(), userID)
}

func TestKey(t *testing.T) {
	id := uuid.MustParse("7f0c1f7e-3a1d-4f57-9d6c-2a4b8d3c9e10")
	assert.Equal(t, "rating_stat:7f0c1f7e-3a1d-4f57-9d6c-2a4b8d3c9e10", key(id))
}
