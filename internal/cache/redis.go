// Package cache хранит агрегаты рейтинга в Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/crew-shifts-backend/internal/logger"
	"github.com/ignatzorin/crew-shifts-backend/internal/models"
)

// NewRedisClient подключается к Redis и проверяет соединение.
// Возвращает nil, если сервер недоступен: вызывающий переходит на кеш в памяти.
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.L().WithError(err).WithField("addr", addr).Warn("redis недоступен, используем кеш в памяти")
		_ = client.Close()
		return nil
	}
	return client
}

// RedisStatCache кеш агрегатов рейтинга в Redis. Ошибки Redis логируются и
// трактуются как промах.
type RedisStatCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStatCache(client redis.Cmdable, ttl time.Duration) *RedisStatCache {
	return &RedisStatCache{client: client, ttl: ttl}
}

func key(userID uuid.UUID) string {
	return "rating_stat:" + userID.String()
}

func (c *RedisStatCache) Get(ctx context.Context, userID uuid.UUID) (*models.UserRatingStat, bool) {
	raw, err := c.client.Get(ctx, key(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().WithError(err).WithField("user_id", userID).Warn("redis: get rating stat")
		}
		return nil, false
	}

	var stat models.UserRatingStat
	if err := json.Unmarshal(raw, &stat); err != nil {
		return nil, false
	}
	return &stat, true
}

func (c *RedisStatCache) Set(ctx context.Context, stat *models.UserRatingStat) {
	raw, err := json.Marshal(stat)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(stat.UserID), raw, c.ttl).Err(); err != nil {
		logger.L().WithError(err).WithFields(logrus.Fields{"user_id": stat.UserID}).Warn("redis: set rating stat")
	}
}

func (c *RedisStatCache) Invalidate(ctx context.Context, userID uuid.UUID) {
	if err := c.client.Del(ctx, key(userID)).Err(); err != nil {
		logger.L().WithError(err).WithField("user_id", userID).Warn("redis: invalidate rating stat")
	}
}
