package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/crew-shifts-backend/internal/models"
)

// StatCache кеш агрегатов рейтинга. Промах и ошибки кеша не считаются ошибкой чтения.
type StatCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.UserRatingStat, bool)
	Set(ctx context.Context, stat *models.UserRatingStat)
	Invalidate(ctx context.Context, userID uuid.UUID)
}

// CacheService in-memory кеш с TTL. Просроченные записи вычищаются фоном.
type CacheService struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	stop    chan struct{}
	once    sync.Once
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

const cacheSweepInterval = 5 * time.Minute

func NewCacheService() *CacheService {
	cs := &CacheService{
		entries: make(map[string]cacheEntry),
		stop:    make(chan struct{}),
	}
	go cs.sweepLoop()
	return cs
}

// Close останавливает фоновую очистку. Повторный вызов безопасен.
func (cs *CacheService) Close() {
	cs.once.Do(func() { close(cs.stop) })
}

func (cs *CacheService) Get(key string) (interface{}, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	entry, ok := cs.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

func (cs *CacheService) Set(key string, value interface{}, ttl time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.entries[key] = cacheEntry{value: value, expiresAt: time.Now().Add(ttl)}
}

func (cs *CacheService) Delete(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.entries, key)
}

func (cs *CacheService) sweepLoop() {
	ticker := time.NewTicker(cacheSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cs.stop:
			return
		case now := <-ticker.C:
			cs.sweep(now)
		}
	}
}

func (cs *CacheService) sweep(now time.Time) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for key, entry := range cs.entries {
		if now.After(entry.expiresAt) {
			delete(cs.entries, key)
		}
	}
}

// RatingStatCacheKey ключ агрегата рейтинга пользователя.
func RatingStatCacheKey(userID uuid.UUID) string {
	return "rating_stat:" + userID.String()
}

// MemoryStatCache хранит агрегаты рейтинга в CacheService.
type MemoryStatCache struct {
	cache *CacheService
	ttl   time.Duration
}

func NewMemoryStatCache(cache *CacheService, ttl time.Duration) *MemoryStatCache {
	return &MemoryStatCache{cache: cache, ttl: ttl}
}

func (m *MemoryStatCache) Get(_ context.Context, userID uuid.UUID) (*models.UserRatingStat, bool) {
	v, ok := m.cache.Get(RatingStatCacheKey(userID))
	if !ok {
		return nil, false
	}
	stat, ok := v.(models.UserRatingStat)
	if !ok {
		return nil, false
	}
	return &stat, true
}

func (m *MemoryStatCache) Set(_ context.Context, stat *models.UserRatingStat) {
	// Храним копию, чтобы вызывающий не менял закешированное значение.
	m.cache.Set(RatingStatCacheKey(stat.UserID), *stat, m.ttl)
}

func (m *MemoryStatCache) Invalidate(_ context.Context, userID uuid.UUID) {
	m.cache.Delete(RatingStatCacheKey(userID))
}
