package services

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LeaseStore cấp lease ngắn hạn theo key để nhiều process tick song song
// không fire trùng một schedule.
type LeaseStore interface {
	// Acquire trả true nếu giành được lease trong ttl.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type RedisLeaseStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisLeaseStore(rdb *redis.Client) *RedisLeaseStore {
	return &RedisLeaseStore{rdb: rdb, prefix: "schedule:lease:"}
}

func (s *RedisLeaseStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, s.prefix+key, 1, ttl).Result()
}

// MemoryLeaseStore đủ cho single-process; chỉ để chạy không redis và test.
type MemoryLeaseStore struct {
	mu     sync.Mutex
	leases map[string]time.Time
}

func NewMemoryLeaseStore() *MemoryLeaseStore {
	return &MemoryLeaseStore{leases: make(map[string]time.Time)}
}

func (s *MemoryLeaseStore) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if until, ok := s.leases[key]; ok && now.Before(until) {
		return false, nil
	}
	s.leases[key] = now.Add(ttl)
	return true, nil
}
