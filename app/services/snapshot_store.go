package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotStore lưu tập worker uuid dưới một token opaque với TTL. Redis khi
// chạy nhiều instance; bản in-memory cho single-node và test.
type SnapshotStore interface {
	Put(ctx context.Context, key string, workerUUIDs []string, ttl time.Duration) error
	// Get: (set, found). found=false nghĩa là key chưa từng có hoặc đã hết TTL;
	// hai trường hợp không phân biệt được ở tầng store.
	Get(ctx context.Context, key string) ([]string, bool, error)
}

type RedisSnapshotStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisSnapshotStore(rdb *redis.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{rdb: rdb, prefix: "selection:snapshot:"}
}

func (s *RedisSnapshotStore) Put(ctx context.Context, key string, workerUUIDs []string, ttl time.Duration) error {
	data, err := json.Marshal(workerUUIDs)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.prefix+key, data, ttl).Err()
}

func (s *RedisSnapshotStore) Get(ctx context.Context, key string) ([]string, bool, error) {
	data, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

type memorySnapshot struct {
	workers   []string
	expiresAt time.Time
}

type MemorySnapshotStore struct {
	mu   sync.RWMutex
	data map[string]memorySnapshot
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{data: make(map[string]memorySnapshot)}
}

func (s *MemorySnapshotStore) Put(_ context.Context, key string, workerUUIDs []string, ttl time.Duration) error {
	cp := make([]string, len(workerUUIDs))
	copy(cp, workerUUIDs)
	s.mu.Lock()
	s.data[key] = memorySnapshot{workers: cp, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// Get lazy-expire: entry quá hạn bị xoá ngay lúc đọc.
func (s *MemorySnapshotStore) Get(_ context.Context, key string) ([]string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(snap.expiresAt) {
		delete(s.data, key)
		return nil, false, nil
	}
	return snap.workers, true, nil
}

// Sweep dọn entry hết hạn; gọi định kỳ từ daemon.
func (s *MemorySnapshotStore) Sweep() int {
	now := time.Now()
	n := 0
	s.mu.Lock()
	for key, snap := range s.data {
		if now.After(snap.expiresAt) {
			delete(s.data, key)
			n++
		}
	}
	s.mu.Unlock()
	return n
}
