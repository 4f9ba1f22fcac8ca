// README: Webhook event dedupe: the first Claim of a key wins until it expires.
package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "coffeebot:event:"
	DefaultTTL = 24 * time.Hour
)

type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisStore(redis *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{redis: redis, ttl: ttl}
}

// Claim reports true the first time key is seen within the TTL.
func (s *RedisStore) Claim(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return true, nil
	}
	return s.redis.SetNX(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
}

// MemoryStore is the single-process fallback when Redis is not configured.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{seen: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Claim(_ context.Context, key string) (bool, error) {
	if key == "" {
		return true, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, exp := range s.seen {
		if now.After(exp) {
			delete(s.seen, k)
		}
	}
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = now.Add(s.ttl)
	return true, nil
}
