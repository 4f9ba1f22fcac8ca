// README: Dedupe store tests (memory fallback; Redis when IDEMPOTENCY_TEST_REDIS_ADDR is set).
package idempotency

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestMemoryClaimOnce(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()

	first, err := s.Claim(ctx, "evt-1")
	if err != nil || !first {
		t.Fatalf("first claim: %v %v", first, err)
	}
	again, _ := s.Claim(ctx, "evt-1")
	if again {
		t.Fatal("duplicate claim accepted")
	}
	other, _ := s.Claim(ctx, "evt-2")
	if !other {
		t.Fatal("distinct key rejected")
	}
}

func TestMemoryClaimExpires(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = s.Claim(ctx, "evt")
	now = now.Add(2 * time.Minute)
	ok, _ := s.Claim(ctx, "evt")
	if !ok {
		t.Fatal("expired key should be claimable again")
	}
}

func TestEmptyKeyAlwaysClaims(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	for i := 0; i < 2; i++ {
		if ok, _ := s.Claim(context.Background(), ""); !ok {
			t.Fatal("empty key must not be deduplicated")
		}
	}
}

func TestRedisClaimOnce(t *testing.T) {
	addr := os.Getenv("IDEMPOTENCY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("IDEMPOTENCY_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisStore(client, time.Minute)
	ctx := context.Background()
	key := uuid.NewString()

	first, err := s.Claim(ctx, key)
	if err != nil || !first {
		t.Fatalf("first claim: %v %v", first, err)
	}
	again, err := s.Claim(ctx, key)
	if err != nil || again {
		t.Fatalf("duplicate claim: %v %v", again, err)
	}
}
