package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client, err := NewClient(context.Background(), Options{Addr: addr})
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestIdempotencyStore_Key(t *testing.T) {
	store := NewIdempotencyStore(nil, "marketplace", time.Minute)

	got := store.Key("orders:7", "abc")
	if got != "marketplace:idempotency:orders:7:abc" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestIdempotencyStore_Reserve(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	store := NewIdempotencyStore(client, "test", time.Minute)
	client.Del(ctx, store.Key("orders:1", "k1"))

	ok, err := store.Reserve(ctx, "orders:1", "k1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected first reservation to succeed")
	}

	ok, err = store.Reserve(ctx, "orders:1", "k1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected duplicate reservation to fail")
	}

	if err := store.Release(ctx, "orders:1", "k1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ok, _ = store.Reserve(ctx, "orders:1", "k1")
	if !ok {
		t.Error("expected reservation after release to succeed")
	}
	client.Del(ctx, store.Key("orders:1", "k1"))
}
