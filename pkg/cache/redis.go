package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures the Redis client
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient connects to Redis and verifies the connection
func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// IdempotencyStore reserves request keys so a retried request is detected
type IdempotencyStore struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewIdempotencyStore creates a store whose keys live for ttl
func NewIdempotencyStore(client *redis.Client, namespace string, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, namespace: namespace, ttl: ttl}
}

// Reserve claims key for the TTL window. It returns false if the key was
// already claimed.
func (s *IdempotencyStore) Reserve(ctx context.Context, scope, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.Key(scope, key), 1, s.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Release drops a reservation, used when the guarded operation failed
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	return s.client.Del(ctx, s.Key(scope, key)).Err()
}

// Key builds the namespaced Redis key
func (s *IdempotencyStore) Key(scope, key string) string {
	return fmt.Sprintf("%s:idempotency:%s:%s", s.namespace, scope, key)
}
