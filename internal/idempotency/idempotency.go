// Package idempotency suppresses duplicate vendor deliveries. Vendors
// redeliver webhooks on their own schedule; a redelivery inside the
// freshness window carries a valid signature, so the guards alone cannot
// catch it.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store answers "have we already accepted this exact message?".
type Store interface {
	// Seen records the message key and reports whether it was already
	// present. Errors degrade open: a broken store never blocks traffic.
	Seen(ctx context.Context, messageType, requestID, signature string) (bool, error)
	Close() error
}

// RedisStore keys duplicates by message type, correlation id and signature
// with a TTL of twice the freshness window: once a message can no longer
// pass the freshness guard there is nothing left to deduplicate.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(addr string, freshnessWindow time.Duration) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    2 * freshnessWindow,
	}
}

func (s *RedisStore) Seen(ctx context.Context, messageType, requestID, signature string) (bool, error) {
	key := fmt.Sprintf("relay:seen:%s:%s:%s", messageType, requestID, signature)

	created, err := s.client.SetNX(ctx, key, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency check: %w", err)
	}
	return !created, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Disabled is the no-op store used when Redis is not configured; every
// message is treated as first delivery.
type Disabled struct{}

func (Disabled) Seen(ctx context.Context, messageType, requestID, signature string) (bool, error) {
	return false, nil
}

func (Disabled) Close() error { return nil }
