package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
	"github.com/redis/go-redis/v9"
)

// RedisDeduplicator remembers notified (payment, event type) pairs for ttl
type RedisDeduplicator struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisDeduplicator creates a deduplicator whose marks expire after ttl
func NewRedisDeduplicator(rdb *redis.Client, ttl time.Duration) output.EventDeduplicator {
	return &RedisDeduplicator{rdb: rdb, ttl: ttl}
}

// Key is the Redis key marking event as notified
func Key(event core.PaymentEvent) string {
	return fmt.Sprintf("notified:%s:%s", event.PaymentID, event.EventType)
}

// Seen reports whether event was already marked
func (d *RedisDeduplicator) Seen(ctx context.Context, event core.PaymentEvent) (bool, error) {
	n, err := d.rdb.Exists(ctx, Key(event)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark is called only after the notification went out, so a failed attempt
// is retried on redelivery.
func (d *RedisDeduplicator) Mark(ctx context.Context, event core.PaymentEvent) error {
	return d.rdb.Set(ctx, Key(event), "1", d.ttl).Err()
}
