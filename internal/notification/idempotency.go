package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers which notifications were already delivered.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// RedisDeduper stores delivered keys in redis with a TTL.
type RedisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

func (d *RedisDeduper) Seen(ctx context.Context, key string) (bool, error) {
	exists, err := d.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

func (d *RedisDeduper) Mark(ctx context.Context, key string) error {
	return d.rdb.Set(ctx, key, "1", d.ttl).Err()
}

// idempotencyKey is scoped to the status so that successive updates of the
// same request are all delivered.
func idempotencyKey(n *StatusNotification) string {
	return fmt.Sprintf("notif:sent:%s:%s", n.ID, strings.ToLower(n.Status))
}
