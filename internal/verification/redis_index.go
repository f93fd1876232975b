package verification

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const reservationPrefix = "transfercode:v1:"

// RedisIndex implements PendingIndex on Redis. SET NX with a TTL gives the
// claim-or-reject semantics and the automatic expiry in one round trip.
type RedisIndex struct {
	client *redis.Client
}

// NewRedisIndex constructs a Redis-backed pending-code index.
func NewRedisIndex(client *redis.Client) *RedisIndex {
	return &RedisIndex{client: client}
}

// Reserve claims the code for ttl. It reports false when another live
// transfer already holds it.
func (i *RedisIndex) Reserve(ctx context.Context, code string, ttl time.Duration) (bool, error) {
	return i.client.SetNX(ctx, reservationPrefix+code, "1", ttl).Result()
}
