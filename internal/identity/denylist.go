package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist records revoked access tokens in Redis until they would have
// expired anyway. A nil client turns every operation into a no-op.
type Denylist struct {
	redis *redis.Client
}

func NewDenylist(redisClient *redis.Client) *Denylist {
	return &Denylist{redis: redisClient}
}

func denylistKey(token string) string {
	return "motorota:denylist:" + token
}

// Add stores token for the remainder of its lifetime. Expired tokens are skipped.
func (d *Denylist) Add(ctx context.Context, token string, expiresAt time.Time) error {
	if d == nil || d.redis == nil || token == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := d.redis.Set(ctx, denylistKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("denylist token: %w", err)
	}
	return nil
}

func (d *Denylist) Contains(ctx context.Context, token string) (bool, error) {
	if d == nil || d.redis == nil {
		return false, nil
	}
	n, err := d.redis.Exists(ctx, denylistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("check denylist: %w", err)
	}
	return n > 0, nil
}
