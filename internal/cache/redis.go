package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// Redis stores entries in a Redis database. Keys are also given a Redis
// expiry equal to the store TTL so abandoned entries clean themselves up.
type Redis struct {
	client rueidis.Client
}

// NewRedis creates a backend over an existing rueidis client.
func NewRedis(client rueidis.Client) *Redis {
	return &Redis{client: client}
}

// Load implements Backend.
func (r *Redis) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Do(ctx, r.client.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrMiss
		}

		return nil, fmt.Errorf("failed to query Redis: %w", err)
	}

	return data, nil
}

// Save implements Backend.
func (r *Redis) Save(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < time.Second {
		ttl = time.Second
	}

	err := r.client.Do(ctx,
		r.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Ex(ttl).Build(),
	).Error()
	if err != nil {
		return fmt.Errorf("failed to update Redis: %w", err)
	}

	return nil
}

// Remove implements Backend.
func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.client.Do(ctx, r.client.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete from Redis: %w", err)
	}

	return nil
}
