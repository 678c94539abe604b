package annotation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockHeld = errors.New("annotation sync lock already held")

// RedisLocker serializes annotation syncs per chase. The lock expires on its
// own after the TTL so a crashed holder cannot wedge the chase.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

func lockKey(chaseID int) string {
	return fmt.Sprintf("chase-review:annotation-lock:%d", chaseID)
}

// Acquire takes the per-chase lock and returns its release function. The
// release only deletes the key while our token still owns it, so an expired
// lock re-acquired by someone else is left alone.
func (l *RedisLocker) Acquire(ctx context.Context, chaseID int) (func(), error) {
	key := lockKey(chaseID)
	token := uuid.New().String()

	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrLockHeld
	}

	release := func() {
		current, err := l.client.Get(context.Background(), key).Result()
		if err == nil && current == token {
			l.client.Del(context.Background(), key)
		}
	}
	return release, nil
}
