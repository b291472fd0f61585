package maintenance

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the token key only when this instance still owns
// it, so an expired-and-reacquired token is never released by the previous
// holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`)

// RedisCoordinator coordinates via a Redis SETNX token. The token carries a
// TTL so a crashed holder cannot block maintenance forever.
type RedisCoordinator struct {
	client *redis.Client
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	token string
}

// NewRedisCoordinator returns a coordinator on the given token key. ttl
// bounds how long a dead instance can hold the token; it should exceed the
// longest expected cycle.
func NewRedisCoordinator(client *redis.Client, key string, ttl time.Duration) *RedisCoordinator {
	return &RedisCoordinator{client: client, key: key, ttl: ttl}
}

// Acquire implements Coordinator.Acquire.
func (r *RedisCoordinator) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	won, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
	if err != nil {
		return false, err
	}
	if won {
		r.mu.Lock()
		r.token = token
		r.mu.Unlock()
	}
	return won, nil
}

// Release implements Coordinator.Release.
func (r *RedisCoordinator) Release(ctx context.Context) error {
	r.mu.Lock()
	token := r.token
	r.token = ""
	r.mu.Unlock()
	if token == "" {
		return nil
	}
	_, err := releaseScript.Run(ctx, r.client, []string{r.key}, token).Result()
	if err == redis.Nil {
		err = nil
	}
	return err
}
