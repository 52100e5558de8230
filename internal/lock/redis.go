package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const leaseKeyPrefix = "lease:"

var delScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`)

var expireScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
    return 0
end
`)

// Redis implements Locker using a Redis backend.
type Redis struct {
	client *redis.Client
}

// NewRedis returns a new Redis locker using the provided client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Acquire attempts to obtain the lease without waiting.
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, leaseKeyPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &Lease{Key: key, Token: token, TTL: ttl}, nil
}

// Release frees the lease if the token still matches.
func (r *Redis) Release(ctx context.Context, l *Lease) (bool, error) {
	n, err := delScript.Run(ctx, r.client, []string{leaseKeyPrefix + l.Key}, l.Token).Int()
	if err == redis.Nil {
		err = nil
	}
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Renew extends the lease expiry if the token still matches.
func (r *Redis) Renew(ctx context.Context, l *Lease, ttl time.Duration) (bool, error) {
	n, err := expireScript.Run(ctx, r.client, []string{leaseKeyPrefix + l.Key}, l.Token, ttl.Milliseconds()).Int()
	if err == redis.Nil {
		err = nil
	}
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
