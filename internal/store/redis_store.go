package store

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	defaultRedisOpTimeout = 5 * time.Second
	playerKeyPrefix       = "player:"
	playerScanBatch       = 100
)

// RedisStore implements Store using a Redis backend with a JSON codec.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*redisStoreOptions)

type redisStoreOptions struct {
	timeout time.Duration
}

// WithTimeout sets the operation timeout for Redis calls.
func WithTimeout(d time.Duration) RedisOption {
	return func(o *redisStoreOptions) {
		o.timeout = d
	}
}

// NewRedisStore returns a new RedisStore using the provided Redis client.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	o := redisStoreOptions{timeout: defaultRedisOpTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return &RedisStore{client: client, timeout: o.timeout}
}

// Get implements Store.Get.
func (s *RedisStore) Get(ctx context.Context, id string) (*Player, bool, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	data, err := s.client.Get(cctx, playerKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var p Player
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

// Save implements Store.Save.
func (s *RedisStore) Save(ctx context.Context, id string, p *Player) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Set(cctx, playerKeyPrefix+id, data, 0).Err()
}

// Keys implements Store.Keys using SCAN to iterate over player keys.
func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	var cursor uint64
	var ids []string
	for {
		batch, next, err := s.client.Scan(cctx, cursor, playerKeyPrefix+"*", playerScanBatch).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range batch {
			ids = append(ids, k[len(playerKeyPrefix):])
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	return ids, nil
}
