package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playsync/sessiond/pkg/domain"
)

// Scripts run server-side so increment+expire and get+compare+set are
// single atomic steps. A client-side read-then-write here would race
// under concurrent callers.
var (
	incrWindowScript = redis.NewScript(`
local c = redis.call("incr", KEYS[1])
if c == 1 then
  redis.call("expire", KEYS[1], ARGV[1])
end
return {c, redis.call("ttl", KEYS[1])}
`)

	createIfAbsentScript = redis.NewScript(`
if redis.call("ttl", KEYS[1]) < 0 then
  redis.call("set", KEYS[1], ARGV[1])
  redis.call("expire", KEYS[1], ARGV[2])
  return 1
end
return 0
`)

	compareAndSwapScript = redis.NewScript(`
local v = redis.call("get", KEYS[1])
if v == false then
  return -1
end
if v == ARGV[1] then
  redis.call("set", KEYS[1], ARGV[2])
  redis.call("expire", KEYS[1], ARGV[3])
  return 1
end
return 0
`)
)

// RedisConfig holds connection settings for the shared store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Redis is the production Store backed by a shared redis instance.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a redis-backed store. It does not dial eagerly;
// use Ping to verify connectivity at startup.
func NewRedis(cfg RedisConfig) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

// Ping verifies the connection.
func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *Redis) Close() error {
	return s.client.Close()
}

func (s *Redis) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	res, err := incrWindowScript.Run(ctx, s.client, []string{key}, int64(window.Seconds())).Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("incr window: %w", err)
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("incr window: unexpected reply %v", res)
	}
	count, ok1 := res[0].(int64)
	ttl, ok2 := res[1].(int64)
	if !ok1 || !ok2 {
		return 0, 0, fmt.Errorf("incr window: unexpected reply %v", res)
	}
	if ttl < 0 {
		// counter created without expiry by an older writer; report the
		// full window so callers still produce a sane retry hint
		return count, window, nil
	}
	return count, time.Duration(ttl) * time.Second, nil
}

func (s *Redis) CreateIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	res, err := createIfAbsentScript.Run(ctx, s.client, []string{key}, value, int64(ttl.Seconds())).Int()
	if err != nil {
		return false, fmt.Errorf("create if absent: %w", err)
	}
	return res == 1, nil
}

func (s *Redis) CompareAndSwap(ctx context.Context, key, old, next string, ttl time.Duration) (CASResult, error) {
	res, err := compareAndSwapScript.Run(ctx, s.client, []string{key}, old, next, int64(ttl.Seconds())).Int()
	if err != nil {
		return CASMismatch, fmt.Errorf("compare and swap: %w", err)
	}
	switch res {
	case 1:
		return CASSwapped, nil
	case -1:
		return CASAbsent, nil
	default:
		return CASMismatch, nil
	}
}

func (s *Redis) Touch(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("touch: %w", err)
	}
	return ok, nil
}

func (s *Redis) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get: %w", err)
	}
	return val, nil
}
