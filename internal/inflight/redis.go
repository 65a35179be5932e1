package inflight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "deepsearch:inflight:"
	defaultTTL = 2 * time.Minute
)

// acquireScript sets the marker unless the same query key already holds it.
var acquireScript = redis.NewScript(`
if redis.call('hget', KEYS[1], 'key') == ARGV[1] then
  return 0
end
redis.call('hset', KEYS[1], 'key', ARGV[1], 'id', ARGV[2])
redis.call('pexpire', KEYS[1], ARGV[3])
return 1
`)

var releaseScript = redis.NewScript(`
if redis.call('hget', KEYS[1], 'id') == ARGV[1] then
  return redis.call('del', KEYS[1])
else
  return 0
end
`)

// RedisGuard shares markers across replicas. Markers expire after the TTL so a
// crashed replica cannot block a session forever.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard connects to addr and pings it.
func NewRedisGuard(addr, password string, ttl time.Duration) (*RedisGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewRedisGuardWithClient(client, ttl), nil
}

// NewRedisGuardWithClient wraps an existing client without pinging.
func NewRedisGuardWithClient(client *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, session, key string) (Token, error) {
	tok := Token{Session: session, Key: key, ID: uuid.NewString()}
	ok, err := acquireScript.Run(ctx, g.client, []string{keyPrefix + session}, key, tok.ID, g.ttl.Milliseconds()).Int64()
	if err != nil {
		return Token{}, fmt.Errorf("acquire in-flight marker: %w", err)
	}
	if ok == 0 {
		return Token{}, ErrDuplicate
	}
	return tok, nil
}

func (g *RedisGuard) IsCurrent(ctx context.Context, tok Token) (bool, error) {
	id, err := g.client.HGet(ctx, keyPrefix+tok.Session, "id").Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read in-flight marker: %w", err)
	}
	return id == tok.ID, nil
}

func (g *RedisGuard) Release(ctx context.Context, tok Token) error {
	if err := releaseScript.Run(ctx, g.client, []string{keyPrefix + tok.Session}, tok.ID).Err(); err != nil {
		return fmt.Errorf("release in-flight marker: %w", err)
	}
	return nil
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}
