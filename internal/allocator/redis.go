package allocator

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/miniworld/modgen/internal/database"
)

// DefaultRedisPrefix namespaces the counter keys.
const DefaultRedisPrefix = "modgen:allocator"

// takeScript returns the current counter value, seeding it with ARGV[1] when
// the key is missing, and stores value+1. Redis runs scripts atomically.
var takeScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
  v = ARGV[1]
end
v = tonumber(v)
redis.call('SET', KEYS[1], v + 1)
return v
`)

// Redis keeps the counters in Redis so several server replicas share them.
type Redis struct {
	db           *database.Redis
	nextIDKey    string
	nextResultID string
}

// NewRedis wraps an open connection. prefix may be empty.
func NewRedis(db *database.Redis, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{
		db:           db,
		nextIDKey:    prefix + ":next_id",
		nextResultID: prefix + ":next_result_id",
	}
}

func (r *Redis) take(ctx context.Context, key string, seed int64) (int64, error) {
	v, err := takeScript.Run(ctx, r.db.Client(), []string{key}, seed).Int64()
	if err != nil {
		return 0, fmt.Errorf("allocator: redis take %s: %w", key, err)
	}
	return v, nil
}

func (r *Redis) NextModID(ctx context.Context) (int64, error) {
	return r.take(ctx, r.nextIDKey, DefaultNextID)
}

func (r *Redis) ConsumeResultID(ctx context.Context) (int64, error) {
	return r.take(ctx, r.nextResultID, DefaultNextResultID)
}

func (r *Redis) Reset(ctx context.Context) (State, error) {
	_, err := r.db.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.nextIDKey, DefaultNextID, 0)
		pipe.Set(ctx, r.nextResultID, DefaultNextResultID, 0)
		return nil
	})
	if err != nil {
		return State{}, fmt.Errorf("allocator: redis reset: %w", err)
	}
	return DefaultState(), nil
}

func (r *Redis) Snapshot(ctx context.Context) (State, error) {
	vals, err := r.db.Client().MGet(ctx, r.nextIDKey, r.nextResultID).Result()
	if err != nil {
		return State{}, fmt.Errorf("allocator: redis snapshot: %w", err)
	}
	s := DefaultState()
	if len(vals) == 2 {
		if s.NextID, err = parseRedisInt(vals[0], DefaultNextID); err != nil {
			return State{}, err
		}
		if s.NextResultID, err = parseRedisInt(vals[1], DefaultNextResultID); err != nil {
			return State{}, err
		}
	}
	return s, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *Redis) Close() error {
	return r.db.Close()
}

func parseRedisInt(v interface{}, fallback int64) (int64, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("allocator: redis counter %q: %w", s, err)
	}
	return n, nil
}
