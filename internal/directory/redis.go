package directory

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a directory client backed by a networked Redis instance — the
// concrete "networked key/value store with set and TTL primitives" the
// gateway is specified against. Cross-node session visibility
// depends on every node pointing at the same Redis deployment.
type Redis struct {
	rdb *redis.Client
}

// NewRedis returns a directory client connected to addr (host:port) using
// the given logical database index.
func NewRedis(addr string, db int) *Redis {
	return &Redis{rdb: redis.NewClient(&redis.Options{Addr: addr, DB: db})}
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error { return r.rdb.Close() }

func (r *Redis) Put(ctx context.Context, key string, ttl time.Duration, value string) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

func (r *Redis) Add(ctx context.Context, setKey, member string) error {
	return r.rdb.SAdd(ctx, setKey, member).Err()
}

func (r *Redis) Members(ctx context.Context, setKey string) ([]string, error) {
	return r.rdb.SMembers(ctx, setKey).Result()
}

// PutAndMembers issues SETEX and SMEMBERS in a single pipelined round trip.
// Redis pipelines are not full MULTI/EXEC transactions under cluster mode,
// but for a single-instance or single-shard directory this gives the same
// atomicity a caller needs; see DESIGN.md for the fallback story on
// backends without transactions.
func (r *Redis) PutAndMembers(ctx context.Context, key string, ttl time.Duration, value, setKey string) ([]string, error) {
	var membersCmd *redis.StringSliceCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, value, ttl)
		membersCmd = pipe.SMembers(ctx, setKey)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return membersCmd.Val(), nil
}
