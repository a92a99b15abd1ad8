package ratelimit

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

// fixedWindowScript returns {allowed, count, pttl_ms}.  A denied request does
// not touch the counter.
var fixedWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window_ms = tonumber(ARGV[2])

	local current = tonumber(redis.call('GET', key) or '0')
	if current >= limit then
		return { 0, current, redis.call('PTTL', key) }
	end

	local count = redis.call('INCR', key)
	if count == 1 then
		redis.call('PEXPIRE', key, window_ms)
	end
	return { 1, count, redis.call('PTTL', key) }
`)

// RedisStore shares counters between instances through Redis.  Identities
// are hashed before they become part of a key so raw client addresses are
// never written to the shared cache.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	log    *slog.Logger
}

// NewRedisStore returns a store writing keys under prefix.
func NewRedisStore(rdb *redis.Client, prefix string, log *slog.Logger) *RedisStore {
	if prefix == "" {
		prefix = "rl"
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisStore{rdb: rdb, prefix: prefix, log: log}
}

// Key returns the Redis key used for identity.
func (s *RedisStore) Key(identity string) string {
	sum := blake2b.Sum256([]byte(identity))
	return s.prefix + ":" + hex.EncodeToString(sum[:16])
}

// Allow implements Limiter.  When Redis cannot be reached the request is
// allowed and the failure is logged.
func (s *RedisStore) Allow(ctx context.Context, identity string, limit int, window time.Duration) Decision {
	key := s.Key(identity)
	vals, err := fixedWindowScript.Run(ctx, s.rdb, []string{key}, limit, window.Milliseconds()).Result()
	if err != nil {
		s.log.WarnContext(ctx, "ratelimit: redis error, allowing request", slog.String("key", key), slog.Any("error", err))
		return Decision{Allowed: true, Remaining: limit}
	}
	arr, ok := vals.([]interface{})
	if !ok || len(arr) != 3 {
		s.log.WarnContext(ctx, "ratelimit: unexpected script result", slog.String("key", key), slog.String("result", fmt.Sprintf("%#v", vals)))
		return Decision{Allowed: true, Remaining: limit}
	}
	allowed := asInt64(arr[0]) == 1
	count := int(asInt64(arr[1]))
	pttl := time.Duration(asInt64(arr[2])) * time.Millisecond
	return decide(allowed, count, limit, pttl)
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
