package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JovSele/patentapi/internal/ratelimit/domain"
)

const (
	redisKeyPrefix = "patentapi:ratelimit:"
	monthLayout    = "2006-01"

	// Windows linger long enough to cover the longest month plus the
	// grace before a client returns.
	redisWindowTTL = 62 * 24 * time.Hour
)

// admitScript resets the hash when the month rolled over, then increments
// the counter only while it is under the limit. Running it as a script
// keeps check and increment atomic.
var admitScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'window')
if current ~= ARGV[1] then
	redis.call('DEL', KEYS[1])
	redis.call('HSET', KEYS[1], 'window', ARGV[1], 'count', 0)
end
redis.call('HSET', KEYS[1], 'tier', ARGV[4])
redis.call('EXPIRE', KEYS[1], ARGV[3])
local limit = tonumber(ARGV[2])
local count = tonumber(redis.call('HGET', KEYS[1], 'count') or '0')
if limit > 0 and count >= limit then
	return {0, count}
end
count = redis.call('HINCRBY', KEYS[1], 'count', 1)
return {1, count}
`)

// RedisStore counts windows in Redis so that quotas are shared between
// instances without touching the primary database on every request.
type RedisStore struct {
	rdb redis.Scripter
}

// NewRedisStore creates a store backed by the given Redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Admit counts one request against the client's current month.
func (s *RedisStore) Admit(ctx context.Context, clientKey string, tier domain.Tier, limit int64, now time.Time) (domain.AdmitResult, error) {
	start := domain.MonthStart(now)
	key := redisKeyPrefix + clientKey

	res, err := admitScript.Run(ctx, s.rdb,
		[]string{key},
		start.Format(monthLayout),
		limit,
		int64(redisWindowTTL.Seconds()),
		string(tier),
	).Result()
	if err != nil {
		return domain.AdmitResult{}, err
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return domain.AdmitResult{}, fmt.Errorf("unexpected admit script reply: %v", res)
	}
	allowed, _ := vals[0].(int64)
	count, _ := vals[1].(int64)

	return domain.AdmitResult{
		Allowed:     allowed == 1,
		Count:       count,
		WindowStart: start,
	}, nil
}
