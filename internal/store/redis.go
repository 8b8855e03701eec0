package store

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Druk83/TrainingGround-sub001/internal/obs"
)

// Lua keeps read-check-increment a single step on the Redis side, so two
// racing requests can never both consume the last slot of a window.
var fixedWindowScript = goredis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

local current = redis.call('GET', key)

if current == false then
    redis.call('SET', key, 1, 'EX', window)
    return 1
end

current = tonumber(current)

if current >= limit then
    return 0
end

redis.call('INCR', key)
return 1
`)

var cappedIncrScript = goredis.NewScript(`
local key = KEYS[1]
local max = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = redis.call('GET', key)

if current == false then
    current = 0
else
    current = tonumber(current)
end

if current >= max then
    return current + 1
end

redis.call('INCR', key)
redis.call('EXPIRE', key, ttl)

return current + 1
`)

// Redis implements KV on a shared Redis instance.
type Redis struct {
	client  *goredis.Client
	metrics *obs.Metrics // optional
}

func NewRedis(client *goredis.Client, metrics *obs.Metrics) *Redis {
	return &Redis{client: client, metrics: metrics}
}

func (r *Redis) observe(op string, start time.Time) {
	if r.metrics == nil {
		return
	}
	r.metrics.StoreOpLatencyMS.WithLabelValues(op).Observe(float64(time.Since(start).Milliseconds()))
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	defer r.observe("get", time.Now())

	val, err := r.client.Get(ctx, key).Result()
	if err == goredis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return val, nil
}

func (r *Redis) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	defer r.observe("set", time.Now())

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) Del(ctx context.Context, key string) error {
	defer r.observe("del", time.Now())

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) FixedWindowIncr(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	defer r.observe("quota", time.Now())

	allowed, err := fixedWindowScript.Run(
		ctx,
		r.client,
		[]string{key},
		limit,
		int(window.Seconds()),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return allowed == 1, nil
}

func (r *Redis) CappedIncr(ctx context.Context, key string, max int, ttl time.Duration) (int64, error) {
	defer r.observe("capped_incr", time.Now())

	count, err := cappedIncrScript.Run(
		ctx,
		r.client,
		[]string{key},
		max,
		int(ttl.Seconds()),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, nil
}

func (r *Redis) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	defer r.observe("incr", time.Now())

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return incr.Val(), nil
}
