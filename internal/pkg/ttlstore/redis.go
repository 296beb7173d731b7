package ttlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// admitScript implements Admitter. KEYS: lock, cooloff, counter.
// ARGV: max requests, window ms, lock ms. Returns the Decision value.
var admitScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 1
end
local count = tonumber(redis.call('GET', KEYS[3]) or '0')
if count >= tonumber(ARGV[1]) then
	redis.call('SET', KEYS[1], 'true', 'PX', ARGV[3])
	return 1
end
if redis.call('EXISTS', KEYS[2]) == 1 then
	return 2
end
redis.call('INCR', KEYS[3])
if redis.call('PTTL', KEYS[3]) < 0 then
	redis.call('PEXPIRE', KEYS[3], ARGV[2])
end
return 0
`)

// Redis is a Store and Admitter backed by go-redis.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis wraps client.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttlstore: non-positive ttl %s for %q", ttl, key)
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

// TTL implements Store.
//
// PTTL answers -2 for a missing key and -1 for a key without expiry; both
// are reported as not found.
func (r *Redis) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	d, err := r.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, false, err
	}
	if d <= 0 {
		return 0, false, nil
	}
	return d, true, nil
}

// DeleteAll implements Store with a single DEL.
func (r *Redis) DeleteAll(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// Admit implements Admitter.
func (r *Redis) Admit(ctx context.Context, req AdmitRequest) (Decision, error) {
	if req.MaxRequests <= 0 || req.Window <= 0 || req.LockFor <= 0 {
		return Admitted, fmt.Errorf("ttlstore: invalid admit request %+v", req)
	}

	res, err := admitScript.Run(ctx, r.client,
		[]string{req.LockKey, req.CooloffKey, req.CounterKey},
		req.MaxRequests, req.Window.Milliseconds(), req.LockFor.Milliseconds(),
	).Int()
	if err != nil {
		return Admitted, err
	}

	switch d := Decision(res); d {
	case Admitted, Locked, CoolingOff:
		return d, nil
	default:
		return Admitted, fmt.Errorf("ttlstore: unexpected admit result %d", res)
	}
}

// Ping checks that the server answers.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
