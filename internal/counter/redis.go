package counter

import (
	"context"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mgn-dev/alx-backend/internal/domain"
)

var _ Store = (*Redis)(nil)

// Scripts run server-side so the read-check-write is one atomic step
// even with many API processes sharing the counter.
var (
	decrIfPositive = goredis.NewScript(`
local v = tonumber(redis.call('GET', KEYS[1]) or '0')
if v >= 1 then
  v = v - 1
  redis.call('SET', KEYS[1], v)
  return {1, v}
end
return {0, v}`)

	incrWithCeiling = goredis.NewScript(`
local v = tonumber(redis.call('GET', KEYS[1]) or '0')
local ceiling = tonumber(ARGV[1])
if v < ceiling then
  v = v + 1
  redis.call('SET', KEYS[1], v)
  return {1, v}
end
return {0, v}`)
)

// Redis implements Store on a shared Redis instance.
type Redis struct {
	rdb *goredis.Client
}

// NewRedis returns a Redis-backed counter store. The caller owns the
// client lifecycle.
func NewRedis(rdb *goredis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Get(ctx context.Context, key string) (int64, error) {
	v, err := r.rdb.Get(ctx, key).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(domain.ErrStoreUnavailable, "get %s: %v", key, err)
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key string, value int64) error {
	if err := r.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return errors.Wrapf(domain.ErrStoreUnavailable, "set %s: %v", key, err)
	}
	return nil
}

func (r *Redis) DecrIfPositive(ctx context.Context, key string) (int64, bool, error) {
	return r.runScript(ctx, decrIfPositive, key)
}

func (r *Redis) IncrWithCeiling(ctx context.Context, key string, ceiling int64) (int64, bool, error) {
	return r.runScript(ctx, incrWithCeiling, key, ceiling)
}

func (r *Redis) runScript(ctx context.Context, script *goredis.Script, key string, args ...any) (int64, bool, error) {
	res, err := script.Run(ctx, r.rdb, []string{key}, args...).Result()
	if err != nil {
		return 0, false, errors.Wrapf(domain.ErrStoreUnavailable, "script on %s: %v", key, err)
	}
	reply, ok := res.([]any)
	if !ok || len(reply) != 2 {
		return 0, false, errors.Errorf("unexpected script reply for %s: %v", key, res)
	}
	applied, _ := reply[0].(int64)
	value, _ := reply[1].(int64)
	return value, applied == 1, nil
}
