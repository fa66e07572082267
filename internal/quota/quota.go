// Package quota implements the daily discount quota counter (R2 rule): one
// Redis integer per calendar day, expiring at the next local midnight. It is
// the only shared resource concurrent transactions contend on, so every
// mutation is an atomic increment or decrement, never a read-then-write.
package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/clinic-booking-saga/internal/config"
)

const quotaKeyPrefix = "quota:discount:"

// Arbiter arbitrates discount quota slots between concurrent reservers.
type Arbiter struct {
	rdb *redis.Client
	cfg config.Config
}

// NewArbiter returns an Arbiter bound to the given Redis client.
func NewArbiter(rdb *redis.Client, cfg config.Config) *Arbiter {
	return &Arbiter{rdb: rdb, cfg: cfg}
}

// Key returns today's counter key in the configured timezone. Compensation
// uses the key recorded on the transaction instead of recomputing it, because
// the release may run after the midnight rollover.
func (a *Arbiter) Key() string {
	return quotaKeyPrefix + a.cfg.Today()
}

// Reserve atomically increments today's counter and returns the
// post-increment value together with the key that was touched. The increment
// commits unconditionally: callers that find the returned count over the cap
// must release through compensation. On the counter's first write of the day
// its expiry is set to the next local midnight, so the counter resets itself
// without an explicit cleanup job.
func (a *Arbiter) Reserve(ctx context.Context) (int64, string, error) {
	key := a.Key()
	count, err := a.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, "", fmt.Errorf("reserve quota: %w", err)
	}
	ttl, err := a.rdb.TTL(ctx, key).Result()
	if err == nil && ttl < 0 {
		// Fresh counter: no expiry set yet.
		if err := a.rdb.Expire(ctx, key, a.cfg.MidnightTTL()).Err(); err != nil {
			return count, key, fmt.Errorf("set quota expiry: %w", err)
		}
	}
	return count, key, nil
}

// Release decrements the counter identified by key, clamping at zero if a
// stray release would drive it negative. An empty key falls back to today's
// counter.
func (a *Arbiter) Release(ctx context.Context, key string) error {
	if key == "" {
		key = a.Key()
	}
	count, err := a.rdb.Decr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("release quota: %w", err)
	}
	if count < 0 {
		if err := a.rdb.Set(ctx, key, 0, redis.KeepTTL).Err(); err != nil {
			return fmt.Errorf("clamp quota at zero: %w", err)
		}
	}
	return nil
}

// Count returns today's counter value; a missing counter reads as zero.
func (a *Arbiter) Count(ctx context.Context) (int64, error) {
	count, err := a.rdb.Get(ctx, a.Key()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read quota: %w", err)
	}
	return count, nil
}

// Reset deletes today's counter. Test hook only.
func (a *Arbiter) Reset(ctx context.Context) error {
	if err := a.rdb.Del(ctx, a.Key()).Err(); err != nil {
		return fmt.Errorf("reset quota: %w", err)
	}
	return nil
}

// SetCount forces today's counter to a specific value with the usual midnight
// expiry. Test hook only.
func (a *Arbiter) SetCount(ctx context.Context, count int64) error {
	if err := a.rdb.Set(ctx, a.Key(), count, a.cfg.MidnightTTL()).Err(); err != nil {
		return fmt.Errorf("set quota: %w", err)
	}
	return nil
}
