package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

const failureFlagKey = "simulate_failure"

// FailureFlag is the booking failure-simulation toggle, persisted in Redis so
// every instance observes the same setting. It exists for test scenarios
// only; the booking step consults it on each attempt.
type FailureFlag struct {
	rdb *redis.Client
	def bool // value reported when the key is unset or Redis is unreachable
}

// NewFailureFlag returns a flag with the given default, typically taken from
// configuration at startup.
func NewFailureFlag(rdb *redis.Client, def bool) *FailureFlag {
	return &FailureFlag{rdb: rdb, def: def}
}

// Enabled reports whether booking failures are currently simulated. Read
// errors fall back to the configured default rather than failing a booking.
func (f *FailureFlag) Enabled(ctx context.Context) bool {
	v, err := f.rdb.Get(ctx, failureFlagKey).Result()
	if errors.Is(err, redis.Nil) {
		return f.def
	}
	if err != nil {
		log.Printf("failure-flag: read failed: %v", err)
		return f.def
	}
	return v == "1"
}

// Set persists the toggle. No expiry: the flag survives until flipped back.
func (f *FailureFlag) Set(ctx context.Context, enabled bool) error {
	v := "0"
	if enabled {
		v = "1"
	}
	if err := f.rdb.Set(ctx, failureFlagKey, v, 0).Err(); err != nil {
		return fmt.Errorf("set failure flag: %w", err)
	}
	return nil
}
