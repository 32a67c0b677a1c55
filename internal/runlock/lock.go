// Package runlock guards a pipeline run against concurrent duplicate
// invocations. The run record is only written after completion, so two
// callers racing on the same run id would otherwise both pass the
// idempotency check and create duplicate tracker issues.
package runlock

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a crashed run can hold its lock.
const DefaultTTL = 15 * time.Minute

// Locker takes per-run advisory locks in redis via SETNX.
type Locker struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewLocker connects to redis and pings it before returning.
func NewLocker(addr, password string, db int, ttl time.Duration) (*Locker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	log.Printf("Connected to run-lock store at %s", addr)
	return &Locker{rdb: rdb, ttl: ttl}, nil
}

func lockKey(runID string) string {
	return fmt.Sprintf("ticketrun:lock:%s", runID)
}

// Acquire claims the lock for runID. Returns false when another invocation
// already holds it.
func (l *Locker) Acquire(ctx context.Context, runID string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, lockKey(runID), time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock for %s: %w", runID, err)
	}
	return ok, nil
}

// Release drops the lock for runID.
func (l *Locker) Release(ctx context.Context, runID string) error {
	if err := l.rdb.Del(ctx, lockKey(runID)).Err(); err != nil {
		return fmt.Errorf("failed to release run lock for %s: %w", runID, err)
	}
	return nil
}

// Close closes the redis connection.
func (l *Locker) Close() error {
	return l.rdb.Close()
}
