// Package idempotency deduplicates retried exam submissions.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-quiz/internal/config"
)

// pendingMarker is stored while the first request for a key is being persisted.
const pendingMarker = "pending"

// Store keeps one record per idempotency key in Redis.
type Store struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewStore creates a Store whose records expire after ttl.
func NewStore(rdb redis.Cmdable, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Reserve claims key for a new submission. When the key was already seen it
// returns acquired=false with the stored exam session ID, or 0 while the first
// request is still pending.
func (s *Store) Reserve(ctx context.Context, key string) (sessionID int64, acquired bool, err error) {
	k := config.CacheKey.SubmissionKey(key)

	ok, err := s.rdb.SetNX(ctx, k, pendingMarker, s.ttl).Result()
	if err != nil {
		return 0, false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return 0, true, nil
	}

	val, err := s.rdb.Get(ctx, k).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired or released between SETNX and GET: try once more.
			ok, err = s.rdb.SetNX(ctx, k, pendingMarker, s.ttl).Result()
			if err != nil {
				return 0, false, fmt.Errorf("reserve idempotency key: %w", err)
			}
			return 0, ok, nil
		}
		return 0, false, fmt.Errorf("read idempotency key: %w", err)
	}
	if val == pendingMarker {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt idempotency record %q: %w", val, err)
	}
	return id, false, nil
}

// Complete records the exam session ID stored for key.
func (s *Store) Complete(ctx context.Context, key string, sessionID int64) error {
	return s.rdb.Set(ctx, config.CacheKey.SubmissionKey(key), sessionID, s.ttl).Err()
}

// Release forgets key so a retry can persist the submission again.
func (s *Store) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, config.CacheKey.SubmissionKey(key)).Err()
}
