// Package limiter counts failed PIN checks per user in Redis.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/hourbank/internal/common"
	"github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps Redis failures.
var ErrUnavailable = errors.New("attempt limiter unavailable")

// PinAttempts is a fixed-window counter: the first failure opens a window of
// the configured length, and once max failures are recorded every check fails
// until the window expires.
type PinAttempts struct {
	redis  redis.Cmdable
	max    int64
	window time.Duration
}

func NewPinAttempts(client redis.Cmdable, max int, window time.Duration) *PinAttempts {
	return &PinAttempts{redis: client, max: int64(max), window: window}
}

func (l *PinAttempts) key(userID string) string {
	return "hourbank:pin-attempts:" + userID
}

// Check fails with common.ErrTooManyAttempts when the user is locked out.
func (l *PinAttempts) Check(ctx context.Context, userID string) error {
	count, err := l.redis.Get(ctx, l.key(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count >= l.max {
		return common.ErrTooManyAttempts
	}
	return nil
}

// RecordFailure counts one failed PIN check. It returns
// common.ErrTooManyAttempts once the limit is reached.
func (l *PinAttempts) RecordFailure(ctx context.Context, userID string) error {
	key := l.key(userID)

	// SET NX EX opens the window with its TTL in one command, so the counter
	// can never exist without an expiry.
	var incr *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, l.window)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if incr.Val() >= l.max {
		return common.ErrTooManyAttempts
	}
	return nil
}

// Reset clears the counter after a successful verification.
func (l *PinAttempts) Reset(ctx context.Context, userID string) error {
	if err := l.redis.Del(ctx, l.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
