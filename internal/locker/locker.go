package locker

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// SelectionLocker serializes bid submission per selection across service
// instances using a redis advisory lock. The Postgres row lock inside the bid
// repository is the correctness guarantee; this lock just keeps instances
// from piling up on the same row. A nil *SelectionLocker is valid and locks
// nothing, so the service runs without redis configured.
type SelectionLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

// ErrLockBusy is returned when the per-selection lock could not be obtained
// within the retry window.
var ErrLockBusy = errors.New("selection is locked by another submission")

// New connects to redis and returns a SelectionLocker, or nil (and no error)
// when addr is empty.
func New(ctx context.Context, addr string, ttl time.Duration) (*SelectionLocker, error) {
	if addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &SelectionLocker{client: redislock.New(rdb), ttl: ttl}, nil
}

// Acquire takes the lock for the given selection and returns a release
// function. On a nil locker it returns a no-op release.
func (l *SelectionLocker) Acquire(ctx context.Context, selectionID string) (func(), error) {
	if l == nil {
		return func() {}, nil
	}

	lock, err := l.client.Obtain(ctx, "selection:"+selectionID, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 10),
	})
	if err == redislock.ErrNotObtained {
		return nil, ErrLockBusy
	}
	if err != nil {
		return nil, err
	}
	return func() { _ = lock.Release(context.Background()) }, nil
}
