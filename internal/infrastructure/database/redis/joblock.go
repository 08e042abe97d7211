package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/plasmodock/plasmodock/internal/infrastructure/monitoring/logging"
	"github.com/plasmodock/plasmodock/pkg/errors"
)

// unlockScript releases a lock only when the caller still owns it, so
// a worker whose lock expired mid-run cannot release another worker's
// acquisition.
var unlockScript = goredis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// JobLocker hands out per-job execution locks keyed by the job's ID.
// A redelivered queue message that fails to acquire the lock is a
// duplicate and must be dropped, not retried.
type JobLocker struct {
	client *Client
	ttl    time.Duration
	logger logging.Logger
}

func NewJobLocker(client *Client, ttl time.Duration, log logging.Logger) *JobLocker {
	return &JobLocker{client: client, ttl: ttl, logger: log.Named("joblock")}
}

// JobLock is one acquired lock.  Release is safe to call even after the
// TTL expired.
type JobLock struct {
	locker *JobLocker
	key    string
	token  string
}

// Acquire takes the execution lock for jobID.  The second return is
// false when another worker already holds it.
func (l *JobLocker) Acquire(ctx context.Context, jobID uuid.UUID) (*JobLock, bool, error) {
	key := l.client.key("locks", "job", jobID.String())
	token := uuid.NewString()

	ok, err := l.client.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to acquire job lock")
	}
	if !ok {
		return nil, false, nil
	}
	return &JobLock{locker: l, key: key, token: token}, true, nil
}

// Release gives the lock back.  Losing the lock to TTL expiry before
// release is logged, not an error.
func (lk *JobLock) Release(ctx context.Context) error {
	res, err := unlockScript.Run(ctx, lk.locker.client.rdb, []string{lk.key}, lk.token).Result()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to release job lock")
	}
	if res.(int64) == 0 {
		lk.locker.logger.Warn("job lock expired before release", logging.String("key", lk.key))
	}
	return nil
}
