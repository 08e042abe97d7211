package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plasmodock/plasmodock/internal/config"
	"github.com/plasmodock/plasmodock/internal/infrastructure/monitoring/logging"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(config.RedisConfig{
		Addr:      mr.Addr(),
		KeyPrefix: "plasmodock",
	}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestJobLockAcquireRelease(t *testing.T) {
	client, mr := newTestClient(t)
	locker := NewJobLocker(client, time.Minute, logging.NewNopLogger())
	ctx := context.Background()

	jobID := uuid.New()
	lock, acquired, err := locker.Acquire(ctx, jobID)
	require.NoError(t, err)
	require.True(t, acquired)

	key := "plasmodock:locks:job:" + jobID.String()
	assert.True(t, mr.Exists(key))

	require.NoError(t, lock.Release(ctx))
	assert.False(t, mr.Exists(key))
}

func TestJobLockDuplicateAcquisitionFails(t *testing.T) {
	client, _ := newTestClient(t)
	locker := NewJobLocker(client, time.Minute, logging.NewNopLogger())
	ctx := context.Background()

	jobID := uuid.New()
	lock, acquired, err := locker.Acquire(ctx, jobID)
	require.NoError(t, err)
	require.True(t, acquired)

	// A redelivered job must see the lock held.
	_, acquired, err = locker.Acquire(ctx, jobID)
	require.NoError(t, err)
	assert.False(t, acquired)

	require.NoError(t, lock.Release(ctx))

	// After release the job can run again.
	_, acquired, err = locker.Acquire(ctx, jobID)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestJobLockReleaseAfterExpiryIsSafe(t *testing.T) {
	client, mr := newTestClient(t)
	locker := NewJobLocker(client, time.Minute, logging.NewNopLogger())
	ctx := context.Background()

	jobID := uuid.New()
	lock, acquired, err := locker.Acquire(ctx, jobID)
	require.NoError(t, err)
	require.True(t, acquired)

	mr.FastForward(2 * time.Minute)

	// Another worker takes the expired lock.
	_, acquired, err = locker.Acquire(ctx, jobID)
	require.NoError(t, err)
	require.True(t, acquired)

	// The first holder's release must not delete the new owner's lock.
	require.NoError(t, lock.Release(ctx))
	assert.True(t, mr.Exists("plasmodock:locks:job:"+jobID.String()))
}

func TestJobLocksAreIndependentPerJob(t *testing.T) {
	client, _ := newTestClient(t)
	locker := NewJobLocker(client, time.Minute, logging.NewNopLogger())
	ctx := context.Background()

	_, acquired, err := locker.Acquire(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, acquired)

	_, acquired, err = locker.Acquire(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, acquired)
}
