package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client, "parley:session:"), mr
}

func TestLockerAcquireAndRelease(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "sess-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("parley:session:lock:sess-1"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("parley:session:lock:sess-1"))
}

func TestLockerBlocksUntilReleased(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "sess-1", time.Minute)
	require.NoError(t, err)

	// A second acquisition times out while the lock is held.
	shortCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(shortCtx, "sess-1", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// After release the lock is available again.
	require.NoError(t, unlock(ctx))
	unlock2, err := locker.Lock(ctx, "sess-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLockerReleaseIsScopedToHolder(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "sess-1", time.Minute)
	require.NoError(t, err)

	// Simulate expiry plus takeover by another replica.
	mr.FastForward(2 * time.Minute)
	unlock2, err := locker.Lock(ctx, "sess-1", time.Minute)
	require.NoError(t, err)

	// The stale holder's release must not remove the new lock.
	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("parley:session:lock:sess-1"))

	require.NoError(t, unlock2(ctx))
	assert.False(t, mr.Exists("parley:session:lock:sess-1"))
}
