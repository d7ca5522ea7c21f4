package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/parleyhq/parley/pkg/adapters/memory"
	"github.com/parleyhq/parley/pkg/domain"
	"github.com/parleyhq/parley/pkg/ports"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLoadOrStartCreatesOnce(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	snap, err := mgr.LoadOrStart(ctx, "s1", "onboarding", "init_greeting")
	require.NoError(t, err)
	assert.Equal(t, "onboarding", snap.Stage)
	assert.Equal(t, "init_greeting", snap.State)

	// The session was persisted, so a second call loads instead of resetting.
	snap.State = "ask_name"
	require.NoError(t, mgr.Save(ctx, "s1", snap))

	again, err := mgr.LoadOrStart(ctx, "s1", "onboarding", "init_greeting")
	require.NoError(t, err)
	assert.Equal(t, "ask_name", again.State)
}

func TestLoadMissingSession(t *testing.T) {
	mgr := NewManager(memory.NewStore())

	_, err := mgr.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestDeleteAndList(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	_, err := mgr.LoadOrStart(ctx, "a", "onboarding", "init_greeting")
	require.NoError(t, err)
	_, err = mgr.LoadOrStart(ctx, "b", "onboarding", "init_greeting")
	require.NoError(t, err)

	require.NoError(t, mgr.Delete(ctx, "a"))

	ids, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestWithLockSerializesAccess(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	const workers = 20
	counter := 0

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = mgr.WithLock(ctx, "shared", func(ctx context.Context) error {
				// Unsynchronized increment: only safe if WithLock serializes.
				v := counter
				time.Sleep(time.Millisecond)
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestWithLockGarbageCollectsEntries(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	require.NoError(t, mgr.WithLock(ctx, "gc-me", func(ctx context.Context) error { return nil }))

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	assert.Empty(t, mgr.locks, "lock entries are released at zero references")
}

// failingLocker always refuses the distributed lock.
type failingLocker struct{}

func (failingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	return nil, errors.New("redis unavailable")
}

func TestWithLockPropagatesLockerFailure(t *testing.T) {
	mgr := NewManager(memory.NewStore(), WithLocker(failingLocker{}))

	called := false
	err := mgr.WithLock(context.Background(), "s1", func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called, "critical section must not run without the lock")
}
