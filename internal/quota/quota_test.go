package quota_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Druk83/TrainingGround-sub001/internal/quota"
	"github.com/Druk83/TrainingGround-sub001/internal/store"
)

func TestAdmitUpToLimit(t *testing.T) {
	e := quota.NewEnforcer(store.NewMemory(), 2, 100, time.Minute, nil)
	ctx := context.Background()

	require.NoError(t, e.Check(ctx, quota.ScopeUser, "u1"))
	require.NoError(t, e.Check(ctx, quota.ScopeUser, "u1"))

	err := e.Check(ctx, quota.ScopeUser, "u1")
	require.True(t, quota.IsDenied(err))

	var qe *quota.Error
	require.ErrorAs(t, err, &qe)
	require.Equal(t, quota.ScopeUser, qe.Scope)
}

func TestNoOverAdmissionUnderRace(t *testing.T) {
	const limit = 5
	const attempts = 40

	e := quota.NewEnforcer(store.NewMemory(), limit, 1000, time.Minute, nil)
	ctx := context.Background()

	var admitted int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if err := e.Check(ctx, quota.ScopeUser, "u1"); err == nil {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}

	close(start)
	wg.Wait()

	require.EqualValues(t, limit, admitted)
}

func TestWindowReset(t *testing.T) {
	kv := store.NewMemory()
	now := time.Now()
	kv.Now = func() time.Time { return now }

	e := quota.NewEnforcer(kv, 2, 100, time.Minute, nil)
	ctx := context.Background()

	require.NoError(t, e.Check(ctx, quota.ScopeUser, "u1"))
	require.NoError(t, e.Check(ctx, quota.ScopeUser, "u1"))
	require.True(t, quota.IsDenied(e.Check(ctx, quota.ScopeUser, "u1")))

	now = now.Add(61 * time.Second)

	// A new window starts fresh.
	require.NoError(t, e.Check(ctx, quota.ScopeUser, "u1"))
}

func TestScopesAreIndependent(t *testing.T) {
	e := quota.NewEnforcer(store.NewMemory(), 1, 2, time.Minute, nil)
	ctx := context.Background()

	// Exhaust the user scope.
	require.NoError(t, e.Check(ctx, quota.ScopeUser, "u1"))
	require.True(t, quota.IsDenied(e.Check(ctx, quota.ScopeUser, "u1")))

	// The origin scope still has budget.
	require.NoError(t, e.Check(ctx, quota.ScopeIP, "10.0.0.1"))
	require.NoError(t, e.Check(ctx, quota.ScopeIP, "10.0.0.1"))
	require.True(t, quota.IsDenied(e.Check(ctx, quota.ScopeIP, "10.0.0.1")))

	// A different identity behind the same origin is unaffected by u1.
	require.NoError(t, e.Check(ctx, quota.ScopeUser, "u2"))
}

func TestCheckRequestOrdersScopes(t *testing.T) {
	e := quota.NewEnforcer(store.NewMemory(), 1, 10, time.Minute, nil)
	ctx := context.Background()

	require.NoError(t, e.CheckRequest(ctx, "u1", "10.0.0.1"))

	// Second request fails at the user scope before touching the IP scope.
	err := e.CheckRequest(ctx, "u1", "10.0.0.1")
	var qe *quota.Error
	require.ErrorAs(t, err, &qe)
	require.Equal(t, quota.ScopeUser, qe.Scope)

	// Anonymous requests are only held to the origin budget. One slot was
	// already used by the first successful request above.
	for i := 0; i < 9; i++ {
		require.NoError(t, e.CheckRequest(ctx, "", "10.0.0.1"))
	}
	err = e.CheckRequest(ctx, "", "10.0.0.1")
	require.ErrorAs(t, err, &qe)
	require.Equal(t, quota.ScopeIP, qe.Scope)
}

func TestUnknownScope(t *testing.T) {
	e := quota.NewEnforcer(store.NewMemory(), 1, 1, time.Minute, nil)

	err := e.Check(context.Background(), quota.Scope("admin"), "u1")
	require.Error(t, err)
	require.False(t, quota.IsDenied(err))
	require.False(t, errors.Is(err, store.ErrUnavailable))
}
