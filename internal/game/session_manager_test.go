package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/galaxy-explorer/internal/errors"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T, gateway *MemoryGateway, clock *fakeClock, maxSessions int) *SessionManager {
	t.Helper()
	return NewSessionManager(&SessionConfig{
		Logger:         zap.NewNop(),
		Gateway:        gateway,
		Catalog:        testCatalog(t),
		Rules:          testRules(),
		Clock:          clock,
		SessionTimeout: 10 * time.Minute,
		MaxSessions:    maxSessions,
	})
}

func TestSessionManager_AcquireProvisions(t *testing.T) {
	gateway := NewMemoryGateway()
	sm := newTestSessionManager(t, gateway, newFakeClock(testStart), 0)
	ctx := context.Background()

	engine, err := sm.Acquire(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", engine.UserID())
	assert.Equal(t, int64(1000), engine.Snapshot().Credits)
	assert.Equal(t, "earth", engine.Snapshot().CurrentBodyID)

	saved, err := gateway.LoadSnapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), saved.Credits)

	again, err := sm.Acquire(ctx, "u1")
	require.NoError(t, err)
	assert.Same(t, engine, again)
	assert.Equal(t, 1, sm.ActiveSessions())
}

func TestSessionManager_AcquireLoadsExisting(t *testing.T) {
	gateway := NewMemoryGateway()
	ctx := context.Background()
	state := NewGameState(testRules(), "earth")
	state.Credits = 42
	state.CurrentBodyID = "mars"
	require.NoError(t, gateway.SaveSnapshot(ctx, "u1", state))

	sm := newTestSessionManager(t, gateway, newFakeClock(testStart), 0)
	engine, err := sm.Acquire(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), engine.Snapshot().Credits)
	assert.Equal(t, "mars", engine.Snapshot().CurrentBodyID)
}

func TestSessionManager_AcquireFailures(t *testing.T) {
	ctx := context.Background()

	gateway := NewMemoryGateway()
	gateway.FailLoads(true)
	sm := newTestSessionManager(t, gateway, newFakeClock(testStart), 0)
	_, err := sm.Acquire(ctx, "u1")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrPersistence, apperrors.GetCode(err))

	gateway = NewMemoryGateway()
	gateway.FailSaves(true)
	sm = newTestSessionManager(t, gateway, newFakeClock(testStart), 0)
	_, err = sm.Acquire(ctx, "u1")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrPersistence, apperrors.GetCode(err))
	assert.Zero(t, sm.ActiveSessions())
}

func TestSessionManager_SessionLimit(t *testing.T) {
	clock := newFakeClock(testStart)
	sm := newTestSessionManager(t, NewMemoryGateway(), clock, 1)
	ctx := context.Background()

	_, err := sm.Acquire(ctx, "u1")
	require.NoError(t, err)

	_, err = sm.Acquire(ctx, "u2")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrSessionLimit, apperrors.GetCode(err))

	clock.Advance(11 * time.Minute)
	assert.Equal(t, 1, sm.CleanupInactive(ctx))
	_, err = sm.Acquire(ctx, "u2")
	require.NoError(t, err)
}

func TestSessionManager_CleanupInactive(t *testing.T) {
	clock := newFakeClock(testStart)
	sm := newTestSessionManager(t, NewMemoryGateway(), clock, 0)
	ctx := context.Background()

	_, err := sm.Acquire(ctx, "idle")
	require.NoError(t, err)
	clock.Advance(8 * time.Minute)
	active, err := sm.Acquire(ctx, "active")
	require.NoError(t, err)
	require.True(t, active.PurchaseCredits(ctx, 1).Success)

	clock.Advance(5 * time.Minute)
	assert.Equal(t, 1, sm.CleanupInactive(ctx))

	_, ok := sm.Get("idle")
	assert.False(t, ok)
	_, ok = sm.Get("active")
	assert.True(t, ok)
}

func TestSessionManager_KeepsTravelingEngines(t *testing.T) {
	clock := newFakeClock(testStart)
	sm := newTestSessionManager(t, NewMemoryGateway(), clock, 0)
	ctx := context.Background()

	engine, err := sm.Acquire(ctx, "u1")
	require.NoError(t, err)

	entered, release := clock.blockSleeps()
	done := make(chan TravelOutcome, 1)
	go func() { done <- engine.Travel(ctx, "mars") }()
	<-entered

	clock.Advance(time.Hour)
	assert.Zero(t, sm.CleanupInactive(ctx))
	assert.False(t, engine.Retired())

	close(release)
	require.True(t, (<-done).Success)

	// 抵达时刷新了活跃时间
	assert.Zero(t, sm.CleanupInactive(ctx))
	clock.Advance(11 * time.Minute)
	assert.Equal(t, 1, sm.CleanupInactive(ctx))
	assert.True(t, engine.Retired())
}

func TestSessionManager_AcquireRefreshesActivity(t *testing.T) {
	clock := newFakeClock(testStart)
	sm := newTestSessionManager(t, NewMemoryGateway(), clock, 0)
	ctx := context.Background()

	first, err := sm.Acquire(ctx, "u1")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	again, err := sm.Acquire(ctx, "u1")
	require.NoError(t, err)
	require.Same(t, first, again)

	assert.Zero(t, sm.CleanupInactive(ctx))
	assert.False(t, first.Retired())
}

func TestSessionManager_RetiredEngineCannotOverwrite(t *testing.T) {
	clock := newFakeClock(testStart)
	gateway := NewMemoryGateway()
	sm := newTestSessionManager(t, gateway, clock, 0)
	ctx := context.Background()

	stale, err := sm.Acquire(ctx, "u1")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	require.Equal(t, 1, sm.CleanupInactive(ctx))

	fresh, err := sm.Acquire(ctx, "u1")
	require.NoError(t, err)
	require.NotSame(t, stale, fresh)

	out := stale.PurchaseCredits(ctx, 500)
	assert.False(t, out.Success)
	assert.Equal(t, ReasonSessionExpired, out.Reason)
	assert.Equal(t, ReasonSessionExpired, stale.Explore(ctx, "mars").Reason)
	assert.Equal(t, ReasonSessionExpired, stale.Travel(ctx, "mars").Reason)

	require.True(t, fresh.PurchaseCredits(ctx, 1).Success)

	saved, err := gateway.LoadSnapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1001), saved.Credits)
	assert.Equal(t, int64(1001), fresh.Snapshot().Credits)
}

func TestSessionManager_CleanupSkipsEngineMidOperation(t *testing.T) {
	clock := newFakeClock(testStart)
	sm := newTestSessionManager(t, NewMemoryGateway(), clock, 0)
	ctx := context.Background()

	engine, err := sm.Acquire(ctx, "u1")
	require.NoError(t, err)

	// 持有引擎锁等同于操作正在执行
	engine.mu.Lock()
	clock.Advance(time.Hour)
	assert.Zero(t, sm.CleanupInactive(ctx))
	engine.mu.Unlock()

	assert.Equal(t, 1, sm.CleanupInactive(ctx))
	assert.True(t, engine.Retired())
}
