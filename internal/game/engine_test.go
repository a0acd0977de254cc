package game

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_TravelSuccess(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	out := f.engine.Travel(ctx, "mars")
	require.True(t, out.Success, out.Message())
	assert.Equal(t, "mars", out.BodyID)
	assert.Equal(t, "Arrived at Mars!", out.Message())
	assert.Nil(t, out.Discovery)

	state := f.engine.Snapshot()
	assert.Equal(t, int64(800), state.Credits)
	assert.Equal(t, 80, state.Fuel)
	assert.Equal(t, "mars", state.CurrentBodyID)
	assert.Equal(t, StatusIdle, f.engine.Status())

	assert.Equal(t, []time.Duration{2 * time.Second}, f.clock.Sleeps())
	assert.Equal(t, 1, f.gateway.SaveCalls())

	saved, err := f.gateway.LoadSnapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, state, saved)

	assert.Equal(t, []string{EventTravelStarted, EventTravelFinished, EventStateUpdate}, f.notifier.Events())
}

func TestEngine_TravelRejections(t *testing.T) {
	tests := []struct {
		name   string
		state  func(s *GameState)
		target string
		reason Reason
	}{
		{"unknown body", nil, "pluto", ReasonUnknownBody},
		{"already there", nil, "earth", ReasonAlreadyAtDestination},
		{"insufficient credits", func(s *GameState) { s.Credits = 199 }, "mars", ReasonInsufficientCredits},
		{"insufficient fuel", func(s *GameState) { s.Fuel = 19 }, "mars", ReasonInsufficientFuel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := defaultState()
			if tt.state != nil {
				tt.state(state)
			}
			f := newFixture(t, state, nil)
			before := f.engine.Snapshot()

			out := f.engine.Travel(context.Background(), tt.target)
			assert.False(t, out.Success)
			assert.Equal(t, tt.reason, out.Reason)
			assert.NotEmpty(t, out.Message())

			assert.Equal(t, before, f.engine.Snapshot())
			assert.Zero(t, f.gateway.SaveCalls())
			assert.Empty(t, f.clock.Sleeps())
			assert.Equal(t, StatusIdle, f.engine.Status())
		})
	}
}

func TestEngine_TravelRollbackOnSaveFailure(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.gateway.FailSaves(true)

	out := f.engine.Travel(context.Background(), "mars")
	assert.False(t, out.Success)
	assert.Equal(t, ReasonPersistence, out.Reason)

	state := f.engine.Snapshot()
	assert.Equal(t, int64(1000), state.Credits)
	assert.Equal(t, 100, state.Fuel)
	assert.Equal(t, "earth", state.CurrentBodyID)
	assert.Equal(t, StatusIdle, f.engine.Status())
}

func TestEngine_TravelIgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := f.engine.Travel(ctx, "mars")
	require.True(t, out.Success)
	assert.Equal(t, "mars", f.engine.Snapshot().CurrentBodyID)
}

func TestEngine_BusyWhileTraveling(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	entered, release := f.clock.blockSleeps()

	done := make(chan TravelOutcome, 1)
	go func() {
		done <- f.engine.Travel(ctx, "mars")
	}()
	<-entered

	assert.Equal(t, StatusTraveling, f.engine.Status())
	view := f.engine.View()
	assert.Equal(t, "mars", view.TravelTarget)
	require.NotNil(t, view.ArriveAt)
	assert.Equal(t, testStart.Add(2*time.Second), *view.ArriveAt)

	assert.Equal(t, ReasonBusy, f.engine.Travel(ctx, "mercury").Reason)
	assert.Equal(t, ReasonBusy, f.engine.Explore(ctx, "earth").Reason)
	assert.Equal(t, ReasonBusy, f.engine.Refuel(ctx, "earth").Reason)
	assert.Equal(t, ReasonBusy, f.engine.PurchaseCredits(ctx, 10).Reason)
	assert.Equal(t, ReasonBusy, f.engine.PurchaseFuel(ctx, 10).Reason)
	assert.Equal(t, ReasonBusy, f.engine.ClaimFreeCredits(ctx).Reason)
	assert.Zero(t, f.gateway.SaveCalls())

	close(release)
	out := <-done
	require.True(t, out.Success)
	assert.Equal(t, StatusIdle, f.engine.Status())
	assert.Equal(t, int64(800), f.engine.Snapshot().Credits)
	assert.Equal(t, 1, f.gateway.SaveCalls())
}

func TestEngine_TravelWithAutoExplore(t *testing.T) {
	f := newFixture(t, nil, func(r *Rules) { r.AutoExploreOnArrival = true })

	out := f.engine.Travel(context.Background(), "mars")
	require.True(t, out.Success)
	require.NotNil(t, out.Discovery)
	assert.True(t, out.Discovery.Success)
	assert.Equal(t, "Martian Bacteria", out.Discovery.DiscoveryName)
	assert.Contains(t, out.Message(), "Discovered Martian Bacteria!")

	state := f.engine.Snapshot()
	assert.Equal(t, 1, state.ExplorationCount("mars"))
	assert.Equal(t, 1, state.TotalDiscoveries)
	assert.Equal(t, 800+out.Discovery.CreditsEarned, state.Credits)
	assert.Equal(t, 1, f.gateway.ExplorationCount("u1", "mars"))
	assert.Equal(t, 1, f.gateway.SaveCalls())
}

func TestEngine_ExploreSuccess(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	first := f.engine.Explore(ctx, "mars")
	require.True(t, first.Success)
	assert.Equal(t, "Martian Bacteria", first.DiscoveryName)
	assert.GreaterOrEqual(t, first.CreditsEarned, int64(50))
	assert.LessOrEqual(t, first.CreditsEarned, int64(149))
	assert.Empty(t, first.Warning)

	second := f.engine.Explore(ctx, "mars")
	require.True(t, second.Success)
	assert.Equal(t, "Cave Crystals", second.DiscoveryName)

	third := f.engine.Explore(ctx, "mars")
	require.True(t, third.Success)
	assert.Equal(t, "Unknown Species", third.DiscoveryName)

	state := f.engine.Snapshot()
	assert.Equal(t, 3, state.ExplorationCount("mars"))
	assert.Equal(t, 3, state.TotalDiscoveries)
	assert.Equal(t, 1000+first.CreditsEarned+second.CreditsEarned+third.CreditsEarned, state.Credits)
	assert.Equal(t, 3, f.gateway.ExplorationCount("u1", "mars"))
	assert.Equal(t, "earth", state.CurrentBodyID)
}

func TestEngine_ExploreFullyExplored(t *testing.T) {
	state := defaultState()
	state.ExplorationCounts["mercury"] = 3
	state.TotalDiscoveries = 3
	f := newFixture(t, state, nil)
	before := f.engine.Snapshot()

	out := f.engine.Explore(context.Background(), "mercury")
	assert.False(t, out.Success)
	assert.Equal(t, ReasonFullyExplored, out.Reason)
	assert.Zero(t, out.CreditsEarned)
	assert.Empty(t, out.DiscoveryName)
	assert.Equal(t, "This planet has been fully explored!", out.Message())

	assert.Equal(t, before, f.engine.Snapshot())
	assert.Zero(t, f.gateway.SaveCalls())
}

func TestEngine_ExploreUnknownBody(t *testing.T) {
	f := newFixture(t, nil, nil)

	out := f.engine.Explore(context.Background(), "pluto")
	assert.False(t, out.Success)
	assert.Equal(t, ReasonUnknownBody, out.Reason)
}

func TestEngine_ExploreRollbackOnSaveFailure(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.gateway.FailSaves(true)

	out := f.engine.Explore(context.Background(), "venus")
	assert.False(t, out.Success)
	assert.Equal(t, ReasonPersistence, out.Reason)
	assert.Zero(t, out.CreditsEarned)

	state := f.engine.Snapshot()
	assert.Equal(t, int64(1000), state.Credits)
	assert.Zero(t, state.ExplorationCount("venus"))
	assert.Zero(t, state.TotalDiscoveries)
	assert.Zero(t, f.gateway.ExplorationCount("u1", "venus"))
}

func TestEngine_ExploreCountWriteFailureIsWarning(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.gateway.FailExplorationWrites(true)
	ctx := context.Background()

	out := f.engine.Explore(ctx, "venus")
	require.True(t, out.Success)
	assert.NotEmpty(t, out.Warning)
	assert.Equal(t, "Unknown Species", out.DiscoveryName)

	state := f.engine.Snapshot()
	assert.Equal(t, 1, state.ExplorationCount("venus"))

	saved, err := f.gateway.LoadSnapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, saved.ExplorationCount("venus"))
	assert.Zero(t, f.gateway.ExplorationCount("u1", "venus"))
}

func TestEngine_Refuel(t *testing.T) {
	t.Run("insufficient credits", func(t *testing.T) {
		state := defaultState()
		state.Credits = 10
		state.Fuel = 50
		f := newFixture(t, state, nil)

		out := f.engine.Refuel(context.Background(), "venus")
		assert.False(t, out.Success)
		assert.Equal(t, ReasonInsufficientCredits, out.Reason)
		assert.Equal(t, "Insufficient credits for refueling!", out.Message())

		after := f.engine.Snapshot()
		assert.Equal(t, int64(10), after.Credits)
		assert.Equal(t, 50, after.Fuel)
	})

	t.Run("tank full regardless of credits", func(t *testing.T) {
		state := defaultState()
		state.Credits = 0
		f := newFixture(t, state, nil)

		out := f.engine.Refuel(context.Background(), "venus")
		assert.False(t, out.Success)
		assert.Equal(t, ReasonTankFull, out.Reason)
		assert.Equal(t, "Fuel tank is already full!", out.Message())
	})

	t.Run("success", func(t *testing.T) {
		state := defaultState()
		state.Fuel = 50
		f := newFixture(t, state, nil)

		out := f.engine.Refuel(context.Background(), "venus")
		require.True(t, out.Success)
		assert.Equal(t, int64(50), out.Amount)

		after := f.engine.Snapshot()
		assert.Equal(t, int64(965), after.Credits)
		assert.Equal(t, 100, after.Fuel)
	})

	t.Run("rollback", func(t *testing.T) {
		state := defaultState()
		state.Fuel = 50
		f := newFixture(t, state, nil)
		f.gateway.FailSaves(true)

		out := f.engine.Refuel(context.Background(), "venus")
		assert.Equal(t, ReasonPersistence, out.Reason)
		after := f.engine.Snapshot()
		assert.Equal(t, int64(1000), after.Credits)
		assert.Equal(t, 50, after.Fuel)
	})
}

func TestEngine_PurchaseFuel(t *testing.T) {
	state := defaultState()
	state.Fuel = 90
	f := newFixture(t, state, nil)
	ctx := context.Background()

	out := f.engine.PurchaseFuel(ctx, 30)
	require.True(t, out.Success)
	assert.Equal(t, int64(10), out.Amount)
	assert.Equal(t, 100, f.engine.Snapshot().Fuel)

	out = f.engine.PurchaseFuel(ctx, 25)
	require.True(t, out.Success)
	assert.Zero(t, out.Amount)
	assert.Equal(t, "Fuel tank is already full!", out.Message())

	for _, amount := range []int{0, -5} {
		out = f.engine.PurchaseFuel(ctx, amount)
		assert.False(t, out.Success)
		assert.Equal(t, ReasonInvalidAmount, out.Reason)
	}

	out = f.engine.PurchaseFuel(ctx, math.MaxInt)
	require.True(t, out.Success)
	assert.Equal(t, 100, f.engine.Snapshot().Fuel)
}

func TestEngine_PurchaseCredits(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	out := f.engine.PurchaseCredits(ctx, 2500)
	require.True(t, out.Success)
	assert.Equal(t, "Purchased 2500 credits!", out.Message())
	assert.Equal(t, int64(3500), f.engine.Snapshot().Credits)

	out = f.engine.PurchaseCredits(ctx, 0)
	assert.Equal(t, ReasonInvalidAmount, out.Reason)

	out = f.engine.PurchaseCredits(ctx, math.MaxInt64)
	assert.Equal(t, ReasonInvalidAmount, out.Reason)
	assert.Equal(t, int64(3500), f.engine.Snapshot().Credits)

	f.gateway.FailSaves(true)
	out = f.engine.PurchaseCredits(ctx, 100)
	assert.Equal(t, ReasonPersistence, out.Reason)
	assert.Equal(t, int64(3500), f.engine.Snapshot().Credits)
}

func TestEngine_CreditLimitLeavesRoomForRewards(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	rules := testRules()

	headroom := rules.creditHeadroom(1000)
	out := f.engine.PurchaseCredits(ctx, headroom+1)
	assert.Equal(t, ReasonInvalidAmount, out.Reason)

	require.True(t, f.engine.PurchaseCredits(ctx, headroom).Success)
	assert.Equal(t, MaxCredits-rules.RewardMax, f.engine.Snapshot().Credits)

	explore := f.engine.Explore(ctx, "mars")
	require.True(t, explore.Success, explore.Message())
	assert.NoError(t, f.engine.Snapshot().CheckInvariants(f.catalog))
}

func TestEngine_CreditLimitRejectsRewards(t *testing.T) {
	state := defaultState()
	state.Credits = MaxCredits - 10
	f := newFixture(t, state, nil)
	ctx := context.Background()

	explore := f.engine.Explore(ctx, "mars")
	assert.False(t, explore.Success)
	assert.Equal(t, ReasonCreditLimit, explore.Reason)
	assert.Equal(t, "Credit balance is at its limit!", explore.Message())

	claim := f.engine.ClaimFreeCredits(ctx)
	assert.Equal(t, ReasonCreditLimit, claim.Reason)

	after := f.engine.Snapshot()
	assert.Equal(t, MaxCredits-10, after.Credits)
	assert.Zero(t, after.ExplorationCount("mars"))
	assert.Nil(t, after.LastFreeCreditsClaimAt)
	assert.Zero(t, f.gateway.SaveCalls())
}

func TestEngine_ConcurrentExploreAtCap(t *testing.T) {
	state := defaultState()
	state.ExplorationCounts["mercury"] = 2
	state.TotalDiscoveries = 2
	f := newFixture(t, state, nil)
	f.gateway.SetDelay(5 * time.Millisecond)
	ctx := context.Background()

	const workers = 20
	results := make(chan ExploreOutcome, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- f.engine.Explore(ctx, "mercury")
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for out := range results {
		if out.Success {
			wins++
			assert.Equal(t, "Shadow Ice", out.DiscoveryName)
			continue
		}
		assert.Equal(t, ReasonFullyExplored, out.Reason)
		assert.Zero(t, out.CreditsEarned)
	}
	assert.Equal(t, 1, wins)

	after := f.engine.Snapshot()
	assert.Equal(t, 3, after.ExplorationCount("mercury"))
	assert.Equal(t, 3, after.TotalDiscoveries)
	assert.Equal(t, 3, f.gateway.ExplorationCount("u1", "mercury"))
	assert.Equal(t, 1, f.gateway.SaveCalls())
}

func TestEngine_ClaimFreeCredits(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	assert.True(t, f.engine.CanClaimFreeCredits())

	out := f.engine.ClaimFreeCredits(ctx)
	require.True(t, out.Success)
	assert.Equal(t, "Received 100 free credits!", out.Message())
	assert.Equal(t, int64(1100), f.engine.Snapshot().Credits)
	assert.False(t, f.engine.CanClaimFreeCredits())

	f.clock.Set(time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC))
	out = f.engine.ClaimFreeCredits(ctx)
	assert.False(t, out.Success)
	assert.Equal(t, ReasonAlreadyClaimed, out.Reason)
	assert.Equal(t, int64(1100), f.engine.Snapshot().Credits)

	f.clock.Set(time.Date(2026, 3, 2, 0, 1, 0, 0, time.UTC))
	assert.True(t, f.engine.CanClaimFreeCredits())
	out = f.engine.ClaimFreeCredits(ctx)
	require.True(t, out.Success)
	assert.Equal(t, int64(1200), f.engine.Snapshot().Credits)
}

func TestEngine_ClaimFreeCreditsRollback(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.gateway.FailSaves(true)

	out := f.engine.ClaimFreeCredits(context.Background())
	assert.False(t, out.Success)
	assert.Equal(t, ReasonPersistence, out.Reason)

	state := f.engine.Snapshot()
	assert.Equal(t, int64(1000), state.Credits)
	assert.Nil(t, state.LastFreeCreditsClaimAt)
	assert.True(t, f.engine.CanClaimFreeCredits())
}

func TestEngine_PersistTimeout(t *testing.T) {
	f := newFixture(t, nil, func(r *Rules) { r.PersistTimeout = 10 * time.Millisecond })
	f.gateway.SetDelay(time.Second)

	start := time.Now()
	out := f.engine.PurchaseCredits(context.Background(), 100)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, ReasonPersistence, out.Reason)
	assert.Equal(t, int64(1000), f.engine.Snapshot().Credits)
}

func TestEngine_NormalizesLoadedState(t *testing.T) {
	state := &GameState{
		Credits:           -5,
		Fuel:              250,
		MaxFuel:           100,
		CurrentBodyID:     "atlantis",
		ExplorationCounts: map[string]int{"mercury": 9, "atlantis": 2},
		TotalDiscoveries:  1,
	}
	f := newFixture(t, state, nil)

	got := f.engine.Snapshot()
	assert.Zero(t, got.Credits)
	assert.Equal(t, 100, got.Fuel)
	assert.Equal(t, "earth", got.CurrentBodyID)
	assert.Equal(t, map[string]int{"mercury": 3}, got.ExplorationCounts)
	assert.Equal(t, 3, got.TotalDiscoveries)
	assert.NoError(t, got.CheckInvariants(f.catalog))
}

func TestEngine_SnapshotIsCopy(t *testing.T) {
	f := newFixture(t, nil, nil)

	snap := f.engine.Snapshot()
	snap.Credits = 0
	snap.ExplorationCounts["mars"] = 8

	again := f.engine.Snapshot()
	assert.Equal(t, int64(1000), again.Credits)
	assert.Zero(t, again.ExplorationCount("mars"))
}

// TestEngine_InvariantsHoldForRandomSequences 随机操作序列后不变量始终成立
func TestEngine_InvariantsHoldForRandomSequences(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		f := newFixture(t, nil, func(r *Rules) { r.AutoExploreOnArrival = seed%2 == 0 })
		ctx := context.Background()
		rng := rand.New(rand.NewSource(seed))
		bodies := []string{"earth", "mars", "mercury", "venus", "pluto"}

		for i := 0; i < 300; i++ {
			f.gateway.FailSaves(rng.Intn(10) == 0)
			f.gateway.FailExplorationWrites(rng.Intn(8) == 0)
			body := bodies[rng.Intn(len(bodies))]

			switch rng.Intn(7) {
			case 0:
				f.engine.Travel(ctx, body)
			case 1, 2:
				f.engine.Explore(ctx, body)
			case 3:
				f.engine.Refuel(ctx, body)
			case 4:
				f.engine.PurchaseCredits(ctx, int64(rng.Intn(300)-50))
			case 5:
				f.engine.PurchaseFuel(ctx, rng.Intn(60)-10)
			case 6:
				f.clock.Advance(time.Duration(rng.Intn(30)) * time.Hour)
				f.engine.ClaimFreeCredits(ctx)
			}

			state := f.engine.Snapshot()
			require.NoError(t, state.CheckInvariants(f.catalog), "seed=%d step=%d", seed, i)
		}
	}
}
