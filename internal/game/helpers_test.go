package game

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/galaxy-explorer/internal/catalog"
	"go.uber.org/zap"
)

var testStart = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// fakeClock 可控时钟，hold 不为空时 Sleep 会阻塞直到收到信号
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	hold    chan struct{}
	entered chan struct{}
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	hold, entered := c.hold, c.entered
	c.mu.Unlock()

	if hold != nil {
		entered <- struct{}{}
		<-hold
	}
	c.Advance(d)
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// blockSleeps 让后续 Sleep 阻塞，返回进入通知和放行通道
func (c *fakeClock) blockSleeps() (entered <-chan struct{}, release chan<- struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hold = make(chan struct{})
	c.entered = make(chan struct{}, 1)
	return c.entered, c.hold
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type recordedEvent struct {
	UserID  string
	Event   string
	Payload interface{}
}

// recordingNotifier 记录推送事件
type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) Notify(userID string, event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{UserID: userID, Event: event, Payload: payload})
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	names := make([]string, 0, len(n.events))
	for _, e := range n.events {
		names = append(names, e.Event)
	}
	return names
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New("earth", []catalog.Body{
		{ID: "earth", Name: "Earth", TravelCost: 0, RefuelCost: 30, MaxDiscoveries: 5,
			DiscoveryPool: []string{"Humans", "Dolphins"}},
		{ID: "mars", Name: "Mars", TravelCost: 200, RefuelCost: 40, MaxDiscoveries: 8,
			DiscoveryPool: []string{"Martian Bacteria", "Cave Crystals"}},
		{ID: "mercury", Name: "Mercury", TravelCost: 300, RefuelCost: 50, MaxDiscoveries: 3,
			DiscoveryPool: []string{"Heat Spores", "Iron Crystals", "Shadow Ice"}},
		{ID: "venus", Name: "Venus", TravelCost: 250, RefuelCost: 35, MaxDiscoveries: 2},
	})
	require.NoError(t, err)
	return cat
}

func testRules() Rules {
	rules := DefaultRules()
	rules.Location = time.UTC
	return rules
}

type engineFixture struct {
	engine   *Engine
	gateway  *MemoryGateway
	clock    *fakeClock
	notifier *recordingNotifier
	catalog  *catalog.Catalog
}

func newFixture(t *testing.T, state *GameState, tweak func(*Rules)) *engineFixture {
	t.Helper()
	rules := testRules()
	if tweak != nil {
		tweak(&rules)
	}
	f := &engineFixture{
		gateway:  NewMemoryGateway(),
		clock:    newFakeClock(testStart),
		notifier: &recordingNotifier{},
		catalog:  testCatalog(t),
	}
	engine, err := NewEngine(EngineConfig{
		UserID:   "u1",
		Catalog:  f.catalog,
		Gateway:  f.gateway,
		Rules:    rules,
		Clock:    f.clock,
		Rand:     rand.New(rand.NewSource(42)),
		Notifier: f.notifier,
		Logger:   zap.NewNop(),
	}, state)
	require.NoError(t, err)
	f.engine = engine
	return f
}

func defaultState() *GameState {
	return NewGameState(testRules(), "earth")
}
