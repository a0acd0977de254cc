package game

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/galaxy-explorer/internal/catalog"
	"go.uber.org/zap"
)

// 推送事件类型
const (
	EventTravelStarted  = "travel_started"
	EventTravelFinished = "travel_finished"
	EventStateUpdate    = "state_update"
)

// Clock 时间源
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock 系统时钟
var SystemClock Clock = realClock{}

// Notifier 状态变更推送
type Notifier interface {
	Notify(userID string, event string, payload interface{})
}

// EngineConfig 引擎配置
type EngineConfig struct {
	UserID   string
	Catalog  *catalog.Catalog
	Gateway  Gateway
	Rules    Rules
	Clock    Clock
	Rand     *rand.Rand
	Notifier Notifier
	Logger   *zap.Logger
}

// Engine 单个玩家的进度引擎
// 所有修改操作串行执行，航行期间拒绝其他修改
type Engine struct {
	mu sync.Mutex

	userID   string
	state    *GameState
	travel   *StateMachine
	catalog  *catalog.Catalog
	gateway  Gateway
	rules    Rules
	clock    Clock
	rng      *rand.Rand
	notifier Notifier
	logger   *zap.Logger

	// retired 已被会话管理器回收，之后的操作需重新获取引擎
	retired bool

	activityMu   sync.RWMutex
	lastActivity time.Time
}

// StateView 对外展示的引擎状态
type StateView struct {
	State               *GameState   `json:"state"`
	Status              TravelStatus `json:"status"`
	TravelTarget        string       `json:"travel_target,omitempty"`
	ArriveAt            *time.Time   `json:"arrive_at,omitempty"`
	CanClaimFreeCredits bool         `json:"can_claim_free_credits"`
}

// NewEngine 创建引擎，state 为空时使用默认初始状态
func NewEngine(cfg EngineConfig, state *GameState) (*Engine, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("星图不能为空")
	}
	if cfg.Gateway == nil {
		return nil, errors.New("存档接口不能为空")
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Rules.Location == nil {
		cfg.Rules.Location = time.Local
	}

	if state == nil {
		state = NewGameState(cfg.Rules, cfg.Catalog.Home())
	} else {
		state = state.Clone()
	}
	if fixes := state.Normalize(cfg.Catalog, cfg.Rules); len(fixes) > 0 {
		cfg.Logger.Warn("存档数据已修正",
			zap.String("user_id", cfg.UserID),
			zap.Strings("fields", fixes))
	}

	e := &Engine{
		userID:       cfg.UserID,
		state:        state,
		travel:       NewStateMachine(),
		catalog:      cfg.Catalog,
		gateway:      cfg.Gateway,
		rules:        cfg.Rules,
		clock:        cfg.Clock,
		rng:          cfg.Rand,
		notifier:     cfg.Notifier,
		logger:       cfg.Logger.With(zap.String("user_id", cfg.UserID)),
		lastActivity: cfg.Clock.Now(),
	}
	e.travel.OnStateChange(func(from, to TravelStatus) {
		e.logger.Debug("航行状态变更",
			zap.String("from", string(from)),
			zap.String("to", string(to)))
	})
	return e, nil
}

// UserID 玩家标识
func (e *Engine) UserID() string {
	return e.userID
}

// Status 航行状态
func (e *Engine) Status() TravelStatus {
	return e.travel.GetState()
}

// LastActivity 最后一次操作时间
func (e *Engine) LastActivity() time.Time {
	e.activityMu.RLock()
	defer e.activityMu.RUnlock()
	return e.lastActivity
}

func (e *Engine) touch() {
	e.activityMu.Lock()
	e.lastActivity = e.clock.Now()
	e.activityMu.Unlock()
}

// Retire 空闲超过 idle 时停用引擎，返回是否已停用
// 正在执行操作或航行中的引擎不会被停用
func (e *Engine) Retire(now time.Time, idle time.Duration) bool {
	if !e.mu.TryLock() {
		return false
	}
	defer e.mu.Unlock()

	if e.retired {
		return true
	}
	if !e.travel.CanTransition(EventDepart) || now.Sub(e.LastActivity()) <= idle {
		return false
	}
	e.retired = true
	return true
}

// Retired 是否已被停用
func (e *Engine) Retired() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.retired
}

// unavailable 引擎当前不能执行修改操作的原因，调用方持有锁
func (e *Engine) unavailable() Reason {
	switch {
	case e.retired:
		return ReasonSessionExpired
	case !e.travel.CanTransition(EventDepart):
		return ReasonBusy
	}
	return ReasonNone
}

// Snapshot 当前状态的拷贝
func (e *Engine) Snapshot() *GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// View 状态视图
func (e *Engine) View() StateView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

func (e *Engine) viewLocked() StateView {
	view := StateView{
		State:               e.state.Clone(),
		Status:              e.travel.GetState(),
		CanClaimFreeCredits: CanClaimDaily(e.state.LastFreeCreditsClaimAt, e.clock.Now(), e.rules.Location),
	}
	if target, arriveAt := e.travel.Target(); target != "" {
		view.TravelTarget = target
		view.ArriveAt = &arriveAt
	}
	return view
}

// CanClaimFreeCredits 今天是否还能领取免费积分
func (e *Engine) CanClaimFreeCredits() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return CanClaimDaily(e.state.LastFreeCreditsClaimAt, e.clock.Now(), e.rules.Location)
}

// Travel 航行到目标星球
// 航行过程不可取消，期间其他修改操作返回 ReasonBusy
func (e *Engine) Travel(ctx context.Context, targetBodyID string) TravelOutcome {
	e.touch()

	e.mu.Lock()
	if reason := e.unavailable(); reason != ReasonNone {
		e.mu.Unlock()
		return TravelOutcome{Outcome: rejected(OpTravel, reason), BodyID: targetBodyID}
	}
	body, reason := e.checkTravel(targetBodyID)
	if reason != ReasonNone {
		e.mu.Unlock()
		e.logRejected(OpTravel, reason, zap.String("body_id", targetBodyID))
		return TravelOutcome{Outcome: rejected(OpTravel, reason), BodyID: targetBodyID, BodyName: body.Name}
	}
	if err := e.travel.Depart(targetBodyID, e.clock.Now(), e.rules.TravelDuration); err != nil {
		e.mu.Unlock()
		return TravelOutcome{Outcome: rejected(OpTravel, ReasonBusy), BodyID: targetBodyID}
	}
	from := e.state.CurrentBodyID
	e.mu.Unlock()

	e.logger.Info("开始航行",
		zap.String("from", from),
		zap.String("to", targetBodyID),
		zap.Duration("duration", e.rules.TravelDuration))
	e.notify(EventTravelStarted, map[string]interface{}{
		"body_id":     targetBodyID,
		"body_name":   body.Name,
		"duration_ms": e.rules.TravelDuration.Milliseconds(),
	})

	e.clock.Sleep(e.rules.TravelDuration)

	out := e.arrive(context.WithoutCancel(ctx), targetBodyID)
	e.touch()
	e.notify(EventTravelFinished, out)
	e.notify(EventStateUpdate, e.View())
	return out
}

// arrive 到达目的地后结算并保存，无论结果如何都回到停泊状态
func (e *Engine) arrive(ctx context.Context, targetBodyID string) TravelOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		if err := e.travel.Arrive(); err != nil {
			e.logger.Error("结束航行失败", zap.Error(err))
		}
	}()

	body, reason := e.checkTravel(targetBodyID)
	if reason != ReasonNone {
		e.logRejected(OpTravel, reason, zap.String("body_id", targetBodyID))
		return TravelOutcome{Outcome: rejected(OpTravel, reason), BodyID: targetBodyID, BodyName: body.Name}
	}

	next := e.state.Clone()
	next.Credits -= body.TravelCost
	next.Fuel = max(next.Fuel-e.rules.FuelPerTravel, 0)
	next.CurrentBodyID = body.ID

	var discovery *ExploreOutcome
	if e.rules.AutoExploreOnArrival {
		d := e.applyExplore(next, body)
		discovery = &d
	}

	if reason := e.commit(ctx, OpTravel, next); reason != ReasonNone {
		return TravelOutcome{Outcome: rejected(OpTravel, reason), BodyID: targetBodyID, BodyName: body.Name}
	}

	out := TravelOutcome{
		Outcome:   succeeded(OpTravel, body.TravelCost),
		BodyID:    body.ID,
		BodyName:  body.Name,
		Discovery: discovery,
	}
	if discovery != nil && discovery.Success {
		out.Warning = e.recordExploration(ctx, body.ID, next.ExplorationCount(body.ID))
	}
	out.State = next.Clone()

	e.logger.Info("航行完成",
		zap.String("body_id", body.ID),
		zap.Int64("travel_cost", body.TravelCost),
		zap.Int64("credits", next.Credits),
		zap.Int("fuel", next.Fuel))
	return out
}

// checkTravel 航行前置条件，调用方持有锁
func (e *Engine) checkTravel(targetBodyID string) (catalog.Body, Reason) {
	body, ok := e.catalog.Get(targetBodyID)
	switch {
	case !ok:
		return body, ReasonUnknownBody
	case targetBodyID == e.state.CurrentBodyID:
		return body, ReasonAlreadyAtDestination
	case e.state.Credits < body.TravelCost:
		return body, ReasonInsufficientCredits
	case e.state.Fuel < e.rules.FuelPerTravel:
		return body, ReasonInsufficientFuel
	}
	return body, ReasonNone
}

// Explore 探索星球领取发现奖励
func (e *Engine) Explore(ctx context.Context, bodyID string) ExploreOutcome {
	e.touch()

	e.mu.Lock()
	defer e.mu.Unlock()

	if reason := e.unavailable(); reason != ReasonNone {
		return ExploreOutcome{Outcome: rejected(OpExplore, reason), BodyID: bodyID}
	}
	body, ok := e.catalog.Get(bodyID)
	if !ok {
		e.logRejected(OpExplore, ReasonUnknownBody, zap.String("body_id", bodyID))
		return ExploreOutcome{Outcome: rejected(OpExplore, ReasonUnknownBody), BodyID: bodyID}
	}

	next := e.state.Clone()
	out := e.applyExplore(next, body)
	if !out.Success {
		e.logRejected(OpExplore, out.Reason, zap.String("body_id", bodyID))
		return out
	}

	if reason := e.commit(ctx, OpExplore, next); reason != ReasonNone {
		return ExploreOutcome{Outcome: rejected(OpExplore, reason), BodyID: bodyID}
	}
	out.Warning = e.recordExploration(ctx, body.ID, next.ExplorationCount(body.ID))
	out.State = next.Clone()

	e.logger.Info("探索发现",
		zap.String("body_id", body.ID),
		zap.String("discovery", out.DiscoveryName),
		zap.Int64("credits_earned", out.CreditsEarned),
		zap.Int("count", next.ExplorationCount(body.ID)))
	e.notify(EventStateUpdate, e.viewLocked())
	return out
}

// applyExplore 在 s 上执行探索，已探索完毕时不修改
func (e *Engine) applyExplore(s *GameState, body catalog.Body) ExploreOutcome {
	count := s.ExplorationCount(body.ID)
	if count >= body.MaxDiscoveries {
		return ExploreOutcome{Outcome: rejected(OpExplore, ReasonFullyExplored), BodyID: body.ID}
	}
	if s.Credits > MaxCredits-e.rules.RewardMax {
		return ExploreOutcome{Outcome: rejected(OpExplore, ReasonCreditLimit), BodyID: body.ID}
	}

	earned := e.rules.rollReward(e.rng)
	s.ExplorationCounts[body.ID] = count + 1
	s.TotalDiscoveries++
	s.Credits += earned

	return ExploreOutcome{
		Outcome:       succeeded(OpExplore, earned),
		BodyID:        body.ID,
		CreditsEarned: earned,
		DiscoveryName: body.DiscoveryAt(count),
	}
}

// Refuel 在星球补满燃料
func (e *Engine) Refuel(ctx context.Context, bodyID string) Outcome {
	e.touch()

	e.mu.Lock()
	defer e.mu.Unlock()

	if reason := e.unavailable(); reason != ReasonNone {
		return rejected(OpRefuel, reason)
	}
	body, ok := e.catalog.Get(bodyID)
	if !ok {
		e.logRejected(OpRefuel, ReasonUnknownBody, zap.String("body_id", bodyID))
		return rejected(OpRefuel, ReasonUnknownBody)
	}
	if e.state.Fuel >= e.state.MaxFuel {
		e.logRejected(OpRefuel, ReasonTankFull, zap.String("body_id", bodyID))
		return rejected(OpRefuel, ReasonTankFull)
	}
	if e.state.Credits < body.RefuelCost {
		e.logRejected(OpRefuel, ReasonInsufficientCredits, zap.String("body_id", bodyID))
		return rejected(OpRefuel, ReasonInsufficientCredits)
	}

	next := e.state.Clone()
	added := next.MaxFuel - next.Fuel
	next.Credits -= body.RefuelCost
	next.Fuel = next.MaxFuel

	if reason := e.commit(ctx, OpRefuel, next); reason != ReasonNone {
		return rejected(OpRefuel, reason)
	}

	e.logger.Info("补充燃料",
		zap.String("body_id", body.ID),
		zap.Int64("cost", body.RefuelCost),
		zap.Int("added", added))
	return e.finish(OpRefuel, int64(added), next)
}

// PurchaseCredits 购买积分
func (e *Engine) PurchaseCredits(ctx context.Context, amount int64) Outcome {
	e.touch()

	e.mu.Lock()
	defer e.mu.Unlock()

	if reason := e.unavailable(); reason != ReasonNone {
		return rejected(OpPurchaseCredits, reason)
	}
	if amount <= 0 || amount > e.rules.creditHeadroom(e.state.Credits) {
		e.logRejected(OpPurchaseCredits, ReasonInvalidAmount, zap.Int64("amount", amount))
		return rejected(OpPurchaseCredits, ReasonInvalidAmount)
	}

	next := e.state.Clone()
	next.Credits += amount

	if reason := e.commit(ctx, OpPurchaseCredits, next); reason != ReasonNone {
		return rejected(OpPurchaseCredits, reason)
	}

	e.logger.Info("购买积分", zap.Int64("amount", amount), zap.Int64("credits", next.Credits))
	return e.finish(OpPurchaseCredits, amount, next)
}

// PurchaseFuel 购买燃料，超出上限部分截断
func (e *Engine) PurchaseFuel(ctx context.Context, amount int) Outcome {
	e.touch()

	e.mu.Lock()
	defer e.mu.Unlock()

	if reason := e.unavailable(); reason != ReasonNone {
		return rejected(OpPurchaseFuel, reason)
	}
	if amount <= 0 {
		e.logRejected(OpPurchaseFuel, ReasonInvalidAmount, zap.Int("amount", amount))
		return rejected(OpPurchaseFuel, ReasonInvalidAmount)
	}

	next := e.state.Clone()
	next.Fuel = min(next.MaxFuel, next.Fuel+min(amount, next.MaxFuel))
	added := next.Fuel - e.state.Fuel

	if reason := e.commit(ctx, OpPurchaseFuel, next); reason != ReasonNone {
		return rejected(OpPurchaseFuel, reason)
	}

	e.logger.Info("购买燃料", zap.Int("amount", amount), zap.Int("added", added))
	return e.finish(OpPurchaseFuel, int64(added), next)
}

// ClaimFreeCredits 领取每日免费积分
func (e *Engine) ClaimFreeCredits(ctx context.Context) Outcome {
	e.touch()

	e.mu.Lock()
	defer e.mu.Unlock()

	if reason := e.unavailable(); reason != ReasonNone {
		return rejected(OpClaimFreeCredits, reason)
	}
	now := e.clock.Now()
	if !CanClaimDaily(e.state.LastFreeCreditsClaimAt, now, e.rules.Location) {
		e.logRejected(OpClaimFreeCredits, ReasonAlreadyClaimed)
		return rejected(OpClaimFreeCredits, ReasonAlreadyClaimed)
	}

	if e.state.Credits > MaxCredits-e.rules.DailyBonus {
		e.logRejected(OpClaimFreeCredits, ReasonCreditLimit)
		return rejected(OpClaimFreeCredits, ReasonCreditLimit)
	}

	next := e.state.Clone()
	next.Credits += e.rules.DailyBonus
	next.LastFreeCreditsClaimAt = &now

	if reason := e.commit(ctx, OpClaimFreeCredits, next); reason != ReasonNone {
		return rejected(OpClaimFreeCredits, reason)
	}

	e.logger.Info("领取每日积分",
		zap.Int64("bonus", e.rules.DailyBonus),
		zap.String("day", DayKey(now, e.rules.Location)))
	return e.finish(OpClaimFreeCredits, e.rules.DailyBonus, next)
}

func (e *Engine) finish(op Op, amount int64, next *GameState) Outcome {
	out := succeeded(op, amount)
	out.State = next.Clone()
	e.notify(EventStateUpdate, e.viewLocked())
	return out
}

// commit 替换状态并保存，保存失败时恢复原状态，调用方持有锁
func (e *Engine) commit(ctx context.Context, op Op, next *GameState) Reason {
	if err := next.CheckInvariants(e.catalog); err != nil {
		e.logger.Error("状态校验失败", zap.String("op", string(op)), zap.Error(err))
		return ReasonInternal
	}

	prev := e.state
	e.state = next

	saveCtx, cancel := e.persistContext(ctx)
	defer cancel()
	if err := e.gateway.SaveSnapshot(saveCtx, e.userID, next); err != nil {
		e.state = prev
		e.logger.Error("保存存档失败，已回滚",
			zap.String("op", string(op)),
			zap.Error(err))
		return ReasonPersistence
	}
	return ReasonNone
}

// recordExploration 写入单个星球探索次数，失败只返回警告
func (e *Engine) recordExploration(ctx context.Context, bodyID string, count int) string {
	writeCtx, cancel := e.persistContext(ctx)
	defer cancel()
	if err := e.gateway.RecordExplorationCount(writeCtx, e.userID, bodyID, count); err != nil {
		e.logger.Warn("写入探索次数失败",
			zap.String("body_id", bodyID),
			zap.Int("count", count),
			zap.Error(err))
		return "Exploration record could not be saved; progress is kept in your save."
	}
	return ""
}

func (e *Engine) persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.rules.PersistTimeout > 0 {
		return context.WithTimeout(ctx, e.rules.PersistTimeout)
	}
	return context.WithCancel(ctx)
}

func (e *Engine) notify(event string, payload interface{}) {
	if e.notifier != nil {
		e.notifier.Notify(e.userID, event, payload)
	}
}

func (e *Engine) logRejected(op Op, reason Reason, fields ...zap.Field) {
	e.logger.Debug("操作被拒绝",
		append([]zap.Field{zap.String("op", string(op)), zap.String("reason", string(reason))}, fields...)...)
}
