package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/galaxy-explorer/internal/logger"
	"github.com/wfunc/galaxy-explorer/internal/models"
	"github.com/wfunc/galaxy-explorer/internal/repository"
	"gorm.io/gorm"
)

// ErrSnapshotNotFound 用户尚无存档
var ErrSnapshotNotFound = errors.New("存档不存在")

// Gateway 存档持久化接口
type Gateway interface {
	// LoadSnapshot 加载存档，不存在时返回 ErrSnapshotNotFound
	LoadSnapshot(ctx context.Context, userID string) (*GameState, error)
	// SaveSnapshot 整体覆盖写入存档，可重复调用
	SaveSnapshot(ctx context.Context, userID string, state *GameState) error
	// RecordExplorationCount 写入单个星球的探索次数
	RecordExplorationCount(ctx context.Context, userID, bodyID string, count int) error
	// Provision 首次进入时创建存档，已存在则不覆盖
	Provision(ctx context.Context, userID string, state *GameState) error
}

// MemoryGateway 内存存档（用于测试），支持故障注入
type MemoryGateway struct {
	mu           sync.RWMutex
	snapshots    map[string]*GameState
	explorations map[string]map[string]int

	failSaves             bool
	failExplorationWrites bool
	failLoads             bool
	delay                 time.Duration
	saveCalls             int
}

// NewMemoryGateway 创建内存存档
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		snapshots:    make(map[string]*GameState),
		explorations: make(map[string]map[string]int),
	}
}

// FailSaves 设置存档写入是否失败
func (g *MemoryGateway) FailSaves(fail bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failSaves = fail
}

// FailExplorationWrites 设置探索次数写入是否失败
func (g *MemoryGateway) FailExplorationWrites(fail bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failExplorationWrites = fail
}

// FailLoads 设置加载是否失败
func (g *MemoryGateway) FailLoads(fail bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failLoads = fail
}

// SetDelay 设置每次写入的延迟
func (g *MemoryGateway) SetDelay(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.delay = d
}

// SaveCalls 存档写入次数
func (g *MemoryGateway) SaveCalls() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.saveCalls
}

// ExplorationCount 读取探索次数记录
func (g *MemoryGateway) ExplorationCount(userID, bodyID string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.explorations[userID][bodyID]
}

func (g *MemoryGateway) wait(ctx context.Context) error {
	g.mu.RLock()
	delay := g.delay
	g.mu.RUnlock()
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// LoadSnapshot 加载存档
func (g *MemoryGateway) LoadSnapshot(ctx context.Context, userID string) (*GameState, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.failLoads {
		return nil, errors.New("模拟加载失败")
	}
	state, ok := g.snapshots[userID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return state.Clone(), nil
}

// SaveSnapshot 保存存档
func (g *MemoryGateway) SaveSnapshot(ctx context.Context, userID string, state *GameState) error {
	if err := g.wait(ctx); err != nil {
		return fmt.Errorf("保存存档超时: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.saveCalls++
	if g.failSaves {
		return errors.New("模拟存档失败")
	}
	g.snapshots[userID] = state.Clone()
	return nil
}

// RecordExplorationCount 写入探索次数
func (g *MemoryGateway) RecordExplorationCount(ctx context.Context, userID, bodyID string, count int) error {
	if err := g.wait(ctx); err != nil {
		return fmt.Errorf("写入探索次数超时: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failExplorationWrites {
		return errors.New("模拟探索次数写入失败")
	}
	if g.explorations[userID] == nil {
		g.explorations[userID] = make(map[string]int)
	}
	g.explorations[userID][bodyID] = count
	return nil
}

// Provision 首次创建存档
func (g *MemoryGateway) Provision(ctx context.Context, userID string, state *GameState) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failSaves {
		return errors.New("模拟存档失败")
	}
	if _, ok := g.snapshots[userID]; !ok {
		g.snapshots[userID] = state.Clone()
	}
	return nil
}

// DatabaseGateway 数据库存档
type DatabaseGateway struct {
	repos *repository.Manager
}

// NewDatabaseGateway 创建数据库存档
func NewDatabaseGateway(db *gorm.DB) *DatabaseGateway {
	return &DatabaseGateway{
		repos: repository.NewManager(db),
	}
}

// LoadSnapshot 读取存档并合并各星球探索次数
func (g *DatabaseGateway) LoadSnapshot(ctx context.Context, userID string) (*GameState, error) {
	snapshot, err := g.repos.Snapshot().FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrSnapshotNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("查询存档失败: %w", err)
	}

	rows, err := g.repos.Exploration().ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("查询探索记录失败: %w", err)
	}

	state := &GameState{
		Credits:                snapshot.Credits,
		Fuel:                   snapshot.Fuel,
		MaxFuel:                snapshot.MaxFuel,
		CurrentBodyID:          snapshot.CurrentPlanet,
		ExplorationCounts:      make(map[string]int, len(rows)),
		TotalDiscoveries:       snapshot.TotalDiscoveries,
		LastFreeCreditsClaimAt: snapshot.LastFreeCreditsAt,
	}
	for _, row := range rows {
		if row.DiscoveriesCount > 0 {
			state.ExplorationCounts[row.PlanetID] = row.DiscoveriesCount
		}
	}
	return state, nil
}

// SaveSnapshot 在一个事务内写入存档、玩家资料和探索次数
func (g *DatabaseGateway) SaveSnapshot(ctx context.Context, userID string, state *GameState) error {
	start := time.Now()
	err := g.repos.Transaction().WithRetry(ctx, 3, func(tx *repository.Transaction) error {
		return writeState(ctx, tx, userID, state)
	})
	logger.LogDatabaseOperation("save_snapshot", "game_snapshots", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("保存存档失败: %w", err)
	}
	return nil
}

// RecordExplorationCount 写入单个星球探索次数
func (g *DatabaseGateway) RecordExplorationCount(ctx context.Context, userID, bodyID string, count int) error {
	start := time.Now()
	err := g.repos.Exploration().SetCount(ctx, userID, bodyID, count)
	logger.LogDatabaseOperation("record_exploration", "planet_explorations", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("写入探索次数失败: %w", err)
	}
	return nil
}

// Provision 不存在存档时写入初始状态
func (g *DatabaseGateway) Provision(ctx context.Context, userID string, state *GameState) error {
	err := g.repos.Transaction().WithTransaction(ctx, func(tx *repository.Transaction) error {
		_, err := tx.Snapshot().FindByUserID(ctx, userID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrSnapshotNotFound) {
			return err
		}
		return writeState(ctx, tx, userID, state)
	})
	if err != nil {
		return fmt.Errorf("创建初始存档失败: %w", err)
	}
	return nil
}

func writeState(ctx context.Context, tx *repository.Transaction, userID string, state *GameState) error {
	if err := tx.Snapshot().Upsert(ctx, &models.GameSnapshot{
		UserID:            userID,
		Credits:           state.Credits,
		Fuel:              state.Fuel,
		MaxFuel:           state.MaxFuel,
		CurrentPlanet:     state.CurrentBodyID,
		TotalDiscoveries:  state.TotalDiscoveries,
		LastFreeCreditsAt: state.LastFreeCreditsClaimAt,
	}); err != nil {
		return err
	}

	if err := tx.Profile().Upsert(ctx, &models.PlayerProfile{
		UserID:              userID,
		CurrentCredits:      state.Credits,
		CurrentFuel:         state.Fuel,
		TotalDiscoveries:    state.TotalDiscoveries,
		CurrentPlanet:       state.CurrentBodyID,
		LastFreeCreditsDate: state.LastFreeCreditsClaimAt,
	}); err != nil {
		return err
	}

	for bodyID, count := range state.ExplorationCounts {
		if err := tx.Exploration().SetCount(ctx, userID, bodyID, count); err != nil {
			return err
		}
	}
	return nil
}
