package game

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/galaxy-explorer/internal/catalog"
	apperrors "github.com/wfunc/galaxy-explorer/internal/errors"
	"go.uber.org/zap"
)

// SessionManager 玩家引擎管理器，每个用户一个引擎
type SessionManager struct {
	mu             sync.RWMutex
	engines        map[string]*Engine
	logger         *zap.Logger
	gateway        Gateway
	catalog        *catalog.Catalog
	rules          Rules
	clock          Clock
	notifier       Notifier
	sessionTimeout time.Duration
	maxSessions    int
}

// SessionConfig 会话管理器配置
type SessionConfig struct {
	Logger         *zap.Logger
	Gateway        Gateway
	Catalog        *catalog.Catalog
	Rules          Rules
	Clock          Clock
	Notifier       Notifier
	SessionTimeout time.Duration
	MaxSessions    int
}

// NewSessionManager 创建会话管理器
func NewSessionManager(config *SessionConfig) *SessionManager {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := config.Clock
	if clock == nil {
		clock = SystemClock
	}
	return &SessionManager{
		engines:        make(map[string]*Engine),
		logger:         logger,
		gateway:        config.Gateway,
		catalog:        config.Catalog,
		rules:          config.Rules,
		clock:          clock,
		notifier:       config.Notifier,
		sessionTimeout: config.SessionTimeout,
		maxSessions:    config.MaxSessions,
	}
}

// Get 获取内存中的引擎
func (sm *SessionManager) Get(userID string) (*Engine, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	e, ok := sm.engines[userID]
	return e, ok
}

// Acquire 获取玩家引擎，不在内存时加载存档，首次进入时创建默认存档
// 返回前刷新活跃时间，清理任务不会回收刚取出的引擎
func (sm *SessionManager) Acquire(ctx context.Context, userID string) (*Engine, error) {
	if e, ok := sm.getAndTouch(userID); ok {
		return e, nil
	}

	sm.mu.RLock()
	full := sm.maxSessions > 0 && len(sm.engines) >= sm.maxSessions
	sm.mu.RUnlock()
	if full {
		return nil, apperrors.New(apperrors.ErrSessionLimit)
	}

	state, err := sm.loadOrProvision(ctx, userID)
	if err != nil {
		return nil, err
	}

	engine, err := NewEngine(EngineConfig{
		UserID:   userID,
		Catalog:  sm.catalog,
		Gateway:  sm.gateway,
		Rules:    sm.rules,
		Clock:    sm.clock,
		Rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		Notifier: sm.notifier,
		Logger:   sm.logger,
	}, state)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "创建引擎失败")
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	// 并发加载时保留先注册的引擎
	if existing, ok := sm.engines[userID]; ok {
		existing.touch()
		return existing, nil
	}
	if sm.maxSessions > 0 && len(sm.engines) >= sm.maxSessions {
		return nil, apperrors.New(apperrors.ErrSessionLimit)
	}
	sm.engines[userID] = engine

	sm.logger.Info("加载玩家引擎",
		zap.String("user_id", userID),
		zap.Int("active", len(sm.engines)))
	return engine, nil
}

func (sm *SessionManager) getAndTouch(userID string) (*Engine, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	e, ok := sm.engines[userID]
	if ok {
		e.touch()
	}
	return e, ok
}

// loadOrProvision 读取存档，不存在时写入默认状态
func (sm *SessionManager) loadOrProvision(ctx context.Context, userID string) (*GameState, error) {
	ctx, cancel := sm.persistContext(ctx)
	defer cancel()

	state, err := sm.gateway.LoadSnapshot(ctx, userID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, ErrSnapshotNotFound) {
		sm.logger.Error("加载存档失败", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrPersistence, "加载存档失败")
	}

	state = NewGameState(sm.rules, sm.catalog.Home())
	if err := sm.gateway.Provision(ctx, userID, state); err != nil {
		sm.logger.Error("创建初始存档失败", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrPersistence, "创建初始存档失败")
	}

	sm.logger.Info("创建初始存档",
		zap.String("user_id", userID),
		zap.Int64("credits", state.Credits),
		zap.String("body_id", state.CurrentBodyID))
	return state, nil
}

func (sm *SessionManager) persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if sm.rules.PersistTimeout > 0 {
		return context.WithTimeout(ctx, sm.rules.PersistTimeout)
	}
	return context.WithCancel(ctx)
}

// CleanupInactive 清理不活跃的引擎，返回清理数量
// 每次操作后存档都已写入，停用后直接丢弃即可
func (sm *SessionManager) CleanupInactive(ctx context.Context) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.clock.Now()
	removed := 0
	for userID, e := range sm.engines {
		inactive := now.Sub(e.LastActivity())
		if e.Retire(now, sm.sessionTimeout) {
			delete(sm.engines, userID)
			removed++
			sm.logger.Info("清理超时引擎",
				zap.String("user_id", userID),
				zap.Duration("inactive", inactive))
		}
	}
	return removed
}

// StartCleanupTask 启动清理任务
func (sm *SessionManager) StartCleanupTask(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				sm.logger.Info("停止会话清理任务")
				return
			case <-ticker.C:
				sm.CleanupInactive(ctx)
			}
		}
	}()
}

// ActiveSessions 获取活跃引擎数
func (sm *SessionManager) ActiveSessions() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.engines)
}

// Catalog 星图
func (sm *SessionManager) Catalog() *catalog.Catalog {
	return sm.catalog
}
