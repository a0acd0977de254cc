package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db *gorm.DB

	txManager TransactionManager

	userOnce sync.Once
	user     UserRepository

	userAuthOnce sync.Once
	userAuth     UserAuthRepository

	profileOnce sync.Once
	profile     ProfileRepository

	snapshotOnce sync.Once
	snapshot     SnapshotRepository

	explorationOnce sync.Once
	exploration     ExplorationRepository
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB) *Manager {
	return &Manager{
		db:        db,
		txManager: NewTransactionManager(db),
	}
}

// GetDB 获取数据库实例
func (m *Manager) GetDB() *gorm.DB {
	return m.db
}

// Transaction 获取事务管理器
func (m *Manager) Transaction() TransactionManager {
	return m.txManager
}

// User 获取用户仓储
func (m *Manager) User() UserRepository {
	m.userOnce.Do(func() {
		m.user = NewUserRepository(m.db)
	})
	return m.user
}

// UserAuth 获取用户认证仓储
func (m *Manager) UserAuth() UserAuthRepository {
	m.userAuthOnce.Do(func() {
		m.userAuth = NewUserAuthRepository(m.db)
	})
	return m.userAuth
}

// Profile 获取玩家资料仓储
func (m *Manager) Profile() ProfileRepository {
	m.profileOnce.Do(func() {
		m.profile = NewProfileRepository(m.db)
	})
	return m.profile
}

// Snapshot 获取游戏存档仓储
func (m *Manager) Snapshot() SnapshotRepository {
	m.snapshotOnce.Do(func() {
		m.snapshot = NewSnapshotRepository(m.db)
	})
	return m.snapshot
}

// Exploration 获取探索次数仓储
func (m *Manager) Exploration() ExplorationRepository {
	m.explorationOnce.Do(func() {
		m.exploration = NewExplorationRepository(m.db)
	})
	return m.exploration
}

// WithTransaction 在事务中执行操作
func (m *Manager) WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	return m.txManager.WithTransaction(ctx, fn)
}
