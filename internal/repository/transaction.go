package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// TransactionManager 事务管理器接口
type TransactionManager interface {
	// Begin 开始事务
	Begin(ctx context.Context) (*Transaction, error)
	// WithTransaction 在事务中执行函数
	WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error
	// WithRetry 带重试的事务执行
	WithRetry(ctx context.Context, maxRetries int, fn func(tx *Transaction) error) error
}

// Transaction 事务包装器
type Transaction struct {
	tx         *gorm.DB
	ctx        context.Context
	committed  bool
	rolledback bool

	user        UserRepository
	userAuth    UserAuthRepository
	profile     ProfileRepository
	snapshot    SnapshotRepository
	exploration ExplorationRepository
}

// txManager 事务管理器实现
type txManager struct {
	db *gorm.DB
}

// NewTransactionManager 创建事务管理器
func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &txManager{db: db}
}

// Begin 开始事务
func (m *txManager) Begin(ctx context.Context) (*Transaction, error) {
	tx := m.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &Transaction{
		tx:  tx,
		ctx: ctx,
	}, nil
}

// WithTransaction 在事务中执行函数
func (m *txManager) WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if !tx.committed && !tx.rolledback {
			tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// WithRetry 带重试的事务执行
func (m *txManager) WithRetry(ctx context.Context, maxRetries int, fn func(tx *Transaction) error) error {
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := m.WithTransaction(ctx, fn)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryableError(err) || ctx.Err() != nil {
			return err
		}
	}

	return fmt.Errorf("事务执行失败，已重试%d次: %w", maxRetries, lastErr)
}

// Commit 提交事务
func (t *Transaction) Commit() error {
	if t.committed {
		return fmt.Errorf("事务已提交")
	}
	if t.rolledback {
		return fmt.Errorf("事务已回滚")
	}

	if err := t.tx.Commit().Error; err != nil {
		return err
	}

	t.committed = true
	return nil
}

// Rollback 回滚事务
func (t *Transaction) Rollback() error {
	if t.committed {
		return fmt.Errorf("事务已提交，无法回滚")
	}
	if t.rolledback {
		return fmt.Errorf("事务已回滚")
	}

	if err := t.tx.Rollback().Error; err != nil {
		return err
	}

	t.rolledback = true
	return nil
}

// GetDB 获取事务中的数据库实例
func (t *Transaction) GetDB() *gorm.DB {
	return t.tx
}

// User 获取事务中的用户仓储
func (t *Transaction) User() UserRepository {
	if t.user == nil {
		t.user = NewUserRepository(t.tx)
	}
	return t.user
}

// UserAuth 获取事务中的用户认证仓储
func (t *Transaction) UserAuth() UserAuthRepository {
	if t.userAuth == nil {
		t.userAuth = NewUserAuthRepository(t.tx)
	}
	return t.userAuth
}

// Profile 获取事务中的玩家资料仓储
func (t *Transaction) Profile() ProfileRepository {
	if t.profile == nil {
		t.profile = NewProfileRepository(t.tx)
	}
	return t.profile
}

// Snapshot 获取事务中的存档仓储
func (t *Transaction) Snapshot() SnapshotRepository {
	if t.snapshot == nil {
		t.snapshot = NewSnapshotRepository(t.tx)
	}
	return t.snapshot
}

// Exploration 获取事务中的探索次数仓储
func (t *Transaction) Exploration() ExplorationRepository {
	if t.exploration == nil {
		t.exploration = NewExplorationRepository(t.tx)
	}
	return t.exploration
}

// isRetryableError 判断错误是否可重试
func isRetryableError(err error) bool {
	msg := err.Error()
	for _, s := range []string{"Deadlock", "deadlock detected", "database is locked", "SQLITE_BUSY"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return strings.Contains(msg, "connection") && strings.Contains(msg, "timeout")
}
