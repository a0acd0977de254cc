package repository

import (
	"context"
	"errors"

	"github.com/wfunc/galaxy-explorer/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrProfileNotFound 玩家资料不存在
	ErrProfileNotFound = errors.New("玩家资料不存在")
	// ErrSnapshotNotFound 游戏存档不存在
	ErrSnapshotNotFound = errors.New("游戏存档不存在")
)

// ProfileRepository 玩家资料仓储接口
type ProfileRepository interface {
	BaseRepository
	FindByUserID(ctx context.Context, userID string) (*models.PlayerProfile, error)
	Upsert(ctx context.Context, profile *models.PlayerProfile) error
}

// profileRepo 玩家资料仓储实现
type profileRepo struct {
	*BaseRepo
}

// NewProfileRepository 创建玩家资料仓储
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// FindByUserID 根据用户标识查找资料
func (r *profileRepo) FindByUserID(ctx context.Context, userID string) (*models.PlayerProfile, error) {
	var profile models.PlayerProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// Upsert 按用户标识写入或覆盖资料
func (r *profileRepo) Upsert(ctx context.Context, profile *models.PlayerProfile) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"current_credits",
			"current_fuel",
			"total_discoveries",
			"current_planet",
			"last_free_credits_date",
			"updated_at",
		}),
	}).Create(profile).Error
}

// SnapshotRepository 游戏存档仓储接口
type SnapshotRepository interface {
	BaseRepository
	FindByUserID(ctx context.Context, userID string) (*models.GameSnapshot, error)
	Upsert(ctx context.Context, snapshot *models.GameSnapshot) error
}

// snapshotRepo 游戏存档仓储实现
type snapshotRepo struct {
	*BaseRepo
}

// NewSnapshotRepository 创建游戏存档仓储
func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// FindByUserID 根据用户标识查找存档
func (r *snapshotRepo) FindByUserID(ctx context.Context, userID string) (*models.GameSnapshot, error) {
	var snapshot models.GameSnapshot
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	return &snapshot, nil
}

// Upsert 按用户标识写入或覆盖存档
func (r *snapshotRepo) Upsert(ctx context.Context, snapshot *models.GameSnapshot) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"credits",
			"fuel",
			"max_fuel",
			"current_planet",
			"total_discoveries",
			"last_free_credits_at",
			"updated_at",
		}),
	}).Create(snapshot).Error
}

// ExplorationRepository 星球探索次数仓储接口
type ExplorationRepository interface {
	BaseRepository
	ListByUserID(ctx context.Context, userID string) ([]*models.PlanetExploration, error)
	SetCount(ctx context.Context, userID, planetID string, count int) error
}

// explorationRepo 星球探索次数仓储实现
type explorationRepo struct {
	*BaseRepo
}

// NewExplorationRepository 创建探索次数仓储
func NewExplorationRepository(db *gorm.DB) ExplorationRepository {
	return &explorationRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// ListByUserID 获取用户全部星球的探索次数
func (r *explorationRepo) ListByUserID(ctx context.Context, userID string) ([]*models.PlanetExploration, error) {
	var rows []*models.PlanetExploration
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("planet_id ASC").
		Find(&rows).Error
	return rows, err
}

// SetCount 写入单个星球的探索次数
func (r *explorationRepo) SetCount(ctx context.Context, userID, planetID string, count int) error {
	row := &models.PlanetExploration{
		UserID:           userID,
		PlanetID:         planetID,
		DiscoveriesCount: count,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "planet_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"discoveries_count", "updated_at"}),
	}).Create(row).Error
}
