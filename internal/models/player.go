package models

import (
	"time"
)

// PlayerProfile 玩家资料记录（按用户的资源概览）
type PlayerProfile struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	UserID              string     `gorm:"uniqueIndex;size:36;not null" json:"user_id"`
	CurrentCredits      int64      `gorm:"not null;default:0" json:"current_credits"`
	CurrentFuel         int        `gorm:"not null;default:0" json:"current_fuel"`
	TotalDiscoveries    int        `gorm:"not null;default:0" json:"total_discoveries"`
	CurrentPlanet       string     `gorm:"size:64;not null" json:"current_planet"`
	LastFreeCreditsDate *time.Time `json:"last_free_credits_date,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (PlayerProfile) TableName() string {
	return "player_profiles"
}

// GameSnapshot 游戏存档记录（完整状态，含燃料上限）
type GameSnapshot struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            string     `gorm:"uniqueIndex;size:36;not null" json:"user_id"`
	Credits           int64      `gorm:"not null;default:0" json:"credits"`
	Fuel              int        `gorm:"not null;default:0" json:"fuel"`
	MaxFuel           int        `gorm:"not null" json:"max_fuel"`
	CurrentPlanet     string     `gorm:"size:64;not null" json:"current_planet"`
	TotalDiscoveries  int        `gorm:"not null;default:0" json:"total_discoveries"`
	LastFreeCreditsAt *time.Time `json:"last_free_credits_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (GameSnapshot) TableName() string {
	return "game_snapshots"
}

// PlanetExploration 单个星球的探索次数
type PlanetExploration struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           string    `gorm:"uniqueIndex:idx_user_planet;size:36;not null" json:"user_id"`
	PlanetID         string    `gorm:"uniqueIndex:idx_user_planet;size:64;not null" json:"planet_id"`
	DiscoveriesCount int       `gorm:"not null;default:0" json:"discoveries_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName 指定表名
func (PlanetExploration) TableName() string {
	return "planet_explorations"
}

// AllModels 需要迁移的全部模型
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&UserAuth{},
		&PlayerProfile{},
		&GameSnapshot{},
		&PlanetExploration{},
	}
}
