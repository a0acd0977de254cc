package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/galaxy-explorer/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 为测试套件设置测试数据库
func SetupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// 内存库每个连接各自独立，限制为单连接
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// TestDB 创建测试数据库并在测试结束时关闭
func TestDB(t *testing.T) *gorm.DB {
	db := SetupTestDB()
	t.Cleanup(func() { CleanupTestDB(db) })
	return db
}

// SeedTestUser 创建测试用户
func SeedTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	user := &models.User{Username: username}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	require.NotEmpty(t, user.UserID)
	return user
}

// AssertSnapshot 验证存档内容
func AssertSnapshot(t *testing.T, expected, actual *models.GameSnapshot) {
	assert.Equal(t, expected.UserID, actual.UserID)
	assert.Equal(t, expected.Credits, actual.Credits)
	assert.Equal(t, expected.Fuel, actual.Fuel)
	assert.Equal(t, expected.MaxFuel, actual.MaxFuel)
	assert.Equal(t, expected.CurrentPlanet, actual.CurrentPlanet)
	assert.Equal(t, expected.TotalDiscoveries, actual.TotalDiscoveries)
}
