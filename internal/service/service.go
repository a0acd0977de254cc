package service

import (
	"time"

	"github.com/wfunc/galaxy-explorer/internal/config"
	"github.com/wfunc/galaxy-explorer/internal/game"
	"github.com/wfunc/galaxy-explorer/internal/repository"
	"github.com/wfunc/galaxy-explorer/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Config 服务配置
type Config struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		JWTSecret:          "change-me",
		AccessTokenExpiry:  72 * time.Hour,
		RefreshTokenExpiry: 30 * 24 * time.Hour,
	}
}

// ConfigFromSecurity 从安全配置构建
func ConfigFromSecurity(sec *config.SecurityConfig) *Config {
	c := DefaultConfig()
	if sec.JWT.Secret != "" {
		c.JWTSecret = sec.JWT.Secret
	}
	if sec.JWT.ExpireHours > 0 {
		c.AccessTokenExpiry = time.Duration(sec.JWT.ExpireHours) * time.Hour
	}
	if sec.JWT.RefreshExpireHours > 0 {
		c.RefreshTokenExpiry = time.Duration(sec.JWT.RefreshExpireHours) * time.Hour
	}
	return c
}

// Services 服务集合
type Services struct {
	Auth AuthService
	User UserService
	Game GameService
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, sessions *game.SessionManager, config *Config, log *zap.Logger) *Services {
	jwtManager := utils.NewJWTManager(
		config.JWTSecret,
		config.AccessTokenExpiry,
		config.RefreshTokenExpiry,
	)

	repos := repository.NewManager(db)
	return &Services{
		Auth: NewAuthService(repos, jwtManager, log),
		User: NewUserService(repos, log),
		Game: NewGameService(sessions, DefaultShop(), log),
	}
}
