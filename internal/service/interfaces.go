package service

import (
	"context"

	"github.com/wfunc/galaxy-explorer/internal/catalog"
	"github.com/wfunc/galaxy-explorer/internal/game"
	"github.com/wfunc/galaxy-explorer/internal/models"
)

// AuthService 认证服务接口
type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
}

// UserService 用户资料服务接口
type UserService interface {
	GetProfile(ctx context.Context, userID string) (*PlayerProfile, error)
	UpdateNickname(ctx context.Context, userID, nickname string) (*models.User, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

// GameService 游戏进度服务接口
// 校验拒绝通过 Outcome 返回，error 只表示会话或存储不可用
type GameService interface {
	State(ctx context.Context, userID string) (*game.StateView, error)
	Travel(ctx context.Context, userID, bodyID string) (*game.TravelOutcome, error)
	Explore(ctx context.Context, userID, bodyID string) (*game.ExploreOutcome, error)
	Refuel(ctx context.Context, userID, bodyID string) (*game.Outcome, error)
	PurchaseCredits(ctx context.Context, userID string, req *PurchaseRequest) (*game.Outcome, error)
	PurchaseFuel(ctx context.Context, userID string, req *PurchaseRequest) (*game.Outcome, error)
	ClaimFreeCredits(ctx context.Context, userID string) (*game.Outcome, error)

	Catalog() *catalog.Catalog
	Shop() *ShopCatalog
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username        string `json:"username" binding:"required,min=3,max=20"`
	Password        string `json:"password" binding:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
	Nickname        string `json:"nickname"`
	IP              string `json:"-"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	IP       string `json:"-"`
}

// AuthResponse 认证响应
type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	TokenType    string       `json:"token_type"`
}

// TokenClaims 令牌中的玩家信息
type TokenClaims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	SessionID string `json:"session_id"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// PurchaseRequest 购买请求，PackID 和 Amount 二选一
type PurchaseRequest struct {
	PackID string `json:"pack_id"`
	Amount int64  `json:"amount"`
}
