package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	apperrors "github.com/wfunc/galaxy-explorer/internal/errors"
	"github.com/wfunc/galaxy-explorer/internal/models"
	"github.com/wfunc/galaxy-explorer/internal/repository"
	"github.com/wfunc/galaxy-explorer/internal/utils"
	"go.uber.org/zap"
)

// 登录失败锁定
const (
	MaxLoginAttempts = 5
	LoginLockout     = 15 * time.Minute
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// authService 认证服务实现
type authService struct {
	repos      *repository.Manager
	jwtManager *utils.JWTManager
	log        *zap.Logger
	now        func() time.Time
}

// NewAuthService 创建认证服务
func NewAuthService(repos *repository.Manager, jwtManager *utils.JWTManager, log *zap.Logger) AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &authService{
		repos:      repos,
		jwtManager: jwtManager,
		log:        log,
		now:        time.Now,
	}
}

// Register 用户注册
func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := validateRegisterRequest(req); err != nil {
		return nil, err
	}

	exists, err := s.repos.User().ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "查询用户失败")
	}
	if exists {
		return nil, apperrors.New(apperrors.ErrAlreadyExists, "用户名已存在")
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "密码加密失败")
	}

	user := &models.User{
		Username: req.Username,
		Nickname: req.Nickname,
	}
	err = s.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		if err := tx.User().Create(ctx, user); err != nil {
			return err
		}
		return tx.UserAuth().Create(ctx, &models.UserAuth{
			UserID:   user.UserID,
			Password: hashed,
		})
	})
	if err != nil {
		s.log.Error("创建用户失败", zap.String("username", req.Username), zap.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert, "创建用户失败")
	}

	s.log.Info("用户注册成功",
		zap.String("user_id", user.UserID),
		zap.String("username", user.Username))
	return s.issueTokens(user)
}

// Login 用户登录
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	user, err := s.repos.User().FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.log.Warn("登录失败: 用户不存在", zap.String("username", req.Username))
			return nil, apperrors.New(apperrors.ErrAuthentication, "用户名或密码错误")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "查询用户失败")
	}
	if !user.CanLogin() {
		return nil, apperrors.New(apperrors.ErrAuthorization, "用户已被封禁")
	}

	auth, err := s.repos.UserAuth().FindByUserID(ctx, user.UserID)
	if err != nil {
		s.log.Error("获取认证信息失败", zap.String("user_id", user.UserID), zap.Error(err))
		return nil, apperrors.New(apperrors.ErrAuthentication, "用户名或密码错误")
	}

	if s.locked(auth) {
		return nil, apperrors.New(apperrors.ErrAuthentication, "登录失败次数过多，请稍后再试")
	}

	valid, err := utils.VerifyPassword(req.Password, auth.Password)
	if err != nil || !valid {
		s.log.Warn("登录失败: 密码错误", zap.String("user_id", user.UserID))
		if err := s.repos.UserAuth().UpdateLoginAttempts(ctx, user.UserID, auth.LoginAttempts+1); err != nil {
			s.log.Error("记录登录失败次数失败", zap.Error(err))
		}
		return nil, apperrors.New(apperrors.ErrAuthentication, "用户名或密码错误")
	}

	if auth.LoginAttempts > 0 {
		_ = s.repos.UserAuth().ResetLoginAttempts(ctx, user.UserID)
	}
	if err := s.repos.User().UpdateLastLogin(ctx, user.UserID, req.IP); err != nil {
		s.log.Warn("更新登录信息失败", zap.Error(err))
	}
	user.UpdateLoginInfo(req.IP)

	s.log.Info("用户登录成功",
		zap.String("user_id", user.UserID),
		zap.String("username", user.Username))
	return s.issueTokens(user)
}

// locked 连续失败达到上限且仍在锁定期内
func (s *authService) locked(auth *models.UserAuth) bool {
	if auth.LoginAttempts < MaxLoginAttempts || auth.LastAttemptAt == nil {
		return false
	}
	return s.now().Sub(*auth.LastAttemptAt) < LoginLockout
}

// RefreshToken 刷新令牌
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwtManager.ValidateToken(refreshToken)
	if err != nil {
		return nil, tokenError(err)
	}
	if claims.TokenType != utils.TokenTypeRefresh {
		return nil, apperrors.New(apperrors.ErrTokenInvalid, "不是刷新令牌")
	}

	user, err := s.repos.User().FindByUserID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrAuthentication, "用户不存在")
	}
	if !user.CanLogin() {
		return nil, apperrors.New(apperrors.ErrAuthorization, "用户已被封禁")
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.UserID, user.Username, claims.SessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "生成访问令牌失败")
	}

	s.log.Info("刷新令牌", zap.String("user_id", user.UserID))
	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.GetTokenExpiry(utils.TokenTypeAccess).Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// ValidateToken 验证访问令牌
func (s *authService) ValidateToken(ctx context.Context, token string) (*TokenClaims, error) {
	claims, err := s.jwtManager.ValidateAccessToken(token)
	if err != nil {
		return nil, tokenError(err)
	}
	return &TokenClaims{
		UserID:    claims.UserID,
		Username:  claims.Username,
		SessionID: claims.SessionID,
		IssuedAt:  claims.IssuedAt.Unix(),
		ExpiresAt: claims.ExpiresAt.Unix(),
	}, nil
}

func (s *authService) issueTokens(user *models.User) (*AuthResponse, error) {
	sessionID, err := utils.GenerateSessionID()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "生成会话ID失败")
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.UserID, user.Username, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "生成访问令牌失败")
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.UserID, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "生成刷新令牌失败")
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.GetTokenExpiry(utils.TokenTypeAccess).Seconds()),
		TokenType:    "Bearer",
	}, nil
}

func tokenError(err error) error {
	if errors.Is(err, utils.ErrExpiredToken) {
		return apperrors.New(apperrors.ErrTokenExpired)
	}
	return apperrors.Wrap(err, apperrors.ErrTokenInvalid)
}

// validateRegisterRequest 验证注册请求
func validateRegisterRequest(req *RegisterRequest) error {
	if !usernamePattern.MatchString(req.Username) {
		return apperrors.New(apperrors.ErrInvalidParam, "用户名须为3-20位字母、数字或下划线")
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return apperrors.New(apperrors.ErrInvalidParam, err.Error())
	}
	if req.Password != req.ConfirmPassword {
		return apperrors.New(apperrors.ErrInvalidParam, "两次输入的密码不一致")
	}
	return nil
}
