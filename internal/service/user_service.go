package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	apperrors "github.com/wfunc/galaxy-explorer/internal/errors"
	"github.com/wfunc/galaxy-explorer/internal/models"
	"github.com/wfunc/galaxy-explorer/internal/repository"
	"github.com/wfunc/galaxy-explorer/internal/utils"
	"go.uber.org/zap"
)

const maxNicknameLength = 30

// PlayerProfile 玩家资料和探索记录
type PlayerProfile struct {
	User         *models.User                `json:"user"`
	Profile      *models.PlayerProfile       `json:"profile,omitempty"`
	Explorations []*models.PlanetExploration `json:"explorations"`
}

// userService 用户服务实现
type userService struct {
	repos *repository.Manager
	log   *zap.Logger
}

// NewUserService 创建用户服务
func NewUserService(repos *repository.Manager, log *zap.Logger) UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &userService{repos: repos, log: log}
}

// GetProfile 获取玩家资料，未开始游戏时 Profile 为空
func (s *userService) GetProfile(ctx context.Context, userID string) (*PlayerProfile, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &PlayerProfile{User: user}
	profile, err := s.repos.Profile().FindByUserID(ctx, userID)
	switch {
	case err == nil:
		out.Profile = profile
	case !errors.Is(err, repository.ErrProfileNotFound):
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "查询玩家资料失败")
	}

	out.Explorations, err = s.repos.Exploration().ListByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "查询探索记录失败")
	}
	return out, nil
}

// UpdateNickname 修改昵称
func (s *userService) UpdateNickname(ctx context.Context, userID, nickname string) (*models.User, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" || utf8.RuneCountInString(nickname) > maxNicknameLength {
		return nil, apperrors.Newf(apperrors.ErrInvalidParam, "昵称长度须为1-%d个字符", maxNicknameLength)
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Nickname = nickname
	if err := s.repos.User().Update(ctx, user); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "更新昵称失败")
	}

	s.log.Info("修改昵称", zap.String("user_id", userID), zap.String("nickname", nickname))
	return user, nil
}

// ChangePassword 修改密码
func (s *userService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if err := utils.ValidatePassword(newPassword); err != nil {
		return apperrors.New(apperrors.ErrInvalidParam, err.Error())
	}

	auth, err := s.repos.UserAuth().FindByUserID(ctx, userID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrNotFound, "认证信息不存在")
	}
	valid, err := utils.VerifyPassword(oldPassword, auth.Password)
	if err != nil || !valid {
		return apperrors.New(apperrors.ErrAuthentication, "原密码错误")
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrUnknown, "密码加密失败")
	}
	if err := s.repos.UserAuth().UpdatePassword(ctx, userID, hashed); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "更新密码失败")
	}

	s.log.Info("修改密码", zap.String("user_id", userID))
	return nil
}

func (s *userService) findUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repos.User().FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "用户不存在")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "查询用户失败")
	}
	return user, nil
}
