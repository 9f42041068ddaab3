package service

import (
	"errors"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const MinPasswordLength = 8

type LoginResult struct {
	Token        string      `json:"token"`
	User         *model.User `json:"user"`
	IsFirstLogin bool        `json:"isFirstLogin"`
}

type AuthService struct {
	UserRepo *repository.UserRepository
	Cfg      *config.Config
	Now      func() time.Time
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
		Now:      time.Now,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Login(email, password string) (*LoginResult, error) {
	user, err := s.UserRepo.FindByEmail(NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrInvalidCredentials
		}
		return nil, err
	}

	if !util.CheckPassword(user.PasswordHash, password) {
		return nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	if err := s.UserRepo.UpdateLastLogin(user.ID, now); err != nil {
		logger.Log.Warn("Failed to record last login", zap.Uint("userID", user.ID), zap.Error(err))
	} else {
		user.LastLoginAt = &now
	}

	return &LoginResult{
		Token:        token,
		User:         user,
		IsFirstLogin: user.IsFirstLogin,
	}, nil
}

// ResetPassword 修改密码并清除首次登录标记
func (s *AuthService) ResetPassword(userID uint, currentPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return util.Validation("newPassword must be at least 8 characters")
	}

	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrUserNotFound
		}
		return err
	}

	if !util.CheckPassword(user.PasswordHash, currentPassword) {
		return util.Validation("current password is incorrect")
	}
	if currentPassword == newPassword {
		return util.Validation("new password must differ from the current password")
	}

	hash, err := util.HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.IsFirstLogin = false
	return s.UserRepo.Update(user)
}

func (s *AuthService) Profile(userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}
