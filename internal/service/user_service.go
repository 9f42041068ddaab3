package service

import (
	"context"
	"errors"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreateUserInput struct {
	Name  string
	Email string
	Role  model.UserRole
}

type UpdateUserInput struct {
	Name *string
	Role *model.UserRole
}

// CreatedUser 临时密码只在创建时返回一次
type CreatedUser struct {
	User              *model.User `json:"user"`
	TemporaryPassword string      `json:"temporaryPassword"`
}

type UserService struct {
	UserRepo *repository.UserRepository
	Mailer   Mailer
	Now      func() time.Time
}

func NewUserService(userRepo *repository.UserRepository, mailer Mailer) *UserService {
	return &UserService{
		UserRepo: userRepo,
		Mailer:   mailer,
		Now:      time.Now,
	}
}

func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*CreatedUser, error) {
	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)
	if name == "" {
		return nil, util.Validation("name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, util.Validation("a valid email is required")
	}
	if !in.Role.Valid() {
		return nil, util.Validation("role must be one of ADMIN, INSTRUCTOR, LEARNER")
	}

	taken, err := s.UserRepo.EmailTaken(email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, util.ErrEmailRegistered
	}

	password, err := util.GenerateTemporaryPassword()
	if err != nil {
		return nil, err
	}
	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		IsFirstLogin: true,
	}
	if err := s.UserRepo.Create(user); err != nil {
		return nil, err
	}

	if err := s.Mailer.SendTemporaryPassword(ctx, user, password); err != nil {
		logger.Log.Error("Failed to send temporary password", zap.Uint("userID", user.ID), zap.Error(err))
	}

	logger.Log.Info("User created", zap.Uint("userID", user.ID), zap.String("role", string(user.Role)))
	return &CreatedUser{User: user, TemporaryPassword: password}, nil
}

func (s *UserService) ListUsers() ([]model.User, error) {
	return s.UserRepo.List()
}

func (s *UserService) GetUser(id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}

func (s *UserService) UpdateUser(id uint, in UpdateUserInput) (*model.User, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, util.Validation("name is required")
		}
		user.Name = name
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, util.Validation("role must be one of ADMIN, INSTRUCTOR, LEARNER")
		}
		user.Role = *in.Role
	}

	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser 逻辑删除，不允许删除自己
func (s *UserService) DeleteUser(actorID, id uint) error {
	if actorID == id {
		return util.ForbiddenError("you cannot delete your own account")
	}
	if _, err := s.GetUser(id); err != nil {
		return err
	}
	if err := s.UserRepo.SoftDelete(id, s.Now()); err != nil {
		return err
	}
	logger.Log.Info("User deleted", zap.Uint("userID", id), zap.Uint("by", actorID))
	return nil
}
