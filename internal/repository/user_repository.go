package repository

import (
	"context"
	"errors"
	"lms_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

// FindByID 只返回未删除的用户
func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.Where("id = ? AND is_deleted = ?", id, false).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ? AND is_deleted = ?", email, false).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EmailTaken 邮箱在未删除用户中唯一
func (r *UserRepository) EmailTaken(email string, excludeID uint) (bool, error) {
	var count int64
	q := r.DB.Model(&model.User{}).Where("email = ? AND is_deleted = ?", email, false)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Save(user).Error
}

func (r *UserRepository) UpdateLastLogin(userID uint, at time.Time) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_login_at", at).
		Error
}

func (r *UserRepository) List() ([]model.User, error) {
	var users []model.User
	err := r.DB.Where("is_deleted = ?", false).Order("created_at DESC").Find(&users).Error
	return users, err
}

func (r *UserRepository) SoftDelete(userID uint, at time.Time) error {
	return r.DB.Model(&model.User{}).
		Where("id = ? AND is_deleted = ?", userID, false).
		Updates(map[string]interface{}{"is_deleted": true, "deleted_at": at}).
		Error
}

// Exists 供会话接口校验令牌中的用户仍然有效
func (r *UserRepository) Exists(ctx context.Context, userID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND is_deleted = ?", userID, false).
		Count(&count).Error
	return count > 0, err
}

// ActiveRole 返回未删除用户的当前角色，用户不存在或已删除时 ok 为 false
func (r *UserRepository) ActiveRole(ctx context.Context, userID uint) (model.UserRole, bool, error) {
	var user model.User
	err := r.DB.WithContext(ctx).
		Select("id", "role").
		Where("id = ? AND is_deleted = ?", userID, false).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return user.Role, true, nil
}
