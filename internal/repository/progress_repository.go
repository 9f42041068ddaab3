package repository

import (
	"context"
	"lms_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

func (r *ProgressRepository) Find(ctx context.Context, userID, lessonID uint) (*model.UserProgress, error) {
	var progress model.UserProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// CreateIfAbsent 按 (user_id, lesson_id) 插入，记录已存在时不写入并返回 false
func (r *ProgressRepository) CreateIfAbsent(ctx context.Context, progress *model.UserProgress) (bool, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
			DoNothing: true,
		}).
		Create(progress)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ProgressRepository) Save(ctx context.Context, progress *model.UserProgress) error {
	return r.DB.WithContext(ctx).Save(progress).Error
}

func (r *ProgressRepository) ListByUser(ctx context.Context, userID uint) ([]model.UserProgress, error) {
	var list []model.UserProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&list).Error
	return list, err
}

// UserProgressSummary 管理端进度概览的一行
type UserProgressSummary struct {
	UserID     uint   `json:"userId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	InProgress int64  `json:"inProgress"`
	Completed  int64  `json:"completed"`
}

func (r *ProgressRepository) SummaryForLearners(ctx context.Context) ([]UserProgressSummary, error) {
	var rows []UserProgressSummary
	err := r.DB.WithContext(ctx).
		Table("users").
		Select(`users.id AS user_id, users.name, users.email,
			COALESCE(SUM(CASE WHEN user_progress.status = ? THEN 1 ELSE 0 END), 0) AS in_progress,
			COALESCE(SUM(CASE WHEN user_progress.status = ? THEN 1 ELSE 0 END), 0) AS completed`,
			model.ProgressInProgress, model.ProgressCompleted).
		Joins("LEFT JOIN user_progress ON user_progress.user_id = users.id").
		Where("users.is_deleted = ? AND users.role = ?", false, model.Learner).
		Group("users.id, users.name, users.email").
		Order("users.id").
		Scan(&rows).Error
	return rows, err
}
