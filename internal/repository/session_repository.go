package repository

import (
	"context"
	"lms_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

// WithTx 返回绑定到事务的仓库
func (r *SessionRepository) WithTx(tx *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: tx}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.LearningSession) error {
	return r.DB.WithContext(ctx).Create(session).Error
}

func (r *SessionRepository) FindByID(ctx context.Context, id string) (*model.LearningSession, error) {
	var session model.LearningSession
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// notDeleted 关联预加载时跳过已逻辑删除的内容
func notDeleted(db *gorm.DB) *gorm.DB {
	return db.Where("is_deleted = ?", false)
}

// FindLatestOpen 用户最近一次未结束的会话，附带课时、章节和课程
func (r *SessionRepository) FindLatestOpen(ctx context.Context, userID uint) (*model.LearningSession, error) {
	var session model.LearningSession
	err := r.DB.WithContext(ctx).
		Preload("Lesson", notDeleted).
		Preload("Lesson.Chapter", notDeleted).
		Preload("Lesson.Chapter.Course", notDeleted).
		Where("user_id = ? AND ended_at IS NULL", userID).
		Order("started_at DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) FindOpenForLesson(ctx context.Context, userID, lessonID uint) (*model.LearningSession, error) {
	var session model.LearningSession
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ? AND ended_at IS NULL", userID, lessonID).
		Order("started_at DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// CloseOpenForUser 关闭用户所有未结束的会话，返回关闭数量
func (r *SessionRepository) CloseOpenForUser(ctx context.Context, userID uint, endedAt time.Time, report string) (int64, error) {
	result := r.DB.WithContext(ctx).Model(&model.LearningSession{}).
		Where("user_id = ? AND ended_at IS NULL", userID).
		Updates(map[string]interface{}{"ended_at": endedAt, "progress_report": report})
	return result.RowsAffected, result.Error
}

// Close 条件更新，会话已结束时返回 0
func (r *SessionRepository) Close(ctx context.Context, id string, endedAt time.Time, report string) (int64, error) {
	result := r.DB.WithContext(ctx).Model(&model.LearningSession{}).
		Where("id = ? AND ended_at IS NULL", id).
		Updates(map[string]interface{}{"ended_at": endedAt, "progress_report": report})
	return result.RowsAffected, result.Error
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]model.LearningSession, error) {
	var sessions []model.LearningSession
	err := r.DB.WithContext(ctx).
		Preload("Lesson", notDeleted).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

func (r *SessionRepository) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.LearningSession{}).
		Where("ended_at IS NULL").
		Count(&count).Error
	return count, err
}

// CountOverdue 开始时间早于 cutoff 的未结束会话
func (r *SessionRepository) CountOverdue(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.LearningSession{}).
		Where("ended_at IS NULL AND started_at <= ?", cutoff).
		Count(&count).Error
	return count, err
}
