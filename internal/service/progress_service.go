package service

import (
	"context"
	"errors"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProgressEvent 驱动课时进度变化的事件
type ProgressEvent string

const (
	EventLessonStarted   ProgressEvent = "LESSON_STARTED"
	EventSessionStarted  ProgressEvent = "SESSION_STARTED"
	EventLessonCompleted ProgressEvent = "LESSON_COMPLETED"
	EventSessionEnded    ProgressEvent = "SESSION_ENDED"
)

func (e ProgressEvent) completes() bool {
	return e == EventLessonCompleted || e == EventSessionEnded
}

// NextProgress 进度状态迁移表，current 为 nil 表示尚无记录。
// 返回 false 表示无需写库。已完成的进度不会回退。
func NextProgress(current *model.UserProgress, event ProgressEvent, at time.Time, startedHint *time.Time) (*model.UserProgress, bool) {
	if current == nil {
		p := &model.UserProgress{Status: model.ProgressInProgress, StartedAt: timePtr(at)}
		if event.completes() {
			p.Status = model.ProgressCompleted
			p.StartedAt = firstTime(startedHint, at)
			p.CompletedAt = timePtr(at)
		}
		return p, true
	}

	next := *current
	if !event.completes() {
		if current.Status != model.ProgressNotStarted {
			return current, false
		}
		next.Status = model.ProgressInProgress
		if next.StartedAt == nil {
			next.StartedAt = timePtr(at)
		}
		return &next, true
	}

	next.Status = model.ProgressCompleted
	next.CompletedAt = timePtr(at)
	if next.StartedAt == nil {
		next.StartedAt = firstTime(startedHint, at)
	}
	return &next, true
}

type ProgressService struct {
	DB           *gorm.DB
	ProgressRepo *repository.ProgressRepository
	LessonRepo   *repository.LessonRepository
	SessionRepo  *repository.SessionRepository
	Now          func() time.Time
}

func NewProgressService(
	db *gorm.DB,
	progressRepo *repository.ProgressRepository,
	lessonRepo *repository.LessonRepository,
	sessionRepo *repository.SessionRepository,
) *ProgressService {
	return &ProgressService{
		DB:           db,
		ProgressRepo: progressRepo,
		LessonRepo:   lessonRepo,
		SessionRepo:  sessionRepo,
		Now:          time.Now,
	}
}

// errProgressRaced 插入时记录已被并发请求创建
var errProgressRaced = errors.New("progress row created concurrently")

// Apply 会话和课时接口共用的唯一进度写入口，tx 为 nil 时使用默认连接
func (s *ProgressService) Apply(ctx context.Context, tx *gorm.DB, userID, lessonID uint, event ProgressEvent, at time.Time, startedHint *time.Time) (*model.UserProgress, error) {
	repo := s.ProgressRepo
	if tx != nil {
		repo = repo.WithTx(tx)
	}

	next, err := s.applyOnce(ctx, repo, userID, lessonID, event, at, startedHint)
	if errors.Is(err, errProgressRaced) {
		// 重新读取已存在的记录再迁移一次
		next, err = s.applyOnce(ctx, repo, userID, lessonID, event, at, startedHint)
	}
	if err != nil {
		return nil, err
	}

	logger.Log.Debug("Lesson progress updated",
		zap.Uint("userID", userID),
		zap.Uint("lessonID", lessonID),
		zap.String("event", string(event)),
		zap.String("status", string(next.Status)),
	)
	return next, nil
}

func (s *ProgressService) applyOnce(ctx context.Context, repo *repository.ProgressRepository, userID, lessonID uint, event ProgressEvent, at time.Time, startedHint *time.Time) (*model.UserProgress, error) {
	current, err := repo.Find(ctx, userID, lessonID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		current = nil
	}

	next, changed := NextProgress(current, event, at, startedHint)
	if !changed {
		return current, nil
	}

	next.UserID = userID
	next.LessonID = lessonID
	if current != nil {
		if err := repo.Save(ctx, next); err != nil {
			return nil, err
		}
		return next, nil
	}

	inserted, err := repo.CreateIfAbsent(ctx, next)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, errProgressRaced
	}
	return next, nil
}

func (s *ProgressService) StartLesson(ctx context.Context, userID, lessonID uint) (*model.UserProgress, error) {
	if err := s.ensureLesson(lessonID); err != nil {
		return nil, err
	}
	return s.Apply(ctx, nil, userID, lessonID, EventLessonStarted, s.Now(), nil)
}

// CompleteLesson 标记课时完成；附带足够长的报告时，同时结束绑定该课时的未结束会话
func (s *ProgressService) CompleteLesson(ctx context.Context, userID, lessonID uint, progressReport string) (*model.UserProgress, error) {
	if err := s.ensureLesson(lessonID); err != nil {
		return nil, err
	}

	now := s.Now()
	report := strings.TrimSpace(progressReport)
	closedSession := false

	var progress *model.UserProgress
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		progress, err = s.Apply(ctx, tx, userID, lessonID, EventLessonCompleted, now, nil)
		if err != nil {
			return err
		}

		if len([]rune(report)) < model.MinProgressReportLength {
			return nil
		}
		sessions := s.SessionRepo.WithTx(tx)
		open, err := sessions.FindOpenForLesson(ctx, userID, lessonID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if now.Before(open.StartedAt) {
			return nil
		}
		n, err := sessions.Close(ctx, open.ID, now, report)
		closedSession = n > 0
		return err
	})
	if err != nil {
		return nil, err
	}

	if closedSession {
		monitoring.SessionsEnded.WithLabelValues(monitoring.EndReasonLessonComplete).Inc()
		logger.Log.Info("Learning session closed by lesson completion",
			zap.Uint("userID", userID),
			zap.Uint("lessonID", lessonID),
		)
	}
	return progress, nil
}

func (s *ProgressService) ListForUser(ctx context.Context, userID uint) ([]model.UserProgress, error) {
	return s.ProgressRepo.ListByUser(ctx, userID)
}

func (s *ProgressService) Summary(ctx context.Context) ([]repository.UserProgressSummary, error) {
	return s.ProgressRepo.SummaryForLearners(ctx)
}

func (s *ProgressService) ensureLesson(lessonID uint) error {
	_, err := s.LessonRepo.FindByID(lessonID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrLessonNotFound
	}
	return err
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func firstTime(hint *time.Time, fallback time.Time) *time.Time {
	if hint != nil {
		return timePtr(*hint)
	}
	return timePtr(fallback)
}
