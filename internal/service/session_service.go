package service

import (
	"context"
	"errors"
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/tracing"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type StartSessionInput struct {
	StartReport *string
	LessonID    *uint
}

type EndSessionInput struct {
	SessionID      string
	EndTime        *time.Time
	ProgressReport string
}

type SessionService struct {
	DB          *gorm.DB
	SessionRepo *repository.SessionRepository
	UserRepo    *repository.UserRepository
	LessonRepo  *repository.LessonRepository
	Progress    *ProgressService
	Now         func() time.Time
}

func NewSessionService(
	db *gorm.DB,
	sessionRepo *repository.SessionRepository,
	userRepo *repository.UserRepository,
	lessonRepo *repository.LessonRepository,
	progress *ProgressService,
) *SessionService {
	return &SessionService{
		DB:          db,
		SessionRepo: sessionRepo,
		UserRepo:    userRepo,
		LessonRepo:  lessonRepo,
		Progress:    progress,
		Now:         time.Now,
	}
}

// Start 强制关闭用户已有的未结束会话后创建新会话
func (s *SessionService) Start(ctx context.Context, userID uint, in StartSessionInput) (*model.StartSessionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "SessionService.Start", userID)
	defer span.End()

	exists, err := s.UserRepo.Exists(ctx, userID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	if !exists {
		return nil, util.Unauthenticated("user account is not active")
	}

	if in.LessonID != nil {
		if _, err := s.LessonRepo.FindByID(*in.LessonID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, util.ErrLessonNotFound
			}
			tracing.RecordError(span, err)
			return nil, err
		}
	}

	now := s.Now()
	session := &model.LearningSession{
		UserID:      userID,
		LessonID:    in.LessonID,
		StartedAt:   now,
		StartReport: trimmedOrNil(in.StartReport),
	}

	var closed int64
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sessions := s.SessionRepo.WithTx(tx)

		var err error
		closed, err = sessions.CloseOpenForUser(ctx, userID, now, model.AutoCloseReport)
		if err != nil {
			return err
		}
		if err := sessions.Create(ctx, session); err != nil {
			return err
		}
		if in.LessonID != nil {
			_, err = s.Progress.Apply(ctx, tx, userID, *in.LessonID, EventSessionStarted, now, nil)
		}
		return err
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	monitoring.SessionsStarted.Inc()
	if closed > 0 {
		monitoring.SessionsEnded.WithLabelValues(monitoring.EndReasonAutoClose).Add(float64(closed))
		logger.Log.Info("Open learning sessions force-closed",
			zap.Uint("userID", userID),
			zap.Int64("count", closed),
		)
	}
	logger.Log.Info("Learning session started",
		zap.Uint("userID", userID),
		zap.String("sessionID", session.ID),
	)

	return &model.StartSessionResult{
		SessionID: session.ID,
		StartedAt: session.StartedAt,
	}, nil
}

// End 校验顺序：sessionId、报告长度、存在、归属、未结束、结束时间
func (s *SessionService) End(ctx context.Context, userID uint, in EndSessionInput) (*model.EndSessionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "SessionService.End", userID)
	defer span.End()

	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, util.Validation("sessionId is required")
	}

	report := strings.TrimSpace(in.ProgressReport)
	if len([]rune(report)) < model.MinProgressReportLength {
		return nil, util.Validation(fmt.Sprintf("progressReport must be at least %d characters", model.MinProgressReportLength))
	}

	session, err := s.SessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSessionNotFound
		}
		tracing.RecordError(span, err)
		return nil, err
	}
	if session.UserID != userID {
		return nil, util.ErrSessionNotOwned
	}
	if !session.IsOpen() {
		return nil, util.ErrSessionClosed
	}

	endTime := s.Now()
	if in.EndTime != nil {
		endTime = *in.EndTime
	}
	if endTime.Before(session.StartedAt) {
		return nil, util.Validation("endTime cannot be earlier than the session start time")
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.SessionRepo.WithTx(tx).Close(ctx, session.ID, endTime, report)
		if err != nil {
			return err
		}
		if n == 0 {
			return util.ErrSessionClosed
		}
		if session.LessonID != nil {
			startedAt := session.StartedAt
			_, err = s.Progress.Apply(ctx, tx, userID, *session.LessonID, EventSessionEnded, endTime, &startedAt)
		}
		return err
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	session.EndedAt = &endTime
	session.ProgressReport = &report

	duration := endTime.Sub(session.StartedAt)
	monitoring.SessionsEnded.WithLabelValues(monitoring.EndReasonReport).Inc()
	logger.Log.Info("Learning session ended",
		zap.Uint("userID", userID),
		zap.String("sessionID", session.ID),
		zap.Duration("duration", duration),
	)

	return &model.EndSessionResult{
		Session: session,
		LearningDuration: model.LearningDuration{
			Milliseconds: duration.Milliseconds(),
			Formatted:    FormatLearningDuration(duration),
		},
	}, nil
}

// Status 以最近一次未结束的会话为准
func (s *SessionService) Status(ctx context.Context, userID uint) (*model.SessionStatusResult, error) {
	ctx, span := tracing.StartSpan(ctx, "SessionService.Status", userID)
	defer span.End()

	session, err := s.SessionRepo.FindLatestOpen(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.SessionStatusResult{Status: model.SessionNotStarted}, nil
		}
		tracing.RecordError(span, err)
		return nil, err
	}

	elapsed := s.Now().Sub(session.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}

	return &model.SessionStatusResult{
		Status: model.StatusForElapsed(elapsed),
		CurrentSession: &model.CurrentSessionInfo{
			ID:        session.ID,
			StartedAt: session.StartedAt,
			LessonID:  session.LessonID,
			Elapsed:   elapsed.Milliseconds(),
			Lesson:    session.Lesson,
		},
	}, nil
}

func (s *SessionService) History(ctx context.Context, userID uint, limit int) ([]model.LearningSession, error) {
	switch {
	case limit <= 0:
		limit = 50
	case limit > 200:
		limit = 200
	}
	return s.SessionRepo.ListByUser(ctx, userID, limit)
}

// RefreshMetrics 刷新未结束和超时会话数量
func (s *SessionService) RefreshMetrics(ctx context.Context) error {
	open, err := s.SessionRepo.CountOpen(ctx)
	if err != nil {
		return err
	}
	overdue, err := s.SessionRepo.CountOverdue(ctx, s.Now().Add(-model.MaxSessionDuration))
	if err != nil {
		return err
	}
	monitoring.SessionsOpen.Set(float64(open))
	monitoring.SessionsOverdue.Set(float64(overdue))
	return nil
}

// FormatLearningDuration 超过一小时为 "1h 5m"，否则为 "5m"
func FormatLearningDuration(d time.Duration) string {
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
