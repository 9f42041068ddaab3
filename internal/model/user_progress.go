package model

import (
	"time"
)

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "NOT_STARTED"
	ProgressInProgress ProgressStatus = "IN_PROGRESS"
	ProgressCompleted  ProgressStatus = "COMPLETED"
)

// swagger:model UserProgress
type UserProgress struct {
	BaseModel
	UserID      uint           `gorm:"not null;uniqueIndex:idx_user_lesson" json:"userId"`
	LessonID    uint           `gorm:"not null;uniqueIndex:idx_user_lesson" json:"lessonId"`
	Status      ProgressStatus `gorm:"size:20;not null;default:'NOT_STARTED'" json:"status"`
	StartedAt   *time.Time     `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}
