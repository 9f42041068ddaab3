package model

import (
	"time"
)

// AutoCloseReport 开始新会话时强制关闭旧会话写入的报告
const AutoCloseReport = "Automatically closed: a new learning session was started."

// swagger:model LearningSession
type LearningSession struct {
	UUIDBase
	UserID         uint       `gorm:"not null;index:idx_session_user_open" json:"userId"`
	LessonID       *uint      `gorm:"index" json:"lessonId"`
	StartedAt      time.Time  `gorm:"not null;index:idx_session_user_open" json:"startedAt"`
	EndedAt        *time.Time `json:"endedAt"`
	StartReport    *string    `gorm:"type:text" json:"startReport,omitempty"`
	ProgressReport *string    `gorm:"type:text" json:"progressReport"`
	Lesson         *Lesson    `gorm:"foreignKey:LessonID" json:"lesson,omitempty"`
}

func (LearningSession) TableName() string {
	return "learning_sessions"
}

// IsOpen 未结束的会话
func (s *LearningSession) IsOpen() bool {
	return s.EndedAt == nil
}
