package model

import (
	"time"
)

// MaxSessionDuration 超过该时长的未结束会话需要提交报告结束
const MaxSessionDuration = 24 * time.Hour

// MinProgressReportLength 结束会话时进度报告的最少字符数（去除首尾空白后）
const MinProgressReportLength = 20

type SessionStatus string

const (
	SessionNotStarted SessionStatus = "NOT_STARTED"
	SessionActive     SessionStatus = "ACTIVE"
	SessionPendingEnd SessionStatus = "PENDING_END"
	SessionCompleted  SessionStatus = "COMPLETED"
)

// StatusForElapsed 按已用时长判断未结束会话的状态
func StatusForElapsed(elapsed time.Duration) SessionStatus {
	if elapsed >= MaxSessionDuration {
		return SessionPendingEnd
	}
	return SessionActive
}

// swagger:model StartSessionResult
type StartSessionResult struct {
	SessionID string    `json:"sessionId"`
	StartedAt time.Time `json:"startedAt"`
}

// swagger:model LearningDuration
type LearningDuration struct {
	Milliseconds int64  `json:"milliseconds"`
	Formatted    string `json:"formatted"`
}

// swagger:model EndSessionResult
type EndSessionResult struct {
	Session          *LearningSession `json:"session"`
	LearningDuration LearningDuration `json:"learningDuration"`
}

// swagger:model CurrentSessionInfo
type CurrentSessionInfo struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	LessonID  *uint     `json:"lessonId"`
	Elapsed   int64     `json:"elapsed"`
	Lesson    *Lesson   `json:"lesson"`
}

// swagger:model SessionStatusResult
type SessionStatusResult struct {
	Status         SessionStatus       `json:"status"`
	CurrentSession *CurrentSessionInfo `json:"currentSession"`
}
