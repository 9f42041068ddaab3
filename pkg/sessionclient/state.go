// Package sessionclient 学习会话的客户端状态机、计时器和服务端同步
package sessionclient

import "time"

type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusActive     Status = "ACTIVE"
	StatusPendingEnd Status = "PENDING_END"
	StatusCompleted  Status = "COMPLETED"
)

// SessionLimit 会话超过该时长必须提交报告结束
const SessionLimit = 24 * time.Hour

// CurrentSession 本地持有的会话引用
type CurrentSession struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
}

type State struct {
	Status         Status
	CurrentSession *CurrentSession
	TimeElapsed    time.Duration
	ShowStartModal bool
	ShowEndModal   bool
	IsLoading      bool
}

func InitialState() State {
	return State{Status: StatusNotStarted}
}

type ModalKind int

const (
	ModalStart ModalKind = iota
	ModalEnd
)

type ActionType int

const (
	ActionSetLoading ActionType = iota
	ActionSetStatus
	ActionSetCurrentSession
	ActionSetTimeElapsed
	ActionShowStartModal
	ActionShowEndModal
	ActionDismissModal
	ActionResetSession
)

// Action 只有与 Type 对应的字段有效
type Action struct {
	Type    ActionType
	Flag    bool
	Status  Status
	Session *CurrentSession
	Elapsed time.Duration
	Modal   ModalKind
}

func SetLoading(v bool) Action                 { return Action{Type: ActionSetLoading, Flag: v} }
func SetStatus(s Status) Action                { return Action{Type: ActionSetStatus, Status: s} }
func SetCurrentSession(s *CurrentSession) Action { return Action{Type: ActionSetCurrentSession, Session: s} }
func SetTimeElapsed(d time.Duration) Action    { return Action{Type: ActionSetTimeElapsed, Elapsed: d} }
func ShowStartModal(v bool) Action             { return Action{Type: ActionShowStartModal, Flag: v} }
func ShowEndModal(v bool) Action               { return Action{Type: ActionShowEndModal, Flag: v} }
func DismissModal(k ModalKind) Action          { return Action{Type: ActionDismissModal, Modal: k} }
func ResetSession() Action                     { return Action{Type: ActionResetSession} }

// Reduce 纯函数，不修改入参
func Reduce(s State, a Action) State {
	switch a.Type {
	case ActionSetLoading:
		s.IsLoading = a.Flag
	case ActionSetStatus:
		s.Status = a.Status
	case ActionSetCurrentSession:
		if a.Session == nil {
			s.CurrentSession = nil
		} else {
			cp := *a.Session
			s.CurrentSession = &cp
		}
	case ActionSetTimeElapsed:
		s.TimeElapsed = a.Elapsed
	case ActionShowStartModal:
		s.ShowStartModal = a.Flag
	case ActionShowEndModal:
		s.ShowEndModal = a.Flag
	case ActionDismissModal:
		if a.Modal == ModalStart {
			s.ShowStartModal = false
		} else {
			s.ShowEndModal = false
		}
	case ActionResetSession:
		s = InitialState()
		s.Status = StatusCompleted
	}
	return s
}
