package sessionclient

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinProgressReportLength = 20
	MaxProgressReportLength = 2000
	MaxGoalLength           = 200
)

var (
	ErrReportRequired  = errors.New("please enter a progress report")
	ErrReportTooShort  = errors.New("progress report must be at least 20 characters")
	ErrReportTooLong   = errors.New("progress report must be at most 2000 characters")
	ErrEndTimeRequired = errors.New("please enter an end time")
	ErrEndBeforeStart  = errors.New("end time must be after the start time")
	ErrGoalTooLong     = errors.New("learning goal must be at most 200 characters")
)

func StartModalVisible(s State) bool {
	return s.ShowStartModal && s.Status == StatusNotStarted && !s.IsLoading
}

func EndModalVisible(s State) bool {
	return s.ShowEndModal &&
		(s.Status == StatusActive || s.Status == StatusPendingEnd) &&
		s.CurrentSession != nil
}

// ValidateEndForm 返回第一个不满足的条件，字符数按去除首尾空白后计算
func ValidateEndForm(report string, endTime, startedAt time.Time) error {
	trimmed := strings.TrimSpace(report)
	switch n := utf8.RuneCountInString(trimmed); {
	case n == 0:
		return ErrReportRequired
	case n < MinProgressReportLength:
		return ErrReportTooShort
	case n > MaxProgressReportLength:
		return ErrReportTooLong
	}
	if endTime.IsZero() {
		return ErrEndTimeRequired
	}
	if endTime.Before(startedAt) {
		return ErrEndBeforeStart
	}
	return nil
}

// SubmitEndForm 校验通过后提交去除空白的报告
func SubmitEndForm(ctx context.Context, m *Machine, report string, endTime time.Time) error {
	current := m.State().CurrentSession
	if current == nil {
		return ErrNoActiveSession
	}
	if err := ValidateEndForm(report, endTime, current.StartedAt); err != nil {
		return err
	}
	return m.EndSession(ctx, &endTime, strings.TrimSpace(report))
}

type DismissOutcome int

const (
	Dismissed DismissOutcome = iota
	OfferExtension
)

// EndModalDismiss 超过 24 小时的会话不能直接关闭，需要先确认延长
func EndModalDismiss(m *Machine) DismissOutcome {
	if m.State().Status == StatusPendingEnd {
		return OfferExtension
	}
	m.DismissModal(ModalEnd)
	return Dismissed
}

// ExtendSession 暂时隐藏结束提示，会话仍为 PENDING_END
func ExtendSession(m *Machine) {
	m.DismissModal(ModalEnd)
}

// BuildStartReport 两项均为空时返回空字符串
func BuildStartReport(goal, plannedEnd string) (string, error) {
	goal = strings.TrimSpace(goal)
	plannedEnd = strings.TrimSpace(plannedEnd)
	if utf8.RuneCountInString(goal) > MaxGoalLength {
		return "", ErrGoalTooLong
	}

	var lines []string
	if goal != "" {
		lines = append(lines, "Learning goal: "+goal)
	}
	if plannedEnd != "" {
		lines = append(lines, "Planned end: "+plannedEnd)
	}
	return strings.Join(lines, "\n"), nil
}
