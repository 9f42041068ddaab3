package util

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind 错误分类，对应 HTTP 状态码
type ErrorKind int

const (
	KindUnexpected ErrorKind = iota
	KindUnauthenticated
	KindValidation
	KindForbidden
	KindNotFound
	KindConflict
)

func (k ErrorKind) Status() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// AppError 业务错误，Message 可直接返回给调用方
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NewError(kind ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func Unauthenticated(message string) *AppError { return NewError(KindUnauthenticated, message) }
func Validation(message string) *AppError      { return NewError(KindValidation, message) }
func ForbiddenError(message string) *AppError  { return NewError(KindForbidden, message) }
func NotFoundError(message string) *AppError   { return NewError(KindNotFound, message) }
func Conflict(message string) *AppError        { return NewError(KindConflict, message) }

// KindOf 返回错误分类，非 AppError 视为 Unexpected
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnexpected
}

var (
	ErrUserNotFound       = NotFoundError("user not found")
	ErrEmailRegistered    = Conflict("email address is already in use")
	ErrInvalidCredentials = Unauthenticated("invalid email or password")
	ErrPermissionDenied   = ForbiddenError("permission denied")
	ErrSessionNotFound    = NotFoundError("learning session not found")
	ErrSessionNotOwned    = ForbiddenError("you do not have access to this learning session")
	ErrSessionClosed      = Conflict("learning session has already ended")
	ErrLessonNotFound     = NotFoundError("lesson not found")
	ErrChapterNotFound    = NotFoundError("chapter not found")
	ErrCourseNotFound     = NotFoundError("course not found")
)
