package testutil

import (
	"testing"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

const DefaultPassword = "password123"

func CreateUser(tb testing.TB, db *gorm.DB, email string, role model.UserRole) *model.User {
	tb.Helper()

	hash, err := util.HashPassword(DefaultPassword)
	if err != nil {
		tb.Fatalf("hash password: %v", err)
	}
	u := &model.User{
		Name:         email,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("create user: %v", err)
	}
	// is_first_login 有默认值，零值需单独更新
	if err := db.Model(u).Update("is_first_login", false).Error; err != nil {
		tb.Fatalf("update user: %v", err)
	}
	u.IsFirstLogin = false
	return u
}

// CreateLesson 创建课程、章节和已发布课时
func CreateLesson(tb testing.TB, db *gorm.DB, title string) *model.Lesson {
	tb.Helper()

	course := &model.Course{Title: "Course for " + title, OrderIndex: 1}
	if err := db.Create(course).Error; err != nil {
		tb.Fatalf("create course: %v", err)
	}
	chapter := &model.Chapter{CourseID: course.ID, Title: "Chapter for " + title, OrderIndex: 1}
	if err := db.Create(chapter).Error; err != nil {
		tb.Fatalf("create chapter: %v", err)
	}
	lesson := &model.Lesson{ChapterID: chapter.ID, Title: title, OrderIndex: 1, IsPublished: true}
	if err := db.Create(lesson).Error; err != nil {
		tb.Fatalf("create lesson: %v", err)
	}
	return lesson
}

// CreateSession 直接写入会话记录，endedAt 为 nil 表示未结束
func CreateSession(tb testing.TB, db *gorm.DB, userID uint, lessonID *uint, startedAt time.Time, endedAt *time.Time) *model.LearningSession {
	tb.Helper()

	s := &model.LearningSession{
		UserID:    userID,
		LessonID:  lessonID,
		StartedAt: startedAt,
		EndedAt:   endedAt,
	}
	if err := db.Create(s).Error; err != nil {
		tb.Fatalf("create session: %v", err)
	}
	return s
}
