package service

import (
	"context"
	"encoding/json"
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const courseTreeKeyPrefix = "course_tree:"

// CourseCache 缓存学员端课程目录
type CourseCache interface {
	Get(ctx context.Context, courseID uint) (*model.Course, bool)
	Set(ctx context.Context, course *model.Course)
	Invalidate(ctx context.Context, courseID uint)
}

type RedisCourseCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

// NewCourseCache rdb 为 nil 时不缓存
func NewCourseCache(rdb *redis.Client, ttl time.Duration) CourseCache {
	if rdb == nil {
		return noopCourseCache{}
	}
	return &RedisCourseCache{Redis: rdb, TTL: ttl}
}

func courseTreeKey(courseID uint) string {
	return fmt.Sprintf("%s%d", courseTreeKeyPrefix, courseID)
}

func (c *RedisCourseCache) Get(ctx context.Context, courseID uint) (*model.Course, bool) {
	data, err := c.Redis.Get(ctx, courseTreeKey(courseID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("Course cache read failed", zap.Uint("courseID", courseID), zap.Error(err))
		}
		return nil, false
	}

	var course model.Course
	if err := json.Unmarshal(data, &course); err != nil {
		return nil, false
	}
	return &course, true
}

func (c *RedisCourseCache) Set(ctx context.Context, course *model.Course) {
	data, err := json.Marshal(course)
	if err != nil {
		return
	}
	if err := c.Redis.Set(ctx, courseTreeKey(course.ID), data, c.TTL).Err(); err != nil {
		logger.Log.Warn("Course cache write failed", zap.Uint("courseID", course.ID), zap.Error(err))
	}
}

func (c *RedisCourseCache) Invalidate(ctx context.Context, courseID uint) {
	if err := c.Redis.Del(ctx, courseTreeKey(courseID)).Err(); err != nil {
		logger.Log.Warn("Course cache invalidation failed", zap.Uint("courseID", courseID), zap.Error(err))
	}
}

type noopCourseCache struct{}

func (noopCourseCache) Get(context.Context, uint) (*model.Course, bool) { return nil, false }
func (noopCourseCache) Set(context.Context, *model.Course)              {}
func (noopCourseCache) Invalidate(context.Context, uint)                {}
