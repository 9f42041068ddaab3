package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxAssetSize = 20 << 20

type CourseInput struct {
	Title       string
	Description string
	OrderIndex  *int
}

type ChapterInput struct {
	Title       string
	Description string
	OrderIndex  *int
}

type LessonInput struct {
	ChapterID        uint
	Title            string
	Content          string
	EstimatedMinutes int
	OrderIndex       *int
	IsPublished      *bool
}

// LessonView 学员查看课时，附带自己的进度
type LessonView struct {
	Lesson   *model.Lesson       `json:"lesson"`
	Progress *model.UserProgress `json:"progress"`
}

type AssetResult struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Markdown    string `json:"markdown"`
}

type ContentService struct {
	CourseRepo     *repository.CourseRepository
	ChapterRepo    *repository.ChapterRepository
	LessonRepo     *repository.LessonRepository
	ProgressRepo   *repository.ProgressRepository
	StorageService *StorageService
	Cache          CourseCache
	Now            func() time.Time
}

func NewContentService(
	courseRepo *repository.CourseRepository,
	chapterRepo *repository.ChapterRepository,
	lessonRepo *repository.LessonRepository,
	progressRepo *repository.ProgressRepository,
	storageService *StorageService,
	cache CourseCache,
) *ContentService {
	return &ContentService{
		CourseRepo:     courseRepo,
		ChapterRepo:    chapterRepo,
		LessonRepo:     lessonRepo,
		ProgressRepo:   progressRepo,
		StorageService: storageService,
		Cache:          cache,
		Now:            time.Now,
	}
}

// resolveOrderIndex 未指定或与同级冲突时排到最后
func resolveOrderIndex(requested *int, taken func(int) (bool, error), max func() (int, error)) (int, error) {
	if requested != nil {
		conflict, err := taken(*requested)
		if err != nil {
			return 0, err
		}
		if !conflict {
			return *requested, nil
		}
	}
	m, err := max()
	if err != nil {
		return 0, err
	}
	return m + 1, nil
}

func notFoundAs(err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

// ---- 课程 ----

func (s *ContentService) ListCourses() ([]model.Course, error) {
	return s.CourseRepo.List()
}

// CourseTree 学员端课程目录，只含已发布课时
func (s *ContentService) CourseTree(ctx context.Context, courseID uint) (*model.Course, error) {
	if course, ok := s.Cache.Get(ctx, courseID); ok {
		return course, nil
	}
	course, err := s.CourseRepo.FindTree(courseID, true)
	if err != nil {
		return nil, notFoundAs(err, util.ErrCourseNotFound)
	}
	s.Cache.Set(ctx, course)
	return course, nil
}

func (s *ContentService) AdminCourseTree(courseID uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindTree(courseID, false)
	if err != nil {
		return nil, notFoundAs(err, util.ErrCourseNotFound)
	}
	return course, nil
}

func (s *ContentService) CreateCourse(in CourseInput) (*model.Course, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, util.Validation("title is required")
	}

	order, err := resolveOrderIndex(in.OrderIndex,
		func(i int) (bool, error) { return s.CourseRepo.OrderIndexTaken(i, 0) },
		s.CourseRepo.MaxOrderIndex,
	)
	if err != nil {
		return nil, err
	}

	course := &model.Course{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		OrderIndex:  order,
	}
	if err := s.CourseRepo.Create(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *ContentService) UpdateCourse(ctx context.Context, id uint, in CourseInput) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(id)
	if err != nil {
		return nil, notFoundAs(err, util.ErrCourseNotFound)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, util.Validation("title is required")
	}
	course.Title = title
	course.Description = strings.TrimSpace(in.Description)

	if in.OrderIndex != nil && *in.OrderIndex != course.OrderIndex {
		order, err := resolveOrderIndex(in.OrderIndex,
			func(i int) (bool, error) { return s.CourseRepo.OrderIndexTaken(i, id) },
			s.CourseRepo.MaxOrderIndex,
		)
		if err != nil {
			return nil, err
		}
		course.OrderIndex = order
	}

	if err := s.CourseRepo.Update(course); err != nil {
		return nil, err
	}
	s.Cache.Invalidate(ctx, id)
	return course, nil
}

// DeleteCourse 逻辑删除课程及其下章节、课时
func (s *ContentService) DeleteCourse(ctx context.Context, id uint) error {
	if _, err := s.CourseRepo.FindByID(id); err != nil {
		return notFoundAs(err, util.ErrCourseNotFound)
	}
	if err := s.CourseRepo.SoftDeleteCascade(id, s.Now()); err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, id)
	logger.Log.Info("Course deleted", zap.Uint("courseID", id))
	return nil
}

// ---- 章节 ----

func (s *ContentService) ListChapters(courseID uint) ([]model.Chapter, error) {
	if _, err := s.CourseRepo.FindByID(courseID); err != nil {
		return nil, notFoundAs(err, util.ErrCourseNotFound)
	}
	return s.ChapterRepo.ListByCourse(courseID)
}

func (s *ContentService) CreateChapter(ctx context.Context, courseID uint, in ChapterInput) (*model.Chapter, error) {
	if _, err := s.CourseRepo.FindByID(courseID); err != nil {
		return nil, notFoundAs(err, util.ErrCourseNotFound)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, util.Validation("title is required")
	}

	order, err := resolveOrderIndex(in.OrderIndex,
		func(i int) (bool, error) { return s.ChapterRepo.OrderIndexTaken(courseID, i, 0) },
		func() (int, error) { return s.ChapterRepo.MaxOrderIndex(courseID) },
	)
	if err != nil {
		return nil, err
	}

	chapter := &model.Chapter{
		CourseID:    courseID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		OrderIndex:  order,
	}
	if err := s.ChapterRepo.Create(chapter); err != nil {
		return nil, err
	}
	s.Cache.Invalidate(ctx, courseID)
	return chapter, nil
}

func (s *ContentService) UpdateChapter(ctx context.Context, id uint, in ChapterInput) (*model.Chapter, error) {
	chapter, err := s.ChapterRepo.FindByID(id)
	if err != nil {
		return nil, notFoundAs(err, util.ErrChapterNotFound)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, util.Validation("title is required")
	}
	chapter.Title = title
	chapter.Description = strings.TrimSpace(in.Description)

	if in.OrderIndex != nil && *in.OrderIndex != chapter.OrderIndex {
		order, err := resolveOrderIndex(in.OrderIndex,
			func(i int) (bool, error) { return s.ChapterRepo.OrderIndexTaken(chapter.CourseID, i, id) },
			func() (int, error) { return s.ChapterRepo.MaxOrderIndex(chapter.CourseID) },
		)
		if err != nil {
			return nil, err
		}
		chapter.OrderIndex = order
	}

	if err := s.ChapterRepo.Update(chapter); err != nil {
		return nil, err
	}
	s.Cache.Invalidate(ctx, chapter.CourseID)
	return chapter, nil
}

func (s *ContentService) DeleteChapter(ctx context.Context, id uint) error {
	chapter, err := s.ChapterRepo.FindByID(id)
	if err != nil {
		return notFoundAs(err, util.ErrChapterNotFound)
	}
	if err := s.ChapterRepo.SoftDeleteCascade(id, s.Now()); err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, chapter.CourseID)
	logger.Log.Info("Chapter deleted", zap.Uint("chapterID", id))
	return nil
}

// ---- 课时 ----

// LessonForLearner 未发布的课时对学员不可见
func (s *ContentService) LessonForLearner(ctx context.Context, userID, lessonID uint) (*LessonView, error) {
	lesson, err := s.LessonRepo.FindWithChapter(lessonID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrLessonNotFound)
	}
	if !lesson.IsPublished {
		return nil, util.ErrLessonNotFound
	}

	view := &LessonView{Lesson: lesson}
	progress, err := s.ProgressRepo.Find(ctx, userID, lessonID)
	if err == nil {
		view.Progress = progress
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return view, nil
}

func (s *ContentService) GetLesson(id uint) (*model.Lesson, error) {
	lesson, err := s.LessonRepo.FindWithChapter(id)
	if err != nil {
		return nil, notFoundAs(err, util.ErrLessonNotFound)
	}
	return lesson, nil
}

func (s *ContentService) ListLessons(chapterID uint) ([]model.Lesson, error) {
	if _, err := s.ChapterRepo.FindByID(chapterID); err != nil {
		return nil, notFoundAs(err, util.ErrChapterNotFound)
	}
	return s.LessonRepo.ListByChapter(chapterID)
}

func (s *ContentService) CreateLesson(ctx context.Context, in LessonInput) (*model.Lesson, error) {
	chapter, err := s.ChapterRepo.FindByID(in.ChapterID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrChapterNotFound)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, util.Validation("title is required")
	}
	if in.EstimatedMinutes < 0 {
		return nil, util.Validation("estimatedMinutes cannot be negative")
	}

	order, err := resolveOrderIndex(in.OrderIndex,
		func(i int) (bool, error) { return s.LessonRepo.OrderIndexTaken(chapter.ID, i, 0) },
		func() (int, error) { return s.LessonRepo.MaxOrderIndex(chapter.ID) },
	)
	if err != nil {
		return nil, err
	}

	lesson := &model.Lesson{
		ChapterID:        chapter.ID,
		Title:            title,
		Content:          in.Content,
		EstimatedMinutes: in.EstimatedMinutes,
		OrderIndex:       order,
	}
	if in.IsPublished != nil {
		lesson.IsPublished = *in.IsPublished
	}
	if err := s.LessonRepo.Create(lesson); err != nil {
		return nil, err
	}
	s.Cache.Invalidate(ctx, chapter.CourseID)
	return lesson, nil
}

func (s *ContentService) UpdateLesson(ctx context.Context, id uint, in LessonInput) (*model.Lesson, error) {
	lesson, err := s.LessonRepo.FindByID(id)
	if err != nil {
		return nil, notFoundAs(err, util.ErrLessonNotFound)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, util.Validation("title is required")
	}
	if in.EstimatedMinutes < 0 {
		return nil, util.Validation("estimatedMinutes cannot be negative")
	}
	lesson.Title = title
	lesson.Content = in.Content
	lesson.EstimatedMinutes = in.EstimatedMinutes
	if in.IsPublished != nil {
		lesson.IsPublished = *in.IsPublished
	}

	if in.OrderIndex != nil && *in.OrderIndex != lesson.OrderIndex {
		order, err := resolveOrderIndex(in.OrderIndex,
			func(i int) (bool, error) { return s.LessonRepo.OrderIndexTaken(lesson.ChapterID, i, id) },
			func() (int, error) { return s.LessonRepo.MaxOrderIndex(lesson.ChapterID) },
		)
		if err != nil {
			return nil, err
		}
		lesson.OrderIndex = order
	}

	if err := s.LessonRepo.Update(lesson); err != nil {
		return nil, err
	}
	s.invalidateLessonCourse(ctx, id)
	return lesson, nil
}

func (s *ContentService) SetLessonPublished(ctx context.Context, id uint, published bool) (*model.Lesson, error) {
	lesson, err := s.LessonRepo.FindByID(id)
	if err != nil {
		return nil, notFoundAs(err, util.ErrLessonNotFound)
	}
	lesson.IsPublished = published
	if err := s.LessonRepo.Update(lesson); err != nil {
		return nil, err
	}
	s.invalidateLessonCourse(ctx, id)
	return lesson, nil
}

func (s *ContentService) DeleteLesson(ctx context.Context, id uint) error {
	if _, err := s.LessonRepo.FindByID(id); err != nil {
		return notFoundAs(err, util.ErrLessonNotFound)
	}
	if err := s.LessonRepo.SoftDelete(id, s.Now()); err != nil {
		return err
	}
	s.invalidateLessonCourse(ctx, id)
	return nil
}

// UploadLessonAsset 上传课时图片或 PDF，返回可在 markdown 中引用的地址
func (s *ContentService) UploadLessonAsset(ctx context.Context, lessonID uint, file *multipart.FileHeader) (*AssetResult, error) {
	if _, err := s.LessonRepo.FindByID(lessonID); err != nil {
		return nil, notFoundAs(err, util.ErrLessonNotFound)
	}
	if file.Size > maxAssetSize {
		return nil, util.Validation("file is too large")
	}
	if !util.HasAllowedExtension(file.Filename) {
		return nil, util.Validation("unsupported file extension")
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	// 深度验证 MIME 类型
	contentType, err := util.ValidateMimeType(src, []string{util.MimeImage, util.MimePDF, "text/xml", "text/plain"})
	if err != nil {
		return nil, util.Validation(err.Error())
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	name := fmt.Sprintf("lessons/%d/%s%s", lessonID, model.GenerateUUID(), ext)
	url, err := s.StorageService.Upload(ctx, name, src, file.Size, contentType)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Lesson asset uploaded", zap.Uint("lessonID", lessonID), zap.String("file", name))
	return &AssetResult{
		URL:         url,
		Filename:    name,
		ContentType: contentType,
		Markdown:    assetMarkdown(file.Filename, url, contentType),
	}, nil
}

// assetMarkdown 图片生成内嵌语法，其余生成链接
func assetMarkdown(original, url, contentType string) string {
	label := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	if util.IsImage(contentType) {
		return fmt.Sprintf("![%s](%s)", label, url)
	}
	return fmt.Sprintf("[%s](%s)", label, url)
}

func (s *ContentService) invalidateLessonCourse(ctx context.Context, lessonID uint) {
	courseID, err := s.LessonRepo.CourseIDOf(lessonID)
	if err != nil || courseID == 0 {
		return
	}
	s.Cache.Invalidate(ctx, courseID)
}
