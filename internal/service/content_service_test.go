package service

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/testutil"
	"lms_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type countingCache struct {
	store       map[uint]*model.Course
	invalidated []uint
}

func newCountingCache() *countingCache {
	return &countingCache{store: make(map[uint]*model.Course)}
}

func (c *countingCache) Get(_ context.Context, id uint) (*model.Course, bool) {
	course, ok := c.store[id]
	return course, ok
}

func (c *countingCache) Set(_ context.Context, course *model.Course) {
	c.store[course.ID] = course
}

func (c *countingCache) Invalidate(_ context.Context, id uint) {
	delete(c.store, id)
	c.invalidated = append(c.invalidated, id)
}

func newContentFixture(t *testing.T) (*ContentService, *countingCache, *gorm.DB) {
	db := testutil.DB(t)
	cache := newCountingCache()
	storage := &StorageService{Provider: &LocalStorageProvider{Config: &config.StorageConfig{LocalPath: t.TempDir()}}}
	svc := NewContentService(
		repository.NewCourseRepository(db),
		repository.NewChapterRepository(db),
		repository.NewLessonRepository(db),
		repository.NewProgressRepository(db),
		storage,
		cache,
	)
	return svc, cache, db
}

func intPtr(i int) *int    { return &i }
func boolPtr(b bool) *bool { return &b }

func TestContentService_OrderIndexConflictsMoveToEnd(t *testing.T) {
	svc, _, _ := newContentFixture(t)
	ctx := context.Background()

	first, err := svc.CreateCourse(CourseInput{Title: "Go Basics", OrderIndex: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, first.OrderIndex)

	second, err := svc.CreateCourse(CourseInput{Title: "Go Advanced", OrderIndex: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, 2, second.OrderIndex)

	chapter, err := svc.CreateChapter(ctx, first.ID, ChapterInput{Title: "Syntax"})
	require.NoError(t, err)
	assert.Equal(t, 1, chapter.OrderIndex)

	l1, err := svc.CreateLesson(ctx, LessonInput{ChapterID: chapter.ID, Title: "Vars", OrderIndex: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, l1.OrderIndex)

	l2, err := svc.CreateLesson(ctx, LessonInput{ChapterID: chapter.ID, Title: "Loops", OrderIndex: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, 4, l2.OrderIndex)

	// 其他章节的序号互不影响
	other, err := svc.CreateChapter(ctx, first.ID, ChapterInput{Title: "Types"})
	require.NoError(t, err)
	l3, err := svc.CreateLesson(ctx, LessonInput{ChapterID: other.ID, Title: "Ints", OrderIndex: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, l3.OrderIndex)
}

func TestContentService_Validation(t *testing.T) {
	svc, _, _ := newContentFixture(t)
	ctx := context.Background()

	_, err := svc.CreateCourse(CourseInput{Title: "   "})
	assert.Equal(t, util.KindValidation, util.KindOf(err))

	_, err = svc.CreateChapter(ctx, 404, ChapterInput{Title: "Orphan"})
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	_, err = svc.CreateLesson(ctx, LessonInput{ChapterID: 404, Title: "Orphan"})
	assert.ErrorIs(t, err, util.ErrChapterNotFound)
}

func TestContentService_DeleteCourseCascades(t *testing.T) {
	svc, cache, db := newContentFixture(t)
	ctx := context.Background()

	course, err := svc.CreateCourse(CourseInput{Title: "Go"})
	require.NoError(t, err)
	chapter, err := svc.CreateChapter(ctx, course.ID, ChapterInput{Title: "Intro"})
	require.NoError(t, err)
	lesson, err := svc.CreateLesson(ctx, LessonInput{ChapterID: chapter.ID, Title: "Hello", IsPublished: boolPtr(true)})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCourse(ctx, course.ID))
	assert.Contains(t, cache.invalidated, course.ID)

	var stored model.Lesson
	require.NoError(t, db.First(&stored, lesson.ID).Error)
	assert.True(t, stored.IsDeleted)
	assert.NotNil(t, stored.DeletedAt)

	_, err = svc.GetLesson(lesson.ID)
	assert.ErrorIs(t, err, util.ErrLessonNotFound)
	_, err = svc.ListChapters(course.ID)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	courses, err := svc.ListCourses()
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestContentService_DeleteChapterCascades(t *testing.T) {
	svc, _, _ := newContentFixture(t)
	ctx := context.Background()

	course, err := svc.CreateCourse(CourseInput{Title: "Go"})
	require.NoError(t, err)
	keep, err := svc.CreateChapter(ctx, course.ID, ChapterInput{Title: "Keep"})
	require.NoError(t, err)
	drop, err := svc.CreateChapter(ctx, course.ID, ChapterInput{Title: "Drop"})
	require.NoError(t, err)
	kept, err := svc.CreateLesson(ctx, LessonInput{ChapterID: keep.ID, Title: "Stays"})
	require.NoError(t, err)
	dropped, err := svc.CreateLesson(ctx, LessonInput{ChapterID: drop.ID, Title: "Goes"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteChapter(ctx, drop.ID))

	_, err = svc.GetLesson(dropped.ID)
	assert.ErrorIs(t, err, util.ErrLessonNotFound)
	_, err = svc.GetLesson(kept.ID)
	assert.NoError(t, err)

	chapters, err := svc.ListChapters(course.ID)
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	assert.Equal(t, keep.ID, chapters[0].ID)
}

func TestContentService_LearnerVisibility(t *testing.T) {
	svc, cache, db := newContentFixture(t)
	ctx := context.Background()
	learner := testutil.CreateUser(t, db, "learner@example.com", model.Learner)

	course, err := svc.CreateCourse(CourseInput{Title: "Go"})
	require.NoError(t, err)
	chapter, err := svc.CreateChapter(ctx, course.ID, ChapterInput{Title: "Intro"})
	require.NoError(t, err)
	draft, err := svc.CreateLesson(ctx, LessonInput{ChapterID: chapter.ID, Title: "Draft"})
	require.NoError(t, err)
	live, err := svc.CreateLesson(ctx, LessonInput{ChapterID: chapter.ID, Title: "Live", IsPublished: boolPtr(true)})
	require.NoError(t, err)

	_, err = svc.LessonForLearner(ctx, learner.ID, draft.ID)
	assert.ErrorIs(t, err, util.ErrLessonNotFound)

	view, err := svc.LessonForLearner(ctx, learner.ID, live.ID)
	require.NoError(t, err)
	assert.Equal(t, "Live", view.Lesson.Title)
	assert.Nil(t, view.Progress)

	tree, err := svc.CourseTree(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, tree.Chapters, 1)
	require.Len(t, tree.Chapters[0].Lessons, 1)
	assert.Equal(t, live.ID, tree.Chapters[0].Lessons[0].ID)
	assert.Contains(t, cache.store, course.ID)

	// 发布后缓存失效，目录包含新课时
	_, err = svc.SetLessonPublished(ctx, draft.ID, true)
	require.NoError(t, err)
	assert.NotContains(t, cache.store, course.ID)

	tree, err = svc.CourseTree(ctx, course.ID)
	require.NoError(t, err)
	assert.Len(t, tree.Chapters[0].Lessons, 2)

	admin, err := svc.AdminCourseTree(course.ID)
	require.NoError(t, err)
	assert.Len(t, admin.Chapters[0].Lessons, 2)
}

func multipartFile(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm.File[field][0]
}

func TestContentService_UploadLessonAsset(t *testing.T) {
	svc, _, _ := newContentFixture(t)
	ctx := context.Background()

	course, err := svc.CreateCourse(CourseInput{Title: "Go"})
	require.NoError(t, err)
	chapter, err := svc.CreateChapter(ctx, course.ID, ChapterInput{Title: "Intro"})
	require.NoError(t, err)
	lesson, err := svc.CreateLesson(ctx, LessonInput{ChapterID: chapter.ID, Title: "Hello"})
	require.NoError(t, err)

	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
	res, err := svc.UploadLessonAsset(ctx, lesson.ID, multipartFile(t, "file", "notes.pdf", pdf))
	require.NoError(t, err)
	assert.Equal(t, util.MimePDF, res.ContentType)
	assert.True(t, strings.HasPrefix(res.Filename, "lessons/"))
	assert.True(t, strings.HasSuffix(res.Filename, ".pdf"))
	assert.Equal(t, "/uploads/"+res.Filename, res.URL)
	assert.Equal(t, "[notes]("+res.URL+")", res.Markdown)

	local := svc.StorageService.Provider.(*LocalStorageProvider)
	stored, err := os.ReadFile(filepath.Join(local.Config.LocalPath, res.Filename))
	require.NoError(t, err)
	assert.Equal(t, pdf, stored)

	_, err = svc.UploadLessonAsset(ctx, lesson.ID, multipartFile(t, "file", "script.exe", pdf))
	assert.Equal(t, util.KindValidation, util.KindOf(err))

	_, err = svc.UploadLessonAsset(ctx, lesson.ID, multipartFile(t, "file", "fake.png", []byte("PK\x03\x04archive-bytes")))
	assert.Equal(t, util.KindValidation, util.KindOf(err))
}

func TestAssetMarkdown(t *testing.T) {
	assert.Equal(t, "![diagram](/uploads/a.png)", assetMarkdown("diagram.png", "/uploads/a.png", "image/png"))
	assert.Equal(t, "[slides](/uploads/b.pdf)", assetMarkdown("slides.pdf", "/uploads/b.pdf", util.MimePDF))
}
