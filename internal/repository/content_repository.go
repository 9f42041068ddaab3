package repository

import (
	"lms_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) Update(course *model.Course) error {
	return r.DB.Save(course).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.Where("id = ? AND is_deleted = ?", id, false).First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) List() ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Where("is_deleted = ?", false).Order("order_index ASC, id ASC").Find(&courses).Error
	return courses, err
}

// FindTree 课程及未删除的章节，publishedOnly 时只带已发布课时
func (r *CourseRepository) FindTree(id uint, publishedOnly bool) (*model.Course, error) {
	var course model.Course
	err := r.DB.
		Preload("Chapters", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_deleted = ?", false).Order("order_index ASC, id ASC")
		}).
		Preload("Chapters.Lessons", func(db *gorm.DB) *gorm.DB {
			db = db.Where("is_deleted = ?", false)
			if publishedOnly {
				db = db.Where("is_published = ?", true)
			}
			return db.Order("order_index ASC, id ASC")
		}).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// OrderIndexTaken 排序号在全局课程中是否已被占用
func (r *CourseRepository) OrderIndexTaken(orderIndex int, excludeID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Course{}).
		Where("order_index = ? AND is_deleted = ? AND id <> ?", orderIndex, false, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *CourseRepository) MaxOrderIndex() (int, error) {
	var max *int
	err := r.DB.Model(&model.Course{}).
		Where("is_deleted = ?", false).
		Select("MAX(order_index)").
		Scan(&max).Error
	if err != nil || max == nil {
		return 0, err
	}
	return *max, nil
}

// SoftDeleteCascade 在一个事务中删除课程及其章节、课时
func (r *CourseRepository) SoftDeleteCascade(id uint, at time.Time) error {
	fields := map[string]interface{}{"is_deleted": true, "deleted_at": at}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		chapterIDs := tx.Model(&model.Chapter{}).Select("id").Where("course_id = ?", id)
		if err := tx.Model(&model.Lesson{}).
			Where("chapter_id IN (?) AND is_deleted = ?", chapterIDs, false).
			Updates(fields).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Chapter{}).
			Where("course_id = ? AND is_deleted = ?", id, false).
			Updates(fields).Error; err != nil {
			return err
		}
		return tx.Model(&model.Course{}).
			Where("id = ?", id).
			Updates(fields).Error
	})
}

type ChapterRepository struct {
	DB *gorm.DB
}

func NewChapterRepository(db *gorm.DB) *ChapterRepository {
	return &ChapterRepository{DB: db}
}

func (r *ChapterRepository) Create(chapter *model.Chapter) error {
	return r.DB.Create(chapter).Error
}

func (r *ChapterRepository) Update(chapter *model.Chapter) error {
	return r.DB.Save(chapter).Error
}

func (r *ChapterRepository) FindByID(id uint) (*model.Chapter, error) {
	var chapter model.Chapter
	err := r.DB.Where("id = ? AND is_deleted = ?", id, false).First(&chapter).Error
	if err != nil {
		return nil, err
	}
	return &chapter, nil
}

func (r *ChapterRepository) ListByCourse(courseID uint) ([]model.Chapter, error) {
	var chapters []model.Chapter
	err := r.DB.Where("course_id = ? AND is_deleted = ?", courseID, false).
		Order("order_index ASC, id ASC").
		Find(&chapters).Error
	return chapters, err
}

func (r *ChapterRepository) OrderIndexTaken(courseID uint, orderIndex int, excludeID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Chapter{}).
		Where("course_id = ? AND order_index = ? AND is_deleted = ? AND id <> ?", courseID, orderIndex, false, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *ChapterRepository) MaxOrderIndex(courseID uint) (int, error) {
	var max *int
	err := r.DB.Model(&model.Chapter{}).
		Where("course_id = ? AND is_deleted = ?", courseID, false).
		Select("MAX(order_index)").
		Scan(&max).Error
	if err != nil || max == nil {
		return 0, err
	}
	return *max, nil
}

func (r *ChapterRepository) SoftDeleteCascade(id uint, at time.Time) error {
	fields := map[string]interface{}{"is_deleted": true, "deleted_at": at}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Lesson{}).
			Where("chapter_id = ? AND is_deleted = ?", id, false).
			Updates(fields).Error; err != nil {
			return err
		}
		return tx.Model(&model.Chapter{}).
			Where("id = ?", id).
			Updates(fields).Error
	})
}

type LessonRepository struct {
	DB *gorm.DB
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: db}
}

func (r *LessonRepository) Create(lesson *model.Lesson) error {
	return r.DB.Create(lesson).Error
}

func (r *LessonRepository) Update(lesson *model.Lesson) error {
	return r.DB.Save(lesson).Error
}

// FindByID 课时及其所在章节、课程都未删除才算存在
func (r *LessonRepository) FindByID(id uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.
		Joins("JOIN chapters ON chapters.id = lessons.chapter_id AND chapters.is_deleted = ?", false).
		Joins("JOIN courses ON courses.id = chapters.course_id AND courses.is_deleted = ?", false).
		Where("lessons.id = ? AND lessons.is_deleted = ?", id, false).
		First(&lesson).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *LessonRepository) FindWithChapter(id uint) (*model.Lesson, error) {
	lesson, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}
	var chapter model.Chapter
	if err := r.DB.Preload("Course").First(&chapter, lesson.ChapterID).Error; err != nil {
		return nil, err
	}
	lesson.Chapter = &chapter
	return lesson, nil
}

func (r *LessonRepository) ListByChapter(chapterID uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Where("chapter_id = ? AND is_deleted = ?", chapterID, false).
		Order("order_index ASC, id ASC").
		Find(&lessons).Error
	return lessons, err
}

func (r *LessonRepository) OrderIndexTaken(chapterID uint, orderIndex int, excludeID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Lesson{}).
		Where("chapter_id = ? AND order_index = ? AND is_deleted = ? AND id <> ?", chapterID, orderIndex, false, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *LessonRepository) MaxOrderIndex(chapterID uint) (int, error) {
	var max *int
	err := r.DB.Model(&model.Lesson{}).
		Where("chapter_id = ? AND is_deleted = ?", chapterID, false).
		Select("MAX(order_index)").
		Scan(&max).Error
	if err != nil || max == nil {
		return 0, err
	}
	return *max, nil
}

func (r *LessonRepository) SoftDelete(id uint, at time.Time) error {
	return r.DB.Model(&model.Lesson{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{"is_deleted": true, "deleted_at": at}).
		Error
}

// CourseIDOf 课时所属课程，用于失效课程缓存
func (r *LessonRepository) CourseIDOf(lessonID uint) (uint, error) {
	var courseID uint
	err := r.DB.Table("lessons").
		Select("chapters.course_id").
		Joins("JOIN chapters ON chapters.id = lessons.chapter_id").
		Where("lessons.id = ?", lessonID).
		Scan(&courseID).Error
	return courseID, err
}
