package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ContentController struct {
	ContentService *service.ContentService
}

func NewContentController(contentService *service.ContentService) *ContentController {
	return &ContentController{ContentService: contentService}
}

// CourseRequest 课程
// swagger:model CourseRequest
type CourseRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	OrderIndex  *int   `json:"orderIndex" binding:"omitempty,min=0"`
}

// ChapterRequest 章节
// swagger:model ChapterRequest
type ChapterRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	OrderIndex  *int   `json:"orderIndex" binding:"omitempty,min=0"`
}

// LessonRequest 课时，content 为 markdown
// swagger:model LessonRequest
type LessonRequest struct {
	ChapterID        uint   `json:"chapterId"`
	Title            string `json:"title" binding:"required"`
	Content          string `json:"content"`
	EstimatedMinutes int    `json:"estimatedMinutes" binding:"min=0"`
	OrderIndex       *int   `json:"orderIndex" binding:"omitempty,min=0"`
	IsPublished      *bool  `json:"isPublished"`
}

// PublishRequest 发布或下线课时
// swagger:model PublishRequest
type PublishRequest struct {
	IsPublished *bool `json:"isPublished" binding:"required"`
}

func (r LessonRequest) input() service.LessonInput {
	return service.LessonInput{
		ChapterID:        r.ChapterID,
		Title:            r.Title,
		Content:          r.Content,
		EstimatedMinutes: r.EstimatedMinutes,
		OrderIndex:       r.OrderIndex,
		IsPublished:      r.IsPublished,
	}
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, ok := util.ParseID(ctx.Param(name))
	if !ok {
		util.BadRequest(ctx, "invalid "+name)
	}
	return id, ok
}

// ListCourses godoc
// @Summary 课程列表
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string][]model.Course
// @Router /courses [get]
func (c *ContentController) ListCourses(ctx *gin.Context) {
	courses, err := c.ContentService.ListCourses()
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"courses": courses})
}

// GetCourse godoc
// @Summary 课程目录
// @Description 章节及已发布课时
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 200 {object} map[string]model.Course
// @Failure 404 {object} util.ErrorResponse "课程不存在"
// @Router /courses/{id} [get]
func (c *ContentController) GetCourse(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	course, err := c.ContentService.CourseTree(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"course": course})
}

// GetLesson godoc
// @Summary 课时详情
// @Description 已发布课时及当前用户进度
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课时ID"
// @Success 200 {object} service.LessonView
// @Failure 404 {object} util.ErrorResponse "课时不存在"
// @Router /lessons/{id} [get]
func (c *ContentController) GetLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	view, err := c.ContentService.LessonForLearner(ctx.Request.Context(), claims.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// AdminGetCourse godoc
// @Summary 课程详情（管理）
// @Description 包含未发布课时
// @Tags 管理-课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 200 {object} map[string]model.Course
// @Router /admin/courses/{id} [get]
func (c *ContentController) AdminGetCourse(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	course, err := c.ContentService.AdminCourseTree(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"course": course})
}

// CreateCourse godoc
// @Summary 创建课程
// @Tags 管理-课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CourseRequest true "课程"
// @Success 201 {object} map[string]model.Course
// @Router /admin/courses [post]
func (c *ContentController) CreateCourse(ctx *gin.Context) {
	var req CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.ContentService.CreateCourse(service.CourseInput{
		Title:       req.Title,
		Description: req.Description,
		OrderIndex:  req.OrderIndex,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"course": course})
}

// UpdateCourse godoc
// @Summary 修改课程
// @Tags 管理-课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body CourseRequest true "课程"
// @Success 200 {object} map[string]model.Course
// @Router /admin/courses/{id} [put]
func (c *ContentController) UpdateCourse(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.ContentService.UpdateCourse(ctx.Request.Context(), id, service.CourseInput{
		Title:       req.Title,
		Description: req.Description,
		OrderIndex:  req.OrderIndex,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"course": course})
}

// DeleteCourse godoc
// @Summary 删除课程
// @Description 同时删除其下章节和课时
// @Tags 管理-课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 200 {object} map[string]string
// @Router /admin/courses/{id} [delete]
func (c *ContentController) DeleteCourse(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.ContentService.DeleteCourse(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "course deleted"})
}

// ListChapters godoc
// @Summary 章节列表
// @Tags 管理-课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 200 {object} map[string][]model.Chapter
// @Router /admin/courses/{id}/chapters [get]
func (c *ContentController) ListChapters(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	chapters, err := c.ContentService.ListChapters(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"chapters": chapters})
}

// CreateChapter godoc
// @Summary 创建章节
// @Tags 管理-课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body ChapterRequest true "章节"
// @Success 201 {object} map[string]model.Chapter
// @Router /admin/courses/{id}/chapters [post]
func (c *ContentController) CreateChapter(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req ChapterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	chapter, err := c.ContentService.CreateChapter(ctx.Request.Context(), courseID, service.ChapterInput{
		Title:       req.Title,
		Description: req.Description,
		OrderIndex:  req.OrderIndex,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"chapter": chapter})
}

// UpdateChapter godoc
// @Summary 修改章节
// @Tags 管理-课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "章节ID"
// @Param body body ChapterRequest true "章节"
// @Success 200 {object} map[string]model.Chapter
// @Router /admin/chapters/{id} [put]
func (c *ContentController) UpdateChapter(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req ChapterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	chapter, err := c.ContentService.UpdateChapter(ctx.Request.Context(), id, service.ChapterInput{
		Title:       req.Title,
		Description: req.Description,
		OrderIndex:  req.OrderIndex,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"chapter": chapter})
}

// DeleteChapter godoc
// @Summary 删除章节
// @Description 同时删除其下课时
// @Tags 管理-课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "章节ID"
// @Success 200 {object} map[string]string
// @Router /admin/chapters/{id} [delete]
func (c *ContentController) DeleteChapter(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.ContentService.DeleteChapter(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "chapter deleted"})
}

// ListLessons godoc
// @Summary 课时列表
// @Tags 管理-课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "章节ID"
// @Success 200 {object} map[string][]model.Lesson
// @Router /admin/chapters/{id}/lessons [get]
func (c *ContentController) ListLessons(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	lessons, err := c.ContentService.ListLessons(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"lessons": lessons})
}

// AdminGetLesson godoc
// @Summary 课时详情（管理）
// @Tags 管理-课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课时ID"
// @Success 200 {object} map[string]model.Lesson
// @Router /admin/lessons/{id} [get]
func (c *ContentController) AdminGetLesson(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	lesson, err := c.ContentService.GetLesson(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"lesson": lesson})
}

// CreateLesson godoc
// @Summary 创建课时
// @Tags 管理-课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body LessonRequest true "课时"
// @Success 201 {object} map[string]model.Lesson
// @Router /admin/lessons [post]
func (c *ContentController) CreateLesson(ctx *gin.Context) {
	var req LessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.ChapterID == 0 {
		util.BadRequest(ctx, "chapterId is required")
		return
	}
	lesson, err := c.ContentService.CreateLesson(ctx.Request.Context(), req.input())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"lesson": lesson})
}

// UpdateLesson godoc
// @Summary 修改课时
// @Tags 管理-课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课时ID"
// @Param body body LessonRequest true "课时"
// @Success 200 {object} map[string]model.Lesson
// @Router /admin/lessons/{id} [put]
func (c *ContentController) UpdateLesson(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req LessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	lesson, err := c.ContentService.UpdateLesson(ctx.Request.Context(), id, req.input())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"lesson": lesson})
}

// PublishLesson godoc
// @Summary 发布或下线课时
// @Tags 管理-课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课时ID"
// @Param body body PublishRequest true "发布状态"
// @Success 200 {object} map[string]model.Lesson
// @Router /admin/lessons/{id}/publish [put]
func (c *ContentController) PublishLesson(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req PublishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "isPublished is required")
		return
	}
	lesson, err := c.ContentService.SetLessonPublished(ctx.Request.Context(), id, *req.IsPublished)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"lesson": lesson})
}

// DeleteLesson godoc
// @Summary 删除课时
// @Tags 管理-课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课时ID"
// @Success 200 {object} map[string]string
// @Router /admin/lessons/{id} [delete]
func (c *ContentController) DeleteLesson(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.ContentService.DeleteLesson(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "lesson deleted"})
}

// UploadAsset godoc
// @Summary 上传课时附件
// @Description 图片或 PDF，返回可在 markdown 中引用的地址
// @Tags 管理-课程
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课时ID"
// @Param file formData file true "附件"
// @Success 201 {object} service.AssetResult
// @Router /admin/lessons/{id}/assets [post]
func (c *ContentController) UploadAsset(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	result, err := c.ContentService.UploadLessonAsset(ctx.Request.Context(), id, file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, result)
}
