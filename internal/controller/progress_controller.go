package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
	SessionService  *service.SessionService
	UserService     *service.UserService
}

func NewProgressController(progressService *service.ProgressService, sessionService *service.SessionService, userService *service.UserService) *ProgressController {
	return &ProgressController{
		ProgressService: progressService,
		SessionService:  sessionService,
		UserService:     userService,
	}
}

// CompleteLessonRequest 完成课时
// swagger:model CompleteLessonRequest
type CompleteLessonRequest struct {
	ProgressReport string `json:"progressReport"`
}

// StartLesson godoc
// @Summary 开始学习课时
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param lessonId path int true "课时ID"
// @Success 200 {object} map[string]model.UserProgress
// @Failure 400 {object} util.ErrorResponse "课时ID无效"
// @Failure 404 {object} util.ErrorResponse "课时不存在"
// @Router /progress/{lessonId}/start [post]
func (c *ProgressController) StartLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	lessonID, ok := util.ParseID(ctx.Param("lessonId"))
	if !ok {
		util.BadRequest(ctx, "invalid lesson id")
		return
	}

	progress, err := c.ProgressService.StartLesson(ctx.Request.Context(), claims.UserID, lessonID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"userProgress": progress})
}

// CompleteLesson godoc
// @Summary 完成课时
// @Description 附带至少 20 个字符的报告时同时结束该课时的学习会话
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param lessonId path int true "课时ID"
// @Param body body CompleteLessonRequest false "进度报告"
// @Success 200 {object} map[string]model.UserProgress
// @Failure 400 {object} util.ErrorResponse "课时ID无效"
// @Failure 404 {object} util.ErrorResponse "课时不存在"
// @Router /progress/{lessonId}/complete [post]
func (c *ProgressController) CompleteLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	lessonID, ok := util.ParseID(ctx.Param("lessonId"))
	if !ok {
		util.BadRequest(ctx, "invalid lesson id")
		return
	}

	var req CompleteLessonRequest
	if err := bindOptionalJSON(ctx, &req); err != nil {
		util.BadRequest(ctx, "invalid request body")
		return
	}

	progress, err := c.ProgressService.CompleteLesson(ctx.Request.Context(), claims.UserID, lessonID, req.ProgressReport)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"userProgress": progress})
}

// Overview godoc
// @Summary 学员进度概览
// @Tags 管理-进度
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string][]repository.UserProgressSummary
// @Router /admin/progress [get]
func (c *ProgressController) Overview(ctx *gin.Context) {
	rows, err := c.ProgressService.Summary(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"learners": rows})
}

// UserDetail godoc
// @Summary 单个用户的会话和进度
// @Tags 管理-进度
// @Produce json
// @Security ApiKeyAuth
// @Param userId path int true "用户ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} util.ErrorResponse "用户不存在"
// @Router /admin/progress/{userId} [get]
func (c *ProgressController) UserDetail(ctx *gin.Context) {
	userID, ok := util.ParseID(ctx.Param("userId"))
	if !ok {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	user, err := c.UserService.GetUser(userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	progress, err := c.ProgressService.ListForUser(ctx.Request.Context(), userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	sessions, err := c.SessionService.History(ctx.Request.Context(), userID, 50)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"user":     user,
		"progress": progress,
		"sessions": sessions,
	})
}
