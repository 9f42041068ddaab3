package controller

import (
	"errors"
	"io"
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"time"

	"github.com/gin-gonic/gin"
)

type SessionController struct {
	SessionService *service.SessionService
}

func NewSessionController(sessionService *service.SessionService) *SessionController {
	return &SessionController{SessionService: sessionService}
}

// StartSessionRequest 开始学习会话
// swagger:model StartSessionRequest
type StartSessionRequest struct {
	StartReport *string `json:"startReport"`
	LessonID    *uint   `json:"lessonId"`
}

// EndSessionRequest 结束学习会话
// swagger:model EndSessionRequest
type EndSessionRequest struct {
	SessionID      string     `json:"sessionId"`
	EndTime        *time.Time `json:"endTime"`
	ProgressReport string     `json:"progressReport"`
}

// bindOptionalJSON 请求体可以为空
func bindOptionalJSON(ctx *gin.Context, obj interface{}) error {
	if err := ctx.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// StartSession godoc
// @Summary 开始学习会话
// @Description 关闭当前未结束的会话并开始新会话，可选关联课时
// @Tags 学习会话
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body StartSessionRequest false "开始报告和课时"
// @Success 200 {object} model.StartSessionResult
// @Failure 401 {object} util.ErrorResponse "未登录"
// @Failure 404 {object} util.ErrorResponse "课时不存在"
// @Router /session/start [post]
func (c *SessionController) StartSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req StartSessionRequest
	if err := bindOptionalJSON(ctx, &req); err != nil {
		util.BadRequest(ctx, "invalid request body")
		return
	}

	result, err := c.SessionService.Start(ctx.Request.Context(), claims.UserID, service.StartSessionInput{
		StartReport: req.StartReport,
		LessonID:    req.LessonID,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// EndSession godoc
// @Summary 结束学习会话
// @Description 提交进度报告（至少 20 个字符）结束会话
// @Tags 学习会话
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body EndSessionRequest true "会话 ID、结束时间和进度报告"
// @Success 200 {object} model.EndSessionResult
// @Failure 400 {object} util.ErrorResponse "参数错误"
// @Failure 403 {object} util.ErrorResponse "不是自己的会话"
// @Failure 404 {object} util.ErrorResponse "会话不存在"
// @Failure 409 {object} util.ErrorResponse "会话已结束"
// @Router /session/end [put]
func (c *SessionController) EndSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req EndSessionRequest
	if err := bindOptionalJSON(ctx, &req); err != nil {
		util.BadRequest(ctx, "invalid request body")
		return
	}

	result, err := c.SessionService.End(ctx.Request.Context(), claims.UserID, service.EndSessionInput{
		SessionID:      req.SessionID,
		EndTime:        req.EndTime,
		ProgressReport: req.ProgressReport,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// GetStatus godoc
// @Summary 查询学习会话状态
// @Tags 学习会话
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} model.SessionStatusResult
// @Failure 401 {object} util.ErrorResponse "未登录"
// @Router /session/status [get]
func (c *SessionController) GetStatus(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.SessionService.Status(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}
