package controller

import (
	"lms_backend/internal/model"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// CreateUserRequest 管理员创建用户
// swagger:model CreateUserRequest
type CreateUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required,oneof=ADMIN INSTRUCTOR LEARNER"`
}

// UpdateUserRequest 修改姓名或角色
// swagger:model UpdateUserRequest
type UpdateUserRequest struct {
	Name *string `json:"name"`
	Role *string `json:"role" binding:"omitempty,oneof=ADMIN INSTRUCTOR LEARNER"`
}

// ListUsers godoc
// @Summary 用户列表
// @Tags 管理-用户
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string][]model.User
// @Router /admin/users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	users, err := c.UserService.ListUsers()
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"users": users})
}

// CreateUser godoc
// @Summary 创建用户
// @Description 生成临时密码，首次登录需修改
// @Tags 管理-用户
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CreateUserRequest true "用户信息"
// @Success 201 {object} service.CreatedUser
// @Failure 400 {object} util.ErrorResponse "参数错误"
// @Failure 409 {object} util.ErrorResponse "邮箱已被使用"
// @Router /admin/users [post]
func (c *UserController) CreateUser(ctx *gin.Context) {
	var req CreateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	created, err := c.UserService.CreateUser(ctx.Request.Context(), service.CreateUserInput{
		Name:  req.Name,
		Email: req.Email,
		Role:  model.UserRole(req.Role),
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, created)
}

// UpdateUser godoc
// @Summary 修改用户
// @Tags 管理-用户
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Param body body UpdateUserRequest true "用户信息"
// @Success 200 {object} map[string]model.User
// @Failure 404 {object} util.ErrorResponse "用户不存在"
// @Router /admin/users/{id} [put]
func (c *UserController) UpdateUser(ctx *gin.Context) {
	id, ok := util.ParseID(ctx.Param("id"))
	if !ok {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	var req UpdateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	in := service.UpdateUserInput{Name: req.Name}
	if req.Role != nil {
		role := model.UserRole(*req.Role)
		in.Role = &role
	}

	user, err := c.UserService.UpdateUser(id, in)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"user": user})
}

// DeleteUser godoc
// @Summary 删除用户
// @Description 逻辑删除，不能删除自己
// @Tags 管理-用户
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} util.ErrorResponse "不能删除自己"
// @Failure 404 {object} util.ErrorResponse "用户不存在"
// @Router /admin/users/{id} [delete]
func (c *UserController) DeleteUser(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	id, ok := util.ParseID(ctx.Param("id"))
	if !ok {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	if err := c.UserService.DeleteUser(claims.UserID, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "user deleted"})
}
