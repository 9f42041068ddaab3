package app

import (
	"lms_backend/docs"
	"lms_backend/internal/config"
	"lms_backend/internal/middleware"
	"lms_backend/internal/model"
	"lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要登录的路由，任意角色
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg, repos.user))
	{
		a.registerLearnerRoutes(authGroup, c)
	}

	// 3. 管理端
	a.registerAdminRoutes(router, c, repos, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerLearnerRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/profile", c.auth.GetProfile)
	group.POST("/auth/reset-password", c.auth.ResetPassword)

	session := group.Group("/session")
	{
		session.POST("/start", c.session.StartSession)
		session.PUT("/end", c.session.EndSession)
		session.GET("/status", c.session.GetStatus)
	}

	progress := group.Group("/progress")
	{
		progress.POST("/:lessonId/start", c.progress.StartLesson)
		progress.POST("/:lessonId/complete", c.progress.CompleteLesson)
	}

	group.GET("/courses", c.content.ListCourses)
	group.GET("/courses/:id", c.content.GetCourse)
	group.GET("/lessons/:id", c.content.GetLesson)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg, repos.user))

	// 内容管理：教师和管理员
	content := admin.Group("")
	content.Use(middleware.RoleMiddleware(model.Instructor))
	{
		content.GET("/courses", c.content.ListCourses)
		content.POST("/courses", c.content.CreateCourse)
		content.GET("/courses/:id", c.content.AdminGetCourse)
		content.PUT("/courses/:id", c.content.UpdateCourse)
		content.DELETE("/courses/:id", c.content.DeleteCourse)
		content.GET("/courses/:id/chapters", c.content.ListChapters)
		content.POST("/courses/:id/chapters", c.content.CreateChapter)

		content.PUT("/chapters/:id", c.content.UpdateChapter)
		content.DELETE("/chapters/:id", c.content.DeleteChapter)
		content.GET("/chapters/:id/lessons", c.content.ListLessons)

		content.POST("/lessons", c.content.CreateLesson)
		content.GET("/lessons/:id", c.content.AdminGetLesson)
		content.PUT("/lessons/:id", c.content.UpdateLesson)
		content.PUT("/lessons/:id/publish", c.content.PublishLesson)
		content.DELETE("/lessons/:id", c.content.DeleteLesson)
		content.POST("/lessons/:id/assets", c.content.UploadAsset)

		content.GET("/progress", c.progress.Overview)
		content.GET("/progress/:userId", c.progress.UserDetail)
	}

	// 用户管理：仅管理员
	users := admin.Group("/users")
	users.Use(middleware.RoleMiddleware(model.Admin))
	{
		users.GET("", c.user.ListUsers)
		users.POST("", c.user.CreateUser)
		users.PUT("/:id", c.user.UpdateUser)
		users.DELETE("/:id", c.user.DeleteUser)
	}
}
