package app

import (
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/docs"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/middleware"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/model"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	// 接口注释中的路径已带 /api 前缀
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 2. 学员接口
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(a.Config))
	{
		a.registerLearnerRoutes(authGroup, c)
	}

	// 3. 测评编辑，讲师与管理员
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(a.Config), middleware.RoleMiddleware(model.Instructor))
	{
		admin.GET("/evaluation/:moduleId", c.evaluation.GetAuthoringDefinition)
		admin.PUT("/evaluation/:moduleId", c.evaluation.ReplaceDefinition)
	}
}

func (a *App) registerLearnerRoutes(rg *gin.RouterGroup, c *controllers) {
	progress := rg.Group("/progress")
	{
		progress.POST("", c.progress.RecordProgress)
		progress.GET("", c.progress.ListProgress)
		progress.GET("/:moduleId", c.progress.GetProgress)
	}

	evaluation := rg.Group("/evaluation")
	{
		evaluation.GET("/:moduleId", c.evaluation.GetDefinition)
		evaluation.POST("/:moduleId/attempts", c.evaluation.SubmitAttempt)
		evaluation.GET("/:moduleId/attempts", c.evaluation.ListAttempts)
		evaluation.GET("/:moduleId/attempts/:attemptNumber", c.evaluation.GetAttempt)
	}
}
