package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/sma-academic-api/internal/middleware"
	"github.com/noah-isme/sma-academic-api/internal/models"
	"github.com/noah-isme/sma-academic-api/pkg/config"
	"github.com/noah-isme/sma-academic-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-academic-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-academic-api/pkg/middleware/requestid"
)

// allow lists the administrative roles plus any extra role or SelfParam rule.
func allow(extra ...string) gin.HandlerFunc {
	roles := []string{string(models.RoleSuperAdmin), string(models.RoleAdmin)}
	return middleware.RBAC(append(roles, extra...)...)
}

func registerRoutes(r *gin.Engine, cfg *config.Config, a *app) {
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics))

	r.GET("/health", a.ops.Health)
	r.GET("/ready", a.ops.Ready)
	r.GET("/metrics", a.ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(a.tokens))

	teacher := string(models.RoleTeacher)

	schedules := api.Group("/schedules")
	schedules.GET("", allow(teacher), a.schedules.List)
	schedules.GET("/:id", allow(teacher), a.schedules.Get)
	schedules.POST("/check", allow(), a.schedules.Check)
	schedules.POST("/bulk", allow(), a.schedules.BulkCreate)
	schedules.POST("", allow(), a.schedules.Create)
	schedules.PUT("/:id", allow(), a.schedules.Update)
	schedules.DELETE("/:id", allow(), a.schedules.Deactivate)

	api.GET("/teachers/:teacherId/schedules", allow(middleware.SelfParam("teacherId")), a.schedules.ListByTeacher)
	api.GET("/classrooms/:classroomId/schedules", a.schedules.ListByClassroom)

	assessments := api.Group("/assessments", allow(teacher))
	assessments.GET("", a.assessments.List)
	assessments.POST("", a.assessments.Create)
	assessments.GET("/:id", a.assessments.Get)
	assessments.PUT("/:id", a.assessments.Update)
	assessments.DELETE("/:id", a.assessments.Delete)
	assessments.POST("/:id/materialize", a.assessments.Materialize)
	assessments.GET("/:id/scores", a.assessments.ListScores)
	assessments.PUT("/:id/scores/:studentId", a.assessments.RecordScore)
	assessments.DELETE("/:id/scores/:studentId", a.assessments.ClearScore)

	studentSelf := allow(teacher, middleware.SelfParam("studentId"))
	api.GET("/students/:studentId/grades", studentSelf, a.grades.StudentPeriod)
	api.GET("/students/:studentId/gpa", studentSelf, a.grades.StudentCumulative)
	api.GET("/classrooms/:classroomId/rankings", allow(teacher), a.grades.ClassRanking)
	api.GET("/classrooms/:classroomId/rankings/export", allow(teacher), a.grades.ExportClassRanking)
}
