package server

import (
	"net/http"
	"time"

	"pmdashboard/internal/auth"
	"pmdashboard/internal/config"
	"pmdashboard/internal/handler"
	mw "pmdashboard/internal/middleware"
	"pmdashboard/internal/metrics"
	"pmdashboard/internal/model"
	"pmdashboard/internal/report"
	"pmdashboard/internal/repository"
	"pmdashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type handlers struct {
	authn      auth.Authenticator
	auth       *handler.AuthHandler
	users      *handler.UserHandler
	projects   *handler.ProjectHandler
	milestones *handler.MilestoneHandler
	tasks      *handler.TaskHandler
	analytics  *handler.AnalyticsHandler
	reports    *handler.ReportHandler
}

func middleware(log *zap.Logger, m *metrics.Metrics) []gin.HandlerFunc {
	return []gin.HandlerFunc{mw.Recovery(log), mw.Logger(log), mw.Metrics(m)}
}

func newHandlers(cfg *config.Config, db *gorm.DB, log *zap.Logger, m *metrics.Metrics,
	revoked auth.RevocationStore, archive report.Archive) handlers {
	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	milestoneRepo := repository.NewMilestoneRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	activityRepo := repository.NewActivityRepository(db, log, m)

	// Initialize services
	tokens := auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authService := auth.NewService(userRepo, activityRepo, tokens, revoked, m, log)
	userService := service.NewUserService(userRepo, projectRepo, taskRepo, statsRepo, service.SystemClock)
	projectService := service.NewProjectService(projectRepo, memberRepo, userRepo, m)
	milestoneService := service.NewMilestoneService(projectRepo, memberRepo, milestoneRepo)
	taskService := service.NewTaskService(projectRepo, memberRepo, taskRepo, milestoneRepo, commentRepo, userRepo, m, service.SystemClock)
	progressService := service.NewProgressService(projectRepo, memberRepo, milestoneRepo, statsRepo, activityRepo, service.SystemClock)
	generator := report.NewGenerator(projectService, taskService, progressService, archive, m, service.SystemClock)

	// Initialize handlers
	return handlers{
		authn:      authService,
		auth:       handler.NewAuthHandler(authService, log),
		users:      handler.NewUserHandler(userService, log),
		projects:   handler.NewProjectHandler(projectService, log),
		milestones: handler.NewMilestoneHandler(milestoneService, log),
		tasks:      handler.NewTaskHandler(taskService, log),
		analytics:  handler.NewAnalyticsHandler(progressService, log),
		reports:    handler.NewReportHandler(generator, log),
	}
}

func registerRoutes(r *gin.Engine, h handlers, gatherer prometheus.Gatherer) {
	// Public routes
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.POST("/auth/login", h.auth.Login)

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(mw.JWTAuthMiddleware(h.authn))
	{
		authorized.POST("/auth/logout", h.auth.Logout)
		authorized.GET("/auth/me", h.auth.Me)

		// User routes
		users := authorized.Group("/users")
		users.GET("", h.users.List)
		users.GET("/:id", h.users.GetByID)
		users.GET("/:id/workload", h.users.Workload)
		admin := users.Group("", mw.RequireRole(model.RoleAdmin))
		admin.POST("", h.users.Create)
		admin.PATCH("/:id", h.users.Update)
		admin.POST("/:id/deactivate", h.users.Deactivate)
		admin.POST("/:id/activate", h.users.Activate)

		// Project routes
		authorized.POST("/projects", h.projects.Create)
		authorized.GET("/projects", h.projects.List)
		authorized.GET("/projects/:id", h.projects.GetByID)
		authorized.PATCH("/projects/:id", h.projects.Update)
		authorized.DELETE("/projects/:id", h.projects.Delete)
		authorized.GET("/projects/:id/members", h.projects.Members)
		authorized.POST("/projects/:id/members", h.projects.AddMember)
		authorized.GET("/projects/:id/members/available", h.projects.AvailableMembers)
		authorized.DELETE("/projects/:id/members/:user_id", h.projects.RemoveMember)
		authorized.GET("/projects/:id/assignable", h.projects.AssignableUsers)
		authorized.GET("/projects/:id/milestones", h.milestones.List)
		authorized.POST("/projects/:id/milestones", h.milestones.Create)
		authorized.GET("/projects/:id/tasks", h.tasks.ListByProject)
		authorized.POST("/projects/:id/tasks", h.tasks.Create)
		authorized.GET("/projects/:id/stats", h.analytics.ProjectStats)
		authorized.GET("/projects/:id/health", h.analytics.Health)
		authorized.GET("/projects/:id/forecast", h.analytics.Forecast)
		authorized.GET("/projects/:id/timeline", h.analytics.Timeline)
		authorized.GET("/projects/:id/summary", h.analytics.Summary)
		authorized.GET("/projects/:id/report", h.reports.ProjectReport)
		authorized.GET("/projects/:id/export", h.reports.ExportProjectTasks)

		// Milestone routes
		authorized.GET("/milestones/:id", h.milestones.GetByID)
		authorized.PATCH("/milestones/:id", h.milestones.Update)
		authorized.DELETE("/milestones/:id", h.milestones.Delete)

		// Task routes
		authorized.GET("/tasks", h.tasks.List)
		authorized.GET("/tasks/overdue", h.tasks.Overdue)
		authorized.GET("/tasks/summary", h.tasks.Summary)
		authorized.GET("/tasks/:id", h.tasks.GetByID)
		authorized.PATCH("/tasks/:id", h.tasks.Update)
		authorized.DELETE("/tasks/:id", h.tasks.Delete)
		authorized.POST("/tasks/:id/progress", h.tasks.UpdateProgress)
		authorized.POST("/tasks/:id/assign", h.tasks.AssignUser)
		authorized.DELETE("/tasks/:id/assign", h.tasks.UnassignUser)
		authorized.GET("/tasks/:id/comments", h.tasks.Comments)
		authorized.POST("/tasks/:id/comments", h.tasks.AddComment)

		// Analytics routes
		authorized.GET("/analytics/dashboard", h.analytics.Dashboard)
		authorized.GET("/analytics/velocity", h.analytics.Velocity)
		authorized.GET("/analytics/workload", h.analytics.Workload)
		authorized.GET("/analytics/performance", h.analytics.Performance)
		authorized.GET("/analytics/performance/:user_id", h.analytics.MemberPerformance)
		authorized.GET("/analytics/activity", h.analytics.Activity)
		authorized.GET("/analytics/activity/timeline", h.analytics.ActivityTimeline)

		// Report routes
		authorized.GET("/reports/team", h.reports.TeamReport)
		authorized.GET("/reports/export/projects", h.reports.ExportProjects)
		authorized.GET("/reports/export/team", h.reports.ExportTeamPerformance)
		authorized.POST("/reports/archive", h.reports.Archive)
	}
}
