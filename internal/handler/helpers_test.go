package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pmdashboard/internal/access"
	"pmdashboard/internal/database/dbtest"
	"pmdashboard/internal/handler"
	"pmdashboard/internal/model"
	"pmdashboard/internal/report"
	"pmdashboard/internal/repository"
	"pmdashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time {
	return fixedNow
}

// apiEnv собирает обработчики поверх SQLite в памяти
type apiEnv struct {
	db *gorm.DB

	users      *handler.UserHandler
	projects   *handler.ProjectHandler
	milestones *handler.MilestoneHandler
	tasks      *handler.TaskHandler
	analytics  *handler.AnalyticsHandler
	reports    *handler.ReportHandler

	admin  access.Principal
	pm     access.Principal
	member access.Principal
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := dbtest.New(t)
	log := zap.NewNop()

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	milestoneRepo := repository.NewMilestoneRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	activityRepo := repository.NewActivityRepository(db, log, nil)

	userService := service.NewUserService(userRepo, projectRepo, taskRepo, statsRepo, clock)
	projectService := service.NewProjectService(projectRepo, memberRepo, userRepo, nil)
	milestoneService := service.NewMilestoneService(projectRepo, memberRepo, milestoneRepo)
	taskService := service.NewTaskService(projectRepo, memberRepo, taskRepo, milestoneRepo, commentRepo, userRepo, nil, clock)
	progressService := service.NewProgressService(projectRepo, memberRepo, milestoneRepo, statsRepo, activityRepo, clock)
	generator := report.NewGenerator(projectService, taskService, progressService, nil, nil, clock)

	e := &apiEnv{
		db:         db,
		users:      handler.NewUserHandler(userService, log),
		projects:   handler.NewProjectHandler(projectService, log),
		milestones: handler.NewMilestoneHandler(milestoneService, log),
		tasks:      handler.NewTaskHandler(taskService, log),
		analytics:  handler.NewAnalyticsHandler(progressService, log),
		reports:    handler.NewReportHandler(generator, log),
	}
	e.admin = account(t, db, "admin", model.RoleAdmin)
	e.pm = account(t, db, "chef.projet", model.RoleProjectManager)
	e.member = account(t, db, "jean.dupont", model.RoleMember)
	return e
}

func account(t *testing.T, db *gorm.DB, username string, role model.Role) access.Principal {
	t.Helper()
	user := &model.User{
		Username:       username,
		Email:          username + "@test.com",
		HashedPassword: "hash",
		Role:           role,
		FullName:       username,
		IsActive:       true,
	}
	require.NoError(t, db.Create(user).Error)
	return access.Principal{UserID: user.ID, Username: user.Username, Role: user.Role}
}

func (e *apiEnv) router(p access.Principal) *gin.Engine {
	r := gin.New()
	r.Use(withPrincipal(p))

	r.POST("/users", e.users.Create)
	r.GET("/users", e.users.List)
	r.GET("/users/:id", e.users.GetByID)
	r.PATCH("/users/:id", e.users.Update)
	r.POST("/users/:id/deactivate", e.users.Deactivate)
	r.GET("/users/:id/workload", e.users.Workload)

	r.POST("/projects", e.projects.Create)
	r.GET("/projects", e.projects.List)
	r.GET("/projects/:id", e.projects.GetByID)
	r.PATCH("/projects/:id", e.projects.Update)
	r.DELETE("/projects/:id", e.projects.Delete)
	r.GET("/projects/:id/members", e.projects.Members)
	r.POST("/projects/:id/members", e.projects.AddMember)
	r.GET("/projects/:id/milestones", e.milestones.List)
	r.POST("/projects/:id/milestones", e.milestones.Create)
	r.GET("/projects/:id/tasks", e.tasks.ListByProject)
	r.POST("/projects/:id/tasks", e.tasks.Create)
	r.GET("/projects/:id/health", e.analytics.Health)
	r.GET("/projects/:id/timeline", e.analytics.Timeline)
	r.GET("/projects/:id/export", e.reports.ExportProjectTasks)
	r.PATCH("/milestones/:id", e.milestones.Update)

	r.GET("/tasks", e.tasks.List)
	r.GET("/tasks/:id", e.tasks.GetByID)
	r.PATCH("/tasks/:id", e.tasks.Update)
	r.POST("/tasks/:id/progress", e.tasks.UpdateProgress)
	r.POST("/tasks/:id/assign", e.tasks.AssignUser)
	r.POST("/tasks/:id/comments", e.tasks.AddComment)

	r.GET("/analytics/dashboard", e.analytics.Dashboard)
	r.GET("/analytics/activity", e.analytics.Activity)
	r.GET("/reports/export/projects", e.reports.ExportProjects)
	r.POST("/reports/archive", e.reports.Archive)
	return r
}

func (e *apiEnv) do(t *testing.T, p access.Principal, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	e.router(p).ServeHTTP(resp, req)
	return resp
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &v), resp.Body.String())
	return v
}

// createProject создает проект от имени руководителя и добавляет участника в команду
func (e *apiEnv) createProject(t *testing.T) model.Project {
	t.Helper()
	resp := e.do(t, e.pm, "POST", "/projects", gin.H{
		"name":       "Refonte du site",
		"start_date": "2024-06-01",
		"end_date":   "2024-07-05",
		"status":     "IN_PROGRESS",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	project := decode[model.Project](t, resp)

	resp = e.do(t, e.pm, "POST", "/projects/"+project.ID.String()+"/members", gin.H{"user_id": e.member.UserID.String()})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return project
}
