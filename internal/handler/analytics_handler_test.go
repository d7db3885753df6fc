package handler_test

import (
	"net/http"
	"strings"
	"testing"

	"pmdashboard/internal/analytics"
	"pmdashboard/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectHealth(t *testing.T) {
	e := newAPIEnv(t)
	project := e.createProject(t)
	path := "/projects/" + project.ID.String() + "/health"

	// Без задач здоровье неизвестно
	health := decode[analytics.HealthReport](t, e.do(t, e.member, "GET", path, nil))
	assert.Equal(t, analytics.HealthUnknown, health.Status)
	assert.Nil(t, health.Score)

	e.createTask(t, project, gin.H{"title": "Maquettes", "progress": 100})
	health = decode[analytics.HealthReport](t, e.do(t, e.member, "GET", path, nil))
	require.NotNil(t, health.Score)
	assert.GreaterOrEqual(t, *health.Score, 0)
	assert.LessOrEqual(t, *health.Score, 100)
}

func TestProjectTimeline_Days(t *testing.T) {
	e := newAPIEnv(t)
	project := e.createProject(t)
	path := "/projects/" + project.ID.String() + "/timeline"

	points := decode[[]model.TimelinePoint](t, e.do(t, e.member, "GET", path+"?days=7", nil))
	assert.Len(t, points, 8)

	assert.Equal(t, http.StatusBadRequest, e.do(t, e.member, "GET", path+"?days=abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, e.member, "GET", path+"?days=1000", nil).Code)
}

func TestDashboard_ManagementOnly(t *testing.T) {
	e := newAPIEnv(t)
	e.createProject(t)

	assert.Equal(t, http.StatusForbidden, e.do(t, e.member, "GET", "/analytics/dashboard", nil).Code)

	resp := e.do(t, e.pm, "GET", "/analytics/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	stats := decode[model.DashboardStats](t, resp)
	assert.Equal(t, int64(1), stats.TotalProjects)
}

func TestRecentActivity_MemberSeesOwnEntries(t *testing.T) {
	e := newAPIEnv(t)
	e.createProject(t)

	entries := decode[[]model.ActivityLog](t, e.do(t, e.pm, "GET", "/analytics/activity?limit=5", nil))
	assert.NotEmpty(t, entries)

	entries = decode[[]model.ActivityLog](t, e.do(t, e.member, "GET", "/analytics/activity", nil))
	assert.Empty(t, entries)
}

func TestExports(t *testing.T) {
	e := newAPIEnv(t)
	project := e.createProject(t)
	e.createTask(t, project, gin.H{"title": "Maquettes", "deadline": "2024-06-20"})

	resp := e.do(t, e.member, "GET", "/projects/"+project.ID.String()+"/export", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "attachment")
	lines := strings.Split(strings.TrimSpace(resp.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID,Title,Description,Status,Priority"))
	assert.Contains(t, lines[1], "2024-06-20")

	assert.Equal(t, http.StatusForbidden, e.do(t, e.member, "GET", "/reports/export/projects", nil).Code)
	assert.Equal(t, http.StatusOK, e.do(t, e.pm, "GET", "/reports/export/projects", nil).Code)
}

func TestArchive_Disabled(t *testing.T) {
	e := newAPIEnv(t)

	resp := e.do(t, e.pm, "POST", "/reports/archive", gin.H{"kind": "projects"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
