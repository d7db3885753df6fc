package handler_test

import (
	"net/http"
	"testing"

	"pmdashboard/internal/access"
	"pmdashboard/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProject_RoleGate(t *testing.T) {
	e := newAPIEnv(t)
	body := gin.H{"name": "Migration ERP"}

	t.Run("участник получает 403", func(t *testing.T) {
		resp := e.do(t, e.member, "POST", "/projects", body)
		assert.Equal(t, http.StatusForbidden, resp.Code)
		assert.Contains(t, resp.Body.String(), "requires role")
	})

	t.Run("администратор создает проект", func(t *testing.T) {
		resp := e.do(t, e.admin, "POST", "/projects", body)
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		project := decode[model.Project](t, resp)
		assert.Equal(t, "Migration ERP", project.Name)
		assert.Equal(t, model.ProjectNotStarted, project.Status)
		require.NotNil(t, project.CreatedBy)
		assert.Equal(t, e.admin.UserID, *project.CreatedBy)
	})

	t.Run("аноним получает 403", func(t *testing.T) {
		resp := e.do(t, access.Principal{}, "POST", "/projects", body)
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}

func TestCreateProject_Validation(t *testing.T) {
	e := newAPIEnv(t)

	tests := []struct {
		name  string
		body  gin.H
		field string
	}{
		{"короткое имя", gin.H{"name": "ab"}, "name"},
		{"конец раньше начала", gin.H{"name": "Projet", "start_date": "2024-07-01", "end_date": "2024-06-01"}, "end_date"},
		{"неверная дата", gin.H{"name": "Projet", "start_date": "01/07/2024"}, "start_date"},
		{"неизвестный статус", gin.H{"name": "Projet", "status": "DONE"}, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := e.do(t, e.pm, "POST", "/projects", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
			assert.Equal(t, tt.field, decode[map[string]string](t, resp)["field"])
		})
	}

	t.Run("пустое тело", func(t *testing.T) {
		resp := e.do(t, e.pm, "POST", "/projects", nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestProjectVisibility(t *testing.T) {
	e := newAPIEnv(t)
	project := e.createProject(t)
	outsider := account(t, e.db, "marie.martin", model.RoleMember)
	path := "/projects/" + project.ID.String()

	assert.Equal(t, http.StatusOK, e.do(t, e.member, "GET", path, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, outsider, "GET", path, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, e.admin, "GET", "/projects/"+uuid.NewString(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, e.admin, "GET", "/projects/not-a-uuid", nil).Code)

	// Участник видит только свои проекты
	listed := decode[[]model.Project](t, e.do(t, outsider, "GET", "/projects", nil))
	assert.Empty(t, listed)
	listed = decode[[]model.Project](t, e.do(t, e.member, "GET", "/projects", nil))
	require.Len(t, listed, 1)
	assert.Equal(t, project.ID, listed[0].ID)

	groups := decode[map[model.ProjectStatus][]model.Project](t, e.do(t, e.admin, "GET", "/projects?group=status", nil))
	assert.Len(t, groups, len(model.ProjectStatuses))
	assert.Len(t, groups[model.ProjectInProgress], 1)
}

func TestUpdateProject_PartialAndClear(t *testing.T) {
	e := newAPIEnv(t)
	project := e.createProject(t)
	path := "/projects/" + project.ID.String()

	resp := e.do(t, e.pm, "PATCH", path, gin.H{"description": "Nouvelle charte", "end_date": ""})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	updated := decode[model.Project](t, resp)
	assert.Equal(t, "Refonte du site", updated.Name)
	assert.Equal(t, "Nouvelle charte", updated.Description)
	assert.Nil(t, updated.EndDate)
	assert.NotNil(t, updated.StartDate)

	// Начало позже сохраненного конца отклоняется
	e.do(t, e.pm, "PATCH", path, gin.H{"end_date": "2024-06-30"})
	resp = e.do(t, e.pm, "PATCH", path, gin.H{"start_date": "2024-07-15"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	assert.Equal(t, http.StatusForbidden, e.do(t, e.member, "PATCH", path, gin.H{"name": "Autre"}).Code)
}

func TestAddMember_Duplicate(t *testing.T) {
	e := newAPIEnv(t)
	project := e.createProject(t)
	path := "/projects/" + project.ID.String() + "/members"

	resp := e.do(t, e.pm, "POST", path, gin.H{"user_id": e.member.UserID.String()})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = e.do(t, e.pm, "POST", path, gin.H{"user_id": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	members := decode[[]model.ProjectMember](t, e.do(t, e.member, "GET", path, nil))
	require.Len(t, members, 1)
	assert.Equal(t, e.member.UserID, members[0].UserID)
}

func TestDeleteProject(t *testing.T) {
	e := newAPIEnv(t)
	project := e.createProject(t)
	path := "/projects/" + project.ID.String()

	assert.Equal(t, http.StatusForbidden, e.do(t, e.member, "DELETE", path, nil).Code)
	assert.Equal(t, http.StatusNoContent, e.do(t, e.pm, "DELETE", path, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, e.pm, "DELETE", path, nil).Code)
}
