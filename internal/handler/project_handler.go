package handler

import (
	"net/http"

	"pmdashboard/internal/middleware"
	"pmdashboard/internal/model"
	"pmdashboard/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProjectHandler struct {
	projects *service.ProjectService
	logger   *zap.Logger
}

func NewProjectHandler(projects *service.ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, logger: logger}
}

// CreateProjectRequest представляет запрос на создание проекта, даты в формате YYYY-MM-DD
type CreateProjectRequest struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	StartDate   *string             `json:"start_date"`
	EndDate     *string             `json:"end_date"`
	Status      model.ProjectStatus `json:"status"`
	Budget      *float64            `json:"budget"`
}

// UpdateProjectRequest: пустая строка в дате очищает ее, clear_budget очищает бюджет
type UpdateProjectRequest struct {
	Name        *string              `json:"name"`
	Description *string              `json:"description"`
	StartDate   *string              `json:"start_date"`
	EndDate     *string              `json:"end_date"`
	Status      *model.ProjectStatus `json:"status"`
	Budget      *float64             `json:"budget"`
	ClearBudget bool                 `json:"clear_budget"`
}

func (r UpdateProjectRequest) toUpdate() (model.ProjectUpdate, error) {
	upd := model.ProjectUpdate{
		Name:        r.Name,
		Description: r.Description,
		Status:      r.Status,
		Budget:      r.Budget,
		ClearBudget: r.ClearBudget,
	}
	start, err := parseDateField("start_date", r.StartDate)
	if err != nil {
		return upd, err
	}
	end, err := parseDateField("end_date", r.EndDate)
	if err != nil {
		return upd, err
	}
	upd.StartDate, upd.ClearStartDate = start, r.StartDate != nil && start == nil
	upd.EndDate, upd.ClearEndDate = end, r.EndDate != nil && end == nil
	return upd, nil
}

type AddMemberRequest struct {
	UserID string           `json:"user_id" binding:"required,uuid"`
	Role   model.MemberRole `json:"role_in_project"`
}

// Create создает новый проект
// @Summary      Create project
// @Tags         Projects
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body CreateProjectRequest true "Project"
// @Success      201 {object} model.Project
// @Failure      403 {object} map[string]string
// @Router       /projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	start, err := parseDateField("start_date", req.StartDate)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	end, err := parseDateField("end_date", req.EndDate)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	project, err := h.projects.Create(c.Request.Context(), middleware.CurrentPrincipal(c), service.NewProject{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   start,
		EndDate:     end,
		Status:      req.Status,
		Budget:      req.Budget,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// List возвращает видимые проекты. group=status группирует их по статусу.
// @Summary      List projects
// @Tags         Projects
// @Security     BearerAuth
// @Produce      json
// @Param        status query string false "Status filter"
// @Param        group  query string false "Set to status to group by status"
// @Success      200 {array} model.Project
// @Router       /projects [get]
func (h *ProjectHandler) List(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	if c.Query("group") == "status" {
		groups, err := h.projects.GroupByStatus(c.Request.Context(), p)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, groups)
		return
	}

	projects, err := h.projects.List(c.Request.Context(), p, model.ProjectStatus(c.Query("status")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// GetByID
// @Summary      Get project
// @Tags         Projects
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Project ID"
// @Success      200 {object} model.Project
// @Router       /projects/{id} [get]
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	project, err := h.projects.Get(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// Update
// @Summary      Update project
// @Tags         Projects
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id      path string               true "Project ID"
// @Param        request body UpdateProjectRequest true "Changes"
// @Success      200 {object} model.Project
// @Router       /projects/{id} [patch]
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	upd, err := req.toUpdate()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	project, err := h.projects.Update(c.Request.Context(), middleware.CurrentPrincipal(c), id, upd)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// Delete удаляет проект вместе с вехами, задачами и командой
// @Summary      Delete project
// @Tags         Projects
// @Security     BearerAuth
// @Param        id path string true "Project ID"
// @Success      204
// @Router       /projects/{id} [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.projects.Delete(c.Request.Context(), middleware.CurrentPrincipal(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Members возвращает команду проекта
// @Summary      Project members
// @Tags         Projects
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Project ID"
// @Success      200 {array} model.ProjectMember
// @Router       /projects/{id}/members [get]
func (h *ProjectHandler) Members(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	members, err := h.projects.Members(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// AddMember добавляет пользователя в команду проекта
// @Summary      Add project member
// @Tags         Projects
// @Security     BearerAuth
// @Accept       json
// @Param        id      path string           true "Project ID"
// @Param        request body AddMemberRequest true "Member"
// @Success      201
// @Failure      409 {object} map[string]string
// @Router       /projects/{id}/members [post]
func (h *ProjectHandler) AddMember(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	userID, err := parseUUIDField("user_id", &req.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if req.Role == "" {
		req.Role = model.MemberRoleMember
	}
	if err := h.projects.AddMember(c.Request.Context(), middleware.CurrentPrincipal(c), id, *userID, req.Role); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusCreated)
}

// RemoveMember
// @Summary      Remove project member
// @Tags         Projects
// @Security     BearerAuth
// @Param        id      path string true "Project ID"
// @Param        user_id path string true "User ID"
// @Success      204
// @Router       /projects/{id}/members/{user_id} [delete]
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "user_id")
	if !ok {
		return
	}
	if err := h.projects.RemoveMember(c.Request.Context(), middleware.CurrentPrincipal(c), id, userID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AvailableMembers возвращает активных участников, которых еще нет в команде
// @Summary      Users not yet in the project
// @Tags         Projects
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Project ID"
// @Success      200 {array} model.User
// @Router       /projects/{id}/members/available [get]
func (h *ProjectHandler) AvailableMembers(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	users, err := h.projects.AvailableMembers(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// AssignableUsers возвращает тех, на кого можно назначить задачу: команду и администраторов
// @Summary      Users tasks can be assigned to
// @Tags         Projects
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Project ID"
// @Success      200 {array} model.User
// @Router       /projects/{id}/assignable [get]
func (h *ProjectHandler) AssignableUsers(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	users, err := h.projects.AssignableUsers(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, users)
}
