package handler

import (
	"net/http"

	"pmdashboard/internal/middleware"
	"pmdashboard/internal/model"
	"pmdashboard/internal/repository"
	"pmdashboard/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TaskHandler struct {
	tasks  *service.TaskService
	logger *zap.Logger
}

func NewTaskHandler(tasks *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

// TaskRequest представляет запрос на создание задачи
type TaskRequest struct {
	Title          string             `json:"title" binding:"required"`
	Description    string             `json:"description"`
	MilestoneID    *string            `json:"milestone_id"`
	Priority       model.TaskPriority `json:"priority"`
	Status         model.TaskStatus   `json:"status"`
	Progress       int                `json:"progress"`
	AssignedTo     *string            `json:"assigned_to"`
	Deadline       *string            `json:"deadline"`
	EstimatedHours *float64           `json:"estimated_hours"`
}

// TaskUpdateRequest представляет частичное обновление задачи.
// Пустая строка в milestone_id, assigned_to или deadline очищает поле.
type TaskUpdateRequest struct {
	Title          *string             `json:"title"`
	Description    *string             `json:"description"`
	MilestoneID    *string             `json:"milestone_id"`
	Priority       *model.TaskPriority `json:"priority"`
	Status         *model.TaskStatus   `json:"status"`
	Progress       *int                `json:"progress"`
	AssignedTo     *string             `json:"assigned_to"`
	Deadline       *string             `json:"deadline"`
	EstimatedHours *float64            `json:"estimated_hours"`
	ActualHours    *float64            `json:"actual_hours"`
}

func (r TaskUpdateRequest) toUpdate() (model.TaskUpdate, error) {
	upd := model.TaskUpdate{
		Title:          r.Title,
		Description:    r.Description,
		Priority:       r.Priority,
		Status:         r.Status,
		Progress:       r.Progress,
		EstimatedHours: r.EstimatedHours,
		ActualHours:    r.ActualHours,
	}
	var err error
	if upd.MilestoneID, err = parseUUIDField("milestone_id", r.MilestoneID); err != nil {
		return upd, err
	}
	if upd.AssignedTo, err = parseUUIDField("assigned_to", r.AssignedTo); err != nil {
		return upd, err
	}
	if upd.Deadline, err = parseDateField("deadline", r.Deadline); err != nil {
		return upd, err
	}
	upd.ClearMilestone = r.MilestoneID != nil && upd.MilestoneID == nil
	upd.ClearAssignee = r.AssignedTo != nil && upd.AssignedTo == nil
	upd.ClearDeadline = r.Deadline != nil && upd.Deadline == nil
	return upd, nil
}

// ProgressRequest представляет отчет о прогрессе с необязательным комментарием
type ProgressRequest struct {
	Progress *int   `json:"progress" binding:"required"`
	Comment  string `json:"comment"`
}

// TaskAssignRequest представляет запрос на назначение пользователя на задачу
type TaskAssignRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

type CommentRequest struct {
	Comment string `json:"comment" binding:"required"`
}

// Create создает новую задачу в проекте
// @Summary      Create task
// @Tags         Tasks
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id      path string      true "Project ID"
// @Param        request body TaskRequest true "Task"
// @Success      201 {object} model.Task
// @Router       /projects/{id}/tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	projectID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	in := service.NewTask{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		Status:         req.Status,
		Progress:       req.Progress,
		EstimatedHours: req.EstimatedHours,
	}
	var err error
	if in.MilestoneID, err = parseUUIDField("milestone_id", req.MilestoneID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if in.AssignedTo, err = parseUUIDField("assigned_to", req.AssignedTo); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if in.Deadline, err = parseDateField("deadline", req.Deadline); err != nil {
		respondError(c, h.logger, err)
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), middleware.CurrentPrincipal(c), projectID, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// ListByProject возвращает задачи проекта, group=status группирует их
// @Summary      Project tasks
// @Tags         Tasks
// @Security     BearerAuth
// @Produce      json
// @Param        id     path  string true  "Project ID"
// @Param        status query string false "Status filter"
// @Param        group  query string false "Set to status to group by status"
// @Success      200 {array} model.Task
// @Router       /projects/{id}/tasks [get]
func (h *TaskHandler) ListByProject(c *gin.Context) {
	projectID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	h.list(c, repository.TaskFilter{
		ProjectID: &projectID,
		Status:    model.TaskStatus(c.Query("status")),
	})
}

// List возвращает задачи по фильтрам project_id, milestone_id, assigned_to и status.
// Участник без project_id видит только свои задачи.
// @Summary      List tasks
// @Tags         Tasks
// @Security     BearerAuth
// @Produce      json
// @Param        project_id   query string false "Project ID"
// @Param        milestone_id query string false "Milestone ID"
// @Param        assigned_to  query string false "Assignee ID"
// @Param        status       query string false "Status"
// @Param        group        query string false "Set to status to group by status"
// @Success      200 {array} model.Task
// @Router       /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	filter := repository.TaskFilter{Status: model.TaskStatus(c.Query("status"))}
	var ok bool
	if filter.ProjectID, ok = optionalUUIDQuery(c, "project_id"); !ok {
		return
	}
	if filter.MilestoneID, ok = optionalUUIDQuery(c, "milestone_id"); !ok {
		return
	}
	if filter.AssignedTo, ok = optionalUUIDQuery(c, "assigned_to"); !ok {
		return
	}
	h.list(c, filter)
}

func (h *TaskHandler) list(c *gin.Context, filter repository.TaskFilter) {
	p := middleware.CurrentPrincipal(c)
	if c.Query("group") == "status" {
		groups, err := h.tasks.GroupByStatus(c.Request.Context(), p, filter)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, groups)
		return
	}

	tasks, err := h.tasks.List(c.Request.Context(), p, filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// Overdue возвращает просроченные задачи
// @Summary      Overdue tasks
// @Tags         Tasks
// @Security     BearerAuth
// @Produce      json
// @Param        project_id query string false "Project ID"
// @Success      200 {array} model.Task
// @Router       /tasks/overdue [get]
func (h *TaskHandler) Overdue(c *gin.Context) {
	projectID, ok := optionalUUIDQuery(c, "project_id")
	if !ok {
		return
	}
	tasks, err := h.tasks.Overdue(c.Request.Context(), middleware.CurrentPrincipal(c), projectID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// Summary
// @Summary      Task summary
// @Tags         Tasks
// @Security     BearerAuth
// @Produce      json
// @Param        project_id query string false "Project ID"
// @Success      200 {object} model.TaskSummary
// @Router       /tasks/summary [get]
func (h *TaskHandler) Summary(c *gin.Context) {
	projectID, ok := optionalUUIDQuery(c, "project_id")
	if !ok {
		return
	}
	summary, err := h.tasks.Summary(c.Request.Context(), middleware.CurrentPrincipal(c), projectID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetByID получает задачу по ID
// @Summary      Get task
// @Tags         Tasks
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Task ID"
// @Success      200 {object} model.Task
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	task, err := h.tasks.Get(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Update обновляет задачу
// @Summary      Update task
// @Tags         Tasks
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id      path string            true "Task ID"
// @Param        request body TaskUpdateRequest true "Changes"
// @Success      200 {object} model.Task
// @Router       /tasks/{id} [patch]
func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req TaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	upd, err := req.toUpdate()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	task, err := h.tasks.Update(c.Request.Context(), middleware.CurrentPrincipal(c), id, upd)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Delete удаляет задачу
// @Summary      Delete task
// @Tags         Tasks
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Success      204
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.tasks.Delete(c.Request.Context(), middleware.CurrentPrincipal(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateProgress обновляет прогресс, статус выводится из него
// @Summary      Report task progress
// @Tags         Tasks
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id      path string          true "Task ID"
// @Param        request body ProgressRequest true "Progress"
// @Success      200 {object} model.Task
// @Router       /tasks/{id}/progress [post]
func (h *TaskHandler) UpdateProgress(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	task, err := h.tasks.UpdateProgress(c.Request.Context(), middleware.CurrentPrincipal(c), id, *req.Progress, req.Comment)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// AssignUser назначает пользователя на задачу
// @Summary      Assign task
// @Tags         Tasks
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id      path string            true "Task ID"
// @Param        request body TaskAssignRequest true "Assignee"
// @Success      200 {object} model.Task
// @Router       /tasks/{id}/assign [post]
func (h *TaskHandler) AssignUser(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req TaskAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	userID, err := parseUUIDField("user_id", &req.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	task, err := h.tasks.Assign(c.Request.Context(), middleware.CurrentPrincipal(c), id, *userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// UnassignUser снимает назначение с задачи
// @Summary      Unassign task
// @Tags         Tasks
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Task ID"
// @Success      200 {object} model.Task
// @Router       /tasks/{id}/assign [delete]
func (h *TaskHandler) UnassignUser(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	task, err := h.tasks.Unassign(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// AddComment
// @Summary      Comment on a task
// @Tags         Tasks
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id      path string         true "Task ID"
// @Param        request body CommentRequest true "Comment"
// @Success      201 {object} model.TaskComment
// @Router       /tasks/{id}/comments [post]
func (h *TaskHandler) AddComment(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	comment, err := h.tasks.AddComment(c.Request.Context(), middleware.CurrentPrincipal(c), id, req.Comment)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// Comments
// @Summary      Task comments
// @Tags         Tasks
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Task ID"
// @Success      200 {array} model.TaskComment
// @Router       /tasks/{id}/comments [get]
func (h *TaskHandler) Comments(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	comments, err := h.tasks.Comments(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}
