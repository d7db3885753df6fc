package handler

import (
	"net/http"

	"pmdashboard/internal/middleware"
	"pmdashboard/internal/model"
	"pmdashboard/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MilestoneHandler struct {
	milestones *service.MilestoneService
	logger     *zap.Logger
}

func NewMilestoneHandler(milestones *service.MilestoneService, logger *zap.Logger) *MilestoneHandler {
	return &MilestoneHandler{milestones: milestones, logger: logger}
}

type CreateMilestoneRequest struct {
	Name        string                `json:"name" binding:"required"`
	Description string                `json:"description"`
	DueDate     *string               `json:"due_date"`
	Status      model.MilestoneStatus `json:"status"`
}

// UpdateMilestoneRequest: пустая строка в due_date очищает срок
type UpdateMilestoneRequest struct {
	Name        *string                `json:"name"`
	Description *string                `json:"description"`
	DueDate     *string                `json:"due_date"`
	Status      *model.MilestoneStatus `json:"status"`
}

// Create добавляет веху в проект
// @Summary      Create milestone
// @Tags         Milestones
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id      path string                 true "Project ID"
// @Param        request body CreateMilestoneRequest true "Milestone"
// @Success      201 {object} model.Milestone
// @Router       /projects/{id}/milestones [post]
func (h *MilestoneHandler) Create(c *gin.Context) {
	projectID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req CreateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	due, err := parseDateField("due_date", req.DueDate)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	milestone, err := h.milestones.Create(c.Request.Context(), middleware.CurrentPrincipal(c), projectID, service.NewMilestone{
		Name:        req.Name,
		Description: req.Description,
		DueDate:     due,
		Status:      req.Status,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, milestone)
}

// List возвращает вехи проекта с прогрессом
// @Summary      Project milestones
// @Tags         Milestones
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Project ID"
// @Success      200 {array} model.Milestone
// @Router       /projects/{id}/milestones [get]
func (h *MilestoneHandler) List(c *gin.Context) {
	projectID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	milestones, err := h.milestones.List(c.Request.Context(), middleware.CurrentPrincipal(c), projectID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, milestones)
}

// GetByID
// @Summary      Get milestone
// @Tags         Milestones
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Milestone ID"
// @Success      200 {object} model.Milestone
// @Router       /milestones/{id} [get]
func (h *MilestoneHandler) GetByID(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	milestone, err := h.milestones.Get(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, milestone)
}

// Update
// @Summary      Update milestone
// @Tags         Milestones
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id      path string                 true "Milestone ID"
// @Param        request body UpdateMilestoneRequest true "Changes"
// @Success      200 {object} model.Milestone
// @Router       /milestones/{id} [patch]
func (h *MilestoneHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	due, err := parseDateField("due_date", req.DueDate)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	milestone, err := h.milestones.Update(c.Request.Context(), middleware.CurrentPrincipal(c), id, model.MilestoneUpdate{
		Name:         req.Name,
		Description:  req.Description,
		DueDate:      due,
		Status:       req.Status,
		ClearDueDate: req.DueDate != nil && due == nil,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, milestone)
}

// Delete удаляет веху, задачи остаются без вехи
// @Summary      Delete milestone
// @Tags         Milestones
// @Security     BearerAuth
// @Param        id path string true "Milestone ID"
// @Success      204
// @Router       /milestones/{id} [delete]
func (h *MilestoneHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.milestones.Delete(c.Request.Context(), middleware.CurrentPrincipal(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
