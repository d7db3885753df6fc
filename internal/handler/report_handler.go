package handler

import (
	"errors"
	"fmt"
	"net/http"

	"pmdashboard/internal/middleware"
	"pmdashboard/internal/report"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const csvContentType = "text/csv; charset=utf-8"

type ReportHandler struct {
	reports *report.Generator
	logger  *zap.Logger
}

func NewReportHandler(reports *report.Generator, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

type ArchiveRequest struct {
	Kind      string  `json:"kind" binding:"required"`
	ProjectID *string `json:"project_id"`
}

// ProjectReport
// @Summary      Project report document
// @Tags         Reports
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Project ID"
// @Success      200 {object} report.ProjectReport
// @Router       /projects/{id}/report [get]
func (h *ReportHandler) ProjectReport(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	doc, err := h.reports.ProjectReport(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// TeamReport
// @Summary      Team performance report document
// @Tags         Reports
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} report.TeamReport
// @Router       /reports/team [get]
func (h *ReportHandler) TeamReport(c *gin.Context) {
	doc, err := h.reports.TeamReport(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ExportProjectTasks выгружает задачи проекта в CSV
// @Summary      Export project tasks as CSV
// @Tags         Reports
// @Security     BearerAuth
// @Produce      text/csv
// @Param        id path string true "Project ID"
// @Success      200 {string} string
// @Router       /projects/{id}/export [get]
func (h *ReportHandler) ExportProjectTasks(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	body, err := h.reports.ExportProjectTasks(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.attachment(c, fmt.Sprintf("project_%s_tasks.csv", id), body)
}

// ExportProjects
// @Summary      Export projects as CSV
// @Tags         Reports
// @Security     BearerAuth
// @Produce      text/csv
// @Success      200 {string} string
// @Router       /reports/export/projects [get]
func (h *ReportHandler) ExportProjects(c *gin.Context) {
	body, err := h.reports.ExportProjects(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.attachment(c, "projects.csv", body)
}

// ExportTeamPerformance
// @Summary      Export team performance as CSV
// @Tags         Reports
// @Security     BearerAuth
// @Produce      text/csv
// @Success      200 {string} string
// @Router       /reports/export/team [get]
func (h *ReportHandler) ExportTeamPerformance(c *gin.Context) {
	body, err := h.reports.ExportTeamPerformance(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.attachment(c, "team_performance.csv", body)
}

// Archive формирует выгрузку и сохраняет ее в хранилище отчетов
// @Summary      Archive a CSV export to object storage
// @Tags         Reports
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body ArchiveRequest true "Export kind"
// @Success      201 {object} report.ArchivedReport
// @Failure      503 {object} map[string]string
// @Router       /reports/archive [post]
func (h *ReportHandler) Archive(c *gin.Context) {
	var req ArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	projectID, err := parseUUIDField("project_id", req.ProjectID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	archived, err := h.reports.ArchiveExport(c.Request.Context(), middleware.CurrentPrincipal(c), req.Kind, projectID)
	var kindErr *report.UnknownKindError
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, archived)
	case errors.Is(err, report.ErrArchiveDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.As(err, &kindErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": kindErr.Error()})
	default:
		respondError(c, h.logger, err)
	}
}

func (h *ReportHandler) attachment(c *gin.Context, filename string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, csvContentType, body)
}

