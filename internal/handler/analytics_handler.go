package handler

import (
	"net/http"

	"pmdashboard/internal/middleware"
	"pmdashboard/internal/repository"
	"pmdashboard/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AnalyticsHandler отдает производные метрики: статистику, здоровье, скорость, прогноз
type AnalyticsHandler struct {
	progress *service.ProgressService
	logger   *zap.Logger
}

func NewAnalyticsHandler(progress *service.ProgressService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{progress: progress, logger: logger}
}

// Dashboard
// @Summary      Global dashboard statistics
// @Tags         Analytics
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} model.DashboardStats
// @Router       /analytics/dashboard [get]
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	stats, err := h.progress.Dashboard(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Velocity
// @Summary      Weekly completion velocity
// @Tags         Analytics
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} analytics.VelocityReport
// @Router       /analytics/velocity [get]
func (h *AnalyticsHandler) Velocity(c *gin.Context) {
	report, err := h.progress.Velocity(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Workload
// @Summary      Team workload distribution
// @Tags         Analytics
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} analytics.WorkloadReport
// @Router       /analytics/workload [get]
func (h *AnalyticsHandler) Workload(c *gin.Context) {
	report, err := h.progress.Workload(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Performance
// @Summary      Member performance
// @Tags         Analytics
// @Security     BearerAuth
// @Produce      json
// @Success      200 {array} model.MemberPerformance
// @Router       /analytics/performance [get]
func (h *AnalyticsHandler) Performance(c *gin.Context) {
	rows, err := h.progress.Performance(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// MemberPerformance
// @Summary      One member's performance
// @Tags         Analytics
// @Security     BearerAuth
// @Produce      json
// @Param        user_id path string true "User ID"
// @Success      200 {object} model.MemberPerformance
// @Router       /analytics/performance/{user_id} [get]
func (h *AnalyticsHandler) MemberPerformance(c *gin.Context) {
	userID, ok := uuidParam(c, "user_id")
	if !ok {
		return
	}
	row, err := h.progress.MemberPerformance(c.Request.Context(), middleware.CurrentPrincipal(c), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// Activity возвращает последние записи журнала (limit, user_id)
// @Summary      Recent activity
// @Tags         Analytics
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query int    false "Max entries (default 20)"
// @Param        user_id query string false "User filter"
// @Success      200 {array} model.ActivityLog
// @Router       /analytics/activity [get]
func (h *AnalyticsHandler) Activity(c *gin.Context) {
	limit, ok := intQuery(c, "limit", repository.DefaultActivityLimit)
	if !ok {
		return
	}
	userID, ok := optionalUUIDQuery(c, "user_id")
	if !ok {
		return
	}
	entries, err := h.progress.RecentActivity(c.Request.Context(), middleware.CurrentPrincipal(c),
		repository.ActivityFilter{Limit: limit, UserID: userID})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// ActivityTimeline
// @Summary      Activity grouped by day
// @Tags         Analytics
// @Security     BearerAuth
// @Produce      json
// @Param        days query int false "Days back (default 30)"
// @Success      200 {array} model.ActivityDay
// @Router       /analytics/activity/timeline [get]
func (h *AnalyticsHandler) ActivityTimeline(c *gin.Context) {
	days, ok := intQuery(c, "days", service.DefaultTimelineDays)
	if !ok {
		return
	}
	timeline, err := h.progress.ActivityTimeline(c.Request.Context(), middleware.CurrentPrincipal(c), days)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, timeline)
}

// ProjectStats
// @Summary      Project statistics
// @Tags         Analytics
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Project ID"
// @Success      200 {object} model.ProjectStats
// @Router       /projects/{id}/stats [get]
func (h *AnalyticsHandler) ProjectStats(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	stats, err := h.progress.ProjectStats(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Health
// @Summary      Project health score
// @Tags         Analytics
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Project ID"
// @Success      200 {object} analytics.HealthReport
// @Router       /projects/{id}/health [get]
func (h *AnalyticsHandler) Health(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	report, err := h.progress.Health(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Forecast
// @Summary      Completion forecast
// @Tags         Analytics
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Project ID"
// @Success      200 {object} analytics.ForecastReport
// @Router       /projects/{id}/forecast [get]
func (h *AnalyticsHandler) Forecast(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	report, err := h.progress.Forecast(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Timeline
// @Summary      Daily progress timeline
// @Tags         Analytics
// @Security     BearerAuth
// @Produce      json
// @Param        id   path  string true  "Project ID"
// @Param        days query int    false "Days back (default 30)"
// @Success      200 {array} model.TimelinePoint
// @Router       /projects/{id}/timeline [get]
func (h *AnalyticsHandler) Timeline(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	days, ok := intQuery(c, "days", service.DefaultTimelineDays)
	if !ok {
		return
	}
	points, err := h.progress.ProgressTimeline(c.Request.Context(), middleware.CurrentPrincipal(c), id, days)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

// Summary
// @Summary      Project summary
// @Tags         Analytics
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Project ID"
// @Success      200 {object} service.ProjectSummary
// @Router       /projects/{id}/summary [get]
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	summary, err := h.progress.Summary(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
