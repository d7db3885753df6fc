package repository

import (
	"context"
	"fmt"
	"time"

	"pmdashboard/internal/analytics"
	"pmdashboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatsRepository runs the aggregate reads behind dashboards and analytics.
// Every method that depends on "today" takes it explicitly.
type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

type projectTotals struct {
	Total     int64
	Active    int64
	Completed int64
}

type taskTotals struct {
	Total       int64
	Completed   int64
	InProgress  int64
	Todo        int64
	Blocked     int64
	Overdue     int64
	AvgProgress *float64
}

const taskTotalsSelect = "COUNT(*) AS total, " +
	"COALESCE(SUM(CASE WHEN status = 'COMPLETED' THEN 1 ELSE 0 END), 0) AS completed, " +
	"COALESCE(SUM(CASE WHEN status = 'IN_PROGRESS' THEN 1 ELSE 0 END), 0) AS in_progress, " +
	"COALESCE(SUM(CASE WHEN status = 'TODO' THEN 1 ELSE 0 END), 0) AS todo, " +
	"COALESCE(SUM(CASE WHEN status = 'BLOCKED' THEN 1 ELSE 0 END), 0) AS blocked, " +
	"COALESCE(SUM(CASE WHEN deadline IS NOT NULL AND deadline < ? AND status <> 'COMPLETED' THEN 1 ELSE 0 END), 0) AS overdue, " +
	"AVG(progress) AS avg_progress"

func (r *StatsRepository) taskTotals(ctx context.Context, today time.Time, projectID *uuid.UUID) (taskTotals, error) {
	var totals taskTotals
	query := r.db.WithContext(ctx).Model(&model.Task{}).Select(taskTotalsSelect, model.DateOf(today))
	if projectID != nil {
		query = query.Where("project_id = ?", *projectID)
	}
	if err := query.Scan(&totals).Error; err != nil {
		return totals, fmt.Errorf("failed to aggregate tasks: %w", err)
	}
	return totals, nil
}

func avgOrZero(avg *float64) float64 {
	if avg == nil {
		return 0
	}
	return analytics.Round(*avg, 1)
}

// Dashboard aggregates global project, task and member counters
func (r *StatsRepository) Dashboard(ctx context.Context, today time.Time) (*model.DashboardStats, error) {
	db := r.db.WithContext(ctx)

	var projects projectTotals
	err := db.Model(&model.Project{}).
		Select("COUNT(*) AS total, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS active, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed",
			model.ProjectInProgress, model.ProjectCompleted).
		Scan(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate projects: %w", err)
	}

	tasks, err := r.taskTotals(ctx, today, nil)
	if err != nil {
		return nil, err
	}

	var members int64
	err = db.Model(&model.User{}).
		Where("role = ? AND is_active = ?", model.RoleMember, true).
		Count(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}

	return &model.DashboardStats{
		TotalProjects:     projects.Total,
		ActiveProjects:    projects.Active,
		CompletedProjects: projects.Completed,
		TotalTasks:        tasks.Total,
		CompletedTasks:    tasks.Completed,
		InProgressTasks:   tasks.InProgress,
		OverdueTasks:      tasks.Overdue,
		TotalMembers:      members,
		OverallProgress:   avgOrZero(tasks.AvgProgress),
	}, nil
}

// ProjectStats returns task counters for one project, progress is the plain average task progress
func (r *StatsRepository) ProjectStats(ctx context.Context, projectID uuid.UUID, today time.Time) (*model.ProjectStats, error) {
	tasks, err := r.taskTotals(ctx, today, &projectID)
	if err != nil {
		return nil, err
	}

	var members int64
	err = r.db.WithContext(ctx).Model(&model.ProjectMember{}).
		Where("project_id = ?", projectID).
		Count(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}

	return &model.ProjectStats{
		TotalTasks:      tasks.Total,
		CompletedTasks:  tasks.Completed,
		InProgressTasks: tasks.InProgress,
		TodoTasks:       tasks.Todo,
		BlockedTasks:    tasks.Blocked,
		OverdueTasks:    tasks.Overdue,
		Progress:        avgOrZero(tasks.AvgProgress),
		Members:         members,
	}, nil
}

type performanceRow struct {
	UserID          uuid.UUID
	Username        string
	FullName        string
	TotalTasks      int64
	CompletedTasks  int64
	InProgressTasks int64
	OverdueTasks    int64
	AvgProgress     *float64
}

// MemberPerformance returns per-member counters for active member accounts, most completions first.
// A non-nil userID restricts the result to that user.
func (r *StatsRepository) MemberPerformance(ctx context.Context, today time.Time, userID *uuid.UUID) ([]model.MemberPerformance, error) {
	query := r.db.WithContext(ctx).Table("users").
		Select("users.id AS user_id, users.username, users.full_name, "+
			"COUNT(tasks.id) AS total_tasks, "+
			"COALESCE(SUM(CASE WHEN tasks.status = 'COMPLETED' THEN 1 ELSE 0 END), 0) AS completed_tasks, "+
			"COALESCE(SUM(CASE WHEN tasks.status = 'IN_PROGRESS' THEN 1 ELSE 0 END), 0) AS in_progress_tasks, "+
			"COALESCE(SUM(CASE WHEN tasks.deadline IS NOT NULL AND tasks.deadline < ? AND tasks.status <> 'COMPLETED' THEN 1 ELSE 0 END), 0) AS overdue_tasks, "+
			"AVG(tasks.progress) AS avg_progress", model.DateOf(today)).
		Joins("LEFT JOIN tasks ON tasks.assigned_to = users.id").
		Where("users.role = ? AND users.is_active = ?", model.RoleMember, true)
	if userID != nil {
		query = query.Where("users.id = ?", *userID)
	}

	var rows []performanceRow
	err := query.
		Group("users.id, users.username, users.full_name").
		Order("completed_tasks DESC, users.full_name, users.username").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate member performance: %w", err)
	}

	result := make([]model.MemberPerformance, len(rows))
	for i, row := range rows {
		result[i] = model.MemberPerformance{
			UserID:          row.UserID,
			Username:        row.Username,
			FullName:        row.FullName,
			TotalTasks:      row.TotalTasks,
			CompletedTasks:  row.CompletedTasks,
			InProgressTasks: row.InProgressTasks,
			OverdueTasks:    row.OverdueTasks,
			AverageProgress: avgOrZero(row.AvgProgress),
			CompletionRate:  analytics.CompletionRate(row.CompletedTasks, row.TotalTasks),
		}
	}
	return result, nil
}

// UserWorkload breaks down the tasks assigned to one user by status
func (r *StatsRepository) UserWorkload(ctx context.Context, userID uuid.UUID, today time.Time) (*model.MemberWorkload, error) {
	var row struct {
		Total      int64
		Todo       int64
		InProgress int64
		Review     int64
		Completed  int64
		Blocked    int64
		Overdue    int64
	}
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("COUNT(*) AS total, "+
			"COALESCE(SUM(CASE WHEN status = 'TODO' THEN 1 ELSE 0 END), 0) AS todo, "+
			"COALESCE(SUM(CASE WHEN status = 'IN_PROGRESS' THEN 1 ELSE 0 END), 0) AS in_progress, "+
			"COALESCE(SUM(CASE WHEN status = 'REVIEW' THEN 1 ELSE 0 END), 0) AS review, "+
			"COALESCE(SUM(CASE WHEN status = 'COMPLETED' THEN 1 ELSE 0 END), 0) AS completed, "+
			"COALESCE(SUM(CASE WHEN status = 'BLOCKED' THEN 1 ELSE 0 END), 0) AS blocked, "+
			"COALESCE(SUM(CASE WHEN deadline IS NOT NULL AND deadline < ? AND status <> 'COMPLETED' THEN 1 ELSE 0 END), 0) AS overdue",
			model.DateOf(today)).
		Where("assigned_to = ?", userID).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate workload: %w", err)
	}

	return &model.MemberWorkload{
		UserID:     userID,
		TotalTasks: row.Total,
		Todo:       row.Todo,
		InProgress: row.InProgress,
		Review:     row.Review,
		Completed:  row.Completed,
		Blocked:    row.Blocked,
		Overdue:    row.Overdue,
	}, nil
}

// CompletedBetween counts COMPLETED tasks with completed_at in [from, to)
func (r *StatsRepository) CompletedBetween(ctx context.Context, from, to time.Time, projectID *uuid.UUID) (int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("status = ? AND completed_at >= ? AND completed_at < ?", model.TaskCompleted, from.UTC(), to.UTC())
	if projectID != nil {
		query = query.Where("project_id = ?", *projectID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return count, nil
}

// CompletionTimes returns the project's task count and the completed_at of its COMPLETED tasks
func (r *StatsRepository) CompletionTimes(ctx context.Context, projectID uuid.UUID) (int64, []time.Time, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&model.Task{}).Where("project_id = ?", projectID).Count(&total).Error; err != nil {
		return 0, nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	var times []time.Time
	err := db.Model(&model.Task{}).
		Where("project_id = ? AND status = ? AND completed_at IS NOT NULL", projectID, model.TaskCompleted).
		Order("completed_at").
		Pluck("completed_at", &times).Error
	if err != nil {
		return 0, nil, fmt.Errorf("failed to load completion times: %w", err)
	}
	return total, times, nil
}
