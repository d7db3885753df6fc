package model

import (
	"time"

	"github.com/google/uuid"
)

// DashboardStats aggregates global counters for the landing page
type DashboardStats struct {
	TotalProjects     int64   `json:"total_projects"`
	ActiveProjects    int64   `json:"active_projects"`
	CompletedProjects int64   `json:"completed_projects"`
	TotalTasks        int64   `json:"total_tasks"`
	CompletedTasks    int64   `json:"completed_tasks"`
	InProgressTasks   int64   `json:"in_progress_tasks"`
	OverdueTasks      int64   `json:"overdue_tasks"`
	TotalMembers      int64   `json:"total_members"`
	OverallProgress   float64 `json:"overall_progress"`
}

type ProjectStats struct {
	TotalTasks      int64   `json:"total_tasks"`
	CompletedTasks  int64   `json:"completed_tasks"`
	InProgressTasks int64   `json:"in_progress_tasks"`
	TodoTasks       int64   `json:"todo_tasks"`
	BlockedTasks    int64   `json:"blocked_tasks"`
	OverdueTasks    int64   `json:"overdue_tasks"`
	Progress        float64 `json:"progress"`
	Members         int64   `json:"members"`
}

type MemberPerformance struct {
	UserID          uuid.UUID `json:"id"`
	Username        string    `json:"username"`
	FullName        string    `json:"full_name"`
	TotalTasks      int64     `json:"total_tasks"`
	CompletedTasks  int64     `json:"completed_tasks"`
	InProgressTasks int64     `json:"in_progress_tasks"`
	OverdueTasks    int64     `json:"overdue_tasks"`
	AverageProgress float64   `json:"average_progress"`
	CompletionRate  float64   `json:"completion_rate"`
}

func (m MemberPerformance) DisplayName() string {
	if m.FullName != "" {
		return m.FullName
	}
	return m.Username
}

// MemberWorkload is the per-user breakdown of assigned tasks
type MemberWorkload struct {
	UserID     uuid.UUID `json:"user_id"`
	TotalTasks int64     `json:"total_tasks"`
	Todo       int64     `json:"todo"`
	InProgress int64     `json:"in_progress"`
	Review     int64     `json:"review"`
	Completed  int64     `json:"completed"`
	Blocked    int64     `json:"blocked"`
	Overdue    int64     `json:"overdue"`

	ByPriority    map[TaskPriority]int64 `json:"tasks_by_priority,omitempty"`
	TotalProjects int64                  `json:"total_projects"`
}

type TaskSummary struct {
	Total           int64                  `json:"total"`
	ByStatus        map[TaskStatus]int64   `json:"by_status"`
	ByPriority      map[TaskPriority]int64 `json:"by_priority"`
	Overdue         int64                  `json:"overdue"`
	AverageProgress float64                `json:"avg_progress"`
}

// TimelinePoint is one day of the approximated progress history
type TimelinePoint struct {
	Date     time.Time `json:"date"`
	Progress float64   `json:"progress"`
}

// ActivityDay groups activity entries by calendar day
type ActivityDay struct {
	Date    time.Time     `json:"date"`
	Count   int           `json:"count"`
	Entries []ActivityLog `json:"entries"`
}
