// Package report builds project and team report documents and their CSV exports.
package report

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"pmdashboard/internal/access"
	"pmdashboard/internal/analytics"
	"pmdashboard/internal/model"
	"pmdashboard/internal/repository"
	"pmdashboard/internal/service"

	"github.com/google/uuid"
)

const recentActivityLimit = 50

// Export kinds, also used as metric labels and archive key prefixes
const (
	KindProjectTasks = "project-tasks"
	KindProjects     = "projects"
	KindTeam         = "team"
)

type ExportRecorder interface {
	RecordReportExport(kind string)
}

type MemberTaskCount struct {
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Total     int64     `json:"total"`
	Completed int64     `json:"completed"`
}

type ProjectReport struct {
	Project       *model.Project               `json:"project"`
	Stats         *model.ProjectStats          `json:"stats"`
	Health        analytics.HealthReport       `json:"health"`
	Milestones    []model.Milestone            `json:"milestones"`
	Members       []model.ProjectMember        `json:"members"`
	Tasks         []model.Task                 `json:"tasks"`
	PriorityStats map[model.TaskPriority]int64 `json:"priority_stats"`
	MemberStats   []MemberTaskCount            `json:"member_stats"`
	GeneratedAt   time.Time                    `json:"generated_at"`
}

type TeamReport struct {
	Dashboard        *model.DashboardStats     `json:"dashboard_stats"`
	Members          []model.MemberPerformance `json:"members_performance"`
	Ranking          []model.MemberPerformance `json:"ranked_members"`
	OverdueTasks     []model.Task              `json:"overdue_tasks"`
	RecentActivities []model.ActivityLog       `json:"recent_activities"`
	GeneratedAt      time.Time                 `json:"generated_at"`
}

// Generator assembles reports on top of the services so every read goes through the same gate
type Generator struct {
	projects *service.ProjectService
	tasks    *service.TaskService
	progress *service.ProgressService
	archive  Archive
	exports  ExportRecorder
	now      service.Clock
}

func NewGenerator(projects *service.ProjectService, tasks *service.TaskService, progress *service.ProgressService,
	archive Archive, exports ExportRecorder, now service.Clock) *Generator {
	if now == nil {
		now = service.SystemClock
	}
	return &Generator{
		projects: projects,
		tasks:    tasks,
		progress: progress,
		archive:  archive,
		exports:  exports,
		now:      now,
	}
}

func (g *Generator) ProjectReport(ctx context.Context, p access.Principal, projectID uuid.UUID) (*ProjectReport, error) {
	summary, err := g.progress.Summary(ctx, p, projectID)
	if err != nil {
		return nil, err
	}
	tasks, err := g.tasks.List(ctx, p, repository.TaskFilter{ProjectID: &projectID})
	if err != nil {
		return nil, err
	}

	priorities := make(map[model.TaskPriority]int64, len(model.TaskPriorities))
	for _, priority := range model.TaskPriorities {
		priorities[priority] = 0
	}
	var members []MemberTaskCount
	index := make(map[uuid.UUID]int)
	for _, task := range tasks {
		priorities[task.Priority]++
		if task.AssignedTo == nil {
			continue
		}
		i, ok := index[*task.AssignedTo]
		if !ok {
			i = len(members)
			index[*task.AssignedTo] = i
			members = append(members, MemberTaskCount{UserID: *task.AssignedTo, Name: task.AssigneeName})
		}
		members[i].Total++
		if task.Status == model.TaskCompleted {
			members[i].Completed++
		}
	}

	return &ProjectReport{
		Project:       summary.Project,
		Stats:         summary.Stats,
		Health:        summary.Health,
		Milestones:    summary.Milestones,
		Members:       summary.Members,
		Tasks:         tasks,
		PriorityStats: priorities,
		MemberStats:   members,
		GeneratedAt:   g.now(),
	}, nil
}

func (g *Generator) TeamReport(ctx context.Context, p access.Principal) (*TeamReport, error) {
	dashboard, err := g.progress.Dashboard(ctx, p)
	if err != nil {
		return nil, err
	}
	performance, err := g.progress.Performance(ctx, p)
	if err != nil {
		return nil, err
	}
	overdue, err := g.tasks.Overdue(ctx, p, nil)
	if err != nil {
		return nil, err
	}
	activity, err := g.progress.RecentActivity(ctx, p, repository.ActivityFilter{Limit: recentActivityLimit})
	if err != nil {
		return nil, err
	}

	ranking := make([]model.MemberPerformance, len(performance))
	copy(ranking, performance)
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].CompletionRate > ranking[j].CompletionRate
	})

	return &TeamReport{
		Dashboard:        dashboard,
		Members:          performance,
		Ranking:          ranking,
		OverdueTasks:     overdue,
		RecentActivities: activity,
		GeneratedAt:      g.now(),
	}, nil
}

// ExportProjectTasks renders the project's tasks as CSV
func (g *Generator) ExportProjectTasks(ctx context.Context, p access.Principal, projectID uuid.UUID) ([]byte, error) {
	tasks, err := g.tasks.List(ctx, p, repository.TaskFilter{ProjectID: &projectID})
	if err != nil {
		return nil, err
	}
	return g.render(KindProjectTasks, func(buf *bytes.Buffer) error {
		return WriteTasksCSV(buf, tasks)
	})
}

// ExportProjects renders the project portfolio as CSV for management roles
func (g *Generator) ExportProjects(ctx context.Context, p access.Principal) ([]byte, error) {
	if err := access.RequireManagement(p).Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", service.ErrForbidden, err)
	}
	projects, err := g.projects.List(ctx, p, "")
	if err != nil {
		return nil, err
	}
	return g.render(KindProjects, func(buf *bytes.Buffer) error {
		return WriteProjectsCSV(buf, projects)
	})
}

func (g *Generator) ExportTeamPerformance(ctx context.Context, p access.Principal) ([]byte, error) {
	if err := access.RequireManagement(p).Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", service.ErrForbidden, err)
	}
	performance, err := g.progress.Performance(ctx, p)
	if err != nil {
		return nil, err
	}
	return g.render(KindTeam, func(buf *bytes.Buffer) error {
		return WriteTeamPerformanceCSV(buf, performance)
	})
}

func (g *Generator) render(kind string, write func(*bytes.Buffer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render %s export: %w", kind, err)
	}
	if g.exports != nil {
		g.exports.RecordReportExport(kind)
	}
	return buf.Bytes(), nil
}
