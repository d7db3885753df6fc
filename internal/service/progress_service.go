package service

import (
	"context"
	"sort"
	"time"

	"pmdashboard/internal/access"
	"pmdashboard/internal/analytics"
	"pmdashboard/internal/model"
	"pmdashboard/internal/repository"

	"github.com/google/uuid"
)

const (
	DefaultTimelineDays = 30
	MaxTimelineDays     = 365
	activityTimelineCap = 500
)

// ProjectSummary gathers everything the project overview shows
type ProjectSummary struct {
	Project       *model.Project         `json:"project"`
	Stats         *model.ProjectStats    `json:"stats"`
	Health        analytics.HealthReport `json:"health"`
	Milestones    []model.Milestone      `json:"milestones"`
	Members       []model.ProjectMember  `json:"members"`
	IsOnTrack     bool                   `json:"is_on_track"`
	DaysRemaining *int                   `json:"days_remaining"`
}

// ProgressService reads aggregates from the repositories and runs them through
// the analytics formulas. "today" always comes from the injected clock.
type ProgressService struct {
	guard      projectGuard
	stats      *repository.StatsRepository
	milestones *repository.MilestoneRepository
	activity   *repository.ActivityRepository
	now        Clock
}

func NewProgressService(projects *repository.ProjectRepository, members *repository.MemberRepository,
	milestones *repository.MilestoneRepository, stats *repository.StatsRepository,
	activity *repository.ActivityRepository, now Clock) *ProgressService {
	if now == nil {
		now = SystemClock
	}
	return &ProgressService{
		guard:      projectGuard{projects: projects, members: members},
		stats:      stats,
		milestones: milestones,
		activity:   activity,
		now:        now,
	}
}

func (s *ProgressService) today() time.Time {
	return model.DateOf(s.now())
}

func (s *ProgressService) Dashboard(ctx context.Context, p access.Principal) (*model.DashboardStats, error) {
	if err := check(access.RequireManagement(p)); err != nil {
		return nil, err
	}
	return s.stats.Dashboard(ctx, s.now())
}

func (s *ProgressService) ProjectStats(ctx context.Context, p access.Principal, projectID uuid.UUID) (*model.ProjectStats, error) {
	if _, err := s.guard.view(ctx, p, projectID); err != nil {
		return nil, err
	}
	return s.stats.ProjectStats(ctx, projectID, s.now())
}

func (s *ProgressService) Health(ctx context.Context, p access.Principal, projectID uuid.UUID) (analytics.HealthReport, error) {
	project, err := s.guard.view(ctx, p, projectID)
	if err != nil {
		return analytics.HealthReport{}, err
	}
	stats, err := s.stats.ProjectStats(ctx, projectID, s.now())
	if err != nil {
		return analytics.HealthReport{}, err
	}
	return s.health(project, stats), nil
}

func (s *ProgressService) health(project *model.Project, stats *model.ProjectStats) analytics.HealthReport {
	return analytics.Health(analytics.HealthInput{
		TotalTasks:   stats.TotalTasks,
		OverdueTasks: stats.OverdueTasks,
		BlockedTasks: stats.BlockedTasks,
		Progress:     stats.Progress,
		StartDate:    model.TimeOf(project.StartDate),
		EndDate:      model.TimeOf(project.EndDate),
		Today:        s.today(),
	})
}

// Velocity counts completions over the trailing weeks, most recent first
func (s *ProgressService) Velocity(ctx context.Context, p access.Principal) (analytics.VelocityReport, error) {
	if err := check(access.RequireManagement(p)); err != nil {
		return analytics.VelocityReport{}, err
	}
	return s.velocity(ctx)
}

func (s *ProgressService) velocity(ctx context.Context) (analytics.VelocityReport, error) {
	windows := analytics.VelocityWindows(s.today())
	weeks := make([]analytics.WeekCount, len(windows))
	for i, w := range windows {
		count, err := s.stats.CompletedBetween(ctx, w.Start, w.End, nil)
		if err != nil {
			return analytics.VelocityReport{}, err
		}
		weeks[i] = analytics.WeekCount{WeekStart: w.Start, WeekEnd: w.End, Completed: count}
	}
	return analytics.Velocity(weeks), nil
}

func (s *ProgressService) Workload(ctx context.Context, p access.Principal) (analytics.WorkloadReport, error) {
	if err := check(access.RequireManagement(p)); err != nil {
		return analytics.WorkloadReport{}, err
	}
	performance, err := s.stats.MemberPerformance(ctx, s.now(), nil)
	if err != nil {
		return analytics.WorkloadReport{}, err
	}
	loads := make([]analytics.MemberLoad, len(performance))
	for i, m := range performance {
		loads[i] = analytics.MemberLoad{
			UserID:   m.UserID,
			Name:     m.DisplayName(),
			Tasks:    m.TotalTasks,
			Active:   m.InProgressTasks,
			Overdue:  m.OverdueTasks,
			Progress: m.AverageProgress,
		}
	}
	return analytics.Workload(loads), nil
}

// Forecast projects the project's completion date from the team velocity
func (s *ProgressService) Forecast(ctx context.Context, p access.Principal, projectID uuid.UUID) (analytics.ForecastReport, error) {
	project, err := s.guard.view(ctx, p, projectID)
	if err != nil {
		return analytics.ForecastReport{}, err
	}
	stats, err := s.stats.ProjectStats(ctx, projectID, s.now())
	if err != nil {
		return analytics.ForecastReport{}, err
	}
	velocity, err := s.velocity(ctx)
	if err != nil {
		return analytics.ForecastReport{}, err
	}
	return analytics.Forecast(analytics.ForecastInput{
		TotalTasks:     stats.TotalTasks,
		CompletedTasks: stats.CompletedTasks,
		WeeklyVelocity: velocity.AverageVelocity,
		EndDate:        model.TimeOf(project.EndDate),
		Today:          s.today(),
	}), nil
}

// Performance returns every member's counters to managers and only their own to members
func (s *ProgressService) Performance(ctx context.Context, p access.Principal) ([]model.MemberPerformance, error) {
	if err := check(access.RequireAuthenticated(p)); err != nil {
		return nil, err
	}
	if access.HasManagementRights(p) {
		return s.stats.MemberPerformance(ctx, s.now(), nil)
	}
	self := p.UserID
	return s.stats.MemberPerformance(ctx, s.now(), &self)
}

func (s *ProgressService) MemberPerformance(ctx context.Context, p access.Principal, userID uuid.UUID) (*model.MemberPerformance, error) {
	if err := check(access.RequireAuthenticated(p)); err != nil {
		return nil, err
	}
	if p.UserID != userID {
		if err := check(access.RequireManagement(p)); err != nil {
			return nil, err
		}
	}
	rows, err := s.stats.MemberPerformance(ctx, s.now(), &userID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, notFound("member")
	}
	return &rows[0], nil
}

// ProgressTimeline returns, for each of the last days, the share of the project's tasks
// completed by the end of that day. It is rebuilt from today's completed_at values.
func (s *ProgressService) ProgressTimeline(ctx context.Context, p access.Principal, projectID uuid.UUID, days int) ([]model.TimelinePoint, error) {
	if _, err := s.guard.view(ctx, p, projectID); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = DefaultTimelineDays
	}
	if days > MaxTimelineDays {
		return nil, invalid("days", "must not exceed %d", MaxTimelineDays)
	}

	total, completions, err := s.stats.CompletionTimes(ctx, projectID)
	if err != nil {
		return nil, err
	}

	today := s.today()
	points := make([]model.TimelinePoint, 0, days+1)
	done := 0
	for i := days; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		endOfDay := day.AddDate(0, 0, 1)
		for done < len(completions) && completions[done].Before(endOfDay) {
			done++
		}
		var progress float64
		if total > 0 {
			progress = analytics.Round(float64(done)/float64(total)*100, 1)
		}
		points = append(points, model.TimelinePoint{Date: day, Progress: progress})
	}
	return points, nil
}

// RecentActivity lists the latest audit entries, members only see their own
func (s *ProgressService) RecentActivity(ctx context.Context, p access.Principal, filter repository.ActivityFilter) ([]model.ActivityLog, error) {
	if err := check(access.RequireAuthenticated(p)); err != nil {
		return nil, err
	}
	if !access.HasManagementRights(p) {
		self := p.UserID
		filter.UserID = &self
	}
	return s.activity.Recent(ctx, filter)
}

// ActivityTimeline groups the activity of the last days by calendar day, newest first
func (s *ProgressService) ActivityTimeline(ctx context.Context, p access.Principal, days int) ([]model.ActivityDay, error) {
	if days <= 0 {
		days = DefaultTimelineDays
	}
	if days > MaxTimelineDays {
		return nil, invalid("days", "must not exceed %d", MaxTimelineDays)
	}
	since := s.today().AddDate(0, 0, -days)
	entries, err := s.RecentActivity(ctx, p, repository.ActivityFilter{Limit: activityTimelineCap, Since: &since})
	if err != nil {
		return nil, err
	}

	byDay := make(map[time.Time]*model.ActivityDay)
	for _, entry := range entries {
		day := model.DateOf(entry.Timestamp)
		group, ok := byDay[day]
		if !ok {
			group = &model.ActivityDay{Date: day}
			byDay[day] = group
		}
		group.Entries = append(group.Entries, entry)
		group.Count++
	}

	timeline := make([]model.ActivityDay, 0, len(byDay))
	for _, group := range byDay {
		timeline = append(timeline, *group)
	}
	sort.Slice(timeline, func(i, j int) bool {
		return timeline[i].Date.After(timeline[j].Date)
	})
	return timeline, nil
}

// Summary returns the project overview. The project counts as on track while no task is overdue.
func (s *ProgressService) Summary(ctx context.Context, p access.Principal, projectID uuid.UUID) (*ProjectSummary, error) {
	project, err := s.guard.view(ctx, p, projectID)
	if err != nil {
		return nil, err
	}
	stats, err := s.stats.ProjectStats(ctx, projectID, s.now())
	if err != nil {
		return nil, err
	}
	milestones, err := s.milestones.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	members, err := s.guard.members.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	summary := &ProjectSummary{
		Project:    project,
		Stats:      stats,
		Health:     s.health(project, stats),
		Milestones: milestones,
		Members:    members,
		IsOnTrack:  stats.OverdueTasks == 0,
	}
	if end := model.TimeOf(project.EndDate); end != nil {
		remaining := int(end.Sub(s.today()).Hours() / 24)
		summary.DaysRemaining = &remaining
	}
	return summary, nil
}
