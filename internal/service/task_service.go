package service

import (
	"context"
	"errors"
	"strings"

	"pmdashboard/internal/access"
	"pmdashboard/internal/analytics"
	"pmdashboard/internal/model"
	"pmdashboard/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NewTask struct {
	Title          string
	Description    string
	MilestoneID    *uuid.UUID
	Priority       model.TaskPriority
	Status         model.TaskStatus
	Progress       int
	AssignedTo     *uuid.UUID
	Deadline       *datatypes.Date
	EstimatedHours *float64
}

type TaskService struct {
	guard      projectGuard
	tasks      *repository.TaskRepository
	milestones *repository.MilestoneRepository
	comments   *repository.CommentRepository
	users      *repository.UserRepository
	metrics    BusinessRecorder
	now        Clock
}

func NewTaskService(projects *repository.ProjectRepository, members *repository.MemberRepository,
	tasks *repository.TaskRepository, milestones *repository.MilestoneRepository,
	comments *repository.CommentRepository, users *repository.UserRepository,
	metrics BusinessRecorder, now Clock) *TaskService {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if now == nil {
		now = SystemClock
	}
	return &TaskService{
		guard:      projectGuard{projects: projects, members: members},
		tasks:      tasks.WithClock(now),
		milestones: milestones,
		comments:   comments,
		users:      users,
		metrics:    metrics,
		now:        now,
	}
}

func validateProgress(progress int) error {
	if progress < 0 || progress > 100 {
		return invalid("progress", "must be between 0 and 100")
	}
	return nil
}

func validateHours(field string, hours *float64) error {
	if hours != nil && *hours < 0 {
		return invalid(field, "must not be negative")
	}
	return nil
}

func (s *TaskService) Create(ctx context.Context, p access.Principal, projectID uuid.UUID, in NewTask) (*model.Task, error) {
	if _, err := s.guard.manage(ctx, p, projectID); err != nil {
		return nil, err
	}

	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if err := minLength("title", in.Title, 3); err != nil {
		return nil, err
	}
	if !in.Priority.Valid() {
		return nil, invalid("priority", "unknown priority %q", in.Priority)
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, invalid("status", "unknown task status %q", in.Status)
	}
	if err := validateProgress(in.Progress); err != nil {
		return nil, err
	}
	if err := validateHours("estimated_hours", in.EstimatedHours); err != nil {
		return nil, err
	}
	if in.MilestoneID != nil {
		if err := s.checkMilestone(ctx, projectID, *in.MilestoneID); err != nil {
			return nil, err
		}
	}
	if in.AssignedTo != nil {
		if err := s.checkAssignee(ctx, *in.AssignedTo); err != nil {
			return nil, err
		}
	}

	task := &model.Task{
		ProjectID:      projectID,
		MilestoneID:    in.MilestoneID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Priority:       in.Priority,
		Status:         in.Status,
		Progress:       in.Progress,
		AssignedTo:     in.AssignedTo,
		Deadline:       in.Deadline,
		EstimatedHours: in.EstimatedHours,
	}
	if err := s.tasks.Create(ctx, task, p.ActorID()); err != nil {
		return nil, mapTaskError(err)
	}
	if task.Status == model.TaskCompleted {
		s.metrics.IncrementTaskCompleted()
	}
	return s.load(ctx, task.ID)
}

func (s *TaskService) checkMilestone(ctx context.Context, projectID, milestoneID uuid.UUID) error {
	milestone, err := s.milestones.GetByID(ctx, milestoneID)
	if err != nil {
		return err
	}
	if milestone == nil || milestone.ProjectID != projectID {
		return invalid("milestone_id", "milestone does not belong to this project")
	}
	return nil
}

func (s *TaskService) checkAssignee(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return notFound("user")
	}
	if !user.IsActive {
		return invalid("assigned_to", "user account is deactivated")
	}
	return nil
}

func mapTaskError(err error) error {
	if errors.Is(err, repository.ErrInconsistentProgress) {
		return invalid("progress", "progress 100 requires status COMPLETED")
	}
	return err
}

// Get returns a task to its assignee and to anyone who can view its project
func (s *TaskService) Get(ctx context.Context, p access.Principal, id uuid.UUID) (*model.Task, error) {
	if err := check(access.RequireAuthenticated(p)); err != nil {
		return nil, err
	}
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if access.CanUpdateTask(p, task).Allowed {
		return task, nil
	}
	if _, err := s.guard.view(ctx, p, task.ProjectID); err != nil {
		return nil, err
	}
	return task, nil
}

// List applies the filter. Members without a project filter only see their own tasks.
func (s *TaskService) List(ctx context.Context, p access.Principal, filter repository.TaskFilter) ([]model.Task, error) {
	if err := check(access.RequireAuthenticated(p)); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalid("status", "unknown task status %q", filter.Status)
	}
	if !access.HasManagementRights(p) {
		if filter.ProjectID != nil {
			if _, err := s.guard.view(ctx, p, *filter.ProjectID); err != nil {
				return nil, err
			}
		} else {
			self := p.UserID
			filter.AssignedTo = &self
		}
	}
	return s.tasks.List(ctx, filter)
}

// GroupByStatus buckets the listed tasks under every status, empty buckets included
func (s *TaskService) GroupByStatus(ctx context.Context, p access.Principal, filter repository.TaskFilter) (map[model.TaskStatus][]model.Task, error) {
	filter.Status = ""
	tasks, err := s.List(ctx, p, filter)
	if err != nil {
		return nil, err
	}
	groups := make(map[model.TaskStatus][]model.Task, len(model.TaskStatuses))
	for _, status := range model.TaskStatuses {
		groups[status] = []model.Task{}
	}
	for _, task := range tasks {
		groups[task.Status] = append(groups[task.Status], task)
	}
	return groups, nil
}

// Update applies a partial update. An assignee without management rights may only
// report status, progress and actual hours.
func (s *TaskService) Update(ctx context.Context, p access.Principal, id uuid.UUID, upd model.TaskUpdate) (*model.Task, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := check(access.CanUpdateTask(p, current)); err != nil {
		return nil, err
	}
	if !access.HasManagementRights(p) && !assigneeFieldsOnly(upd) {
		return nil, check(access.Deny("only status, progress and actual hours can be reported by the assignee"))
	}

	if upd.Title != nil {
		if err := minLength("title", *upd.Title, 3); err != nil {
			return nil, err
		}
		title := strings.TrimSpace(*upd.Title)
		upd.Title = &title
	}
	if upd.Priority != nil && !upd.Priority.Valid() {
		return nil, invalid("priority", "unknown priority %q", *upd.Priority)
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, invalid("status", "unknown task status %q", *upd.Status)
	}
	if upd.Progress != nil {
		if err := validateProgress(*upd.Progress); err != nil {
			return nil, err
		}
	}
	if err := validateHours("estimated_hours", upd.EstimatedHours); err != nil {
		return nil, err
	}
	if err := validateHours("actual_hours", upd.ActualHours); err != nil {
		return nil, err
	}
	if upd.MilestoneID != nil {
		if err := s.checkMilestone(ctx, current.ProjectID, *upd.MilestoneID); err != nil {
			return nil, err
		}
	}
	if upd.AssignedTo != nil {
		if err := s.checkAssignee(ctx, *upd.AssignedTo); err != nil {
			return nil, err
		}
	}
	if upd.Empty() {
		return current, nil
	}

	ok, err := s.tasks.Update(ctx, id, upd, p.ActorID())
	if err != nil {
		return nil, mapTaskError(err)
	}
	if !ok {
		return nil, notFound("task")
	}
	return s.reload(ctx, current)
}

func assigneeFieldsOnly(u model.TaskUpdate) bool {
	rest := u
	rest.Status, rest.Progress, rest.ActualHours = nil, nil, nil
	return rest.Empty()
}

// UpdateProgress sets progress, derives the status and stores an optional comment
func (s *TaskService) UpdateProgress(ctx context.Context, p access.Principal, id uuid.UUID, progress int, comment string) (*model.Task, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := check(access.CanUpdateTask(p, current)); err != nil {
		return nil, err
	}
	if err := validateProgress(progress); err != nil {
		return nil, err
	}

	ok, err := s.tasks.UpdateProgress(ctx, id, progress, strings.TrimSpace(comment), p.ActorID())
	if err != nil {
		return nil, mapTaskError(err)
	}
	if !ok {
		return nil, notFound("task")
	}
	return s.reload(ctx, current)
}

// reload fetches the task after a write and counts a transition into COMPLETED
func (s *TaskService) reload(ctx context.Context, before *model.Task) (*model.Task, error) {
	task, err := s.load(ctx, before.ID)
	if err != nil {
		return nil, err
	}
	if before.Status != model.TaskCompleted && task.Status == model.TaskCompleted {
		s.metrics.IncrementTaskCompleted()
	}
	return task, nil
}

func (s *TaskService) Assign(ctx context.Context, p access.Principal, id, userID uuid.UUID) (*model.Task, error) {
	if err := check(access.RequireManagement(p)); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, userID); err != nil {
		return nil, err
	}
	ok, err := s.tasks.Assign(ctx, id, userID, p.ActorID())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("task")
	}
	return s.load(ctx, id)
}

func (s *TaskService) Unassign(ctx context.Context, p access.Principal, id uuid.UUID) (*model.Task, error) {
	if err := check(access.RequireManagement(p)); err != nil {
		return nil, err
	}
	ok, err := s.tasks.Unassign(ctx, id, p.ActorID())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("task")
	}
	return s.load(ctx, id)
}

func (s *TaskService) Delete(ctx context.Context, p access.Principal, id uuid.UUID) error {
	if err := check(access.RequireManagement(p)); err != nil {
		return err
	}
	ok, err := s.tasks.Delete(ctx, id, p.ActorID())
	if err != nil {
		return err
	}
	if !ok {
		return notFound("task")
	}
	return nil
}

// Overdue lists late tasks, members only see the ones assigned to them
func (s *TaskService) Overdue(ctx context.Context, p access.Principal, projectID *uuid.UUID) ([]model.Task, error) {
	if err := check(access.RequireAuthenticated(p)); err != nil {
		return nil, err
	}
	if projectID != nil {
		if _, err := s.guard.view(ctx, p, *projectID); err != nil {
			return nil, err
		}
	}
	tasks, err := s.tasks.ListOverdue(ctx, s.now(), projectID)
	if err != nil {
		return nil, err
	}
	if access.HasManagementRights(p) || projectID != nil {
		return tasks, nil
	}
	own := tasks[:0]
	for _, task := range tasks {
		if task.AssignedTo != nil && *task.AssignedTo == p.UserID {
			own = append(own, task)
		}
	}
	return own, nil
}

// Summary counts the visible tasks by status and priority
func (s *TaskService) Summary(ctx context.Context, p access.Principal, projectID *uuid.UUID) (*model.TaskSummary, error) {
	tasks, err := s.List(ctx, p, repository.TaskFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}

	summary := &model.TaskSummary{
		Total:      int64(len(tasks)),
		ByStatus:   make(map[model.TaskStatus]int64, len(model.TaskStatuses)),
		ByPriority: make(map[model.TaskPriority]int64, len(model.TaskPriorities)),
	}
	for _, status := range model.TaskStatuses {
		summary.ByStatus[status] = 0
	}
	for _, priority := range model.TaskPriorities {
		summary.ByPriority[priority] = 0
	}

	today := s.now()
	var progressSum int
	for _, task := range tasks {
		summary.ByStatus[task.Status]++
		summary.ByPriority[task.Priority]++
		if task.Overdue(today) {
			summary.Overdue++
		}
		progressSum += task.Progress
	}
	if len(tasks) > 0 {
		summary.AverageProgress = analytics.Round(float64(progressSum)/float64(len(tasks)), 1)
	}
	return summary, nil
}

func (s *TaskService) AddComment(ctx context.Context, p access.Principal, taskID uuid.UUID, text string) (*model.TaskComment, error) {
	if _, err := s.Get(ctx, p, taskID); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("comment", "must not be blank")
	}
	comment := &model.TaskComment{TaskID: taskID, UserID: p.UserID, Comment: text}
	if err := s.comments.Add(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *TaskService) Comments(ctx context.Context, p access.Principal, taskID uuid.UUID) ([]model.TaskComment, error) {
	if _, err := s.Get(ctx, p, taskID); err != nil {
		return nil, err
	}
	return s.comments.ListByTask(ctx, taskID)
}

func (s *TaskService) load(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, notFound("task")
	}
	return task, nil
}
