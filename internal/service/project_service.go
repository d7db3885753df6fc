package service

import (
	"context"
	"strings"
	"time"

	"pmdashboard/internal/access"
	"pmdashboard/internal/model"
	"pmdashboard/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NewProject struct {
	Name        string
	Description string
	StartDate   *datatypes.Date
	EndDate     *datatypes.Date
	Status      model.ProjectStatus
	Budget      *float64
}

type ProjectService struct {
	guard   projectGuard
	members *repository.MemberRepository
	users   *repository.UserRepository
	metrics BusinessRecorder
}

func NewProjectService(projects *repository.ProjectRepository, members *repository.MemberRepository,
	users *repository.UserRepository, metrics BusinessRecorder) *ProjectService {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &ProjectService{
		guard:   projectGuard{projects: projects, members: members},
		members: members,
		users:   users,
		metrics: metrics,
	}
}

func validateProjectName(name string) error {
	return minLength("name", name, 3)
}

func validateDateRange(start, end *datatypes.Date) error {
	if start == nil || end == nil {
		return nil
	}
	if time.Time(*start).After(time.Time(*end)) {
		return invalid("end_date", "must not be before the start date")
	}
	return nil
}

func validateProjectStatus(status model.ProjectStatus) error {
	if !status.Valid() {
		return invalid("status", "unknown project status %q", status)
	}
	return nil
}

func validateBudget(budget *float64) error {
	if budget != nil && *budget < 0 {
		return invalid("budget", "must not be negative")
	}
	return nil
}

func (s *ProjectService) Create(ctx context.Context, p access.Principal, in NewProject) (*model.Project, error) {
	if err := check(access.CanCreateProjects(p)); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = model.ProjectNotStarted
	}
	if err := validateProjectName(in.Name); err != nil {
		return nil, err
	}
	if err := validateProjectStatus(in.Status); err != nil {
		return nil, err
	}
	if err := validateDateRange(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}
	if err := validateBudget(in.Budget); err != nil {
		return nil, err
	}

	project := &model.Project{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Status:      in.Status,
		Budget:      in.Budget,
		CreatedBy:   p.ActorID(),
	}
	if err := s.guard.projects.Create(ctx, project, p.ActorID()); err != nil {
		return nil, err
	}
	s.metrics.IncrementProjectCreated()
	return s.guard.load(ctx, project.ID)
}

func (s *ProjectService) Get(ctx context.Context, p access.Principal, id uuid.UUID) (*model.Project, error) {
	return s.guard.view(ctx, p, id)
}

// List returns every project to managers and only their own projects to members
func (s *ProjectService) List(ctx context.Context, p access.Principal, status model.ProjectStatus) ([]model.Project, error) {
	if err := check(access.RequireAuthenticated(p)); err != nil {
		return nil, err
	}
	if status != "" {
		if err := validateProjectStatus(status); err != nil {
			return nil, err
		}
	}
	if access.HasManagementRights(p) {
		return s.guard.projects.List(ctx, status)
	}

	projects, err := s.guard.projects.ListForUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return projects, nil
	}
	filtered := projects[:0]
	for _, project := range projects {
		if project.Status == status {
			filtered = append(filtered, project)
		}
	}
	return filtered, nil
}

// GroupByStatus buckets the visible projects under every status, empty buckets included
func (s *ProjectService) GroupByStatus(ctx context.Context, p access.Principal) (map[model.ProjectStatus][]model.Project, error) {
	projects, err := s.List(ctx, p, "")
	if err != nil {
		return nil, err
	}
	groups := make(map[model.ProjectStatus][]model.Project, len(model.ProjectStatuses))
	for _, status := range model.ProjectStatuses {
		groups[status] = []model.Project{}
	}
	for _, project := range projects {
		groups[project.Status] = append(groups[project.Status], project)
	}
	return groups, nil
}

func (s *ProjectService) Update(ctx context.Context, p access.Principal, id uuid.UUID, upd model.ProjectUpdate) (*model.Project, error) {
	current, err := s.guard.manage(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		if err := validateProjectName(*upd.Name); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(*upd.Name)
		upd.Name = &name
	}
	if upd.Status != nil {
		if err := validateProjectStatus(*upd.Status); err != nil {
			return nil, err
		}
	}
	if err := validateBudget(upd.Budget); err != nil {
		return nil, err
	}

	start, end := current.StartDate, current.EndDate
	switch {
	case upd.ClearStartDate:
		start = nil
	case upd.StartDate != nil:
		start = upd.StartDate
	}
	switch {
	case upd.ClearEndDate:
		end = nil
	case upd.EndDate != nil:
		end = upd.EndDate
	}
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}

	if upd.Empty() {
		return current, nil
	}
	ok, err := s.guard.projects.Update(ctx, id, upd, p.ActorID())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("project")
	}
	return s.guard.load(ctx, id)
}

func (s *ProjectService) Delete(ctx context.Context, p access.Principal, id uuid.UUID) error {
	if err := check(access.CanManageProject(p)); err != nil {
		return err
	}
	ok, err := s.guard.projects.Delete(ctx, id, p.ActorID())
	if err != nil {
		return err
	}
	if !ok {
		return notFound("project")
	}
	return nil
}

// AddMember puts an active user on the project team
func (s *ProjectService) AddMember(ctx context.Context, p access.Principal, projectID, userID uuid.UUID, role model.MemberRole) error {
	if _, err := s.guard.manage(ctx, p, projectID); err != nil {
		return err
	}
	if role == "" {
		role = model.MemberRoleMember
	}
	if !role.Valid() {
		return invalid("role_in_project", "unknown project role %q", role)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return notFound("user")
	}
	if !user.IsActive {
		return invalid("user_id", "user account is deactivated")
	}

	ok, err := s.members.Add(ctx, projectID, userID, role, p.ActorID())
	if err != nil {
		return err
	}
	if !ok {
		return conflict("project member")
	}
	return nil
}

func (s *ProjectService) RemoveMember(ctx context.Context, p access.Principal, projectID, userID uuid.UUID) error {
	if _, err := s.guard.manage(ctx, p, projectID); err != nil {
		return err
	}
	ok, err := s.members.Remove(ctx, projectID, userID, p.ActorID())
	if err != nil {
		return err
	}
	if !ok {
		return notFound("project member")
	}
	return nil
}

func (s *ProjectService) Members(ctx context.Context, p access.Principal, projectID uuid.UUID) ([]model.ProjectMember, error) {
	if _, err := s.guard.view(ctx, p, projectID); err != nil {
		return nil, err
	}
	return s.members.ListByProject(ctx, projectID)
}

// AvailableMembers lists active members that are not yet on the team
func (s *ProjectService) AvailableMembers(ctx context.Context, p access.Principal, projectID uuid.UUID) ([]model.User, error) {
	if _, err := s.guard.manage(ctx, p, projectID); err != nil {
		return nil, err
	}
	return s.members.ListAvailable(ctx, projectID)
}

// AssignableUsers lists who can receive a task of the project: the team plus admins
func (s *ProjectService) AssignableUsers(ctx context.Context, p access.Principal, projectID uuid.UUID) ([]model.User, error) {
	if _, err := s.guard.manage(ctx, p, projectID); err != nil {
		return nil, err
	}
	return s.members.ListAssignable(ctx, projectID)
}
