package service

import (
	"context"
	"strings"

	"pmdashboard/internal/access"
	"pmdashboard/internal/auth"
	"pmdashboard/internal/model"
	"pmdashboard/internal/repository"

	"github.com/google/uuid"
)

type NewUser struct {
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	FullName string     `json:"full_name"`
	Role     model.Role `json:"role"`
}

// UserChanges is a partial update, nil fields are left untouched
type UserChanges struct {
	Username  *string     `json:"username"`
	Email     *string     `json:"email"`
	Password  *string     `json:"password"`
	FullName  *string     `json:"full_name"`
	AvatarURL *string     `json:"avatar_url"`
	Role      *model.Role `json:"role"`
}

type UserService struct {
	users    *repository.UserRepository
	projects *repository.ProjectRepository
	tasks    *repository.TaskRepository
	stats    *repository.StatsRepository
	now      Clock
}

func NewUserService(users *repository.UserRepository, projects *repository.ProjectRepository,
	tasks *repository.TaskRepository, stats *repository.StatsRepository, now Clock) *UserService {
	if now == nil {
		now = SystemClock
	}
	return &UserService{users: users, projects: projects, tasks: tasks.WithClock(now), stats: stats, now: now}
}

func normalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validateUsername(username string) error {
	return minLength("username", username, 3)
}

func validateEmail(email string) error {
	if !strings.Contains(email, "@") {
		return invalid("email", "must be a valid email address")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 {
		return invalid("password", "must contain at least 6 characters")
	}
	return nil
}

func validateRole(role model.Role) error {
	if !role.Valid() {
		return invalid("role", "unknown role %q", role)
	}
	return nil
}

func (s *UserService) Create(ctx context.Context, p access.Principal, in NewUser) (*model.User, error) {
	if err := check(access.CanManageUsers(p)); err != nil {
		return nil, err
	}

	username := normalizeIdentity(in.Username)
	email := normalizeIdentity(in.Email)
	if in.Role == "" {
		in.Role = model.RoleMember
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if err := validateRole(in.Role); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:       username,
		Email:          email,
		HashedPassword: hash,
		FullName:       strings.TrimSpace(in.FullName),
		Role:           in.Role,
		IsActive:       true,
	}
	created, err := s.users.Create(ctx, user, p.ActorID())
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, conflict("user with this username or email")
	}
	return user, nil
}

// Get returns a user. Members may only read their own account.
func (s *UserService) Get(ctx context.Context, p access.Principal, id uuid.UUID) (*model.User, error) {
	if err := s.canRead(p, id); err != nil {
		return nil, err
	}
	return s.mustGet(ctx, id)
}

func (s *UserService) canRead(p access.Principal, id uuid.UUID) error {
	if err := check(access.RequireAuthenticated(p)); err != nil {
		return err
	}
	if p.UserID == id {
		return nil
	}
	return check(access.RequireManagement(p))
}

func (s *UserService) List(ctx context.Context, p access.Principal, filter repository.UserFilter) ([]model.User, error) {
	if err := check(access.RequireManagement(p)); err != nil {
		return nil, err
	}
	if filter.Role != "" {
		if err := validateRole(filter.Role); err != nil {
			return nil, err
		}
	}
	return s.users.List(ctx, filter)
}

func (s *UserService) Update(ctx context.Context, p access.Principal, id uuid.UUID, in UserChanges) (*model.User, error) {
	if err := check(access.CanManageUsers(p)); err != nil {
		return nil, err
	}

	var upd model.UserUpdate
	if in.Username != nil {
		username := normalizeIdentity(*in.Username)
		if err := validateUsername(username); err != nil {
			return nil, err
		}
		upd.Username = &username
	}
	if in.Email != nil {
		email := normalizeIdentity(*in.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		upd.Email = &email
	}
	if in.Role != nil {
		if err := validateRole(*in.Role); err != nil {
			return nil, err
		}
		upd.Role = in.Role
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		upd.HashedPassword = &hash
	}
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		upd.FullName = &name
	}
	upd.AvatarURL = in.AvatarURL

	if upd.Empty() {
		return s.mustGet(ctx, id)
	}

	if _, err := s.mustGet(ctx, id); err != nil {
		return nil, err
	}
	updated, err := s.users.Update(ctx, id, upd, p.ActorID())
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, conflict("user with this username or email")
	}
	return s.mustGet(ctx, id)
}

func (s *UserService) Deactivate(ctx context.Context, p access.Principal, id uuid.UUID) error {
	if err := check(access.CanManageUsers(p)); err != nil {
		return err
	}
	if p.UserID == id {
		return invalid("id", "you cannot deactivate your own account")
	}
	ok, err := s.users.Deactivate(ctx, id, p.ActorID())
	if err != nil {
		return err
	}
	if !ok {
		return notFound("user")
	}
	return nil
}

func (s *UserService) Activate(ctx context.Context, p access.Principal, id uuid.UUID) error {
	if err := check(access.CanManageUsers(p)); err != nil {
		return err
	}
	ok, err := s.users.Activate(ctx, id, p.ActorID())
	if err != nil {
		return err
	}
	if !ok {
		return notFound("user")
	}
	return nil
}

// Workload breaks down a user's assigned tasks by status and priority
func (s *UserService) Workload(ctx context.Context, p access.Principal, id uuid.UUID) (*model.MemberWorkload, error) {
	if err := s.canRead(p, id); err != nil {
		return nil, err
	}
	if _, err := s.mustGet(ctx, id); err != nil {
		return nil, err
	}

	workload, err := s.stats.UserWorkload(ctx, id, s.now())
	if err != nil {
		return nil, err
	}

	tasks, err := s.tasks.List(ctx, repository.TaskFilter{AssignedTo: &id})
	if err != nil {
		return nil, err
	}
	workload.ByPriority = make(map[model.TaskPriority]int64, len(model.TaskPriorities))
	for _, priority := range model.TaskPriorities {
		workload.ByPriority[priority] = 0
	}
	for _, t := range tasks {
		workload.ByPriority[t.Priority]++
	}

	projects, err := s.projects.ListForUser(ctx, id)
	if err != nil {
		return nil, err
	}
	workload.TotalProjects = int64(len(projects))
	return workload, nil
}

func (s *UserService) mustGet(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFound("user")
	}
	return user, nil
}
