package service

import (
	"context"

	"pmdashboard/internal/access"
	"pmdashboard/internal/model"
	"pmdashboard/internal/repository"

	"github.com/google/uuid"
)

// BusinessRecorder receives domain counters, metrics.Metrics implements it
type BusinessRecorder interface {
	IncrementProjectCreated()
	IncrementTaskCompleted()
}

type nopRecorder struct{}

func (nopRecorder) IncrementProjectCreated() {}
func (nopRecorder) IncrementTaskCompleted()  {}

// projectGuard loads a project and applies the per-project gate
type projectGuard struct {
	projects *repository.ProjectRepository
	members  *repository.MemberRepository
}

func (g projectGuard) load(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	project, err := g.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, notFound("project")
	}
	return project, nil
}

func (g projectGuard) view(ctx context.Context, p access.Principal, id uuid.UUID) (*model.Project, error) {
	if err := check(access.RequireAuthenticated(p)); err != nil {
		return nil, err
	}
	project, err := g.load(ctx, id)
	if err != nil {
		return nil, err
	}
	participates := false
	if !access.HasManagementRights(p) {
		if participates, err = g.participates(ctx, id, p.UserID); err != nil {
			return nil, err
		}
	}
	if err := check(access.CanViewProject(p, project, participates)); err != nil {
		return nil, err
	}
	return project, nil
}

// participates is true for team members and for assignees of a task in the project
func (g projectGuard) participates(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	isMember, err := g.members.IsMember(ctx, projectID, userID)
	if err != nil || isMember {
		return isMember, err
	}
	return g.projects.HasAssignedTask(ctx, projectID, userID)
}

func (g projectGuard) manage(ctx context.Context, p access.Principal, id uuid.UUID) (*model.Project, error) {
	if err := check(access.CanManageProject(p)); err != nil {
		return nil, err
	}
	return g.load(ctx, id)
}
