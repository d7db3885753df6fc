package service

import (
	"context"
	"strings"

	"pmdashboard/internal/access"
	"pmdashboard/internal/model"
	"pmdashboard/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NewMilestone struct {
	Name        string
	Description string
	DueDate     *datatypes.Date
	Status      model.MilestoneStatus
}

type MilestoneService struct {
	guard      projectGuard
	milestones *repository.MilestoneRepository
}

func NewMilestoneService(projects *repository.ProjectRepository, members *repository.MemberRepository,
	milestones *repository.MilestoneRepository) *MilestoneService {
	return &MilestoneService{
		guard:      projectGuard{projects: projects, members: members},
		milestones: milestones,
	}
}

func validateMilestone(name *string, status *model.MilestoneStatus) error {
	if name != nil {
		if err := minLength("name", *name, 2); err != nil {
			return err
		}
	}
	if status != nil && !status.Valid() {
		return invalid("status", "unknown milestone status %q", *status)
	}
	return nil
}

func (s *MilestoneService) Create(ctx context.Context, p access.Principal, projectID uuid.UUID, in NewMilestone) (*model.Milestone, error) {
	if _, err := s.guard.manage(ctx, p, projectID); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = model.MilestonePending
	}
	if err := validateMilestone(&in.Name, &in.Status); err != nil {
		return nil, err
	}

	milestone := &model.Milestone{
		ProjectID:   projectID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		DueDate:     in.DueDate,
		Status:      in.Status,
	}
	if err := s.milestones.Create(ctx, milestone, p.ActorID()); err != nil {
		return nil, err
	}
	return s.load(ctx, milestone.ID)
}

func (s *MilestoneService) Get(ctx context.Context, p access.Principal, id uuid.UUID) (*model.Milestone, error) {
	milestone, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.view(ctx, p, milestone.ProjectID); err != nil {
		return nil, err
	}
	return milestone, nil
}

func (s *MilestoneService) List(ctx context.Context, p access.Principal, projectID uuid.UUID) ([]model.Milestone, error) {
	if _, err := s.guard.view(ctx, p, projectID); err != nil {
		return nil, err
	}
	return s.milestones.ListByProject(ctx, projectID)
}

func (s *MilestoneService) Update(ctx context.Context, p access.Principal, id uuid.UUID, upd model.MilestoneUpdate) (*model.Milestone, error) {
	if err := check(access.CanManageProject(p)); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateMilestone(upd.Name, upd.Status); err != nil {
		return nil, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		upd.Name = &name
	}
	if upd.Empty() {
		return current, nil
	}

	ok, err := s.milestones.Update(ctx, id, upd, p.ActorID())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("milestone")
	}
	return s.load(ctx, id)
}

// Delete removes the milestone, its tasks stay in the project without a milestone
func (s *MilestoneService) Delete(ctx context.Context, p access.Principal, id uuid.UUID) error {
	if err := check(access.CanManageProject(p)); err != nil {
		return err
	}
	ok, err := s.milestones.Delete(ctx, id, p.ActorID())
	if err != nil {
		return err
	}
	if !ok {
		return notFound("milestone")
	}
	return nil
}

func (s *MilestoneService) load(ctx context.Context, id uuid.UUID) (*model.Milestone, error) {
	milestone, err := s.milestones.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if milestone == nil {
		return nil, notFound("milestone")
	}
	return milestone, nil
}
