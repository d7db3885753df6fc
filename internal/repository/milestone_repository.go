package repository

import (
	"context"
	"errors"
	"fmt"

	"pmdashboard/internal/analytics"
	"pmdashboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MilestoneRepository struct {
	db *gorm.DB
}

func NewMilestoneRepository(db *gorm.DB) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

func (r *MilestoneRepository) Create(ctx context.Context, milestone *model.Milestone, actor *uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(milestone).Error; err != nil {
			return fmt.Errorf("failed to create milestone: %w", err)
		}
		return logActivity(tx, actor, model.ActionMilestoneCreated, model.EntityMilestone, milestone.ID,
			fmt.Sprintf("milestone '%s' created", milestone.Name))
	})
}

func (r *MilestoneRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Milestone, error) {
	var milestone model.Milestone
	err := r.db.WithContext(ctx).First(&milestone, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	milestones := []model.Milestone{milestone}
	if err := r.attachProgress(ctx, milestones); err != nil {
		return nil, err
	}
	return &milestones[0], nil
}

// ListByProject orders by due date (undated last) then creation time
func (r *MilestoneRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Milestone, error) {
	var milestones []model.Milestone
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date ASC, created_at ASC").
		Find(&milestones).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	if err := r.attachProgress(ctx, milestones); err != nil {
		return nil, err
	}
	return milestones, nil
}

type milestoneAggregate struct {
	MilestoneID uuid.UUID
	Total       int64
	AvgProgress *float64
}

func (r *MilestoneRepository) attachProgress(ctx context.Context, milestones []model.Milestone) error {
	if len(milestones) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(milestones))
	for i := range milestones {
		ids[i] = milestones[i].ID
	}

	var rows []milestoneAggregate
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("milestone_id, COUNT(*) AS total, AVG(progress) AS avg_progress").
		Where("milestone_id IN ?", ids).
		Group("milestone_id").
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to aggregate milestone tasks: %w", err)
	}

	byMilestone := make(map[uuid.UUID]milestoneAggregate, len(rows))
	for _, row := range rows {
		byMilestone[row.MilestoneID] = row
	}
	for i := range milestones {
		agg := byMilestone[milestones[i].ID]
		milestones[i].TaskCount = agg.Total
		milestones[i].Progress = analytics.MilestoneProgress(agg.AvgProgress)
	}
	return nil
}

func milestoneColumns(u model.MilestoneUpdate) map[string]interface{} {
	cols := map[string]interface{}{}
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.Description != nil {
		cols["description"] = *u.Description
	}
	if u.ClearDueDate {
		cols["due_date"] = nil
	} else if u.DueDate != nil {
		cols["due_date"] = *u.DueDate
	}
	if u.Status != nil {
		cols["status"] = *u.Status
	}
	return cols
}

func (r *MilestoneRepository) Update(ctx context.Context, id uuid.UUID, upd model.MilestoneUpdate, actor *uuid.UUID) (bool, error) {
	if upd.Empty() {
		return false, nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Milestone{}).Where("id = ?", id).Updates(milestoneColumns(upd))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNoRows
		}
		return logActivity(tx, actor, model.ActionMilestoneUpdated, model.EntityMilestone, id, "")
	})
	return settle(err)
}

// Delete removes the milestone, its tasks stay with a NULL milestone_id
func (r *MilestoneRepository) Delete(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Milestone{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNoRows
		}
		return logActivity(tx, actor, model.ActionMilestoneDeleted, model.EntityMilestone, id, "")
	})
	return settle(err)
}
