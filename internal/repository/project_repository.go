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

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create adds a new project and its PROJECT_CREATED entry
func (r *ProjectRepository) Create(ctx context.Context, project *model.Project, actor *uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		return logActivity(tx, actor, model.ActionProjectCreated, model.EntityProject, project.ID,
			fmt.Sprintf("project '%s' created", project.Name))
	})
}

// GetByID retrieves a project with progress, task and member counts attached
func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).Preload("Creator").First(&project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	projects := []model.Project{project}
	if err := r.attachDerived(ctx, projects); err != nil {
		return nil, err
	}
	return &projects[0], nil
}

// Exists is a cheap existence check used before child inserts
func (r *ProjectRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Project{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// List returns all projects newest first, optionally restricted to one status
func (r *ProjectRepository) List(ctx context.Context, status model.ProjectStatus) ([]model.Project, error) {
	query := r.db.WithContext(ctx).Preload("Creator")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	return r.find(ctx, query)
}

// ListForUser returns the projects the user created, belongs to or has tasks assigned in
func (r *ProjectRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Project, error) {
	db := r.db.WithContext(ctx)
	memberOf := db.Model(&model.ProjectMember{}).Select("project_id").Where("user_id = ?", userID)
	assignedIn := db.Model(&model.Task{}).Select("project_id").Where("assigned_to = ?", userID)
	query := db.Preload("Creator").Where("created_by = ? OR id IN (?) OR id IN (?)", userID, memberOf, assignedIn)
	return r.find(ctx, query)
}

// HasAssignedTask reports whether the user is the assignee of at least one task in the project
func (r *ProjectRepository) HasAssignedTask(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("project_id = ? AND assigned_to = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *ProjectRepository) find(ctx context.Context, query *gorm.DB) ([]model.Project, error) {
	var projects []model.Project
	if err := query.Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	if err := r.attachDerived(ctx, projects); err != nil {
		return nil, err
	}
	return projects, nil
}

type projectTaskAggregate struct {
	ProjectID   uuid.UUID
	Total       int64
	Completed   int64
	AvgProgress *float64
}

type groupCount struct {
	GroupID uuid.UUID
	Total   int64
}

// attachDerived fills progress, task_count, member_count and creator name in two grouped queries
func (r *ProjectRepository) attachDerived(ctx context.Context, projects []model.Project) error {
	if len(projects) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
	}
	db := r.db.WithContext(ctx)

	var tasks []projectTaskAggregate
	err := db.Model(&model.Task{}).
		Select("project_id, COUNT(*) AS total, SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS completed, AVG(progress) AS avg_progress", model.TaskCompleted).
		Where("project_id IN ?", ids).
		Group("project_id").
		Scan(&tasks).Error
	if err != nil {
		return fmt.Errorf("failed to aggregate project tasks: %w", err)
	}

	var members []groupCount
	err = db.Model(&model.ProjectMember{}).
		Select("project_id AS group_id, COUNT(*) AS total").
		Where("project_id IN ?", ids).
		Group("project_id").
		Scan(&members).Error
	if err != nil {
		return fmt.Errorf("failed to count project members: %w", err)
	}

	byProject := make(map[uuid.UUID]projectTaskAggregate, len(tasks))
	for _, t := range tasks {
		byProject[t.ProjectID] = t
	}
	memberCount := make(map[uuid.UUID]int64, len(members))
	for _, m := range members {
		memberCount[m.GroupID] = m.Total
	}

	for i := range projects {
		p := &projects[i]
		agg := byProject[p.ID]
		avg := 0.0
		if agg.AvgProgress != nil {
			avg = *agg.AvgProgress
		}
		p.TaskCount = agg.Total
		p.Progress = analytics.ProjectProgress(agg.Total, agg.Completed, avg)
		p.MemberCount = memberCount[p.ID]
		if p.Creator != nil {
			p.CreatorName = p.Creator.DisplayName()
		}
	}
	return nil
}

func projectColumns(u model.ProjectUpdate) map[string]interface{} {
	cols := map[string]interface{}{}
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.Description != nil {
		cols["description"] = *u.Description
	}
	if u.ClearStartDate {
		cols["start_date"] = nil
	} else if u.StartDate != nil {
		cols["start_date"] = *u.StartDate
	}
	if u.ClearEndDate {
		cols["end_date"] = nil
	} else if u.EndDate != nil {
		cols["end_date"] = *u.EndDate
	}
	if u.Status != nil {
		cols["status"] = *u.Status
	}
	if u.ClearBudget {
		cols["budget"] = nil
	} else if u.Budget != nil {
		cols["budget"] = *u.Budget
	}
	return cols
}

// Update applies the set fields and touches updated_at.
// An empty update or a missing project returns false without writing.
func (r *ProjectRepository) Update(ctx context.Context, id uuid.UUID, upd model.ProjectUpdate, actor *uuid.UUID) (bool, error) {
	if upd.Empty() {
		return false, nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cols := projectColumns(upd)
		cols["updated_at"] = tx.NowFunc()
		res := tx.Model(&model.Project{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNoRows
		}
		return logActivity(tx, actor, model.ActionProjectUpdated, model.EntityProject, id, "")
	})
	return settle(err)
}

// Delete removes the project. Milestones, tasks and memberships go with it through the foreign keys.
func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project model.Project
		if err := tx.Select("id", "name").First(&project, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errNoRows
			}
			return err
		}
		if err := tx.Delete(&model.Project{}, "id = ?", id).Error; err != nil {
			return err
		}
		return logActivity(tx, actor, model.ActionProjectDeleted, model.EntityProject, id,
			fmt.Sprintf("project '%s' deleted", project.Name))
	})
	return settle(err)
}

type statusCount struct {
	Status string
	Total  int64
}

// CountByStatus returns the number of projects per status
func (r *ProjectRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).Model(&model.Project{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
