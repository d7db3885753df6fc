package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pmdashboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// taskOrder sorts by deadline (undated last), then priority rank, then newest first
const taskOrder = "CASE WHEN tasks.deadline IS NULL THEN 1 ELSE 0 END, tasks.deadline ASC, " +
	"CASE tasks.priority WHEN 'CRITICAL' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END DESC, " +
	"tasks.created_at DESC"

type TaskRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// TaskFilter narrows List, nil and empty fields are ignored
type TaskFilter struct {
	ProjectID   *uuid.UUID
	MilestoneID *uuid.UUID
	AssignedTo  *uuid.UUID
	Status      model.TaskStatus
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// WithClock returns a copy that derives is_overdue from now instead of the database clock
func (r *TaskRepository) WithClock(now func() time.Time) *TaskRepository {
	cp := *r
	cp.now = now
	return &cp
}

func (r *TaskRepository) today() time.Time {
	if r.now != nil {
		return r.now()
	}
	return r.db.NowFunc()
}

// Create adds a new task. Status and progress are reconciled before the insert.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task, actor *uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := prepareNewTask(task, tx.NowFunc()); err != nil {
			return err
		}
		if task.CreatedBy == nil {
			task.CreatedBy = actor
		}
		if err := tx.Create(task).Error; err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		return logActivity(tx, actor, model.ActionTaskCreated, model.EntityTask, task.ID,
			fmt.Sprintf("task '%s' created", task.Title))
	})
}

func prepareNewTask(task *model.Task, now time.Time) error {
	switch {
	case task.Status == model.TaskCompleted:
		task.Progress = 100
	case task.Status == "":
		task.Status = model.StatusForProgress(task.Progress)
		if task.Status == model.TaskCompleted {
			task.Progress = 100
		}
	case task.Progress >= 100:
		return ErrInconsistentProgress
	}
	if task.Status == model.TaskCompleted && task.CompletedAt == nil {
		task.CompletedAt = &now
	}
	return nil
}

// GetByID retrieves a task with assignee, project and milestone names attached
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	err := r.withNames(r.db.WithContext(ctx)).First(&task, "tasks.id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.decorate(&task)
	return &task, nil
}

// List returns tasks matching the filter in the deterministic task order
func (r *TaskRepository) List(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	query := r.withNames(r.db.WithContext(ctx))
	if filter.ProjectID != nil {
		query = query.Where("tasks.project_id = ?", *filter.ProjectID)
	}
	if filter.MilestoneID != nil {
		query = query.Where("tasks.milestone_id = ?", *filter.MilestoneID)
	}
	if filter.AssignedTo != nil {
		query = query.Where("tasks.assigned_to = ?", *filter.AssignedTo)
	}
	if filter.Status != "" {
		query = query.Where("tasks.status = ?", filter.Status)
	}
	return r.find(query.Order(taskOrder))
}

// ListOverdue returns open tasks whose deadline is before today, earliest deadline first
func (r *TaskRepository) ListOverdue(ctx context.Context, today time.Time, projectID *uuid.UUID) ([]model.Task, error) {
	query := r.withNames(r.db.WithContext(ctx)).Scopes(overdueScope(today))
	if projectID != nil {
		query = query.Where("tasks.project_id = ?", *projectID)
	}
	return r.find(query.Order("tasks.deadline ASC"))
}

// CountOverdue counts open tasks past their deadline
func (r *TaskRepository) CountOverdue(ctx context.Context, today time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Task{}).Scopes(overdueScope(today)).Count(&count).Error
	return count, err
}

// CountByStatus returns the number of tasks per status
func (r *TaskRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).Model(&model.Task{}).
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

// overdueScope matches deadline < today AND status != COMPLETED
func overdueScope(today time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.deadline IS NOT NULL AND tasks.deadline < ? AND tasks.status <> ?",
			model.DateOf(today), model.TaskCompleted)
	}
}

func (r *TaskRepository) withNames(db *gorm.DB) *gorm.DB {
	return db.Preload("Assignee").Preload("Project").Preload("Milestone")
}

func (r *TaskRepository) find(query *gorm.DB) ([]model.Task, error) {
	var tasks []model.Task
	if err := query.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	for i := range tasks {
		r.decorate(&tasks[i])
	}
	return tasks, nil
}

func (r *TaskRepository) decorate(task *model.Task) {
	task.IsOverdue = task.Overdue(r.today())
	if task.Assignee != nil {
		task.AssigneeName = task.Assignee.DisplayName()
	}
	if task.Project != nil {
		task.ProjectName = task.Project.Name
	}
	if task.Milestone != nil {
		task.MilestoneName = task.Milestone.Name
	}
}

func taskColumns(u model.TaskUpdate) map[string]interface{} {
	cols := map[string]interface{}{}
	if u.Title != nil {
		cols["title"] = *u.Title
	}
	if u.Description != nil {
		cols["description"] = *u.Description
	}
	if u.ClearMilestone {
		cols["milestone_id"] = nil
	} else if u.MilestoneID != nil {
		cols["milestone_id"] = *u.MilestoneID
	}
	if u.Priority != nil {
		cols["priority"] = *u.Priority
	}
	if u.ClearAssignee {
		cols["assigned_to"] = nil
	} else if u.AssignedTo != nil {
		cols["assigned_to"] = *u.AssignedTo
	}
	if u.ClearDeadline {
		cols["deadline"] = nil
	} else if u.Deadline != nil {
		cols["deadline"] = *u.Deadline
	}
	if u.EstimatedHours != nil {
		cols["estimated_hours"] = *u.EstimatedHours
	}
	if u.ActualHours != nil {
		cols["actual_hours"] = *u.ActualHours
	}
	return cols
}

// taskStateColumns reconciles status, progress and completed_at against the stored task.
// It returns nil when the update touches neither status nor progress.
func taskStateColumns(current model.Task, upd model.TaskUpdate, now time.Time) (map[string]interface{}, error) {
	if upd.Status == nil && upd.Progress == nil {
		return nil, nil
	}

	status, progress := current.Status, current.Progress
	if upd.Progress != nil {
		progress = *upd.Progress
	}
	switch {
	case upd.Status != nil && *upd.Status == model.TaskCompleted:
		status = model.TaskCompleted
		progress = 100
	case upd.Status != nil:
		if progress >= 100 {
			if upd.Progress != nil {
				return nil, ErrInconsistentProgress
			}
			progress = model.ReopenedProgress(*upd.Status)
		}
		status = *upd.Status
	case progress >= 100:
		status = model.TaskCompleted
		progress = 100
	case current.Status == model.TaskCompleted:
		status = model.StatusForProgress(progress)
	}

	cols := map[string]interface{}{"status": status, "progress": progress}
	switch {
	case status != model.TaskCompleted:
		cols["completed_at"] = nil
	case current.Status != model.TaskCompleted || current.CompletedAt == nil:
		cols["completed_at"] = now
	}
	return cols, nil
}

// Update applies the set fields with the status/progress rules and touches updated_at.
// An empty update or a missing task returns false without writing.
func (r *TaskRepository) Update(ctx context.Context, id uuid.UUID, upd model.TaskUpdate, actor *uuid.UUID) (bool, error) {
	if upd.Empty() {
		return false, nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.update(tx, id, upd, actor, model.ActionTaskUpdated, "")
	})
	return settle(err)
}

func (r *TaskRepository) update(tx *gorm.DB, id uuid.UUID, upd model.TaskUpdate, actor *uuid.UUID, action, details string) error {
	var current model.Task
	if err := tx.Select("id", "status", "progress", "completed_at").First(&current, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errNoRows
		}
		return err
	}

	now := tx.NowFunc()
	cols := taskColumns(upd)
	state, err := taskStateColumns(current, upd, now)
	if err != nil {
		return err
	}
	for k, v := range state {
		cols[k] = v
	}
	cols["updated_at"] = now

	res := tx.Model(&model.Task{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errNoRows
	}
	return logActivity(tx, actor, action, model.EntityTask, id, details)
}

// UpdateProgress sets progress with the matching status: 100 completes the task,
// anything above 0 is IN_PROGRESS and 0 is TODO. A non-empty comment is stored in the same transaction.
func (r *TaskRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress int, comment string, actor *uuid.UUID) (bool, error) {
	status := model.StatusForProgress(progress)
	upd := model.TaskUpdate{Progress: &progress, Status: &status}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.update(tx, id, upd, actor, model.ActionTaskUpdated, fmt.Sprintf("progress set to %d%%", progress)); err != nil {
			return err
		}
		if comment == "" || actor == nil {
			return nil
		}
		return addComment(tx, &model.TaskComment{TaskID: id, UserID: *actor, Comment: comment})
	})
	return settle(err)
}

// Assign sets the assignee and records TASK_ASSIGNED
func (r *TaskRepository) Assign(ctx context.Context, id, userID uuid.UUID, actor *uuid.UUID) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.update(tx, id, model.TaskUpdate{AssignedTo: &userID}, actor, model.ActionTaskAssigned,
			fmt.Sprintf("assigned to %s", userID))
	})
	return settle(err)
}

// Unassign clears the assignee and records TASK_UNASSIGNED
func (r *TaskRepository) Unassign(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.update(tx, id, model.TaskUpdate{ClearAssignee: true}, actor, model.ActionTaskUnassigned, "")
	})
	return settle(err)
}

// Delete removes the task, its comments go with it
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Task{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNoRows
		}
		return logActivity(tx, actor, model.ActionTaskDeleted, model.EntityTask, id, "")
	})
	return settle(err)
}
