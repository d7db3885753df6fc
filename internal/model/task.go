package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskReview     TaskStatus = "REVIEW"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskBlocked    TaskStatus = "BLOCKED"
)

var TaskStatuses = []TaskStatus{TaskTodo, TaskInProgress, TaskReview, TaskCompleted, TaskBlocked}

func (s TaskStatus) Valid() bool {
	for _, status := range TaskStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type TaskPriority string

const (
	PriorityLow      TaskPriority = "LOW"
	PriorityMedium   TaskPriority = "MEDIUM"
	PriorityHigh     TaskPriority = "HIGH"
	PriorityCritical TaskPriority = "CRITICAL"
)

var TaskPriorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

func (p TaskPriority) Valid() bool {
	return p.Rank() > 0
}

// Rank orders priorities from LOW (1) to CRITICAL (4), 0 for unknown values
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityCritical:
		return 4
	}
	return 0
}

type Task struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"project_id"`
	MilestoneID    *uuid.UUID      `gorm:"type:uuid;index" json:"milestone_id"`
	Title          string          `gorm:"type:varchar(255);not null" json:"title"`
	Description    string          `gorm:"type:text" json:"description"`
	Priority       TaskPriority    `gorm:"type:varchar(20);not null" json:"priority"`
	Status         TaskStatus      `gorm:"type:varchar(20);not null;index" json:"status"`
	Progress       int             `gorm:"not null" json:"progress"`
	AssignedTo     *uuid.UUID      `gorm:"type:uuid;index" json:"assigned_to"`
	CreatedBy      *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	Deadline       *datatypes.Date `gorm:"index" json:"deadline"`
	EstimatedHours *float64        `json:"estimated_hours"`
	ActualHours    *float64        `json:"actual_hours"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	CompletedAt    *time.Time      `gorm:"index" json:"completed_at"`

	Project   *Project   `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Milestone *Milestone `gorm:"foreignKey:MilestoneID;constraint:OnDelete:SET NULL" json:"-"`
	Assignee  *User      `gorm:"foreignKey:AssignedTo;constraint:OnDelete:SET NULL" json:"-"`
	Creator   *User      `gorm:"foreignKey:CreatedBy;constraint:OnDelete:SET NULL" json:"-"`

	IsOverdue     bool   `gorm:"-" json:"is_overdue"`
	AssigneeName  string `gorm:"-" json:"assigned_to_name,omitempty"`
	ProjectName   string `gorm:"-" json:"project_name,omitempty"`
	MilestoneName string `gorm:"-" json:"milestone_name,omitempty"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Status == "" {
		t.Status = TaskTodo
	}
	return nil
}

// Overdue reports whether the deadline is strictly before today and the task is still open
func (t *Task) Overdue(today time.Time) bool {
	if t.Deadline == nil || t.Status == TaskCompleted {
		return false
	}
	return DateOf(time.Time(*t.Deadline)).Before(DateOf(today))
}

// StatusForProgress maps a progress value to the status the progress-update path assigns
func StatusForProgress(progress int) TaskStatus {
	switch {
	case progress >= 100:
		return TaskCompleted
	case progress > 0:
		return TaskInProgress
	default:
		return TaskTodo
	}
}

// ReopenedProgress is the progress a COMPLETED task falls back to when only its status changes
func ReopenedProgress(status TaskStatus) int {
	if status == TaskTodo {
		return 0
	}
	return 99
}
