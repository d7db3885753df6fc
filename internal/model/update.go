package model

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UserUpdate lists the mutable user fields, nil means "leave unchanged".
// HashedPassword must already be hashed by the caller.
type UserUpdate struct {
	Username       *string
	Email          *string
	FullName       *string
	AvatarURL      *string
	Role           *Role
	IsActive       *bool
	HashedPassword *string
}

func (u UserUpdate) Empty() bool {
	return u.Username == nil && u.Email == nil && u.FullName == nil && u.AvatarURL == nil &&
		u.Role == nil && u.IsActive == nil && u.HashedPassword == nil
}

type ProjectUpdate struct {
	Name        *string
	Description *string
	StartDate   *datatypes.Date
	EndDate     *datatypes.Date
	Status      *ProjectStatus
	Budget      *float64

	ClearStartDate bool
	ClearEndDate   bool
	ClearBudget    bool
}

func (u ProjectUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.StartDate == nil && u.EndDate == nil &&
		u.Status == nil && u.Budget == nil && !u.ClearStartDate && !u.ClearEndDate && !u.ClearBudget
}

type MilestoneUpdate struct {
	Name        *string
	Description *string
	DueDate     *datatypes.Date
	Status      *MilestoneStatus

	ClearDueDate bool
}

func (u MilestoneUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.DueDate == nil && u.Status == nil && !u.ClearDueDate
}

type TaskUpdate struct {
	Title          *string
	Description    *string
	MilestoneID    *uuid.UUID
	Priority       *TaskPriority
	Status         *TaskStatus
	Progress       *int
	AssignedTo     *uuid.UUID
	Deadline       *datatypes.Date
	EstimatedHours *float64
	ActualHours    *float64

	ClearMilestone bool
	ClearAssignee  bool
	ClearDeadline  bool
}

func (u TaskUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.MilestoneID == nil && u.Priority == nil &&
		u.Status == nil && u.Progress == nil && u.AssignedTo == nil && u.Deadline == nil &&
		u.EstimatedHours == nil && u.ActualHours == nil &&
		!u.ClearMilestone && !u.ClearAssignee && !u.ClearDeadline
}
