package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Activity actions recorded in the audit trail
const (
	ActionUserCreated      = "USER_CREATED"
	ActionUserUpdated      = "USER_UPDATED"
	ActionUserDeactivated  = "USER_DEACTIVATED"
	ActionUserActivated    = "USER_ACTIVATED"
	ActionProjectCreated   = "PROJECT_CREATED"
	ActionProjectUpdated   = "PROJECT_UPDATED"
	ActionProjectDeleted   = "PROJECT_DELETED"
	ActionMilestoneCreated = "MILESTONE_CREATED"
	ActionMilestoneUpdated = "MILESTONE_UPDATED"
	ActionMilestoneDeleted = "MILESTONE_DELETED"
	ActionTaskCreated      = "TASK_CREATED"
	ActionTaskUpdated      = "TASK_UPDATED"
	ActionTaskDeleted      = "TASK_DELETED"
	ActionTaskAssigned     = "TASK_ASSIGNED"
	ActionTaskUnassigned   = "TASK_UNASSIGNED"
	ActionMemberAdded      = "MEMBER_ADDED"
	ActionMemberRemoved    = "MEMBER_REMOVED"
	ActionCommentAdded     = "COMMENT_ADDED"
	ActionLogin            = "LOGIN"
	ActionLogout           = "LOGOUT"
)

// Entity types referenced by ActivityLog.EntityType
const (
	EntityUser      = "user"
	EntityProject   = "project"
	EntityMilestone = "milestone"
	EntityTask      = "task"
)

// ActivityLog is the append-only audit trail, rows are never updated or deleted
type ActivityLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType string     `gorm:"type:varchar(50)" json:"entity_type"`
	EntityID   *uuid.UUID `gorm:"type:uuid" json:"entity_id"`
	Details    string     `gorm:"type:text" json:"details"`
	Timestamp  time.Time  `gorm:"not null;index" json:"timestamp"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`

	Username string `gorm:"-" json:"username,omitempty"`
	FullName string `gorm:"-" json:"full_name,omitempty"`
}

func (ActivityLog) TableName() string {
	return "activity_log"
}

func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = tx.NowFunc()
	}
	return nil
}
