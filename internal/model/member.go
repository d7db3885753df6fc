package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MemberRole is the role a user holds inside one project team
type MemberRole string

const (
	MemberRoleMember MemberRole = "member"
	MemberRoleLead   MemberRole = "lead"
)

func (r MemberRole) Valid() bool {
	return r == MemberRoleMember || r == MemberRoleLead
}

// ProjectMember связывает пользователя с командой проекта
type ProjectMember struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_project_members_project_user" json:"project_id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:uq_project_members_project_user" json:"user_id"`
	RoleInProject MemberRole `gorm:"type:varchar(20);not null" json:"role_in_project"`
	JoinedAt      time.Time  `gorm:"autoCreateTime" json:"joined_at"`

	Project *Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	User    *User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

func (m *ProjectMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.RoleInProject == "" {
		m.RoleInProject = MemberRoleMember
	}
	return nil
}
