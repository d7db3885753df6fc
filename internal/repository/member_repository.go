package repository

import (
	"context"
	"fmt"

	"pmdashboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// Add joins the user to the project team. An existing (project, user) pair returns false.
func (r *MemberRepository) Add(ctx context.Context, projectID, userID uuid.UUID, role model.MemberRole, actor *uuid.UUID) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&model.ProjectMember{}).
			Where("project_id = ? AND user_id = ?", projectID, userID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return errUniqueViolation
		}

		member := &model.ProjectMember{ProjectID: projectID, UserID: userID, RoleInProject: role}
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		return logActivity(tx, actor, model.ActionMemberAdded, model.EntityProject, projectID,
			fmt.Sprintf("user %s joined as %s", userID, member.RoleInProject))
	})
	return settle(err)
}

func (r *MemberRepository) Remove(ctx context.Context, projectID, userID uuid.UUID, actor *uuid.UUID) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("project_id = ? AND user_id = ?", projectID, userID).Delete(&model.ProjectMember{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNoRows
		}
		return logActivity(tx, actor, model.ActionMemberRemoved, model.EntityProject, projectID,
			fmt.Sprintf("user %s left", userID))
	})
	return settle(err)
}

// ListByProject returns the team with user records loaded, ordered by name
func (r *MemberRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.ProjectMember, error) {
	var members []model.ProjectMember
	err := r.db.WithContext(ctx).
		Joins("JOIN users ON users.id = project_members.user_id").
		Preload("User").
		Where("project_members.project_id = ?", projectID).
		Order("users.full_name, users.username").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}
	return members, nil
}

func (r *MemberRepository) IsMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

// ListAvailable returns active member accounts not yet on the project team
func (r *MemberRepository) ListAvailable(ctx context.Context, projectID uuid.UUID) ([]model.User, error) {
	db := r.db.WithContext(ctx)
	inProject := db.Model(&model.ProjectMember{}).Select("user_id").Where("project_id = ?", projectID)

	var users []model.User
	err := db.Where("role = ? AND is_active = ? AND id NOT IN (?)", model.RoleMember, true, inProject).
		Order("full_name, username").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list available users: %w", err)
	}
	return users, nil
}

// ListAssignable returns active users a project task can be given to: the team plus admins
func (r *MemberRepository) ListAssignable(ctx context.Context, projectID uuid.UUID) ([]model.User, error) {
	db := r.db.WithContext(ctx)
	inProject := db.Model(&model.ProjectMember{}).Select("user_id").Where("project_id = ?", projectID)

	var users []model.User
	err := db.Where("is_active = ? AND (id IN (?) OR role = ?)", true, inProject, model.RoleAdmin).
		Order("full_name, username").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignable users: %w", err)
	}
	return users, nil
}
