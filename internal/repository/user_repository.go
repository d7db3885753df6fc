package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pmdashboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

type UserRepositoryInterface interface {
	Create(ctx context.Context, user *model.User, actor *uuid.UUID) (bool, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	List(ctx context.Context, filter UserFilter) ([]model.User, error)
	Update(ctx context.Context, id uuid.UUID, upd model.UserUpdate, actor *uuid.UUID) (bool, error)
	Deactivate(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (bool, error)
	Activate(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (bool, error)
}

var _ UserRepositoryInterface = (*UserRepository)(nil)

// UserFilter narrows List. A zero Role matches every role.
type UserFilter struct {
	Role       model.Role
	ActiveOnly bool
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts the user and its USER_CREATED entry. A taken username or email returns false.
func (r *UserRepository) Create(ctx context.Context, user *model.User, actor *uuid.UUID) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUserUnique(tx, user.Username, user.Email, uuid.Nil); err != nil {
			return err
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		author := actor
		if author == nil {
			author = &user.ID
		}
		return logActivity(tx, author, model.ActionUserCreated, model.EntityUser, user.ID,
			fmt.Sprintf("user %s created", user.Username))
	})
	return settle(err)
}

func ensureUserUnique(tx *gorm.DB, username, email string, exclude uuid.UUID) error {
	conds := []string{}
	args := []interface{}{}
	if username != "" {
		conds = append(conds, "username = ?")
		args = append(args, username)
	}
	if email != "" {
		conds = append(conds, "email = ?")
		args = append(args, email)
	}
	if len(conds) == 0 {
		return nil
	}

	query := tx.Model(&model.User{}).Where(strings.Join(conds, " OR "), args...)
	if exclude != uuid.Nil {
		query = query.Where("id <> ?", exclude)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errUniqueViolation
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIdentifier matches the identifier against the email first, then the username
func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	id := strings.ToLower(strings.TrimSpace(identifier))
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ? OR LOWER(username) = ?", id, id).
		Limit(2).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	for i := range users {
		if strings.ToLower(users[i].Email) == id {
			return &users[i], nil
		}
	}
	return &users[0], nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns users ordered by full name then username
func (r *UserRepository) List(ctx context.Context, filter UserFilter) ([]model.User, error) {
	query := r.db.WithContext(ctx)
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var users []model.User
	if err := query.Order("full_name, username").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CountActiveMembers counts active accounts with the member role
func (r *UserRepository) CountActiveMembers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("role = ? AND is_active = ?", model.RoleMember, true).
		Count(&count).Error
	return count, err
}

func userColumns(u model.UserUpdate) map[string]interface{} {
	cols := map[string]interface{}{}
	if u.Username != nil {
		cols["username"] = *u.Username
	}
	if u.Email != nil {
		cols["email"] = *u.Email
	}
	if u.FullName != nil {
		cols["full_name"] = *u.FullName
	}
	if u.AvatarURL != nil {
		cols["avatar_url"] = *u.AvatarURL
	}
	if u.Role != nil {
		cols["role"] = *u.Role
	}
	if u.IsActive != nil {
		cols["is_active"] = *u.IsActive
	}
	if u.HashedPassword != nil {
		cols["hashed_password"] = *u.HashedPassword
	}
	return cols
}

// Update applies the set fields. It returns false without writing when nothing is set,
// when the user does not exist or when the new username or email is taken.
func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, upd model.UserUpdate, actor *uuid.UUID) (bool, error) {
	if upd.Empty() {
		return false, nil
	}
	return r.apply(ctx, id, upd, actor, model.ActionUserUpdated)
}

// Deactivate is the user delete operation: accounts are never removed
func (r *UserRepository) Deactivate(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (bool, error) {
	active := false
	return r.apply(ctx, id, model.UserUpdate{IsActive: &active}, actor, model.ActionUserDeactivated)
}

func (r *UserRepository) Activate(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (bool, error) {
	active := true
	return r.apply(ctx, id, model.UserUpdate{IsActive: &active}, actor, model.ActionUserActivated)
}

func (r *UserRepository) apply(ctx context.Context, id uuid.UUID, upd model.UserUpdate, actor *uuid.UUID, action string) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var username, email string
		if upd.Username != nil {
			username = *upd.Username
		}
		if upd.Email != nil {
			email = *upd.Email
		}
		if err := ensureUserUnique(tx, username, email, id); err != nil {
			return err
		}

		cols := userColumns(upd)
		cols["updated_at"] = tx.NowFunc()
		res := tx.Model(&model.User{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNoRows
		}
		return logActivity(tx, actor, action, model.EntityUser, id, "")
	})
	return settle(err)
}
