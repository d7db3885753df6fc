package repository_test

import (
	"context"
	"testing"
	"time"

	"pmdashboard/internal/database/dbtest"
	"pmdashboard/internal/model"
	"pmdashboard/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		DriverName:           "postgres",
		Conn:                 db,
		PreferSimpleProtocol: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	assert.NoError(t, err)

	return gormDB, mock
}

var userColumns = []string{"id", "username", "email", "hashed_password", "role", "full_name", "is_active", "created_at", "updated_at"}

func TestUserRepository_FindByEmail_Found(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	userID := uuid.New()
	email := "test@example.com"
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM "users" WHERE email = .* LIMIT`).
		WithArgs(email, 1).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(userID.String(), "tester", email, "hashed_password", "member", "Test User", true, now, now))

	// Act
	user, err := userRepo.FindByEmail(context.Background(), email)

	// Assert
	assert.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, email, user.Email)
	assert.Equal(t, "Test User", user.FullName)
	assert.Equal(t, model.RoleMember, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmail_NotFound(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	email := "nonexistent@example.com"

	mock.ExpectQuery(`SELECT .* FROM "users" WHERE email = .* LIMIT`).
		WithArgs(email, 1).
		WillReturnError(gorm.ErrRecordNotFound)

	// Act
	user, err := userRepo.FindByEmail(context.Background(), email)

	// Assert
	assert.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmail_Error(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)

	email := "test@example.com"

	mock.ExpectQuery(`SELECT .* FROM "users" WHERE email = .* LIMIT`).
		WithArgs(email, 1).
		WillReturnError(assert.AnError)

	// Act
	user, err := userRepo.FindByEmail(context.Background(), email)

	// Assert
	assert.Error(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	userRepo := repository.NewUserRepository(gormDB)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "users" WHERE id = .* LIMIT`).
		WithArgs(id, 1).
		WillReturnRows(sqlmock.NewRows(userColumns))

	// Act
	user, err := userRepo.GetByID(context.Background(), id)

	// Assert
	assert.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateReturnsFalse(t *testing.T) {
	// Arrange
	db := dbtest.New(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	ok, err := repo.Create(ctx, &model.User{Username: "alice", Email: "alice@test.com", HashedPassword: "x", IsActive: true}, nil)
	require.NoError(t, err)
	require.True(t, ok)

	// Act
	sameName, errName := repo.Create(ctx, &model.User{Username: "alice", Email: "other@test.com", HashedPassword: "x"}, nil)
	sameEmail, errEmail := repo.Create(ctx, &model.User{Username: "alice2", Email: "alice@test.com", HashedPassword: "x"}, nil)

	// Assert
	assert.NoError(t, errName)
	assert.False(t, sameName)
	assert.NoError(t, errEmail)
	assert.False(t, sameEmail)

	var users int64
	db.Model(&model.User{}).Count(&users)
	assert.Equal(t, int64(1), users)

	var created int64
	db.Model(&model.ActivityLog{}).Where("action = ?", model.ActionUserCreated).Count(&created)
	assert.Equal(t, int64(1), created)
}

func TestUserRepository_FindByIdentifier(t *testing.T) {
	// Arrange
	db := dbtest.New(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()
	user := newUser(t, db, "jean.dupont", model.RoleMember)

	// Act
	byEmail, err1 := repo.FindByIdentifier(ctx, "JEAN.DUPONT@test.com")
	byName, err2 := repo.FindByIdentifier(ctx, " jean.dupont ")
	missing, err3 := repo.FindByIdentifier(ctx, "nobody")

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.NoError(t, err3)
	require.NotNil(t, byEmail)
	require.NotNil(t, byName)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, user.ID, byName.ID)
	assert.Nil(t, missing)
}

func TestUserRepository_Update(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()
	admin := newUser(t, db, "admin", model.RoleAdmin)
	user := newUser(t, db, "marie", model.RoleMember)
	other := newUser(t, db, "pierre", model.RoleMember)

	t.Run("empty update writes nothing", func(t *testing.T) {
		before := countActivity(t, db)

		ok, err := repo.Update(ctx, user.ID, model.UserUpdate{}, &admin.ID)

		assert.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, before, countActivity(t, db))
	})

	t.Run("sets fields and touches updated_at", func(t *testing.T) {
		name := "Marie Martin"
		role := model.RoleProjectManager

		ok, err := repo.Update(ctx, user.ID, model.UserUpdate{FullName: &name, Role: &role}, &admin.ID)

		require.NoError(t, err)
		assert.True(t, ok)
		reloaded, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, name, reloaded.FullName)
		assert.Equal(t, role, reloaded.Role)
		assert.False(t, reloaded.UpdatedAt.Before(user.UpdatedAt))
	})

	t.Run("taken email returns false", func(t *testing.T) {
		email := other.Email

		ok, err := repo.Update(ctx, user.ID, model.UserUpdate{Email: &email}, &admin.ID)

		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown user returns false", func(t *testing.T) {
		name := "Ghost"

		ok, err := repo.Update(ctx, uuid.New(), model.UserUpdate{FullName: &name}, &admin.ID)

		assert.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestUserRepository_DeactivateIsSoft(t *testing.T) {
	// Arrange
	db := dbtest.New(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()
	user := newUser(t, db, "leaving", model.RoleMember)

	// Act
	ok, err := repo.Deactivate(ctx, user.ID, nil)

	// Assert
	require.NoError(t, err)
	assert.True(t, ok)
	reloaded, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.False(t, reloaded.IsActive)

	active, err := repo.List(ctx, repository.UserFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, active)

	var logged int64
	db.Model(&model.ActivityLog{}).Where("action = ?", model.ActionUserDeactivated).Count(&logged)
	assert.Equal(t, int64(1), logged)
}
