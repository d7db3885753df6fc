package repository_test

import (
	"testing"
	"time"

	"pmdashboard/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newUser(t *testing.T, db *gorm.DB, username string, role model.Role) *model.User {
	t.Helper()
	user := &model.User{
		Username:       username,
		Email:          username + "@test.com",
		HashedPassword: "hash",
		Role:           role,
		FullName:       username,
		IsActive:       true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newProject(t *testing.T, db *gorm.DB, name string) *model.Project {
	t.Helper()
	project := &model.Project{Name: name}
	require.NoError(t, db.Create(project).Error)
	return project
}

func countActivity(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.ActivityLog{}).Count(&n).Error)
	return n
}

func dateIn(days int) *datatypes.Date {
	return model.NewDate(time.Now().AddDate(0, 0, days))
}
