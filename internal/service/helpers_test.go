package service_test

import (
	"testing"
	"time"

	"pmdashboard/internal/access"
	"pmdashboard/internal/database/dbtest"
	"pmdashboard/internal/model"
	"pmdashboard/internal/repository"
	"pmdashboard/internal/service"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time {
	return fixedNow
}

func ptr[T any](v T) *T {
	return &v
}

func day(offset int) *datatypes.Date {
	return model.NewDate(fixedNow.AddDate(0, 0, offset))
}

type recorderSpy struct {
	projects  int
	completed int
}

func (r *recorderSpy) IncrementProjectCreated() { r.projects++ }
func (r *recorderSpy) IncrementTaskCompleted()  { r.completed++ }

type fixture struct {
	db         *gorm.DB
	users      *service.UserService
	projects   *service.ProjectService
	milestones *service.MilestoneService
	tasks      *service.TaskService
	progress   *service.ProgressService
	recorder   *recorderSpy

	admin  access.Principal
	pm     access.Principal
	member access.Principal
	other  access.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	milestoneRepo := repository.NewMilestoneRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	activityRepo := repository.NewActivityRepository(db, zap.NewNop(), nil)
	recorder := &recorderSpy{}

	f := &fixture{
		db:         db,
		users:      service.NewUserService(userRepo, projectRepo, taskRepo, statsRepo, clock),
		projects:   service.NewProjectService(projectRepo, memberRepo, userRepo, recorder),
		milestones: service.NewMilestoneService(projectRepo, memberRepo, milestoneRepo),
		tasks:      service.NewTaskService(projectRepo, memberRepo, taskRepo, milestoneRepo, commentRepo, userRepo, recorder, clock),
		progress:   service.NewProgressService(projectRepo, memberRepo, milestoneRepo, statsRepo, activityRepo, clock),
		recorder:   recorder,
	}
	f.admin = principal(t, db, "admin", model.RoleAdmin)
	f.pm = principal(t, db, "chef.projet", model.RoleProjectManager)
	f.member = principal(t, db, "jean.dupont", model.RoleMember)
	f.other = principal(t, db, "marie.martin", model.RoleMember)
	return f
}

func principal(t *testing.T, db *gorm.DB, username string, role model.Role) access.Principal {
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
	return access.Principal{UserID: user.ID, Username: user.Username, Role: user.Role}
}
