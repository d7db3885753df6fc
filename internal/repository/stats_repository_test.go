package repository_test

import (
	"context"
	"testing"
	"time"

	"pmdashboard/internal/database/dbtest"
	"pmdashboard/internal/model"
	"pmdashboard/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func seedStats(t *testing.T, db *gorm.DB) (*model.Project, *model.User, *model.User) {
	t.Helper()
	ctx := context.Background()
	tasks := repository.NewTaskRepository(db)
	busy := newUser(t, db, "busy", model.RoleMember)
	idle := newUser(t, db, "idle", model.RoleMember)
	newUser(t, db, "boss", model.RoleAdmin)

	project := &model.Project{Name: "Stats", Status: model.ProjectInProgress}
	require.NoError(t, db.Create(project).Error)
	require.NoError(t, db.Create(&model.Project{Name: "Closed", Status: model.ProjectCompleted}).Error)

	for _, task := range []*model.Task{
		{ProjectID: project.ID, Title: "done", Status: model.TaskCompleted, AssignedTo: &busy.ID},
		{ProjectID: project.ID, Title: "half", Progress: 50, AssignedTo: &busy.ID},
		{ProjectID: project.ID, Title: "late", Deadline: dateIn(-2), AssignedTo: &busy.ID},
		{ProjectID: project.ID, Title: "stuck", Status: model.TaskBlocked, Progress: 10},
	} {
		require.NoError(t, tasks.Create(ctx, task, nil))
	}
	return project, busy, idle
}

func TestStatsRepository_Dashboard(t *testing.T) {
	// Arrange
	db := dbtest.New(t)
	seedStats(t, db)
	repo := repository.NewStatsRepository(db)

	// Act
	stats, err := repo.Dashboard(context.Background(), time.Now())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalProjects)
	assert.Equal(t, int64(1), stats.ActiveProjects)
	assert.Equal(t, int64(1), stats.CompletedProjects)
	assert.Equal(t, int64(4), stats.TotalTasks)
	assert.Equal(t, int64(1), stats.CompletedTasks)
	assert.Equal(t, int64(1), stats.InProgressTasks)
	assert.Equal(t, int64(1), stats.OverdueTasks)
	assert.Equal(t, int64(2), stats.TotalMembers)
	assert.Equal(t, 40.0, stats.OverallProgress)
}

func TestStatsRepository_DashboardEmpty(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewStatsRepository(db)

	stats, err := repo.Dashboard(context.Background(), time.Now())

	require.NoError(t, err)
	assert.Equal(t, model.DashboardStats{}, *stats)
}

func TestStatsRepository_ProjectStats(t *testing.T) {
	// Arrange
	db := dbtest.New(t)
	project, _, _ := seedStats(t, db)
	repo := repository.NewStatsRepository(db)

	// Act
	stats, err := repo.ProjectStats(context.Background(), project.ID, time.Now())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalTasks)
	assert.Equal(t, int64(1), stats.CompletedTasks)
	assert.Equal(t, int64(1), stats.TodoTasks)
	assert.Equal(t, int64(1), stats.BlockedTasks)
	assert.Equal(t, int64(1), stats.OverdueTasks)
	assert.Equal(t, 40.0, stats.Progress)
}

func TestStatsRepository_MemberPerformance(t *testing.T) {
	// Arrange
	db := dbtest.New(t)
	_, busy, idle := seedStats(t, db)
	repo := repository.NewStatsRepository(db)

	// Act
	perf, err := repo.MemberPerformance(context.Background(), time.Now(), nil)

	// Assert
	require.NoError(t, err)
	require.Len(t, perf, 2)
	assert.Equal(t, busy.ID, perf[0].UserID)
	assert.Equal(t, int64(3), perf[0].TotalTasks)
	assert.Equal(t, int64(1), perf[0].CompletedTasks)
	assert.Equal(t, int64(1), perf[0].OverdueTasks)
	assert.Equal(t, 33.3, perf[0].CompletionRate)
	assert.Equal(t, 50.0, perf[0].AverageProgress)
	assert.Equal(t, idle.ID, perf[1].UserID)
	assert.Equal(t, int64(0), perf[1].TotalTasks)
	assert.Equal(t, 0.0, perf[1].CompletionRate)

	single, err := repo.MemberPerformance(context.Background(), time.Now(), &idle.ID)
	require.NoError(t, err)
	assert.Len(t, single, 1)
}

func TestStatsRepository_CompletedBetween(t *testing.T) {
	// Arrange
	db := dbtest.New(t)
	project, busy, _ := seedStats(t, db)
	repo := repository.NewStatsRepository(db)
	now := time.Now().UTC()

	// Act
	inWindow, err1 := repo.CompletedBetween(context.Background(), now.Add(-time.Hour), now.Add(time.Hour), &project.ID)
	before, err2 := repo.CompletedBetween(context.Background(), now.Add(-48*time.Hour), now.Add(-24*time.Hour), nil)
	workload, err3 := repo.UserWorkload(context.Background(), busy.ID, now)

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.NoError(t, err3)
	assert.Equal(t, int64(1), inWindow)
	assert.Equal(t, int64(0), before)
	assert.Equal(t, int64(3), workload.TotalTasks)
	assert.Equal(t, int64(1), workload.Completed)
	assert.Equal(t, int64(1), workload.Overdue)
}

type auditRecorderStub struct {
	actions []string
}

func (s *auditRecorderStub) RecordAuditFailure(action string) {
	s.actions = append(s.actions, action)
}

func TestActivityRepository_RecordFailureIsCounted(t *testing.T) {
	// Arrange
	db := dbtest.New(t)
	recorder := &auditRecorderStub{}
	repo := repository.NewActivityRepository(db, zap.NewNop(), recorder)
	user := newUser(t, db, "logger", model.RoleMember)
	ghost := uuid.New()

	// Act
	ok := repo.Record(context.Background(), &model.ActivityLog{UserID: &user.ID, Action: model.ActionLogin, EntityType: model.EntityUser})
	failed := repo.Record(context.Background(), &model.ActivityLog{UserID: &ghost, Action: model.ActionLogout})

	// Assert
	assert.True(t, ok)
	assert.False(t, failed)
	assert.Equal(t, []string{model.ActionLogout}, recorder.actions)

	recent, err := repo.Recent(context.Background(), repository.ActivityFilter{UserID: &user.ID})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "logger", recent[0].Username)
}
