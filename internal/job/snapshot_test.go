package job

import (
	"context"
	"testing"
	"time"

	"pmdashboard/internal/database/dbtest"
	"pmdashboard/internal/metrics"
	"pmdashboard/internal/model"
	"pmdashboard/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	member := &model.User{Username: "jean.dupont", Email: "jean@test.com", HashedPassword: "x", Role: model.RoleMember, IsActive: true}
	inactive := &model.User{Username: "ancien", Email: "ancien@test.com", HashedPassword: "x", Role: model.RoleMember}
	require.NoError(t, db.Create(member).Error)
	require.NoError(t, db.Create(inactive).Error)
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)

	project := &model.Project{Name: "Refonte", Status: model.ProjectInProgress}
	require.NoError(t, db.Create(project).Error)
	require.NoError(t, db.Create(&model.Project{Name: "Archive", Status: model.ProjectCompleted}).Error)

	late := model.NewDate(fixedNow.AddDate(0, 0, -3))
	require.NoError(t, db.Create(&model.Task{ProjectID: project.ID, Title: "En retard", Priority: model.PriorityHigh, Status: model.TaskInProgress, Progress: 30, Deadline: late}).Error)
	require.NoError(t, db.Create(&model.Task{ProjectID: project.ID, Title: "Fini", Priority: model.PriorityLow, Status: model.TaskCompleted, Progress: 100, Deadline: late}).Error)
	require.NoError(t, db.Create(&model.Task{ProjectID: project.ID, Title: "A faire", Priority: model.PriorityLow, Status: model.TaskTodo}).Error)
}

func newJob(t *testing.T, sink SnapshotSink, logger *zap.Logger) *Snapshot {
	db := dbtest.New(t)
	seed(t, db)
	j := NewSnapshot(repository.NewProjectRepository(db), repository.NewTaskRepository(db),
		repository.NewUserRepository(db), sink, logger)
	j.now = func() time.Time { return fixedNow }
	return j
}

func TestSnapshotCollect(t *testing.T) {
	j := newJob(t, nil, zap.NewNop())

	snap, err := j.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), snap.ProjectsByStatus[string(model.ProjectInProgress)])
	assert.Equal(t, int64(1), snap.ProjectsByStatus[string(model.ProjectCompleted)])
	assert.Equal(t, int64(1), snap.TasksByStatus[string(model.TaskInProgress)])
	assert.Equal(t, int64(1), snap.TasksByStatus[string(model.TaskTodo)])
	// Завершенная задача с прошедшим сроком не считается просроченной
	assert.Equal(t, int64(1), snap.OverdueTasks)
	assert.Equal(t, int64(1), snap.ActiveMembers)
}

func TestSnapshotRun_PublishesGauges(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry(), zap.NewNop())
	core, logs := observer.New(zap.InfoLevel)
	j := newJob(t, m, zap.New(core))

	j.Run()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OverdueTasks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveMembers))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProjectsByStatus.WithLabelValues(string(model.ProjectCompleted))))
	assert.Equal(t, 1, logs.FilterMessage("Overdue tasks detected").Len())
}

func TestSchedule(t *testing.T) {
	j := newJob(t, metrics.NewWithRegistry(prometheus.NewRegistry(), zap.NewNop()), zap.NewNop())

	c, err := Schedule("@every 5m", j)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	_, err = Schedule("not a schedule", j)
	assert.Error(t, err)
}
