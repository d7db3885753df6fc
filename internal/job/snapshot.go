// Package job runs the scheduled background work of the dashboard.
package job

import (
	"context"
	"fmt"
	"time"

	"pmdashboard/internal/metrics"
	"pmdashboard/internal/repository"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SnapshotSink receives the business gauges
type SnapshotSink interface {
	SetSnapshot(s metrics.Snapshot)
}

// Snapshot collects project, task and member counters and publishes them as gauges
type Snapshot struct {
	projects *repository.ProjectRepository
	tasks    *repository.TaskRepository
	users    *repository.UserRepository
	sink     SnapshotSink
	logger   *zap.Logger
	now      func() time.Time
	timeout  time.Duration
}

func NewSnapshot(projects *repository.ProjectRepository, tasks *repository.TaskRepository,
	users *repository.UserRepository, sink SnapshotSink, logger *zap.Logger) *Snapshot {
	return &Snapshot{
		projects: projects,
		tasks:    tasks,
		users:    users,
		sink:     sink,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		timeout:  30 * time.Second,
	}
}

// Collect reads the counters once
func (j *Snapshot) Collect(ctx context.Context) (metrics.Snapshot, error) {
	var snap metrics.Snapshot
	var err error

	if snap.ProjectsByStatus, err = j.projects.CountByStatus(ctx); err != nil {
		return snap, fmt.Errorf("failed to count projects: %w", err)
	}
	if snap.TasksByStatus, err = j.tasks.CountByStatus(ctx); err != nil {
		return snap, fmt.Errorf("failed to count tasks: %w", err)
	}
	if snap.OverdueTasks, err = j.tasks.CountOverdue(ctx, j.now()); err != nil {
		return snap, fmt.Errorf("failed to count overdue tasks: %w", err)
	}
	if snap.ActiveMembers, err = j.users.CountActiveMembers(ctx); err != nil {
		return snap, fmt.Errorf("failed to count active members: %w", err)
	}
	return snap, nil
}

// Run collects and publishes one snapshot. Errors are logged, the gauges keep their last values.
func (j *Snapshot) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	snap, err := j.Collect(ctx)
	if err != nil {
		j.logger.Error("Snapshot job failed", zap.Error(err))
		return
	}
	j.sink.SetSnapshot(snap)

	if snap.OverdueTasks > 0 {
		j.logger.Warn("Overdue tasks detected", zap.Int64("overdue_tasks", snap.OverdueTasks))
	} else {
		j.logger.Debug("Snapshot refreshed", zap.Int64("active_members", snap.ActiveMembers))
	}
}

// Schedule registers the job on a new cron scheduler. The caller starts and stops it.
func Schedule(spec string, job cron.Job) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddJob(spec, job); err != nil {
		return nil, fmt.Errorf("invalid snapshot schedule %q: %w", spec, err)
	}
	return c, nil
}
