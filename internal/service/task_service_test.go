package service_test

import (
	"context"
	"testing"

	"pmdashboard/internal/model"
	"pmdashboard/internal/repository"
	"pmdashboard/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupProject(t *testing.T, f *fixture) *model.Project {
	t.Helper()
	ctx := context.Background()
	project, err := f.projects.Create(ctx, f.pm, service.NewProject{Name: "Portail client"})
	require.NoError(t, err)
	require.NoError(t, f.projects.AddMember(ctx, f.pm, project.ID, f.member.UserID, ""))
	return project
}

func TestTaskService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	project := setupProject(t, f)

	foreign, err := f.projects.Create(ctx, f.pm, service.NewProject{Name: "Autre projet"})
	require.NoError(t, err)
	foreignMilestone, err := f.milestones.Create(ctx, f.pm, foreign.ID, service.NewMilestone{Name: "M1"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		in    service.NewTask
		field string
	}{
		{"короткий заголовок", service.NewTask{Title: "ab"}, "title"},
		{"неизвестный приоритет", service.NewTask{Title: "Valid", Priority: "URGENT"}, "priority"},
		{"неизвестный статус", service.NewTask{Title: "Valid", Status: "DONE"}, "status"},
		{"прогресс вне диапазона", service.NewTask{Title: "Valid", Progress: 120}, "progress"},
		{"веха чужого проекта", service.NewTask{Title: "Valid", MilestoneID: &foreignMilestone.ID}, "milestone_id"},
		{"100% без COMPLETED", service.NewTask{Title: "Valid", Status: model.TaskReview, Progress: 100}, "progress"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tasks.Create(ctx, f.pm, project.ID, tt.in)
			var verr *service.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	_, err = f.tasks.Create(ctx, f.member, project.ID, service.NewTask{Title: "Not allowed"})
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.tasks.Create(ctx, f.pm, uuid.New(), service.NewTask{Title: "Nowhere"})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestTaskService_AssigneeReportsProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	project := setupProject(t, f)

	task, err := f.tasks.Create(ctx, f.pm, project.ID, service.NewTask{Title: "Page d'accueil", AssignedTo: &f.member.UserID})
	require.NoError(t, err)
	assert.Equal(t, model.TaskTodo, task.Status)
	assert.Equal(t, model.PriorityMedium, task.Priority)

	// исполнитель может менять только статус, прогресс и фактические часы
	_, err = f.tasks.Update(ctx, f.member, task.ID, model.TaskUpdate{Title: ptr("Renamed")})
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.tasks.UpdateProgress(ctx, f.other, task.ID, 50, "")
	assert.ErrorIs(t, err, service.ErrForbidden)

	got, err := f.tasks.UpdateProgress(ctx, f.member, task.ID, 60, "  halfway there ")
	require.NoError(t, err)
	assert.Equal(t, model.TaskInProgress, got.Status)
	assert.Equal(t, 60, got.Progress)

	comments, err := f.tasks.Comments(ctx, f.member, task.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "halfway there", comments[0].Comment)

	got, err = f.tasks.Update(ctx, f.member, task.ID, model.TaskUpdate{Progress: ptr(100), ActualHours: ptr(6.5)})
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.Equal(t, 1, f.recorder.completed)

	// повторное завершение не считается
	_, err = f.tasks.UpdateProgress(ctx, f.member, task.ID, 100, "")
	require.NoError(t, err)
	assert.Equal(t, 1, f.recorder.completed)

	_, err = f.tasks.UpdateProgress(ctx, f.member, task.ID, 101, "")
	var verr *service.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestTaskService_InconsistentStatusIsValidationError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	project := setupProject(t, f)

	task, err := f.tasks.Create(ctx, f.pm, project.ID, service.NewTask{Title: "Finished", Status: model.TaskCompleted})
	require.NoError(t, err)
	assert.Equal(t, 100, task.Progress)

	_, err = f.tasks.Update(ctx, f.pm, task.ID, model.TaskUpdate{Status: ptr(model.TaskReview), Progress: ptr(100)})
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "progress", verr.Field)

	reopened, err := f.tasks.Update(ctx, f.pm, task.ID, model.TaskUpdate{Status: ptr(model.TaskReview), Progress: ptr(90)})
	require.NoError(t, err)
	assert.Equal(t, model.TaskReview, reopened.Status)
	assert.Equal(t, 90, reopened.Progress)
	assert.Nil(t, reopened.CompletedAt)
}

func TestTaskService_StatusOnlyReopensCompletedTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	project := setupProject(t, f)

	task, err := f.tasks.Create(ctx, f.pm, project.ID, service.NewTask{Title: "Livrée trop tôt", Status: model.TaskCompleted})
	require.NoError(t, err)

	blocked, err := f.tasks.Update(ctx, f.pm, task.ID, model.TaskUpdate{Status: ptr(model.TaskBlocked)})
	require.NoError(t, err)
	assert.Equal(t, model.TaskBlocked, blocked.Status)
	assert.Equal(t, 99, blocked.Progress)
	assert.Nil(t, blocked.CompletedAt)

	_, err = f.tasks.Update(ctx, f.pm, task.ID, model.TaskUpdate{Status: ptr(model.TaskCompleted)})
	require.NoError(t, err)
	todo, err := f.tasks.Update(ctx, f.pm, task.ID, model.TaskUpdate{Status: ptr(model.TaskTodo)})
	require.NoError(t, err)
	assert.Equal(t, model.TaskTodo, todo.Status)
	assert.Equal(t, 0, todo.Progress)
}

func TestTaskService_ListScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	project := setupProject(t, f)

	_, err := f.tasks.Create(ctx, f.pm, project.ID, service.NewTask{Title: "Mine", AssignedTo: &f.member.UserID})
	require.NoError(t, err)
	_, err = f.tasks.Create(ctx, f.pm, project.ID, service.NewTask{Title: "Unassigned"})
	require.NoError(t, err)

	own, err := f.tasks.List(ctx, f.member, repository.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "Mine", own[0].Title)

	team, err := f.tasks.List(ctx, f.member, repository.TaskFilter{ProjectID: &project.ID})
	require.NoError(t, err)
	assert.Len(t, team, 2)

	_, err = f.tasks.List(ctx, f.other, repository.TaskFilter{ProjectID: &project.ID})
	assert.ErrorIs(t, err, service.ErrForbidden)

	groups, err := f.tasks.GroupByStatus(ctx, f.pm, repository.TaskFilter{ProjectID: &project.ID})
	require.NoError(t, err)
	assert.Len(t, groups, len(model.TaskStatuses))
	assert.Len(t, groups[model.TaskTodo], 2)
}

func TestTaskService_AssignAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	project := setupProject(t, f)

	task, err := f.tasks.Create(ctx, f.pm, project.ID, service.NewTask{Title: "Handover"})
	require.NoError(t, err)

	_, err = f.tasks.Assign(ctx, f.member, task.ID, f.member.UserID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.tasks.Assign(ctx, f.pm, task.ID, uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)

	assigned, err := f.tasks.Assign(ctx, f.pm, task.ID, f.member.UserID)
	require.NoError(t, err)
	assert.Equal(t, &f.member.UserID, assigned.AssignedTo)
	assert.Equal(t, "jean.dupont", assigned.AssigneeName)

	unassigned, err := f.tasks.Unassign(ctx, f.pm, task.ID)
	require.NoError(t, err)
	assert.Nil(t, unassigned.AssignedTo)

	require.NoError(t, f.tasks.Delete(ctx, f.pm, task.ID))
	_, err = f.tasks.Get(ctx, f.pm, task.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestTaskService_OverdueAndSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	project := setupProject(t, f)

	for _, in := range []service.NewTask{
		{Title: "Late mine", Deadline: day(-1), AssignedTo: &f.member.UserID, Priority: model.PriorityCritical},
		{Title: "Late other", Deadline: day(-3), Progress: 40},
		{Title: "Late but done", Deadline: day(-3), Status: model.TaskCompleted},
		{Title: "Due later", Deadline: day(3), Priority: model.PriorityLow},
	} {
		_, err := f.tasks.Create(ctx, f.pm, project.ID, in)
		require.NoError(t, err)
	}

	all, err := f.tasks.Overdue(ctx, f.pm, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := f.tasks.Overdue(ctx, f.member, nil)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "Late mine", own[0].Title)

	summary, err := f.tasks.Summary(ctx, f.pm, &project.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), summary.Total)
	assert.Equal(t, int64(2), summary.Overdue)
	assert.Equal(t, int64(1), summary.ByStatus[model.TaskCompleted])
	assert.Equal(t, int64(1), summary.ByStatus[model.TaskInProgress])
	assert.Equal(t, int64(2), summary.ByStatus[model.TaskTodo])
	assert.Equal(t, int64(0), summary.ByStatus[model.TaskBlocked])
	assert.Equal(t, int64(1), summary.ByPriority[model.PriorityCritical])
	assert.Equal(t, 35.0, summary.AverageProgress)

	// флаг is_overdue считается от того же «сегодня», что и сводка
	listed, err := f.tasks.List(ctx, f.pm, repository.TaskFilter{ProjectID: &project.ID})
	require.NoError(t, err)
	flagged := int64(0)
	for _, task := range listed {
		if task.IsOverdue {
			flagged++
		}
	}
	assert.Equal(t, summary.Overdue, flagged)
}

func TestTaskService_Comments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	project := setupProject(t, f)

	task, err := f.tasks.Create(ctx, f.pm, project.ID, service.NewTask{Title: "Discuss"})
	require.NoError(t, err)

	_, err = f.tasks.AddComment(ctx, f.member, task.ID, "   ")
	var verr *service.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.tasks.AddComment(ctx, f.other, task.ID, "hello")
	assert.ErrorIs(t, err, service.ErrForbidden)

	comment, err := f.tasks.AddComment(ctx, f.member, task.ID, "Looks good")
	require.NoError(t, err)
	assert.Equal(t, f.member.UserID, comment.UserID)

	comments, err := f.tasks.Comments(ctx, f.pm, task.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "jean.dupont", comments[0].Username)
}
