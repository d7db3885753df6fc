package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"pmdashboard/internal/model"
)

var (
	taskHeader        = []string{"ID", "Title", "Description", "Status", "Priority", "Progress%", "AssignedTo", "Deadline", "CreatedAt"}
	projectHeader     = []string{"ID", "Name", "Description", "Status", "StartDate", "EndDate", "Progress%", "TaskCount", "MemberCount"}
	performanceHeader = []string{"ID", "Name", "TotalTasks", "Completed", "InProgress", "Overdue", "CompletionRate%", "AvgProgress%"}
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func WriteTasksCSV(w io.Writer, tasks []model.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(taskHeader); err != nil {
		return err
	}
	for _, t := range tasks {
		err := cw.Write([]string{
			t.ID.String(),
			t.Title,
			t.Description,
			string(t.Status),
			string(t.Priority),
			strconv.Itoa(t.Progress),
			t.AssigneeName,
			model.FormatDate(t.Deadline),
			t.CreatedAt.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteProjectsCSV(w io.Writer, projects []model.Project) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(projectHeader); err != nil {
		return err
	}
	for _, p := range projects {
		err := cw.Write([]string{
			p.ID.String(),
			p.Name,
			p.Description,
			string(p.Status),
			model.FormatDate(p.StartDate),
			model.FormatDate(p.EndDate),
			formatFloat(p.Progress),
			formatInt(p.TaskCount),
			formatInt(p.MemberCount),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteTeamPerformanceCSV(w io.Writer, members []model.MemberPerformance) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(performanceHeader); err != nil {
		return err
	}
	for _, m := range members {
		err := cw.Write([]string{
			m.UserID.String(),
			m.DisplayName(),
			formatInt(m.TotalTasks),
			formatInt(m.CompletedTasks),
			formatInt(m.InProgressTasks),
			formatInt(m.OverdueTasks),
			formatFloat(m.CompletionRate),
			formatFloat(m.AverageProgress),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
