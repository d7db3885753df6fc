package analytics

import (
	"math"

	"github.com/google/uuid"
)

// balanceTolerance is the allowed deviation from the mean, as a share of the mean
const balanceTolerance = 0.5

type MemberLoad struct {
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	Tasks    int64     `json:"tasks"`
	Active   int64     `json:"active_tasks"`
	Overdue  int64     `json:"overdue_tasks"`
	Progress float64   `json:"average_progress"`
}

type WorkloadReport struct {
	Members      []MemberLoad `json:"members"`
	Average      float64      `json:"average_tasks"`
	MaxDeviation float64      `json:"max_deviation"`
	Balanced     bool         `json:"balanced"`
}

// Workload reports whether task counts stay within 50% of the mean.
// No members or a zero mean is balanced.
func Workload(members []MemberLoad) WorkloadReport {
	report := WorkloadReport{Members: members, Balanced: true}
	if len(members) == 0 {
		return report
	}

	var total int64
	for _, m := range members {
		total += m.Tasks
	}
	mean := float64(total) / float64(len(members))
	report.Average = Round(mean, 2)
	if mean == 0 {
		return report
	}

	var maxDev float64
	for _, m := range members {
		maxDev = math.Max(maxDev, math.Abs(float64(m.Tasks)-mean))
	}
	report.MaxDeviation = Round(maxDev, 2)
	report.Balanced = maxDev <= balanceTolerance*mean
	return report
}
