package analytics

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type HealthStatus string

const (
	HealthGood    HealthStatus = "good"
	HealthWarning HealthStatus = "warning"
	HealthDanger  HealthStatus = "danger"
	HealthUnknown HealthStatus = "unknown"
)

const (
	maxOverduePenalty  = 30.0
	maxBlockedPenalty  = 20.0
	maxSchedulePenalty = 20.0
	progressBonus      = 10.0
	bonusThreshold     = 50.0
	scheduleTolerance  = 10.0
	goodThreshold      = 70
	warningThreshold   = 40
)

type HealthInput struct {
	TotalTasks   int64
	OverdueTasks int64
	BlockedTasks int64
	// Progress is the average task progress of the project
	Progress  float64
	StartDate *time.Time
	EndDate   *time.Time
	Today     time.Time
}

// HealthReport carries a nil Score when the status is unknown
type HealthReport struct {
	Score            *int         `json:"score"`
	Status           HealthStatus `json:"status"`
	Color            string       `json:"color"`
	Message          string       `json:"message"`
	Issues           []string     `json:"issues"`
	ExpectedProgress *float64     `json:"expected_progress,omitempty"`
}

// Health computes the penalty-based project health score.
// A project without tasks is reported as unknown, never as a numeric band.
func Health(in HealthInput) HealthReport {
	if in.TotalTasks <= 0 {
		return HealthReport{Status: HealthUnknown, Color: "#a0aec0", Message: "no tasks", Issues: []string{}}
	}

	score := 100.0
	issues := []string{}
	total := float64(in.TotalTasks)

	if in.OverdueTasks > 0 {
		ratio := float64(in.OverdueTasks) / total
		score -= math.Min(ratio*100, maxOverduePenalty)
		issues = append(issues, fmt.Sprintf("%d overdue task(s)", in.OverdueTasks))
	}

	if in.BlockedTasks > 0 {
		ratio := float64(in.BlockedTasks) / total
		score -= math.Min(ratio*100, maxBlockedPenalty)
		issues = append(issues, fmt.Sprintf("%d blocked task(s)", in.BlockedTasks))
	}

	if in.Progress >= bonusThreshold {
		score = math.Min(score+progressBonus, 100)
	}

	var expectedOut *float64
	if in.StartDate != nil && in.EndDate != nil {
		expected := ExpectedProgress(*in.StartDate, *in.EndDate, in.Today)
		expectedOut = &expected
		if expected > in.Progress+scheduleTolerance {
			gap := expected - in.Progress
			score -= math.Min(gap/2, maxSchedulePenalty)
			issues = append(issues, fmt.Sprintf("about %d%% behind schedule", int(gap)))
		}
	}

	final := int(math.Max(0, math.Round(score)))
	status, color := band(final)
	message := "project on track"
	if len(issues) > 0 {
		message = strings.Join(issues, ", ")
	}
	return HealthReport{
		Score:            &final,
		Status:           status,
		Color:            color,
		Message:          message,
		Issues:           issues,
		ExpectedProgress: expectedOut,
	}
}

func band(score int) (HealthStatus, string) {
	switch {
	case score >= goodThreshold:
		return HealthGood, "#48bb78"
	case score >= warningThreshold:
		return HealthWarning, "#ed8936"
	default:
		return HealthDanger, "#f56565"
	}
}

// ExpectedProgress linearly interpolates the share of elapsed days between start and end,
// clamped to [0,100]. A non-positive duration yields 100.
func ExpectedProgress(start, end, today time.Time) float64 {
	totalDays := daysBetween(start, end)
	if totalDays <= 0 {
		return 100
	}
	elapsed := daysBetween(start, today)
	expected := float64(elapsed) / float64(totalDays) * 100
	return math.Min(100, math.Max(0, expected))
}

// daysBetween counts whole calendar days from a to b (negative when b is before a)
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
