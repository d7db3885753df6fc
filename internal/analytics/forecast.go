package analytics

import (
	"fmt"
	"math"
	"time"
)

type ForecastInput struct {
	TotalTasks     int64
	CompletedTasks int64
	// WeeklyVelocity is the team's average completions per week
	WeeklyVelocity float64
	EndDate        *time.Time
	Today          time.Time
}

type ForecastReport struct {
	RemainingTasks      int64      `json:"remaining_tasks"`
	WeeklyVelocity      float64    `json:"weekly_velocity"`
	EstimatedCompletion *time.Time `json:"estimated_completion"`
	OnTrack             *bool      `json:"on_track"`
	DaysDifference      *int       `json:"days_difference"`
	Message             string     `json:"message"`
}

// Forecast projects the completion date from the remaining work and the weekly velocity.
// A zero velocity produces no estimate instead of dividing by zero.
func Forecast(in ForecastInput) ForecastReport {
	if in.TotalTasks <= 0 {
		return ForecastReport{Message: "insufficient data"}
	}

	remaining := in.TotalTasks - in.CompletedTasks
	if remaining < 0 {
		remaining = 0
	}
	report := ForecastReport{
		RemainingTasks: remaining,
		WeeklyVelocity: in.WeeklyVelocity,
	}

	today := dateOnly(in.Today)
	if in.WeeklyVelocity > 0 {
		weeks := float64(remaining) / in.WeeklyVelocity
		est := today.AddDate(0, 0, int(math.Floor(weeks*7)))
		report.EstimatedCompletion = &est
	}

	if in.EndDate == nil {
		if report.EstimatedCompletion == nil {
			report.Message = "no forecast possible"
		} else {
			report.Message = fmt.Sprintf("estimated completion %s", report.EstimatedCompletion.Format("2006-01-02"))
		}
		return report
	}

	end := dateOnly(*in.EndDate)
	onTrack := false
	if report.EstimatedCompletion != nil {
		onTrack = !report.EstimatedCompletion.After(end)
		diff := daysBetween(*report.EstimatedCompletion, end)
		report.DaysDifference = &diff
	}
	report.OnTrack = &onTrack

	switch {
	case report.DaysDifference == nil:
		report.Message = "risk of delay: no recent velocity"
	case *report.DaysDifference > 0:
		report.Message = fmt.Sprintf("ahead of schedule by %d day(s)", *report.DaysDifference)
	case *report.DaysDifference == 0:
		report.Message = "on schedule"
	default:
		report.Message = fmt.Sprintf("late by %d day(s)", -*report.DaysDifference)
	}
	return report
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
