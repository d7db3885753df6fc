package analytics

import "time"

type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// VelocityWeeks is the number of trailing weeks averaged into the team velocity
const VelocityWeeks = 4

// Window is a half-open time range [Start, End)
type Window struct {
	Start time.Time
	End   time.Time
}

// VelocityWindows returns the trailing weekly windows anchored on today, most recent first.
// The first window ends at the start of tomorrow so completions from today are counted.
func VelocityWindows(today time.Time) []Window {
	y, m, d := today.UTC().Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	windows := make([]Window, VelocityWeeks)
	for i := range windows {
		windows[i] = Window{
			Start: end.AddDate(0, 0, -7*(i+1)),
			End:   end.AddDate(0, 0, -7*i),
		}
	}
	return windows
}

type WeekCount struct {
	WeekStart time.Time `json:"week_start"`
	WeekEnd   time.Time `json:"week_end"`
	Completed int64     `json:"completed"`
}

type VelocityReport struct {
	Weeks           []WeekCount `json:"weekly_data"`
	AverageVelocity float64     `json:"average_velocity"`
	Trend           Trend       `json:"trend"`
}

// Velocity averages the weekly counts (most recent first) and classifies the trend
func Velocity(weeks []WeekCount) VelocityReport {
	var total int64
	for _, w := range weeks {
		total += w.Completed
	}
	report := VelocityReport{
		Weeks:           weeks,
		AverageVelocity: Round(float64(total)/VelocityWeeks, 1),
		Trend:           TrendStable,
	}
	if len(weeks) >= 2 {
		report.Trend = ClassifyTrend(weeks[0].Completed, weeks[1].Completed)
	}
	return report
}

// ClassifyTrend compares the most recent week with the previous one without dividing,
// so a previous count of zero with any recent completion reads as up.
func ClassifyTrend(recent, previous int64) Trend {
	r, p := float64(recent), float64(previous)
	switch {
	case r > p*1.2:
		return TrendUp
	case r < p*0.8:
		return TrendDown
	default:
		return TrendStable
	}
}
