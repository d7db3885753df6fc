// Package analytics holds the derived-metric formulas. Every function is pure:
// callers read the repository and pass plain numbers and dates in.
package analytics

import "math"

// Round rounds half away from zero to the given number of decimals
func Round(x float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(x*pow) / pow
}

// ProjectProgress blends the binary completion rate with the average task progress:
// round((completed/total*100 + avg)/2, 1), and 0 for a project without tasks.
func ProjectProgress(total, completed int64, avgProgress float64) float64 {
	if total <= 0 {
		return 0
	}
	completedRatio := float64(completed) / float64(total) * 100
	return Round((completedRatio+avgProgress)/2, 1)
}

// MilestoneProgress is the rounded average progress of the milestone's tasks.
// avg is nil when the milestone has no tasks.
func MilestoneProgress(avg *float64) float64 {
	if avg == nil {
		return 0
	}
	return Round(*avg, 1)
}

// CompletionRate returns completed/total*100 rounded to one decimal, 0 when total is 0
func CompletionRate(completed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return Round(float64(completed)/float64(total)*100, 1)
}

// Mean returns the arithmetic mean of values, 0 for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
