package reportcalc

import (
	"math"
	"time"

	"timereport/internal/model"
)

// Summarize compares consumed hours against the contracted budget. It returns
// nil when no positive budget is configured.
func Summarize(entries []model.TimeEntry, contracted *float64, startDate *time.Time) *HoursSummary {
	if contracted == nil || *contracted <= 0 {
		return nil
	}
	budget := *contracted
	consumed := hours(TotalSeconds(entries))

	return &HoursSummary{
		Contracted:         budget,
		Consumed:           round(consumed, 2),
		ConsumedPercentage: round(consumed/budget*100, 1),
		Available:          round(math.Max(0, budget-consumed), 2),
		StartDate:          startDate,
	}
}
