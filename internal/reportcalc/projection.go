package reportcalc

import (
	"math"
	"time"

	"timereport/internal/model"
)

const (
	day            = 24 * time.Hour
	rateWindow     = 28 * day
	trendWindow    = 14 * day
	trendThreshold = 0.5 // hours
	daysPerMonth   = 30
)

// Project estimates consumption rate, budget exhaustion, monthly average,
// peak month and trend. All trailing windows end at now.
func Project(entries []model.TimeEntry, summary *HoursSummary, now time.Time) Projections {
	recent := secondsBetween(entries, now.Add(-rateWindow), now)
	rate := hours(recent) / 4

	p := Projections{
		ConsumptionRatePerWeek: round(rate, 1),
		MonthlyAverage:         monthlyAverage(entries),
		Trend:                  trend(entries, now),
	}

	if summary != nil && rate > 0 {
		weeks := round(summary.Available/rate, 1)
		p.WeeksUntilExhaustion = &weeks
	}

	for _, m := range MonthlyConsumption(entries) {
		if p.PeakMonth == nil || m.Hours > p.PeakMonth.Hours {
			p.PeakMonth = &PeakMonth{Month: m.Month, Hours: m.Hours}
		}
	}
	return p
}

// secondsBetween sums entries whose start lies in [from, to].
func secondsBetween(entries []model.TimeEntry, from, to time.Time) int64 {
	var total int64
	for _, e := range entries {
		if !e.Start.Before(from) && !e.Start.After(to) {
			total += e.Seconds()
		}
	}
	return total
}

func monthlyAverage(entries []model.TimeEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	first, last := entries[0].Start, entries[0].Start
	for _, e := range entries[1:] {
		if e.Start.Before(first) {
			first = e.Start
		}
		if e.Start.After(last) {
			last = e.Start
		}
	}

	total := hours(TotalSeconds(entries))
	span := last.Sub(first)
	if span < day {
		return round(total, 1)
	}
	months := span.Hours() / 24 / daysPerMonth
	return round(total/months, 1)
}

func trend(entries []model.TimeEntry, now time.Time) Trend {
	lastTwo := hours(secondsBetween(entries, now.Add(-trendWindow), now))
	// The previous window stops just before the recent one starts.
	previousTwo := hours(secondsBetween(entries, now.Add(-2*trendWindow), now.Add(-trendWindow).Add(-time.Nanosecond)))

	diff := lastTwo - previousTwo
	switch {
	case math.Abs(diff) <= trendThreshold:
		return TrendStable
	case diff > 0:
		return TrendIncreasing
	default:
		return TrendDecreasing
	}
}
