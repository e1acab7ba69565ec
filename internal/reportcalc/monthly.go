package reportcalc

import (
	"time"

	"timereport/internal/model"
)

const monthLayout = "Jan 2006"

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthlyConsumption buckets entries by calendar month of their start, from
// the earliest to the latest month. Months without entries appear with zero
// hours.
func MonthlyConsumption(entries []model.TimeEntry) []MonthBucket {
	if len(entries) == 0 {
		return []MonthBucket{}
	}

	first, last := monthStart(entries[0].Start), monthStart(entries[0].Start)
	perMonth := make(map[time.Time]int64)
	for _, e := range entries {
		m := monthStart(e.Start)
		perMonth[m] += e.Seconds()
		if m.Before(first) {
			first = m
		}
		if m.After(last) {
			last = m
		}
	}

	var (
		out        []MonthBucket
		cumulative int64
	)
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		cumulative += perMonth[m]
		out = append(out, MonthBucket{
			Month:      m.Format(monthLayout),
			Start:      m,
			Hours:      round(hours(perMonth[m]), 1),
			Cumulative: round(hours(cumulative), 1),
		})
	}
	return out
}
