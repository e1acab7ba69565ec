package reportcalc

import (
	"math"
	"sort"

	"timereport/internal/model"
)

const secondsPerHour = 3600

// TotalSeconds sums the effective duration of all entries.
func TotalSeconds(entries []model.TimeEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Seconds()
	}
	return total
}

func hours(seconds int64) float64 {
	return float64(seconds) / secondsPerHour
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// percent returns part/total*100 rounded to one decimal, 0 for an empty total.
func percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return round(float64(part)/float64(total)*100, 1)
}

type bucket struct {
	key     string
	seconds int64
}

// tally sums seconds per key and sorts the buckets by seconds descending.
// Buckets with equal totals keep the order in which their key first appeared.
func tally(entries []model.TimeEntry, key func(model.TimeEntry) string) []bucket {
	index := make(map[string]int)
	var out []bucket
	for _, e := range entries {
		k := key(e)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, bucket{key: k})
		}
		out[i].seconds += e.Seconds()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].seconds > out[j].seconds })
	return out
}

func descriptionOf(e model.TimeEntry) string {
	if e.Description == "" {
		return NoDescription
	}
	return e.Description
}

func responsibleOf(e model.TimeEntry) string {
	if e.Responsible == "" {
		return Unassigned
	}
	return e.Responsible
}
