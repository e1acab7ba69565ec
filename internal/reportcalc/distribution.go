package reportcalc

import "timereport/internal/model"

// DistributionByDescription returns the ten descriptions with the most hours.
// Descriptions beyond the tenth are left out of this view only.
func DistributionByDescription(entries []model.TimeEntry) []DistributionItem {
	total := TotalSeconds(entries)
	buckets := tally(entries, descriptionOf)
	if len(buckets) > topDescriptions {
		buckets = buckets[:topDescriptions]
	}

	out := make([]DistributionItem, 0, len(buckets))
	for i, b := range buckets {
		out = append(out, DistributionItem{
			Description: b.key,
			Hours:       round(hours(b.seconds), 1),
			Percentage:  percent(b.seconds, total),
			Color:       palette[i%len(palette)],
		})
	}
	return out
}

// DistributionByResponsible returns hours per responsible person, all people
// included.
func DistributionByResponsible(entries []model.TimeEntry) []MemberHours {
	total := TotalSeconds(entries)
	buckets := tally(entries, responsibleOf)

	out := make([]MemberHours, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, MemberHours{
			Name:       b.key,
			Hours:      round(hours(b.seconds), 1),
			Percentage: percent(b.seconds, total),
		})
	}
	return out
}
