package reportcalc

import (
	"regexp"
	"sort"
	"strings"

	"timereport/internal/model"
)

var (
	whitespace  = regexp.MustCompile(`\s+`)
	punctuation = regexp.MustCompile(`[^\w\s]`)
)

// NormalizeDescription builds the grouping key for a description: lowercased,
// trimmed, whitespace collapsed and punctuation removed.
func NormalizeDescription(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = whitespace.ReplaceAllString(s, " ")
	return punctuation.ReplaceAllString(s, "")
}

type group struct {
	label   string
	entries []model.TimeEntry
	seconds int64
}

// GroupByDescription groups entries whose descriptions normalize to the same
// key. Every entry lands in exactly one group.
func GroupByDescription(entries []model.TimeEntry) []EntryGroup {
	total := TotalSeconds(entries)

	index := make(map[string]int)
	var groups []*group
	for _, e := range entries {
		desc := descriptionOf(e)
		key := NormalizeDescription(desc)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, &group{label: desc})
		}
		g := groups[i]
		if len(desc) > len(g.label) {
			g.label = desc
		}
		g.entries = append(g.entries, e)
		g.seconds += e.Seconds()
	}

	sort.SliceStable(groups, func(i, j int) bool { return groups[i].seconds > groups[j].seconds })

	out := make([]EntryGroup, 0, len(groups))
	for _, g := range groups {
		members := sortedByStart(g.entries)

		people := tally(members, responsibleOf)
		responsible := make([]ResponsibleHours, 0, len(people))
		for _, p := range people {
			responsible = append(responsible, ResponsibleHours{Name: p.key, Hours: round(hours(p.seconds), 2)})
		}

		out = append(out, EntryGroup{
			Description:       g.label,
			Entries:           members,
			TotalHours:        round(hours(g.seconds), 2),
			TotalEntries:      len(members),
			PercentageOfTotal: percent(g.seconds, total),
			Responsible:       responsible,
		})
	}
	return out
}

// sortedByStart returns a copy of entries ordered by start, most recent first.
func sortedByStart(entries []model.TimeEntry) []model.TimeEntry {
	out := make([]model.TimeEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.After(out[j].Start) })
	return out
}

// SortByStart orders entries in place, most recent first.
func SortByStart(entries []model.TimeEntry) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Start.After(entries[j].Start) })
}

// LatestEntries returns the n most recent entries. n <= 0 means DefaultLatest.
func LatestEntries(entries []model.TimeEntry, n int) []model.TimeEntry {
	if n <= 0 {
		n = DefaultLatest
	}
	out := sortedByStart(entries)
	if len(out) > n {
		out = out[:n]
	}
	return out
}
