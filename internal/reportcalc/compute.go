package reportcalc

import (
	"time"

	"timereport/internal/model"
)

// Budget is the contract a report is measured against. Both fields are
// optional.
type Budget struct {
	ContractedHours *float64
	ContractStart   *time.Time
}

// Result bundles every derived table of a report.
type Result struct {
	TotalDuration             int64              `json:"total_duration"`
	TotalEntries              int                `json:"total_entries"`
	HoursSummary              *HoursSummary      `json:"hours_summary,omitempty"`
	Projections               Projections        `json:"projections"`
	DistributionByDescription []DistributionItem `json:"distribution_by_description"`
	DistributionByTeamMember  []MemberHours      `json:"distribution_by_team_member"`
	MonthlyConsumption        []MonthBucket      `json:"monthly_consumption"`
	GroupedEntries            []EntryGroup       `json:"grouped_entries"`
	LatestEntries             []model.TimeEntry  `json:"latest_entries"`
}

// Compute runs the aggregation engine and the projection estimator over
// entries. now only affects the projections.
func Compute(entries []model.TimeEntry, budget Budget, now time.Time) Result {
	summary := Summarize(entries, budget.ContractedHours, budget.ContractStart)
	return Result{
		TotalDuration:             TotalSeconds(entries),
		TotalEntries:              len(entries),
		HoursSummary:              summary,
		Projections:               Project(entries, summary, now),
		DistributionByDescription: DistributionByDescription(entries),
		DistributionByTeamMember:  DistributionByResponsible(entries),
		MonthlyConsumption:        MonthlyConsumption(entries),
		GroupedEntries:            GroupByDescription(entries),
		LatestEntries:             LatestEntries(entries, DefaultLatest),
	}
}
