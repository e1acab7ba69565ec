// Package reportcalc turns a merged list of time entries into the derived
// tables of a report: hours summary, distributions, monthly consumption,
// fuzzy groups, latest entries and consumption projections.
//
// Every function is pure and total: an empty input yields zero values or
// empty slices, never an error.
package reportcalc

import (
	"time"

	"timereport/internal/model"
)

const (
	// NoDescription labels entries with an empty description.
	NoDescription = "No description"
	// Unassigned labels entries without a responsible person.
	Unassigned = "Unassigned"

	// DefaultLatest is the number of entries returned by LatestEntries when
	// no positive limit is given.
	DefaultLatest = 10

	topDescriptions = 10
)

// palette is assigned to description slots in order.
var palette = []string{
	"#10B981", "#3B82F6", "#8B5CF6", "#F59E0B", "#EF4444",
	"#06B6D4", "#EC4899", "#84CC16", "#6366F1", "#F97316",
}

// HoursSummary compares consumed hours against a contracted budget.
type HoursSummary struct {
	Contracted         float64    `json:"contracted"`
	Consumed           float64    `json:"consumed"`
	ConsumedPercentage float64    `json:"consumed_percentage"`
	Available          float64    `json:"available"`
	StartDate          *time.Time `json:"start_date,omitempty"`
}

// DistributionItem is one slice of the description distribution.
type DistributionItem struct {
	Description string  `json:"description"`
	Hours       float64 `json:"hours"`
	Percentage  float64 `json:"percentage"`
	Color       string  `json:"color"`
}

// MemberHours is one row of the responsible-person distribution.
type MemberHours struct {
	Name       string  `json:"name"`
	Hours      float64 `json:"hours"`
	Percentage float64 `json:"percentage"`
}

// MonthBucket is one calendar month bucket (UTC).
type MonthBucket struct {
	Month      string    `json:"month"` // e.g. "Jan 2024"
	Start      time.Time `json:"start"`
	Hours      float64   `json:"hours"`
	Cumulative float64   `json:"cumulative"`
}

// ResponsibleHours is the per-person breakdown inside an EntryGroup.
type ResponsibleHours struct {
	Name  string  `json:"name"`
	Hours float64 `json:"hours"`
}

// EntryGroup collects entries whose descriptions normalize to the same key.
type EntryGroup struct {
	Description       string             `json:"description"`
	Entries           []model.TimeEntry  `json:"entries"`
	TotalHours        float64            `json:"total_hours"`
	TotalEntries      int                `json:"total_entries"`
	PercentageOfTotal float64            `json:"percentage_of_total"`
	Responsible       []ResponsibleHours `json:"responsible"`
}

// Trend is the coarse direction of recent consumption.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// PeakMonth is the monthly bucket with the most hours.
type PeakMonth struct {
	Month string  `json:"month"`
	Hours float64 `json:"hours"`
}

// Projections estimate how fast the budget is consumed.
type Projections struct {
	ConsumptionRatePerWeek float64 `json:"consumption_rate_per_week"`
	// WeeksUntilExhaustion is nil when there is no budget or no recent
	// consumption. Callers must render it as "not applicable".
	WeeksUntilExhaustion *float64   `json:"weeks_until_exhaustion,omitempty"`
	MonthlyAverage       float64    `json:"monthly_average"`
	PeakMonth            *PeakMonth `json:"peak_month,omitempty"`
	Trend                Trend      `json:"trend"`
}
