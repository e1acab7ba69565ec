package model

import "time"

// TimeEntry is a single span of tracked time as produced by a source adapter
// (live Toggl account or a historical archive). Entries are never mutated
// after they leave the adapter.
type TimeEntry struct {
	ID          int64      `json:"id"`
	Description string     `json:"description"`
	Start       time.Time  `json:"start"`
	Stop        *time.Time `json:"stop,omitempty"`
	// Duration is authoritative and in seconds. Toggl reports running entries
	// with a negative value.
	Duration int64    `json:"duration"`
	Billable bool     `json:"billable"`
	Tags     []string `json:"tags,omitempty"`

	WorkspaceID *int64 `json:"workspace_id,omitempty"`
	ProjectID   *int64 `json:"project_id,omitempty"`
	ClientID    *int64 `json:"client_id,omitempty"`
	Project     string `json:"project,omitempty"`
	Client      string `json:"client,omitempty"`

	AccountID   string `json:"account_id,omitempty"`
	AccountName string `json:"account_name,omitempty"`
	Responsible string `json:"responsible,omitempty"`
}

// Seconds returns the duration used for aggregation. Negative (running)
// durations count as zero.
func (e TimeEntry) Seconds() int64 {
	if e.Duration < 0 {
		return 0
	}
	return e.Duration
}

// Running reports whether the entry is still being tracked.
func (e TimeEntry) Running() bool {
	return e.Stop == nil || e.Duration < 0
}
