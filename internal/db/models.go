package db

import (
	"time"

	"gorm.io/datatypes"

	"timereport/internal/model"
	"timereport/internal/report"
)

// Account is a registered Toggl account. The API token is stored sealed.
type Account struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"not null" json:"name"`

	SealedToken string `gorm:"not null" json:"-"`
}

// Report is the persisted configuration of one report.
type Report struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	ClientName  string `json:"client_name,omitempty"`
	Description string `json:"description,omitempty"`

	ContractedHours   *float64   `json:"contracted_hours,omitempty"`
	ContractStartDate *time.Time `json:"contract_start_date,omitempty"`

	AutoRefreshEnabled   bool `gorm:"not null;default:true" json:"auto_refresh_enabled"`
	RefreshIntervalHours int  `gorm:"not null;default:2" json:"refresh_interval_hours"`

	DateRangeStart *time.Time `json:"date_range_start,omitempty"`
	DateRangeEnd   *time.Time `json:"date_range_end,omitempty"`

	LastRefreshedAt *time.Time `json:"last_refreshed_at,omitempty"`
	NextRefreshAt   *time.Time `gorm:"index" json:"next_refresh_at,omitempty"`
}

func (r *Report) config() *report.Config {
	return &report.Config{
		ID:                   r.ID,
		Name:                 r.Name,
		Slug:                 r.Slug,
		ClientName:           r.ClientName,
		Description:          r.Description,
		ContractedHours:      r.ContractedHours,
		ContractStart:        r.ContractStartDate,
		AutoRefresh:          r.AutoRefreshEnabled,
		RefreshIntervalHours: r.RefreshIntervalHours,
		RangeStart:           r.DateRangeStart,
		RangeEnd:             r.DateRangeEnd,
		LastRefreshedAt:      r.LastRefreshedAt,
		NextRefreshAt:        r.NextRefreshAt,
	}
}

// AccountFilterConfig links a report to an account with an optional filter.
// Priority only orders the configs for display.
type AccountFilterConfig struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ReportID  string `gorm:"uniqueIndex:idx_report_account,priority:1;not null;type:uuid" json:"report_id"`
	AccountID string `gorm:"uniqueIndex:idx_report_account,priority:2;not null;type:uuid;index" json:"account_id"`

	WorkspaceID *int64 `json:"workspace_id,omitempty"`
	ClientID    *int64 `json:"client_id,omitempty"`
	ProjectID   *int64 `json:"project_id,omitempty"`
	TagID       *int64 `json:"tag_id,omitempty"`

	Priority int `gorm:"not null;default:0" json:"priority"`
}

// Archive statuses. Only completed archives contribute entries.
const (
	ArchivePending    = "pending"
	ArchiveProcessing = "processing"
	ArchiveCompleted  = "completed"
	ArchiveError      = "error"
)

// Archive is a historical batch of entries attached to a report.
type Archive struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ReportID string `gorm:"index;not null;type:uuid" json:"report_id"`
	FileName string `json:"file_name"`
	Status   string `gorm:"index;not null" json:"status"`
	Error    string `json:"error,omitempty"`

	Entries     datatypes.JSONSlice[model.TimeEntry] `gorm:"type:jsonb" json:"entries,omitempty"`
	ProcessedAt *time.Time                           `json:"processed_at,omitempty"`
}

// SnapshotRecord holds the single current snapshot of a report.
type SnapshotRecord struct {
	ReportID     string    `gorm:"primaryKey;type:uuid"`
	GeneratedAt  time.Time `gorm:"not null"`
	TotalEntries int       `gorm:"not null"`

	Payload datatypes.JSONType[report.Snapshot] `gorm:"type:jsonb;not null"`
}

// CacheEntry is a cached upstream response. Expired rows are purged by the
// retention worker.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey"`
	AccountID string    `gorm:"index;not null"`
	Endpoint  string    `gorm:"not null"`
	Data      []byte    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
}

func (CacheEntry) TableName() string { return "api_cache" }
