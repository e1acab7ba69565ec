// Package report owns the refresh lifecycle of a report: fetching entries
// from every configured account, merging archives, computing the snapshot
// and persisting it.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"timereport/internal/model"
	"timereport/internal/reportcalc"
	"timereport/internal/source"
)

var (
	ErrReportNotFound = errors.New("report not found")
	// ErrPersistence marks a failed store read or write during a refresh. The
	// previous snapshot stays visible.
	ErrPersistence = errors.New("report persistence failed")
)

// Config is the part of a report the orchestrator needs.
type Config struct {
	ID                   string
	Name                 string
	Slug                 string
	ClientName           string
	Description          string
	ContractedHours      *float64
	ContractStart        *time.Time
	AutoRefresh          bool
	RefreshIntervalHours int
	RangeStart           *time.Time
	RangeEnd             *time.Time
	LastRefreshedAt      *time.Time
	NextRefreshAt        *time.Time
}

// AccountSource is one configured account of a report with its filter.
type AccountSource struct {
	Credential source.Credential
	Filter     source.Filter
	Priority   int
}

// DataSources counts where snapshot entries came from.
type DataSources struct {
	API      int `json:"api"`
	Archives int `json:"archives"`
}

type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Snapshot is the persisted result of one refresh. It is replaced as a whole.
type Snapshot struct {
	ReportID string            `json:"report_id"`
	Entries  []model.TimeEntry `json:"entries"`
	reportcalc.Result
	GeneratedAt    time.Time   `json:"generated_at"`
	DataSources    DataSources `json:"data_sources"`
	DateRange      *DateRange  `json:"date_range,omitempty"`
	FailedAccounts []string    `json:"failed_accounts,omitempty"`
}

// Store is the persistence the orchestrator depends on.
type Store interface {
	// GetReport resolves a report by id or slug. It returns ErrReportNotFound
	// when neither matches.
	GetReport(ctx context.Context, idOrSlug string) (*Config, error)
	AccountSources(ctx context.Context, reportID string) ([]AccountSource, error)
	// ReadSnapshot returns nil without error when no snapshot exists.
	ReadSnapshot(ctx context.Context, reportID string) (*Snapshot, error)
	UpsertSnapshot(ctx context.Context, reportID string, s *Snapshot) error
	UpdateReportTimestamps(ctx context.Context, reportID string, lastRefreshedAt, nextRefreshAt time.Time) error
	DueReports(ctx context.Context, now time.Time) ([]string, error)
}

// PerAccountFetchError records an account whose entries are missing from a
// snapshot.
type PerAccountFetchError struct {
	AccountID   string
	AccountName string
	Err         error
}

func (e *PerAccountFetchError) Error() string {
	return fmt.Sprintf("account %s (%s): %v", e.AccountName, e.AccountID, e.Err)
}

func (e *PerAccountFetchError) Unwrap() error { return e.Err }

// Kind classifies the underlying adapter error for metrics and logs.
func (e *PerAccountFetchError) Kind() string {
	var (
		auth     *source.AuthError
		limited  *source.RateLimitError
		upstream *source.UpstreamError
	)
	switch {
	case errors.As(e.Err, &auth):
		return "auth"
	case errors.As(e.Err, &limited):
		return "rate_limit"
	case errors.As(e.Err, &upstream):
		return "upstream"
	case errors.Is(e.Err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "other"
	}
}

// State is the lifecycle position of a report's snapshot.
type State string

const (
	StateNoSnapshot State = "no-snapshot"
	StateGenerating State = "generating"
	StateReady      State = "ready"
	StateReadyStale State = "ready-stale"
)

// Status is what callers see about a report's refresh lifecycle.
type Status struct {
	State           State      `json:"state"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at,omitempty"`
	NextRefreshAt   *time.Time `json:"next_refresh_at,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
}

const (
	DefaultIntervalHours = 2
	MinIntervalHours     = 1
	MaxIntervalHours     = 24
)

// ClampInterval keeps a refresh interval within 1 to 24 hours. Zero selects
// the default.
func ClampInterval(hours int) int {
	switch {
	case hours == 0:
		return DefaultIntervalHours
	case hours < MinIntervalHours:
		return MinIntervalHours
	case hours > MaxIntervalHours:
		return MaxIntervalHours
	}
	return hours
}
