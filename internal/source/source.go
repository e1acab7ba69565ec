// Package source defines where report entries come from: live time-tracking
// accounts and historical archives attached to a report.
package source

import (
	"context"
	"fmt"
	"time"

	"timereport/internal/model"
)

// Credential identifies one registered account.
type Credential struct {
	AccountID   string
	AccountName string
	APIToken    string
}

// Filter narrows a listing. Nil fields do not filter.
type Filter struct {
	WorkspaceID *int64
	ClientID    *int64
	ProjectID   *int64
	TagID       *int64
	Start       *time.Time
	End         *time.Time
}

// Identity describes the owner of a credential.
type Identity struct {
	DisplayName string
}

// EntrySource lists time entries of a live account.
type EntrySource interface {
	ListEntries(ctx context.Context, cred Credential, f Filter) ([]model.TimeEntry, error)
	ResolveIdentity(ctx context.Context, cred Credential) (Identity, error)
}

// Archive is a pre-parsed batch of historical entries.
type Archive struct {
	ID      string
	Entries []model.TimeEntry
}

// ArchiveSource lists archives of a report. Only completed archives are
// returned.
type ArchiveSource interface {
	ListCompletedArchives(ctx context.Context, reportID string) ([]Archive, error)
}

// AuthError is returned when the upstream rejects the credential.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("upstream rejected credential (status %d)", e.Status)
}

// RateLimitError is returned when the upstream quota is exhausted. It is
// transient.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("upstream rate limit exceeded, retry after %s", e.RetryAfter)
	}
	return "upstream rate limit exceeded"
}

// UpstreamError covers every other non-2xx response.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}
