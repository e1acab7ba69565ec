package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"timereport/internal/report"
	"timereport/internal/secret"
	"timereport/internal/source"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrNotFound        = errors.New("record not found")
	ErrSlugTaken       = errors.New("slug already in use")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Store is the gorm-backed persistence of reports, accounts, archives and
// snapshots.
type Store struct {
	db  *gorm.DB
	box *secret.Box
	log *zap.SugaredLogger
}

func NewStore(db *gorm.DB, box *secret.Box, log *zap.SugaredLogger) *Store {
	return &Store{db: db, box: box, log: log.Named("store")}
}

func (s *Store) findReport(ctx context.Context, idOrSlug string) (*Report, error) {
	var r Report
	q := s.db.WithContext(ctx)
	if isUUID(idOrSlug) {
		q = q.Where("id = ? OR slug = ?", idOrSlug, idOrSlug)
	} else {
		q = q.Where("slug = ?", idOrSlug)
	}
	if err := q.First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, report.ErrReportNotFound
		}
		return nil, err
	}
	return &r, nil
}

// GetReport resolves a report by id or slug.
func (s *Store) GetReport(ctx context.Context, idOrSlug string) (*report.Config, error) {
	r, err := s.findReport(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	return r.config(), nil
}

// AccountSources returns the configured accounts of a report with their
// unsealed credentials, in priority order. Accounts whose token cannot be
// opened are skipped.
func (s *Store) AccountSources(ctx context.Context, reportID string) ([]report.AccountSource, error) {
	configs, err := s.ListAccountConfigs(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(configs))
	for _, c := range configs {
		ids = append(ids, c.AccountID)
	}
	var accounts []Account
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&accounts).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	out := make([]report.AccountSource, 0, len(configs))
	for _, c := range configs {
		a, ok := byID[c.AccountID]
		if !ok {
			continue
		}
		token, err := s.box.Open(a.SealedToken)
		if err != nil {
			s.log.Warnw("skipping account with unreadable token", "account", a.Name, "error", err)
			continue
		}
		out = append(out, report.AccountSource{
			Credential: source.Credential{AccountID: a.ID, AccountName: a.Name, APIToken: token},
			Filter: source.Filter{
				WorkspaceID: c.WorkspaceID,
				ClientID:    c.ClientID,
				ProjectID:   c.ProjectID,
				TagID:       c.TagID,
			},
			Priority: c.Priority,
		})
	}
	return out, nil
}

// ReadSnapshot returns the current snapshot of a report or nil.
func (s *Store) ReadSnapshot(ctx context.Context, reportID string) (*report.Snapshot, error) {
	var rec SnapshotRecord
	err := s.db.WithContext(ctx).Where("report_id = ?", reportID).Limit(1).Find(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ReportID == "" {
		return nil, nil
	}
	snap := rec.Payload.Data()
	return &snap, nil
}

// UpsertSnapshot replaces the snapshot of a report in one statement.
func (s *Store) UpsertSnapshot(ctx context.Context, reportID string, snap *report.Snapshot) error {
	rec := SnapshotRecord{
		ReportID:     reportID,
		GeneratedAt:  snap.GeneratedAt,
		TotalEntries: snap.TotalEntries,
		Payload:      datatypes.NewJSONType(*snap),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "report_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"generated_at", "total_entries", "payload"}),
	}).Create(&rec).Error
}

func (s *Store) UpdateReportTimestamps(ctx context.Context, reportID string, lastRefreshedAt, nextRefreshAt time.Time) error {
	res := s.db.WithContext(ctx).Model(&Report{}).Where("id = ?", reportID).Updates(map[string]any{
		"last_refreshed_at": lastRefreshedAt,
		"next_refresh_at":   nextRefreshAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return report.ErrReportNotFound
	}
	return nil
}

// DueReports lists auto-refresh reports whose next refresh is due.
func (s *Store) DueReports(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&Report{}).
		Where("auto_refresh_enabled = ? AND (next_refresh_at IS NULL OR next_refresh_at <= ?)", true, now).
		Order("next_refresh_at ASC NULLS FIRST").
		Pluck("id", &ids).Error
	return ids, err
}

// ListCompletedArchives returns the entries of every completed archive of a
// report.
func (s *Store) ListCompletedArchives(ctx context.Context, reportID string) ([]source.Archive, error) {
	var rows []Archive
	if err := s.db.WithContext(ctx).
		Where("report_id = ? AND status = ?", reportID, ArchiveCompleted).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	out := make([]source.Archive, 0, len(rows))
	for _, a := range rows {
		out = append(out, source.Archive{ID: a.ID, Entries: a.Entries})
	}
	return out, nil
}
