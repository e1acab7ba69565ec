package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"timereport/internal/report"
)

// ReportInput is the editable part of a report.
type ReportInput struct {
	Name                 string     `json:"name"`
	Slug                 string     `json:"slug"`
	ClientName           string     `json:"client_name"`
	Description          string     `json:"description"`
	ContractedHours      *float64   `json:"contracted_hours"`
	ContractStartDate    *time.Time `json:"contract_start_date"`
	AutoRefreshEnabled   *bool      `json:"auto_refresh_enabled"`
	RefreshIntervalHours int        `json:"refresh_interval_hours"`
	DateRangeStart       *time.Time `json:"date_range_start"`
	DateRangeEnd         *time.Time `json:"date_range_end"`
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func (in *ReportInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	in.Slug = strings.TrimSpace(in.Slug)
	if in.Slug == "" {
		in.Slug = slug.Make(in.Name)
	} else {
		in.Slug = slug.Make(in.Slug)
	}
	if in.Slug == "" {
		return fmt.Errorf("%w: cannot derive a slug from %q", ErrInvalidArgument, in.Name)
	}
	if isUUID(in.Slug) {
		return fmt.Errorf("%w: slug must not look like an id", ErrInvalidArgument)
	}
	if in.ContractedHours != nil && *in.ContractedHours < 0 {
		return fmt.Errorf("%w: contracted_hours must not be negative", ErrInvalidArgument)
	}
	if in.DateRangeStart != nil && in.DateRangeEnd != nil && in.DateRangeEnd.Before(*in.DateRangeStart) {
		return fmt.Errorf("%w: date_range_end is before date_range_start", ErrInvalidArgument)
	}
	in.RefreshIntervalHours = report.ClampInterval(in.RefreshIntervalHours)
	return nil
}

func (in *ReportInput) apply(r *Report) {
	r.Name = in.Name
	r.Slug = in.Slug
	r.ClientName = in.ClientName
	r.Description = in.Description
	r.ContractedHours = in.ContractedHours
	r.ContractStartDate = in.ContractStartDate
	if in.AutoRefreshEnabled != nil {
		r.AutoRefreshEnabled = *in.AutoRefreshEnabled
	}
	r.RefreshIntervalHours = in.RefreshIntervalHours
	r.DateRangeStart = in.DateRangeStart
	r.DateRangeEnd = in.DateRangeEnd
}

func (s *Store) slugTaken(ctx context.Context, slugValue, exceptID string) (bool, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(&Report{}).Where("slug = ?", slugValue)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateReport stores a new report. A blank slug is derived from the name.
func (s *Store) CreateReport(ctx context.Context, in ReportInput) (*Report, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	taken, err := s.slugTaken(ctx, in.Slug, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: %s", ErrSlugTaken, in.Slug)
	}

	r := &Report{ID: uuid.NewString(), AutoRefreshEnabled: true}
	in.apply(r)
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) ListReports(ctx context.Context) ([]Report, error) {
	var out []Report
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// FindReport resolves a report by id or slug.
func (s *Store) FindReport(ctx context.Context, idOrSlug string) (*Report, error) {
	return s.findReport(ctx, idOrSlug)
}

// UpdateReport replaces the editable fields of a report. Changing the
// interval reschedules the next refresh from the last one.
func (s *Store) UpdateReport(ctx context.Context, idOrSlug string, in ReportInput) (*Report, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	r, err := s.findReport(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	taken, err := s.slugTaken(ctx, in.Slug, r.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: %s", ErrSlugTaken, in.Slug)
	}

	intervalChanged := r.RefreshIntervalHours != in.RefreshIntervalHours
	in.apply(r)
	if intervalChanged && r.LastRefreshedAt != nil {
		next := r.LastRefreshedAt.Add(time.Duration(r.RefreshIntervalHours) * time.Hour)
		r.NextRefreshAt = &next
	}
	if err := s.db.WithContext(ctx).Save(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteReport removes a report with its account configs, archives and
// snapshot.
func (s *Store) DeleteReport(ctx context.Context, idOrSlug string) (string, error) {
	r, err := s.findReport(ctx, idOrSlug)
	if err != nil {
		return "", err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_id = ?", r.ID).Delete(&AccountFilterConfig{}).Error; err != nil {
			return err
		}
		if err := tx.Where("report_id = ?", r.ID).Delete(&Archive{}).Error; err != nil {
			return err
		}
		if err := tx.Where("report_id = ?", r.ID).Delete(&SnapshotRecord{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Report{}, "id = ?", r.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return report.ErrReportNotFound
		}
		return nil
	})
	if err != nil && !errors.Is(err, report.ErrReportNotFound) {
		return "", fmt.Errorf("delete report: %w", err)
	}
	return r.ID, err
}
