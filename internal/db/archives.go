package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"timereport/internal/model"
)

// ArchiveInput attaches pre-parsed entries to a report. Parsing the source
// document happens elsewhere.
type ArchiveInput struct {
	FileName string            `json:"file_name"`
	Status   string            `json:"status"`
	Error    string            `json:"error"`
	Entries  []model.TimeEntry `json:"entries"`
}

func validArchiveStatus(s string) bool {
	switch s {
	case ArchivePending, ArchiveProcessing, ArchiveCompleted, ArchiveError:
		return true
	}
	return false
}

func (s *Store) CreateArchive(ctx context.Context, reportIDOrSlug string, in ArchiveInput) (*Archive, error) {
	r, err := s.findReport(ctx, reportIDOrSlug)
	if err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = ArchivePending
		if len(in.Entries) > 0 {
			in.Status = ArchiveCompleted
		}
	}
	if !validArchiveStatus(in.Status) {
		return nil, fmt.Errorf("%w: unknown archive status %q", ErrInvalidArgument, in.Status)
	}

	a := &Archive{
		ID:       uuid.NewString(),
		ReportID: r.ID,
		FileName: in.FileName,
		Status:   in.Status,
		Error:    in.Error,
		Entries:  in.Entries,
	}
	if a.Status == ArchiveCompleted {
		now := time.Now().UTC()
		a.ProcessedAt = &now
	}
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// ListArchives returns the archives of a report without their entries,
// newest first.
func (s *Store) ListArchives(ctx context.Context, reportIDOrSlug string) ([]Archive, error) {
	r, err := s.findReport(ctx, reportIDOrSlug)
	if err != nil {
		return nil, err
	}
	var out []Archive
	if err := s.db.WithContext(ctx).
		Omit("entries").
		Where("report_id = ?", r.ID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) DeleteArchive(ctx context.Context, reportIDOrSlug, archiveID string) error {
	r, err := s.findReport(ctx, reportIDOrSlug)
	if err != nil {
		return err
	}
	if !isUUID(archiveID) {
		return ErrNotFound
	}
	res := s.db.WithContext(ctx).Where("id = ? AND report_id = ?", archiveID, r.ID).Delete(&Archive{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
