package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"timereport/internal/report"
	"timereport/internal/source"
)

// CreateAccount registers an account, sealing its API token.
func (s *Store) CreateAccount(ctx context.Context, name, token string) (*Account, error) {
	name, token = strings.TrimSpace(name), strings.TrimSpace(token)
	if name == "" || token == "" {
		return nil, fmt.Errorf("%w: name and api_token are required", ErrInvalidArgument)
	}
	sealed, err := s.box.Seal(token)
	if err != nil {
		return nil, fmt.Errorf("seal token: %w", err)
	}
	a := &Account{ID: uuid.NewString(), Name: name, SealedToken: sealed}
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]Account, error) {
	var out []Account
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Credential unseals the token of an account.
func (s *Store) Credential(ctx context.Context, accountID string) (source.Credential, error) {
	if !isUUID(accountID) {
		return source.Credential{}, ErrAccountNotFound
	}
	var a Account
	if err := s.db.WithContext(ctx).Where("id = ?", accountID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return source.Credential{}, ErrAccountNotFound
		}
		return source.Credential{}, err
	}
	token, err := s.box.Open(a.SealedToken)
	if err != nil {
		return source.Credential{}, err
	}
	return source.Credential{AccountID: a.ID, AccountName: a.Name, APIToken: token}, nil
}

// DeleteAccount removes an account and every report config that uses it.
func (s *Store) DeleteAccount(ctx context.Context, accountID string) error {
	if !isUUID(accountID) {
		return ErrAccountNotFound
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", accountID).Delete(&AccountFilterConfig{}).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ?", accountID).Delete(&CacheEntry{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Account{}, "id = ?", accountID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAccountNotFound
		}
		return nil
	})
}

// UpsertAccountConfig creates or replaces the filter of one account within a
// report.
func (s *Store) UpsertAccountConfig(ctx context.Context, reportIDOrSlug string, c *AccountFilterConfig) error {
	r, err := s.findReport(ctx, reportIDOrSlug)
	if err != nil {
		return err
	}
	if !isUUID(c.AccountID) {
		return ErrAccountNotFound
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&Account{}).Where("id = ?", c.AccountID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrAccountNotFound
	}

	c.ReportID = r.ID
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "report_id"}, {Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"workspace_id", "client_id", "project_id", "tag_id", "priority"}),
	}).Create(c).Error; err != nil {
		return err
	}
	// The conflicting row keeps its original id.
	var stored AccountFilterConfig
	if err := s.db.WithContext(ctx).
		Where("report_id = ? AND account_id = ?", c.ReportID, c.AccountID).
		First(&stored).Error; err != nil {
		return err
	}
	*c = stored
	return nil
}

// ListAccountConfigs returns the configs of a report in display order.
func (s *Store) ListAccountConfigs(ctx context.Context, reportID string) ([]AccountFilterConfig, error) {
	var out []AccountFilterConfig
	if err := s.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("priority ASC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) DeleteAccountConfig(ctx context.Context, reportIDOrSlug, configID string) error {
	r, err := s.findReport(ctx, reportIDOrSlug)
	if err != nil {
		return err
	}
	if !isUUID(configID) {
		return ErrNotFound
	}
	res := s.db.WithContext(ctx).Where("id = ? AND report_id = ?", configID, r.ID).Delete(&AccountFilterConfig{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

var _ report.Store = (*Store)(nil)
var _ source.ArchiveSource = (*Store)(nil)
