package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bongbari/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Policy holds the moderation switches admins can flip at runtime.
type Policy struct {
	AutoPublishClean bool `json:"autoPublishCleanSubmissions"`
	ChatbotEnabled   bool `json:"chatbotEnabled"`
}

// PolicyInput updates a subset of the policy. Nil fields are left as is.
type PolicyInput struct {
	AutoPublishClean *bool `json:"autoPublishCleanSubmissions"`
	ChatbotEnabled   *bool `json:"chatbotEnabled"`
}

// PolicySource is what the submission gateway needs from settings.
type PolicySource interface {
	GetPolicy(ctx context.Context) (Policy, error)
}

// SettingService reads and writes runtime policy in the key/value table.
type SettingService struct {
	db       *gorm.DB
	defaults Policy
}

// NewSettingService builds a SettingService. defaults apply to keys that
// were never written.
func NewSettingService(gdb *gorm.DB, defaults Policy) *SettingService {
	return &SettingService{db: gdb, defaults: defaults}
}

var policyKeys = []string{
	db.SettingKeyAutoPublishClean,
	db.SettingKeyChatbotEnabled,
}

// GetPolicy returns the stored policy merged over the defaults.
func (s *SettingService) GetPolicy(ctx context.Context) (Policy, error) {
	result := s.defaults

	var records []db.SystemSetting
	if err := s.db.WithContext(ctx).Where("key IN ?", policyKeys).Find(&records).Error; err != nil {
		return result, storeError("load policy", err)
	}

	for _, record := range records {
		value, ok := parseSettingBool(record.Value)
		if !ok {
			continue
		}
		switch record.Key {
		case db.SettingKeyAutoPublishClean:
			result.AutoPublishClean = value
		case db.SettingKeyChatbotEnabled:
			result.ChatbotEnabled = value
		}
	}

	return result, nil
}

// UpdatePolicy stores the given fields and returns the effective policy.
func (s *SettingService) UpdatePolicy(ctx context.Context, input PolicyInput) (Policy, error) {
	if input.AutoPublishClean == nil && input.ChatbotEnabled == nil {
		return Policy{}, newError(KindValidation, "no policy fields given")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.AutoPublishClean != nil {
			if err := upsertSetting(tx, db.SettingKeyAutoPublishClean, strconv.FormatBool(*input.AutoPublishClean)); err != nil {
				return err
			}
		}
		if input.ChatbotEnabled != nil {
			if err := upsertSetting(tx, db.SettingKeyChatbotEnabled, strconv.FormatBool(*input.ChatbotEnabled)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Policy{}, storeError("update policy", err)
	}

	return s.GetPolicy(ctx)
}

func upsertSetting(tx *gorm.DB, key, value string) error {
	setting := db.SystemSetting{Key: key, Value: value}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&setting).Error
}

func parseSettingBool(raw string) (bool, bool) {
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, false
	}
	return value, true
}
