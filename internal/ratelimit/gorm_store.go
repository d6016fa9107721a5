package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bongbari/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const gormStoreMaxAttempts = 3

// ErrContention is returned when the compare-and-swap keeps losing races.
var ErrContention = errors.New("rate limit record is under contention")

// GormStore keeps records in the SQL database. Each hit runs in a
// transaction that locks the row (where the dialect supports it) and
// commits through a version-guarded update.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps gdb.
func NewGormStore(gdb *gorm.DB) *GormStore {
	return &GormStore{db: gdb}
}

func (s *GormStore) Hit(ctx context.Context, deviceID string, now time.Time, policy Policy) (Decision, error) {
	for attempt := 0; attempt < gormStoreMaxAttempts; attempt++ {
		decision, applied, err := s.tryHit(ctx, deviceID, now, policy)
		if err != nil {
			return Decision{}, err
		}
		if applied {
			return decision, nil
		}
	}
	return Decision{}, ErrContention
}

func (s *GormStore) tryHit(ctx context.Context, deviceID string, now time.Time, policy Policy) (Decision, bool, error) {
	var (
		decision Decision
		applied  bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := db.RateLimitRecord{DeviceID: deviceID, WindowStartAt: now}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}},
			DoNothing: true,
		}).Create(&seed).Error; err != nil {
			return fmt.Errorf("seed rate limit record: %w", err)
		}

		var row db.RateLimitRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("device_id = ?", deviceID).
			First(&row).Error; err != nil {
			return fmt.Errorf("load rate limit record: %w", err)
		}

		next, d := apply(fromRow(row), now, policy)

		var blockedUntil interface{} = gorm.Expr("NULL")
		if next.BlockedUntil != nil {
			blockedUntil = *next.BlockedUntil
		}

		result := tx.Model(&db.RateLimitRecord{}).
			Where("device_id = ? AND version = ?", deviceID, row.Version).
			Updates(map[string]interface{}{
				"window_start_at": next.WindowStartAt,
				"count_in_window": next.CountInWindow,
				"blocked_until":   blockedUntil,
				"version":         row.Version + 1,
				"updated_at":      now,
			})
		if result.Error != nil {
			return fmt.Errorf("update rate limit record: %w", result.Error)
		}

		applied = result.RowsAffected == 1
		decision = d
		return nil
	})
	if err != nil {
		return Decision{}, false, err
	}
	return decision, applied, nil
}

func (s *GormStore) Peek(ctx context.Context, deviceID string) (Record, error) {
	var row db.RateLimitRecord
	if err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Record{DeviceID: deviceID}, nil
		}
		return Record{}, fmt.Errorf("load rate limit record: %w", err)
	}
	return fromRow(row), nil
}

func (s *GormStore) Reset(ctx context.Context, deviceID string) error {
	if err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).Delete(&db.RateLimitRecord{}).Error; err != nil {
		return fmt.Errorf("reset rate limit record: %w", err)
	}
	return nil
}

func fromRow(row db.RateLimitRecord) Record {
	record := Record{
		DeviceID:      row.DeviceID,
		WindowStartAt: row.WindowStartAt.UTC(),
		CountInWindow: row.CountInWindow,
	}
	if row.BlockedUntil != nil {
		until := row.BlockedUntil.UTC()
		record.BlockedUntil = &until
	}
	return record
}
