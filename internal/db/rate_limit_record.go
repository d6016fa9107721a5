package db

import "time"

// RateLimitRecord tracks submissions per device for the SQL-backed limiter.
// Version guards the compare-and-swap update.
type RateLimitRecord struct {
	DeviceID      string `gorm:"primaryKey;size:128"`
	WindowStartAt time.Time
	CountInWindow int `gorm:"not null;default:0"`
	BlockedUntil  *time.Time
	Version       int `gorm:"not null;default:0"`
	UpdatedAt     time.Time
}

// TableName returns the limiter table name.
func (RateLimitRecord) TableName() string {
	return "rate_limit_records"
}
