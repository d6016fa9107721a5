package db

import "time"

// Audit actions recorded for queue entries.
const (
	AuditActionSubmit  = "submit"
	AuditActionPublish = "publish"
	AuditActionReject  = "reject"
	AuditActionDelete  = "delete"
)

// ModerationAudit is an append-only trail of who did what to a queue entry.
// Rows outlive the entry they describe.
type ModerationAudit struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	PostID    string    `gorm:"size:64;index;not null" json:"postId"`
	Action    string    `gorm:"size:16;not null" json:"action"`
	Actor     string    `gorm:"size:120" json:"actor"`
	Edited    bool      `json:"edited"`
	Reason    string    `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName returns the audit table name.
func (ModerationAudit) TableName() string {
	return "moderation_audits"
}
