package db

import "time"

// Moderation states of a queue entry. Only pending is non-terminal.
const (
	ModerationPending   = "pending"
	ModerationPublished = "published"
	ModerationRejected  = "rejected"
)

// PendingPost is a community story held in the moderation queue.
type PendingPost struct {
	ID               uint       `gorm:"primaryKey" json:"-"`
	PostID           string     `gorm:"size:64;uniqueIndex;not null" json:"postId"`
	Text             string     `gorm:"type:text;not null" json:"text"`
	Author           *string    `gorm:"size:120" json:"author"`
	Language         string     `gorm:"size:8" json:"language"`
	DeviceID         string     `gorm:"size:128;index" json:"-"`
	FlaggedTerms     StringList `json:"flaggedTerms"`
	ModerationStatus string     `gorm:"size:16;index;not null;default:pending" json:"moderationStatus"`
	RejectionReason  *string    `gorm:"type:text" json:"rejectionReason"`
	ResolvedBy       string     `gorm:"size:120" json:"resolvedBy,omitempty"`
	ResolvedAt       *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt        time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt        time.Time  `json:"-"`
}

// TableName keeps the queue in its own table, apart from public stories.
func (PendingPost) TableName() string {
	return "pending_posts"
}

// IsTerminal reports whether the entry has left the pending state.
func (p PendingPost) IsTerminal() bool {
	return p.ModerationStatus == ModerationPublished || p.ModerationStatus == ModerationRejected
}
