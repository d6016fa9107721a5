package db

import "time"

// Story sources.
const (
	StorySourceAuto   = "auto"
	StorySourceReview = "review"
)

// Story is a published community story. Public reads only touch this table.
type Story struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	PostID      string    `gorm:"size:64;uniqueIndex;not null" json:"postId"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	Author      *string   `gorm:"size:120" json:"author"`
	Language    string    `gorm:"size:8;index" json:"language"`
	Edited      bool      `json:"edited"`
	Source      string    `gorm:"size:16" json:"source"`
	PublishedAt time.Time `gorm:"index" json:"publishedAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"-"`
}

// TableName is the public content table.
func (Story) TableName() string {
	return "stories"
}
