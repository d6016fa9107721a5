package db

import "gorm.io/gorm"

// SystemSetting stores admin-tunable key/value pairs.
type SystemSetting struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName keeps the table name stable.
func (SystemSetting) TableName() string {
	return "system_settings"
}

const (
	// SettingKeyAutoPublishClean toggles auto publishing of clean submissions.
	SettingKeyAutoPublishClean = "auto_publish_clean"
	// SettingKeyChatbotEnabled toggles the chatbot endpoint.
	SettingKeyChatbotEnabled = "chatbot_enabled"
)
