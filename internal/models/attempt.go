package models

import (
	"time"
)

// PasswordAttempt logs one password submission against a page.
type PasswordAttempt struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	PageID      string    `gorm:"size:36;not null;index:idx_attempt_page_ip"`
	IPAddress   string    `gorm:"size:64;not null;index:idx_attempt_page_ip"`
	Success     bool      `gorm:"not null"`
	AttemptedAt time.Time `gorm:"not null;index"`
}

// TableName overrides the table name for PasswordAttempt
func (PasswordAttempt) TableName() string {
	return "password_attempts"
}

// MediaFile records an uploaded blob.
type MediaFile struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"size:64;not null;index" json:"-"`
	LovePageID *string   `gorm:"size:36" json:"lovePageId,omitempty"`
	FileName   string    `gorm:"size:255;not null" json:"fileName"`
	FileURL    string    `gorm:"size:1024;not null" json:"fileUrl"`
	FileType   string    `gorm:"size:8;not null" json:"fileType"`
	FileSize   int64     `gorm:"not null" json:"fileSize"`
	MimeType   string    `gorm:"size:64;not null" json:"mimeType"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName overrides the table name for MediaFile
func (MediaFile) TableName() string {
	return "media_files"
}
