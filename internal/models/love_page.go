package models

import (
	"time"
)

// LovePagesOwnerIndex is the love_pages index on user_id.
const LovePagesOwnerIndex = "idx_love_pages_user_id"

// LovePage is a stored love page row. Content holds the section document.
type LovePage struct {
	ID           string  `gorm:"primaryKey;size:36"`
	UserID       string  `gorm:"size:64;not null;index:idx_love_pages_user_id"`
	Slug         string  `gorm:"size:32;not null;uniqueIndex"`
	Title        string  `gorm:"size:255;not null"`
	Content      JSON    `gorm:"not null"`
	IsPublished  bool    `gorm:"not null"`
	PrivacyMode  string  `gorm:"size:16;not null"`
	PasswordHash *string `gorm:"size:72"`
	UnlockAt     *time.Time
	ExpiresAt    *time.Time
	EditCount    int   `gorm:"not null;default:0"`
	ViewCount    int64 `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName overrides the table name for LovePage
func (LovePage) TableName() string {
	return "love_pages"
}

// LovePagePublic is a row of the love_pages_public view. The password hash
// is replaced by a flag.
type LovePagePublic struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"-"`
	Slug                string     `json:"slug"`
	Title               string     `json:"title"`
	Content             JSON       `json:"content"`
	IsPublished         bool       `json:"isPublished"`
	PrivacyMode         string     `json:"privacyMode"`
	IsPasswordProtected bool       `json:"isPasswordProtected"`
	UnlockAt            *time.Time `json:"unlockAt,omitempty"`
	ExpiresAt           *time.Time `json:"expiresAt,omitempty"`
	ViewCount           int64      `json:"viewCount"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// TableName points reads at the public view
func (LovePagePublic) TableName() string {
	return "love_pages_public"
}
