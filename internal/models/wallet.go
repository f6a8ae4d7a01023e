package models

import (
	"time"
)

// Wallet holds a user's plan and template consumption.
type Wallet struct {
	UserID          string `gorm:"primaryKey;size:64"`
	PlanType        string `gorm:"size:32;not null"`
	TemplatesUsed   int    `gorm:"not null;default:0"`
	PlanPurchasedAt *time.Time
	PlanExpiresAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName overrides the table name for Wallet
func (Wallet) TableName() string {
	return "wallets"
}

// QuotaLedger records each consumed quota unit under the client supplied
// idempotency key, so a replayed submission is not counted twice.
type QuotaLedger struct {
	ID             uint64  `gorm:"primaryKey;autoIncrement"`
	IdempotencyKey string  `gorm:"size:191;not null;uniqueIndex"`
	UserID         string  `gorm:"size:64;not null;index"`
	PageID         *string `gorm:"size:36"`
	Kind           string  `gorm:"size:16;not null"`
	CreatedAt      time.Time
}

// TableName overrides the table name for QuotaLedger
func (QuotaLedger) TableName() string {
	return "quota_ledger"
}
