package services

import (
	"context"
	"fmt"
	"time"

	"github.com/localnerve/luvnest/internal/clock"
	"github.com/localnerve/luvnest/internal/models"
	"gorm.io/gorm"
)

// AttemptLog records password submissions per page and source address.
type AttemptLog struct {
	DB    *gorm.DB
	Clock clock.Clock
}

// Record stores one attempt.
func (a *AttemptLog) Record(ctx context.Context, pageID, ip string, success bool) error {
	return a.DB.WithContext(ctx).Create(&models.PasswordAttempt{
		PageID:      pageID,
		IPAddress:   ip,
		Success:     success,
		AttemptedAt: a.Clock.Now(),
	}).Error
}

// RecentFailures counts failed attempts from ip against pageID within window.
func (a *AttemptLog) RecentFailures(ctx context.Context, pageID, ip string, window time.Duration) (int64, error) {
	var n int64
	err := a.DB.WithContext(ctx).Model(&models.PasswordAttempt{}).
		Where("page_id = ? AND ip_address = ? AND success = ? AND attempted_at > ?", pageID, ip, false, a.Clock.Now().Add(-window)).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count password attempts: %w", err)
	}
	return n, nil
}

// Prune deletes attempts older than maxAge.
func (a *AttemptLog) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	res := a.DB.WithContext(ctx).
		Where("attempted_at < ?", a.Clock.Now().Add(-maxAge)).
		Delete(&models.PasswordAttempt{})
	return res.RowsAffected, res.Error
}
