// viewer.go
//
// LUVNEST, a love page builder and viewer service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of luvnest.
// luvnest is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// luvnest is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with luvnest.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/localnerve/luvnest/internal/access"
	"github.com/localnerve/luvnest/internal/clock"
	"github.com/localnerve/luvnest/internal/document"
	"github.com/localnerve/luvnest/internal/metrics"
	"github.com/localnerve/luvnest/internal/models"
	"github.com/localnerve/luvnest/internal/types"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PublicPage is what a viewer receives. Content is only present when the
// state is visible; a time-locked page exposes its title and unlock time.
type PublicPage struct {
	State               access.State      `json:"state"`
	Unlocked            bool              `json:"unlocked,omitempty"`
	ID                  string            `json:"id,omitempty"`
	Slug                string            `json:"slug,omitempty"`
	Title               string            `json:"title,omitempty"`
	IsPasswordProtected bool              `json:"isPasswordProtected,omitempty"`
	UnlockAt            *time.Time        `json:"unlockAt,omitempty"`
	ViewCount           int64             `json:"viewCount,omitempty"`
	Content             *document.Content `json:"content,omitempty"`
}

// UnlockResult carries the unlock token and the now visible page.
type UnlockResult struct {
	Token string     `json:"token"`
	Page  PublicPage `json:"page"`
}

// ViewerPolicy holds the password attempt limits.
type ViewerPolicy struct {
	MaxAttempts int
	Window      time.Duration
}

// ViewerService serves published pages through the public projection.
type ViewerService struct {
	DB       *gorm.DB
	Unlocker *access.Unlocker
	Attempts *AttemptLog
	Clock    clock.Clock
	Policy   ViewerPolicy
	Log      zerolog.Logger
}

var (
	dummyHash     []byte
	dummyHashOnce sync.Once
)

// burnCompare runs a bcrypt comparison against a throwaway hash so that
// rejections for missing or unprotected pages take as long as real ones.
func burnCompare(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-page-password"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

func (s *ViewerService) reader(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).Session(&gorm.Session{Logger: s.DB.Logger.LogMode(logger.Silent)})
}

func (s *ViewerService) findPublic(ctx context.Context, slug string) (*models.LovePagePublic, error) {
	var row models.LovePagePublic
	res := s.reader(ctx).Where("slug = ?", slug).Limit(1).Find(&row)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to load page: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &row, nil
}

func (s *ViewerService) passwordHash(ctx context.Context, pageID string) (string, error) {
	var row models.LovePage
	res := s.reader(ctx).Select("id", "password_hash").Where("id = ?", pageID).Limit(1).Find(&row)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 || row.PasswordHash == nil {
		return "", nil
	}
	return *row.PasswordHash, nil
}

func evaluateInput(row *models.LovePagePublic) access.Input {
	if row == nil {
		return access.Input{}
	}
	mode, _ := document.ParsePrivacyMode(row.PrivacyMode)
	return access.Input{
		Found:             true,
		IsPublished:       row.IsPublished,
		PrivacyMode:       mode,
		UnlockAt:          row.UnlockAt,
		ExpiresAt:         row.ExpiresAt,
		PasswordProtected: row.IsPasswordProtected,
	}
}

// View evaluates the page at slug for a viewer. viewerID is empty for
// anonymous viewers; unlockToken is the token from an earlier Unlock.
func (s *ViewerService) View(ctx context.Context, slug, viewerID, unlockToken string) (PublicPage, error) {
	return s.view(ctx, slug, viewerID, unlockToken, true)
}

// Peek evaluates the page at slug like View without counting a view. It
// backs re-renders after a rejected unlock.
func (s *ViewerService) Peek(ctx context.Context, slug, unlockToken string) (PublicPage, error) {
	return s.view(ctx, slug, "", unlockToken, false)
}

func (s *ViewerService) view(ctx context.Context, slug, viewerID, unlockToken string, count bool) (PublicPage, error) {
	row, err := s.findPublic(ctx, slug)
	if err != nil {
		return PublicPage{}, err
	}

	in := evaluateInput(row)
	if row != nil && unlockToken != "" && in.PasswordProtected {
		hash, err := s.passwordHash(ctx, row.ID)
		if err != nil {
			return PublicPage{}, fmt.Errorf("failed to load page: %w", err)
		}
		in.SessionUnlocked = s.Unlocker.Verify(unlockToken, row.ID, access.Fingerprint(hash)) == nil
	}

	decision := access.Evaluate(in, s.Clock.Now())
	if count && access.ShouldCountView(decision, viewerID != "" && viewerID == row.UserID) {
		if err := s.countView(ctx, row); err != nil {
			s.Log.Warn().Err(err).Str("page", row.ID).Msg("failed to count view")
		}
	}
	return project(row, decision)
}

// Unlock verifies a password for the page at slug. Every outcome on an
// existing password locked page is recorded, including rate limited ones.
// Missing pages and pages that are not password locked answer with the same
// ErrInvalidPassword as a wrong password.
func (s *ViewerService) Unlock(ctx context.Context, slug, password, ip, viewerID string) (UnlockResult, error) {
	row, err := s.findPublic(ctx, slug)
	if err != nil {
		return UnlockResult{}, err
	}

	in := evaluateInput(row)
	if access.Evaluate(in, s.Clock.Now()).State != access.PasswordLocked {
		burnCompare(password)
		return UnlockResult{}, types.ErrInvalidPassword
	}

	failures, err := s.Attempts.RecentFailures(ctx, row.ID, ip, s.Policy.Window)
	if err != nil {
		return UnlockResult{}, err
	}
	if failures >= int64(s.Policy.MaxAttempts) {
		if err := s.Attempts.Record(ctx, row.ID, ip, false); err != nil {
			s.Log.Warn().Err(err).Str("page", row.ID).Msg("failed to record password attempt")
		}
		metrics.PasswordAttempts.WithLabelValues("rate_limited").Inc()
		return UnlockResult{}, types.ErrRateLimited
	}

	hash, err := s.passwordHash(ctx, row.ID)
	if err != nil {
		return UnlockResult{}, fmt.Errorf("failed to load page: %w", err)
	}
	ok := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	if err := s.Attempts.Record(ctx, row.ID, ip, ok); err != nil {
		s.Log.Warn().Err(err).Str("page", row.ID).Msg("failed to record password attempt")
	}
	if !ok {
		metrics.PasswordAttempts.WithLabelValues("invalid").Inc()
		return UnlockResult{}, types.ErrInvalidPassword
	}
	metrics.PasswordAttempts.WithLabelValues("accepted").Inc()

	token, err := s.Unlocker.Issue(row.ID, access.Fingerprint(hash))
	if err != nil {
		return UnlockResult{}, fmt.Errorf("failed to issue unlock token: %w", err)
	}

	// the transition into visible counts once, here
	if viewerID != row.UserID {
		if err := s.countView(ctx, row); err != nil {
			s.Log.Warn().Err(err).Str("page", row.ID).Msg("failed to count view")
		}
	}

	page, err := project(row, access.Decision{State: access.Visible, Unlocked: true})
	if err != nil {
		return UnlockResult{}, err
	}
	return UnlockResult{Token: token, Page: page}, nil
}

func (s *ViewerService) countView(ctx context.Context, row *models.LovePagePublic) error {
	err := s.DB.WithContext(ctx).Model(&models.LovePage{}).Where("id = ?", row.ID).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
	if err != nil {
		return err
	}
	row.ViewCount++
	metrics.PageViews.Inc()
	return nil
}

func project(row *models.LovePagePublic, d access.Decision) (PublicPage, error) {
	page := PublicPage{State: d.State, Unlocked: d.Unlocked}
	switch d.State {
	case access.TimeLocked:
		page.Slug = row.Slug
		page.Title = row.Title
		page.UnlockAt = row.UnlockAt
	case access.PasswordLocked:
		page.Slug = row.Slug
		page.Title = row.Title
		page.IsPasswordProtected = true
	case access.Visible:
		var content document.Content
		if err := json.Unmarshal(row.Content.JSON, &content); err != nil {
			return PublicPage{}, fmt.Errorf("failed to decode page %s content: %w", row.ID, err)
		}
		content.Sections = document.VisibleSections(content.Sections)
		page.ID = row.ID
		page.Slug = row.Slug
		page.Title = row.Title
		page.IsPasswordProtected = row.IsPasswordProtected
		page.ViewCount = row.ViewCount
		page.Content = &content
	}
	return page, nil
}
