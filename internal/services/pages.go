// pages.go
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
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/luvnest/internal/clock"
	"github.com/localnerve/luvnest/internal/document"
	"github.com/localnerve/luvnest/internal/models"
	"github.com/localnerve/luvnest/internal/quota"
	"github.com/localnerve/luvnest/internal/types"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/hints"
)

const slugAttempts = 5

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// ErrDuplicateRequest is returned when a create with the same idempotency
// key is still in progress.
var ErrDuplicateRequest = errors.New("request with this idempotency key is in progress")

// PageRef is the identity assigned to a page on creation.
type PageRef struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

// PageSummary is one row of the owner's dashboard listing.
type PageSummary struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	IsPublished bool      `json:"isPublished"`
	PrivacyMode string    `json:"privacyMode"`
	EditCount   int       `json:"editCount"`
	ViewCount   int64     `json:"viewCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Settings is the privacy settings update. Password is only read in
// password mode; an empty password keeps the stored hash.
type Settings struct {
	IsPublished bool       `json:"isPublished"`
	PrivacyMode string     `json:"privacyMode"`
	Password    string     `json:"password,omitempty"`
	UnlockAt    *time.Time `json:"unlockAt,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// PageService is the persistence gateway between documents and love_pages
// rows. Every write is scoped to the owner.
type PageService struct {
	DB    *gorm.DB
	Guard *quota.Guard
	Clock clock.Clock
	Log   zerolog.Logger
}

// NewPageService creates a PageService.
func NewPageService(db *gorm.DB, guard *quota.Guard, clk clock.Clock, log zerolog.Logger) *PageService {
	return &PageService{
		DB:    db,
		Guard: guard,
		Clock: clk,
		Log:   log.With().Str("component", "pages").Logger(),
	}
}

func (s *PageService) reader(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).Session(&gorm.Session{Logger: s.DB.Logger.LogMode(logger.Silent)})
}

// useIndex pins a read on love_pages to a named index. Only MySQL takes
// index hints in this form; other dialects get db back untouched.
func useIndex(db *gorm.DB, index string) *gorm.DB {
	if db.Dialector.Name() != "mysql" {
		return db
	}
	return db.Clauses(hints.UseIndex(index))
}

// Load reads the page for its owner. Absent rows and rows owned by someone
// else are both ErrNotFound.
func (s *PageService) Load(ctx context.Context, pageID, ownerID string) (*document.Document, error) {
	var row models.LovePage
	res := s.reader(ctx).Where("id = ? AND user_id = ?", pageID, ownerID).Limit(1).Find(&row)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to load page: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, types.ErrNotFound
	}
	return toDocument(row)
}

func toDocument(row models.LovePage) (*document.Document, error) {
	var content document.Content
	if err := json.Unmarshal(row.Content.JSON, &content); err != nil {
		return nil, fmt.Errorf("failed to decode page %s content: %w", row.ID, err)
	}
	mode, err := document.ParsePrivacyMode(row.PrivacyMode)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", row.ID, err)
	}
	if content.Sections == nil {
		content.Sections = []document.Section{}
	}
	return &document.Document{
		ID:          row.ID,
		Slug:        row.Slug,
		Title:       row.Title,
		Content:     content,
		IsPublished: row.IsPublished,
		PrivacyMode: mode,
		UnlockAt:    row.UnlockAt,
		ExpiresAt:   row.ExpiresAt,
	}, nil
}

func encodeContent(doc *document.Document) (models.JSON, error) {
	if err := doc.Content.Validate(); err != nil {
		return models.JSON{}, err
	}
	b, err := json.Marshal(doc.Content)
	if err != nil {
		return models.JSON{}, fmt.Errorf("failed to encode content: %w", err)
	}
	return models.NewJSON(b), nil
}

// Create inserts a new, published, public page. The template increment runs
// first as its own step; if the insert then fails the consumed template is
// not returned. A replay of key answers with the page the first call made.
func (s *PageService) Create(ctx context.Context, doc *document.Document, ownerID, key string) (PageRef, error) {
	if ref, done, err := s.replayedCreate(ctx, ownerID, key); done {
		return ref, err
	}

	content, err := encodeContent(doc)
	if err != nil {
		return PageRef{}, err
	}

	decision, err := s.Guard.CheckCanCreate(ctx, ownerID)
	if err != nil {
		return PageRef{}, err
	}
	if !decision.Allowed {
		return PageRef{}, decision.LimitError()
	}

	consumed, err := s.Guard.IncrementTemplateCount(ctx, ownerID, key)
	if err != nil {
		return PageRef{}, err
	}
	if !consumed {
		ref, _, err := s.replayedCreate(ctx, ownerID, key)
		return ref, err
	}

	row := models.LovePage{
		ID:          uuid.NewString(),
		UserID:      ownerID,
		Title:       document.NormalizeTitle(doc.Title),
		Content:     content,
		IsPublished: true,
		PrivacyMode: string(document.PrivacyPublic),
		EditCount:   1,
	}
	for attempt := 0; ; attempt++ {
		row.Slug = document.NewSlug()
		err = s.DB.WithContext(ctx).Create(&row).Error
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt+1 >= slugAttempts {
			s.Log.Error().Err(err).Str("user", ownerID).Msg("page insert failed after template was consumed")
			return PageRef{}, fmt.Errorf("failed to create page: %w", err)
		}
	}

	if err := s.Guard.BindPage(ctx, ownerID, key, row.ID); err != nil {
		s.Log.Warn().Err(err).Str("page", row.ID).Msg("failed to bind page to idempotency key")
	}

	s.Log.Info().Str("page", row.ID).Str("slug", row.Slug).Str("user", ownerID).Msg("page created")
	return PageRef{ID: row.ID, Slug: row.Slug}, nil
}

// replayedCreate resolves a create whose key was already consumed. done is
// false when the key is new.
func (s *PageService) replayedCreate(ctx context.Context, ownerID, key string) (ref PageRef, done bool, err error) {
	pageID, found, err := s.Guard.ClaimedPage(ctx, ownerID, key)
	if err != nil {
		return PageRef{}, true, err
	}
	if !found {
		return PageRef{}, false, nil
	}
	if pageID == "" {
		return PageRef{}, true, ErrDuplicateRequest
	}
	var row models.LovePage
	res := s.reader(ctx).Select("id", "slug").Where("id = ? AND user_id = ?", pageID, ownerID).Limit(1).Find(&row)
	if res.Error != nil {
		return PageRef{}, true, res.Error
	}
	if res.RowsAffected == 0 {
		return PageRef{}, true, types.ErrNotFound
	}
	return PageRef{ID: row.ID, Slug: row.Slug}, true, nil
}

// Save is the explicit save: it consumes an edit and then writes title and
// content. Access control columns are never touched here.
func (s *PageService) Save(ctx context.Context, pageID string, doc *document.Document, ownerID, key string) error {
	content, err := encodeContent(doc)
	if err != nil {
		return err
	}
	if err := s.Guard.IncrementEditCount(ctx, ownerID, pageID, key); err != nil {
		return err
	}
	return s.writeContent(ctx, s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", pageID, ownerID), doc, content)
}

// Autosave writes title and content without consuming an edit. Pages at
// their edit limit reject it.
func (s *PageService) Autosave(ctx context.Context, pageID string, doc *document.Document, ownerID string) error {
	content, err := encodeContent(doc)
	if err != nil {
		return err
	}

	q := s.DB.WithContext(ctx).Where("id = ? AND user_id = ? AND edit_count < ?", pageID, ownerID, quota.MaxEdits)
	err = s.writeContent(ctx, q, doc, content)
	if !errors.Is(err, types.ErrNotFound) {
		return err
	}

	decision, err := s.Guard.CheckCanEdit(ctx, ownerID, pageID)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return decision.LimitError()
	}
	return nil
}

func (s *PageService) writeContent(ctx context.Context, q *gorm.DB, doc *document.Document, content models.JSON) error {
	res := q.Model(&models.LovePage{}).Updates(map[string]interface{}{
		"title":   document.NormalizeTitle(doc.Title),
		"content": content,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to save page: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}

// Persist forks between Create for unsaved documents and Save for persisted
// ones.
func (s *PageService) Persist(ctx context.Context, doc *document.Document, ownerID, key string) (PageRef, error) {
	if !doc.Persisted() {
		return s.Create(ctx, doc, ownerID, key)
	}
	if err := s.Save(ctx, doc.ID, doc, ownerID, key); err != nil {
		return PageRef{}, err
	}
	return PageRef{ID: doc.ID, Slug: doc.Slug}, nil
}

// UpdateSettings is the separate privacy path. Unlock time is kept only in
// time-locked mode and the password hash only in password mode.
func (s *PageService) UpdateSettings(ctx context.Context, pageID, ownerID string, in Settings) (*document.Document, error) {
	mode, err := document.ParsePrivacyMode(in.PrivacyMode)
	if err != nil {
		return nil, err
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, types.ValidationErrorf("password must be at most %d bytes", maxPasswordBytes)
	}

	var row models.LovePage
	res := s.reader(ctx).Select("id", "password_hash").Where("id = ? AND user_id = ?", pageID, ownerID).Limit(1).Find(&row)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to load page: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, types.ErrNotFound
	}

	updates := map[string]interface{}{
		"is_published":  in.IsPublished,
		"privacy_mode":  string(mode),
		"unlock_at":     nil,
		"expires_at":    in.ExpiresAt,
		"password_hash": nil,
	}

	switch mode {
	case document.PrivacyTimeLocked:
		if in.UnlockAt == nil {
			return nil, types.ValidationErrorf("time-locked pages need an unlock time")
		}
		updates["unlock_at"] = in.UnlockAt
	case document.PrivacyPassword:
		switch {
		case in.Password != "":
			hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("failed to hash password: %w", err)
			}
			updates["password_hash"] = string(hash)
		case row.PasswordHash != nil && *row.PasswordHash != "":
			updates["password_hash"] = *row.PasswordHash
		default:
			return nil, types.ValidationErrorf("password protected pages need a password")
		}
	}

	if err := s.DB.WithContext(ctx).Model(&models.LovePage{}).
		Where("id = ? AND user_id = ?", pageID, ownerID).
		Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	s.Log.Info().Str("page", pageID).Str("mode", string(mode)).Bool("published", in.IsPublished).Msg("page settings updated")
	return s.Load(ctx, pageID, ownerID)
}

// List returns the owner's pages, most recently updated first.
func (s *PageService) List(ctx context.Context, ownerID string) ([]PageSummary, error) {
	var rows []models.LovePage
	err := useIndex(s.reader(ctx), models.LovePagesOwnerIndex).
		Select("id", "slug", "title", "is_published", "privacy_mode", "edit_count", "view_count", "created_at", "updated_at").
		Where("user_id = ?", ownerID).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	out := make([]PageSummary, len(rows))
	for i, r := range rows {
		mode, _ := document.ParsePrivacyMode(r.PrivacyMode)
		out[i] = PageSummary{
			ID:          r.ID,
			Slug:        r.Slug,
			Title:       r.Title,
			IsPublished: r.IsPublished,
			PrivacyMode: string(mode),
			EditCount:   r.EditCount,
			ViewCount:   r.ViewCount,
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		}
	}
	return out, nil
}
