// pages_test.go
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
	"testing"
	"time"

	"github.com/localnerve/luvnest/internal/clock"
	"github.com/localnerve/luvnest/internal/document"
	"github.com/localnerve/luvnest/internal/models"
	"github.com/localnerve/luvnest/internal/quota"
	"github.com/localnerve/luvnest/internal/testutil"
	"github.com/localnerve/luvnest/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newPages(t *testing.T) (*PageService, *gorm.DB, *clock.Mock) {
	t.Helper()
	db := testutil.NewDB(t)
	clk := clock.NewMock()
	guard := quota.NewGuard(db, clk, zerolog.Nop())
	return NewPageService(db, guard, clk, zerolog.Nop()), db, clk
}

func grantPlan(t *testing.T, s *PageService, userID, plan string) {
	t.Helper()
	_, err := s.Guard.ApplyPlan(context.Background(), userID, plan)
	require.NoError(t, err)
}

func heroDoc(t *testing.T, title string) *document.Document {
	t.Helper()
	doc := document.New()
	doc.Title = title
	sections, _, err := document.AddSection(doc.Content.Sections, document.TypeHero)
	require.NoError(t, err)
	sections, _, err = document.AddSection(sections, document.TypeLoveLetter)
	require.NoError(t, err)
	doc.Content.Sections = sections
	return doc
}

func TestCreateRequiresTemplate(t *testing.T) {
	s, db, _ := newPages(t)

	_, err := s.Create(context.Background(), heroDoc(t, "Us"), "u1", "k1")
	var le *types.LimitError
	require.True(t, errors.As(err, &le), "got %v", err)
	assert.ErrorIs(t, err, types.ErrTemplateLimit)
	assert.Equal(t, quota.PlanFree, le.PlanType)

	var n int64
	db.Model(&models.LovePage{}).Count(&n)
	assert.Zero(t, n)
}

func TestCreateAndLoad(t *testing.T) {
	s, db, _ := newPages(t)
	ctx := context.Background()
	grantPlan(t, s, "u1", quota.PlanFirstCrush)

	doc := heroDoc(t, "  Our Story  ")
	ref, err := s.Create(ctx, doc, "u1", "k1")
	require.NoError(t, err)
	assert.NotEmpty(t, ref.ID)
	assert.Len(t, ref.Slug, document.SlugLength)

	loaded, err := s.Load(ctx, ref.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Our Story", loaded.Title)
	assert.Equal(t, ref.Slug, loaded.Slug)
	assert.True(t, loaded.IsPublished)
	assert.Equal(t, document.PrivacyPublic, loaded.PrivacyMode)
	require.Len(t, loaded.Content.Sections, 2)
	assert.Equal(t, document.TypeHero, loaded.Content.Sections[0].Type)
	assert.Equal(t, doc.Content.Sections[1].ID, loaded.Content.Sections[1].ID)

	var row models.LovePage
	require.NoError(t, db.First(&row, "id = ?", ref.ID).Error)
	assert.Equal(t, 1, row.EditCount, "creation is the first edit")

	_, err = s.Load(ctx, ref.ID, "someone-else")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCreateReplayReturnsSamePage(t *testing.T) {
	s, db, _ := newPages(t)
	ctx := context.Background()
	grantPlan(t, s, "u1", quota.PlanFirstCrush)

	first, err := s.Create(ctx, heroDoc(t, "Us"), "u1", "same-key")
	require.NoError(t, err)
	second, err := s.Create(ctx, heroDoc(t, "Us again"), "u1", "same-key")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var pages int64
	db.Model(&models.LovePage{}).Count(&pages)
	assert.EqualValues(t, 1, pages)

	status, err := s.Guard.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, status.TemplatesUsed)
}

func TestCreateRejectsInvalidContent(t *testing.T) {
	s, db, _ := newPages(t)
	grantPlan(t, s, "u1", quota.PlanFirstCrush)

	doc := heroDoc(t, "Us")
	doc.Content.Sections[1].Order = 7

	_, err := s.Create(context.Background(), doc, "u1", "k1")
	assert.ErrorIs(t, err, types.ErrValidation)

	var ledger int64
	db.Model(&models.QuotaLedger{}).Count(&ledger)
	assert.Zero(t, ledger, "invalid content consumes nothing")
}

func TestSaveConsumesEdits(t *testing.T) {
	s, db, _ := newPages(t)
	ctx := context.Background()
	grantPlan(t, s, "u1", quota.PlanFirstCrush)

	doc := heroDoc(t, "v1")
	ref, err := s.Create(ctx, doc, "u1", "create")
	require.NoError(t, err)
	doc.ID, doc.Slug = ref.ID, ref.Slug

	doc.Title = "v2"
	require.NoError(t, s.Save(ctx, ref.ID, doc, "u1", "save-2"))
	// replayed key writes again without another edit
	require.NoError(t, s.Save(ctx, ref.ID, doc, "u1", "save-2"))
	doc.Title = "v3"
	require.NoError(t, s.Save(ctx, ref.ID, doc, "u1", "save-3"))

	doc.Title = "v4"
	err = s.Save(ctx, ref.ID, doc, "u1", "save-4")
	var le *types.LimitError
	require.True(t, errors.As(err, &le), "got %v", err)
	assert.ErrorIs(t, err, types.ErrEditLimit)
	assert.Equal(t, quota.MaxEdits, le.EditCount)

	var row models.LovePage
	require.NoError(t, db.First(&row, "id = ?", ref.ID).Error)
	assert.Equal(t, "v3", row.Title)
	assert.Equal(t, quota.MaxEdits, row.EditCount)

	err = s.Save(ctx, ref.ID, doc, "intruder", "save-x")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestAutosaveDoesNotConsumeEdits(t *testing.T) {
	s, db, _ := newPages(t)
	ctx := context.Background()
	grantPlan(t, s, "u1", quota.PlanFirstCrush)

	doc := heroDoc(t, "draft")
	ref, err := s.Create(ctx, doc, "u1", "create")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		doc.Title = "draft again"
		require.NoError(t, s.Autosave(ctx, ref.ID, doc, "u1"))
	}

	var row models.LovePage
	require.NoError(t, db.First(&row, "id = ?", ref.ID).Error)
	assert.Equal(t, 1, row.EditCount)
	assert.Equal(t, "draft again", row.Title)

	require.NoError(t, db.Model(&row).Update("edit_count", quota.MaxEdits).Error)
	err = s.Autosave(ctx, ref.ID, doc, "u1")
	assert.ErrorIs(t, err, types.ErrEditLimit)

	err = s.Autosave(ctx, "missing", doc, "u1")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSaveLeavesAccessColumnsAlone(t *testing.T) {
	s, db, _ := newPages(t)
	ctx := context.Background()
	grantPlan(t, s, "u1", quota.PlanTrueLove)

	doc := heroDoc(t, "secret")
	ref, err := s.Create(ctx, doc, "u1", "create")
	require.NoError(t, err)
	_, err = s.UpdateSettings(ctx, ref.ID, "u1", Settings{IsPublished: false, PrivacyMode: "password", Password: "hunter2"})
	require.NoError(t, err)

	doc.ID = ref.ID
	doc.IsPublished = true
	doc.PrivacyMode = document.PrivacyPublic
	require.NoError(t, s.Autosave(ctx, ref.ID, doc, "u1"))

	var row models.LovePage
	require.NoError(t, db.First(&row, "id = ?", ref.ID).Error)
	assert.False(t, row.IsPublished)
	assert.Equal(t, "password", row.PrivacyMode)
	require.NotNil(t, row.PasswordHash)
}

func TestPersistForks(t *testing.T) {
	s, _, _ := newPages(t)
	ctx := context.Background()
	grantPlan(t, s, "u1", quota.PlanFirstCrush)

	doc := heroDoc(t, "fork")
	ref, err := s.Persist(ctx, doc, "u1", "k1")
	require.NoError(t, err)

	doc.ID, doc.Slug = ref.ID, ref.Slug
	doc.Title = "forked"
	again, err := s.Persist(ctx, doc, "u1", "k2")
	require.NoError(t, err)
	assert.Equal(t, ref, again)

	loaded, err := s.Load(ctx, ref.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "forked", loaded.Title)
}

func TestUpdateSettings(t *testing.T) {
	s, db, clk := newPages(t)
	ctx := context.Background()
	grantPlan(t, s, "u1", quota.PlanFirstCrush)

	ref, err := s.Create(ctx, heroDoc(t, "locked"), "u1", "k1")
	require.NoError(t, err)

	_, err = s.UpdateSettings(ctx, ref.ID, "u1", Settings{IsPublished: true, PrivacyMode: "time-locked"})
	assert.ErrorIs(t, err, types.ErrValidation)

	unlockAt := clk.Now().Add(48 * time.Hour)
	doc, err := s.UpdateSettings(ctx, ref.ID, "u1", Settings{IsPublished: true, PrivacyMode: "time-locked", UnlockAt: &unlockAt})
	require.NoError(t, err)
	assert.Equal(t, document.PrivacyTimeLocked, doc.PrivacyMode)
	require.NotNil(t, doc.UnlockAt)
	assert.True(t, doc.UnlockAt.Equal(unlockAt))

	_, err = s.UpdateSettings(ctx, ref.ID, "u1", Settings{IsPublished: true, PrivacyMode: "password"})
	assert.ErrorIs(t, err, types.ErrValidation, "password mode needs a password")

	doc, err = s.UpdateSettings(ctx, ref.ID, "u1", Settings{IsPublished: true, PrivacyMode: "password", Password: "roses"})
	require.NoError(t, err)
	assert.Nil(t, doc.UnlockAt, "unlock time only applies to time-locked pages")

	var row models.LovePage
	require.NoError(t, db.First(&row, "id = ?", ref.ID).Error)
	require.NotNil(t, row.PasswordHash)
	firstHash := *row.PasswordHash
	assert.NotEqual(t, "roses", firstHash)

	// keeps the hash when no new password is given
	_, err = s.UpdateSettings(ctx, ref.ID, "u1", Settings{IsPublished: false, PrivacyMode: "password"})
	require.NoError(t, err)
	require.NoError(t, db.First(&row, "id = ?", ref.ID).Error)
	require.NotNil(t, row.PasswordHash)
	assert.Equal(t, firstHash, *row.PasswordHash)

	_, err = s.UpdateSettings(ctx, ref.ID, "u1", Settings{IsPublished: true, PrivacyMode: "public"})
	require.NoError(t, err)
	row = models.LovePage{}
	require.NoError(t, db.First(&row, "id = ?", ref.ID).Error)
	assert.Nil(t, row.PasswordHash)

	_, err = s.UpdateSettings(ctx, ref.ID, "u1", Settings{PrivacyMode: "secret-club"})
	assert.Error(t, err)

	_, err = s.UpdateSettings(ctx, ref.ID, "u2", Settings{PrivacyMode: "public"})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestListOrdersByUpdate(t *testing.T) {
	s, db, clk := newPages(t)
	ctx := context.Background()
	grantPlan(t, s, "u1", quota.PlanTrueLove)
	grantPlan(t, s, "u2", quota.PlanTrueLove)

	older, err := s.Create(ctx, heroDoc(t, "older"), "u1", "a")
	require.NoError(t, err)
	newer, err := s.Create(ctx, heroDoc(t, "newer"), "u1", "b")
	require.NoError(t, err)
	_, err = s.Create(ctx, heroDoc(t, "not mine"), "u2", "c")
	require.NoError(t, err)

	touch := func(id string, at time.Time) {
		require.NoError(t, db.Model(&models.LovePage{}).Where("id = ?", id).UpdateColumn("updated_at", at).Error)
	}
	touch(newer.ID, clk.Now())
	touch(older.ID, clk.Now().Add(time.Hour))

	list, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, older.ID, list[0].ID)
	assert.Equal(t, "newer", list[1].Title)

	b, err := json.Marshal(list[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), `"privacyMode":"public"`)
}

func TestUseIndexOnlyOnMySQL(t *testing.T) {
	my, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "luvnest:luvnest@tcp(127.0.0.1:3306)/luvnest",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	var rows []models.LovePage
	stmt := useIndex(my, models.LovePagesOwnerIndex).Where("user_id = ?", "u1").Find(&rows).Statement
	assert.Contains(t, stmt.SQL.String(), "USE INDEX (`idx_love_pages_user_id`)")

	lite := testutil.NewDB(t)
	stmt = useIndex(lite.Session(&gorm.Session{DryRun: true}), models.LovePagesOwnerIndex).
		Where("user_id = ?", "u1").Find(&rows).Statement
	assert.NotContains(t, stmt.SQL.String(), "INDEX")
}
