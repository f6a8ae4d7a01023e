// guard.go
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

package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/localnerve/luvnest/internal/clock"
	"github.com/localnerve/luvnest/internal/models"
	"github.com/localnerve/luvnest/internal/types"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	kindTemplate = "template"
	kindEdit     = "edit"
)

// errReplayed rolls back a transaction whose idempotency key was already used.
var errReplayed = errors.New("idempotency key already consumed")

// Status is the plan usage summary shown on the dashboard and limit screen.
type Status struct {
	PlanType      string     `json:"planType"`
	TemplatesUsed int        `json:"templatesUsed"`
	MaxTemplates  int        `json:"maxTemplates"`
	Remaining     int        `json:"remaining"`
	Unlimited     bool       `json:"unlimited"`
	CanCreate     bool       `json:"canCreate"`
	PlanExpiresAt *time.Time `json:"planExpiresAt,omitempty"`
}

// CreateDecision is the answer to CheckCanCreate.
type CreateDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Status  Status `json:"status"`
}

// EditDecision is the answer to CheckCanEdit.
type EditDecision struct {
	Allowed   bool `json:"allowed"`
	EditCount int  `json:"editCount"`
	MaxEdits  int  `json:"maxEdits"`
	Remaining int  `json:"remaining"`
}

// Guard enforces template and edit limits. Counters move only through
// conditional updates, so concurrent requests cannot overshoot a limit.
type Guard struct {
	db    *gorm.DB
	clock clock.Clock
	log   zerolog.Logger
}

// NewGuard creates a guard over db.
func NewGuard(db *gorm.DB, clk clock.Clock, log zerolog.Logger) *Guard {
	return &Guard{db: db, clock: clk, log: log.With().Str("component", "quota").Logger()}
}

func (g *Guard) reader(ctx context.Context) *gorm.DB {
	return g.db.WithContext(ctx).Session(&gorm.Session{Logger: g.db.Logger.LogMode(logger.Silent)})
}

func (g *Guard) wallet(tx *gorm.DB, userID string) (models.Wallet, error) {
	var w models.Wallet
	res := tx.Where("user_id = ?", userID).Limit(1).Find(&w)
	if res.Error != nil {
		return w, res.Error
	}
	if res.RowsAffected == 0 {
		return models.Wallet{UserID: userID, PlanType: PlanFree}, nil
	}
	return w, nil
}

func (g *Guard) status(w models.Wallet) Status {
	p := effectivePlan(w.PlanType, w.PlanExpiresAt, g.clock.Now())
	s := Status{
		PlanType:      p.Type,
		TemplatesUsed: w.TemplatesUsed,
		MaxTemplates:  p.MaxTemplates,
		Unlimited:     p.MaxTemplates == Unlimited,
		PlanExpiresAt: w.PlanExpiresAt,
	}
	if s.Unlimited {
		s.CanCreate = true
		s.Remaining = Unlimited
		return s
	}
	s.Remaining = p.MaxTemplates - w.TemplatesUsed
	if s.Remaining < 0 {
		s.Remaining = 0
	}
	s.CanCreate = s.Remaining > 0
	return s
}

// Status reports the user's plan usage. Users without a wallet are on free.
func (g *Guard) Status(ctx context.Context, userID string) (Status, error) {
	w, err := g.wallet(g.reader(ctx), userID)
	if err != nil {
		return Status{}, fmt.Errorf("failed to load wallet: %w", err)
	}
	return g.status(w), nil
}

// CheckCanCreate reports whether userID may create another page.
func (g *Guard) CheckCanCreate(ctx context.Context, userID string) (CreateDecision, error) {
	s, err := g.Status(ctx, userID)
	if err != nil {
		return CreateDecision{}, err
	}
	d := CreateDecision{Allowed: s.CanCreate, Status: s}
	if !d.Allowed {
		if s.MaxTemplates == 0 {
			d.Reason = "No active plan. Purchase a plan to create love pages."
		} else {
			d.Reason = fmt.Sprintf("Template limit reached (%d of %d used).", s.TemplatesUsed, s.MaxTemplates)
		}
	}
	return d, nil
}

// CheckCanEdit reports whether pageID, owned by userID, has edits left.
func (g *Guard) CheckCanEdit(ctx context.Context, userID, pageID string) (EditDecision, error) {
	var page models.LovePage
	res := g.reader(ctx).Select("id", "edit_count").
		Where("id = ? AND user_id = ?", pageID, userID).Limit(1).Find(&page)
	if res.Error != nil {
		return EditDecision{}, fmt.Errorf("failed to load page: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return EditDecision{}, types.ErrNotFound
	}
	return editDecision(page.EditCount), nil
}

func editDecision(count int) EditDecision {
	d := EditDecision{EditCount: count, MaxEdits: MaxEdits, Remaining: MaxEdits - count}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	d.Allowed = count < MaxEdits
	return d
}

// LimitError builds the rejection returned when a create is not allowed.
func (d CreateDecision) LimitError() *types.LimitError {
	return &types.LimitError{
		Err:      types.ErrTemplateLimit,
		PlanType: d.Status.PlanType,
		Used:     d.Status.TemplatesUsed,
		Max:      d.Status.MaxTemplates,
	}
}

// LimitError builds the rejection returned when an edit is not allowed.
func (d EditDecision) LimitError() *types.LimitError {
	return &types.LimitError{Err: types.ErrEditLimit, EditCount: d.EditCount, MaxEdits: d.MaxEdits}
}

// IncrementTemplateCount consumes one template for userID. A non-empty key
// makes the call idempotent: a replay with the same key consumes nothing and
// reports consumed as false.
func (g *Guard) IncrementTemplateCount(ctx context.Context, userID, key string) (consumed bool, err error) {
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := g.claim(tx, kindTemplate, userID, nil, key); err != nil {
			return err
		}

		w, err := g.wallet(tx, userID)
		if err != nil {
			return err
		}
		if w.CreatedAt.IsZero() {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&w).Error; err != nil {
				return err
			}
		}

		s := g.status(w)
		q := tx.Model(&models.Wallet{}).Where("user_id = ?", userID)
		if !s.Unlimited {
			q = q.Where("templates_used < ?", s.MaxTemplates)
		}
		res := q.Update("templates_used", gorm.Expr("templates_used + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return CreateDecision{Status: s}.LimitError()
		}
		return nil
	})
	if errors.Is(err, errReplayed) {
		g.log.Debug().Str("user", userID).Str("key", key).Msg("template increment replayed")
		return false, nil
	}
	return err == nil, err
}

// ClaimedPage looks up a template consumption by key. found is false when
// the key was never used; pageID is empty while the create that claimed it
// has not finished.
func (g *Guard) ClaimedPage(ctx context.Context, userID, key string) (pageID string, found bool, err error) {
	if key == "" {
		return "", false, nil
	}
	var entry models.QuotaLedger
	res := g.reader(ctx).Where("idempotency_key = ?", ledgerKey(kindTemplate, userID, key)).Limit(1).Find(&entry)
	if res.Error != nil {
		return "", false, res.Error
	}
	if res.RowsAffected == 0 {
		return "", false, nil
	}
	if entry.PageID != nil {
		pageID = *entry.PageID
	}
	return pageID, true, nil
}

// BindPage attaches the created page to the template consumption under key.
func (g *Guard) BindPage(ctx context.Context, userID, key, pageID string) error {
	if key == "" {
		return nil
	}
	return g.db.WithContext(ctx).Model(&models.QuotaLedger{}).
		Where("idempotency_key = ?", ledgerKey(kindTemplate, userID, key)).
		Update("page_id", pageID).Error
}

// IncrementEditCount consumes one edit on pageID. Pages not owned by userID
// read as not found.
func (g *Guard) IncrementEditCount(ctx context.Context, userID, pageID, key string) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := g.claim(tx, kindEdit, userID, &pageID, key); err != nil {
			return err
		}

		res := tx.Model(&models.LovePage{}).
			Where("id = ? AND user_id = ? AND edit_count < ?", pageID, userID, MaxEdits).
			Update("edit_count", gorm.Expr("edit_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}

		var page models.LovePage
		found := tx.Select("id", "edit_count").Where("id = ? AND user_id = ?", pageID, userID).Limit(1).Find(&page)
		if found.Error != nil {
			return found.Error
		}
		if found.RowsAffected == 0 {
			return types.ErrNotFound
		}
		return editDecision(page.EditCount).LimitError()
	})
	if errors.Is(err, errReplayed) {
		g.log.Debug().Str("user", userID).Str("page", pageID).Str("key", key).Msg("edit increment replayed")
		return nil
	}
	return err
}

// claim records key in the ledger, returning errReplayed when it is already
// there. The unique index settles concurrent claims of the same key.
func (g *Guard) claim(tx *gorm.DB, kind, userID string, pageID *string, key string) error {
	if key == "" {
		return nil
	}
	scoped := ledgerKey(kind, userID, key)

	var n int64
	if err := tx.Model(&models.QuotaLedger{}).Where("idempotency_key = ?", scoped).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return errReplayed
	}

	entry := models.QuotaLedger{IdempotencyKey: scoped, UserID: userID, PageID: pageID, Kind: kind}
	if err := tx.Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errReplayed
		}
		return err
	}
	return nil
}

func ledgerKey(kind, userID, key string) string {
	return kind + ":" + userID + ":" + key
}

// ApplyPlan puts userID on planType, starting a fresh validity period with
// the template counter reset.
func (g *Guard) ApplyPlan(ctx context.Context, userID, planType string) (Status, error) {
	p, ok := LookupPlan(planType)
	if !ok {
		return Status{}, types.ValidationErrorf("unknown plan type %q", planType)
	}

	now := g.clock.Now()
	w := models.Wallet{UserID: userID, PlanType: p.Type}
	if p.Type != PlanFree {
		expires := now.Add(PlanValidity)
		w.PlanPurchasedAt = &now
		w.PlanExpiresAt = &expires
	}

	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"plan_type", "templates_used", "plan_purchased_at", "plan_expires_at", "updated_at"}),
	}).Create(&w).Error
	if err != nil {
		return Status{}, fmt.Errorf("failed to apply plan: %w", err)
	}

	g.log.Info().Str("user", userID).Str("plan", p.Type).Msg("plan applied")
	return g.status(w), nil
}
