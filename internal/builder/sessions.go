// sessions.go
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

package builder

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/luvnest/internal/clock"
	"github.com/localnerve/luvnest/internal/document"
	"github.com/localnerve/luvnest/internal/metrics"
	"github.com/localnerve/luvnest/internal/quota"
	"github.com/localnerve/luvnest/internal/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Pages loads documents and persists them.
type Pages interface {
	Gateway
	Load(ctx context.Context, pageID, ownerID string) (*document.Document, error)
}

// Entitlements answers whether a user may open the builder.
type Entitlements interface {
	CheckCanCreate(ctx context.Context, userID string) (quota.CreateDecision, error)
	CheckCanEdit(ctx context.Context, userID, pageID string) (quota.EditDecision, error)
}

// Session is an open builder session.
type Session struct {
	ID       string    `json:"id"`
	OwnerID  string    `json:"-"`
	OpenedAt time.Time `json:"openedAt"`
	Store    *Store    `json:"-"`
}

// Sessions is the registry of open builder sessions.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session

	pages Pages
	guard Entitlements
	opts  StoreOptions
	clock clock.Clock
	log   zerolog.Logger
}

// NewSessions creates an empty registry. opts is applied to every store.
func NewSessions(pages Pages, guard Entitlements, opts StoreOptions) *Sessions {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Sessions{
		sessions: make(map[string]*Session),
		pages:    pages,
		guard:    guard,
		opts:     opts,
		clock:    opts.Clock,
		log:      opts.Log.With().Str("component", "sessions").Logger(),
	}
}

// Open starts a session for ownerID. An empty pageID starts a new page and
// needs a free template; an existing page needs an edit left. Denials are
// *types.LimitError.
func (r *Sessions) Open(ctx context.Context, ownerID, pageID string) (*Session, error) {
	var doc *document.Document
	if pageID == "" {
		d, err := r.guard.CheckCanCreate(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if !d.Allowed {
			return nil, d.LimitError()
		}
		doc = document.New()
	} else {
		d, err := r.guard.CheckCanEdit(ctx, ownerID, pageID)
		if err != nil {
			return nil, err
		}
		if !d.Allowed {
			return nil, d.LimitError()
		}
		if doc, err = r.pages.Load(ctx, pageID, ownerID); err != nil {
			return nil, err
		}
	}

	sess := &Session{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		OpenedAt: r.clock.Now(),
		Store:    NewStore(doc, ownerID, r.pages, r.opts),
	}

	r.mu.Lock()
	r.sessions[sess.ID] = sess
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.BuilderSessions.Set(float64(n))
	r.log.Info().Str("session", sess.ID).Str("user", ownerID).Str("page", pageID).Msg("builder session opened")
	return sess, nil
}

// Get returns the session id owned by ownerID. Sessions of other users read
// as not found.
func (r *Sessions) Get(ownerID, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok || sess.OwnerID != ownerID {
		return nil, types.ErrNotFound
	}
	return sess, nil
}

// Close ends a session. With flush the pending autosave is written first
// and a failed write keeps the session open; without it pending changes
// are dropped.
func (r *Sessions) Close(ctx context.Context, ownerID, id string, flush bool) error {
	sess, err := r.Get(ownerID, id)
	if err != nil {
		return err
	}
	if flush {
		if err := sess.Store.Flush(ctx); err != nil {
			return err
		}
	}
	r.remove(sess)
	return nil
}

func (r *Sessions) remove(sess *Session) {
	sess.Store.Close()

	r.mu.Lock()
	delete(r.sessions, sess.ID)
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.BuilderSessions.Set(float64(n))
	r.log.Info().Str("session", sess.ID).Msg("builder session closed")
}

func (r *Sessions) snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// EvictIdle flushes and closes sessions without activity for idle. It
// returns how many sessions were closed.
func (r *Sessions) EvictIdle(ctx context.Context, idle time.Duration) int {
	cutoff := r.clock.Now().Add(-idle)
	evicted := 0
	for _, sess := range r.snapshot() {
		if sess.Store.LastActivity().After(cutoff) {
			continue
		}
		if err := sess.Store.Flush(ctx); err != nil {
			r.log.Warn().Err(err).Str("session", sess.ID).Msg("evicting session with unsaved changes")
		}
		r.remove(sess)
		evicted++
	}
	return evicted
}

// CloseAll flushes and closes every session. Used on shutdown.
func (r *Sessions) CloseAll(ctx context.Context) error {
	var failed error
	for _, sess := range r.snapshot() {
		if err := sess.Store.Flush(ctx); err != nil && failed == nil {
			failed = errors.Wrapf(err, "session %s", sess.ID)
		}
		r.remove(sess)
	}
	return failed
}

// Len is the number of open sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
