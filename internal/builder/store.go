// store.go
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

// Package builder holds in-editing love pages. Each builder session owns a
// Store that applies section operations and autosaves the document a short
// while after the last change.
package builder

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/localnerve/luvnest/internal/clock"
	"github.com/localnerve/luvnest/internal/document"
	"github.com/localnerve/luvnest/internal/metrics"
	"github.com/localnerve/luvnest/internal/services"
	"github.com/localnerve/luvnest/internal/theme"
	"github.com/localnerve/luvnest/internal/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultWindow is the autosave quiescence window.
const DefaultWindow = 2 * time.Second

// autosaveTimeout bounds a write started by the timer.
const autosaveTimeout = 15 * time.Second

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("builder session is closed")

// errUnchanged marks a mutation that found nothing to change. mutate
// swallows it so stale section ids from the UI cost nothing.
var errUnchanged = errors.New("document unchanged")

// Gateway is the persistence a Store writes through.
type Gateway interface {
	Persist(ctx context.Context, doc *document.Document, ownerID, key string) (services.PageRef, error)
	Autosave(ctx context.Context, pageID string, doc *document.Document, ownerID string) error
}

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemScheduler schedules on real timers.
var SystemScheduler Scheduler = systemScheduler{}

// WriteState is the pending write state of a Store.
type WriteState string

const (
	Idle     WriteState = "idle"
	Dirty    WriteState = "dirty"
	InFlight WriteState = "in-flight"
	Failed   WriteState = "failed"
)

// Status is the save state shown next to the editor.
type Status struct {
	State          WriteState `json:"state"`
	UnsavedChanges bool       `json:"unsavedChanges"`
	LimitReached   bool       `json:"limitReached"`
	LastError      string     `json:"lastError,omitempty"`
	LastSavedAt    *time.Time `json:"lastSavedAt,omitempty"`
}

// Store is the editing state of one document. Mutations are applied in
// memory and written back either by the autosave timer or by Save.
type Store struct {
	// mu guards the fields below; saveMu serializes writes to the gateway
	// and is always taken before mu.
	mu     sync.Mutex
	saveMu sync.Mutex

	doc     *document.Document
	ownerID string

	gateway Gateway
	sched   Scheduler
	window  time.Duration
	clock   clock.Clock
	log     zerolog.Logger

	state        WriteState
	generation   uint64
	savedGen     uint64
	timer        Timer
	lastErr      error
	limitReached bool
	lastSavedAt  *time.Time
	lastActivity time.Time
	closed       bool
}

// StoreOptions configures a Store.
type StoreOptions struct {
	Window    time.Duration
	Scheduler Scheduler
	Clock     clock.Clock
	Log       zerolog.Logger
}

// NewStore creates a Store editing doc on behalf of ownerID.
func NewStore(doc *document.Document, ownerID string, gateway Gateway, opts StoreOptions) *Store {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Scheduler == nil {
		opts.Scheduler = SystemScheduler
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if doc.Content.Sections == nil {
		doc.Content.Sections = []document.Section{}
	}
	return &Store{
		doc:          doc,
		ownerID:      ownerID,
		gateway:      gateway,
		sched:        opts.Scheduler,
		window:       opts.Window,
		clock:        opts.Clock,
		log:          opts.Log.With().Str("component", "builder").Str("page", doc.ID).Logger(),
		state:        Idle,
		lastActivity: opts.Clock.Now(),
	}
}

// Document returns a copy of the document being edited.
func (s *Store) Document() *document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// OwnerID returns the user editing the document.
func (s *Store) OwnerID() string {
	return s.ownerID
}

// Status reports the pending write state.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Store) statusLocked() Status {
	st := Status{
		State:          s.state,
		UnsavedChanges: s.generation != s.savedGen,
		LimitReached:   s.limitReached,
		LastSavedAt:    s.lastSavedAt,
	}
	if s.state == Failed && s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// LastActivity is the time of the last mutation or save.
func (s *Store) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// mutate applies fn to the document and schedules the autosave.
func (s *Store) mutate(fn func(doc *document.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := fn(s.doc); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}

	s.generation++
	s.lastActivity = s.clock.Now()
	if s.state != InFlight {
		s.state = Dirty
	}
	s.scheduleLocked()
	return nil
}

// scheduleLocked restarts the quiescence window. Unsaved documents have
// nothing to autosave into.
func (s *Store) scheduleLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.closed || !s.doc.Persisted() {
		return
	}
	s.timer = s.sched.AfterFunc(s.window, s.autosave)
}

func (s *Store) autosave() {
	ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
	defer cancel()
	// failures are kept in the status
	_ = s.Flush(ctx)
}

// Flush writes the pending changes now. It is a no-op for clean, closed or
// unsaved documents.
func (s *Store) Flush(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.closed || !s.doc.Persisted() || s.generation == s.savedGen {
		s.mu.Unlock()
		return nil
	}
	snapshot := s.doc.Clone()
	gen := s.generation
	s.state = InFlight
	s.mu.Unlock()

	err := s.gateway.Autosave(ctx, snapshot.ID, snapshot, s.ownerID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishLocked(gen, err)
	if err != nil {
		metrics.Autosaves.WithLabelValues(resultLabel(err)).Inc()
		s.log.Error().Err(err).Uint64("generation", gen).Msg("autosave failed")
		return errors.Wrap(err, "autosave failed")
	}
	metrics.Autosaves.WithLabelValues("ok").Inc()
	s.log.Debug().Uint64("generation", gen).Msg("autosaved")
	return nil
}

// Save is the explicit save. Unsaved documents are created and adopt the
// identity the gateway assigns; persisted ones consume an edit.
func (s *Store) Save(ctx context.Context, idempotencyKey string) (services.PageRef, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return services.PageRef{}, ErrClosed
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	snapshot := s.doc.Clone()
	gen := s.generation
	s.state = InFlight
	s.mu.Unlock()

	ref, err := s.gateway.Persist(ctx, snapshot, s.ownerID, idempotencyKey)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil && !s.doc.Persisted() {
		s.doc.ID = ref.ID
		s.doc.Slug = ref.Slug
		s.log = s.log.With().Str("page", ref.ID).Logger()
	}
	s.finishLocked(gen, err)
	if err != nil {
		s.log.Error().Err(err).Msg("save failed")
		return services.PageRef{}, errors.Wrap(err, "save failed")
	}
	s.log.Info().Str("slug", ref.Slug).Msg("page saved")
	return ref, nil
}

func (s *Store) finishLocked(gen uint64, err error) {
	s.lastActivity = s.clock.Now()
	if err != nil {
		s.state = Failed
		s.lastErr = err
		if errors.Is(err, types.ErrEditLimit) || errors.Is(err, types.ErrTemplateLimit) {
			s.limitReached = true
		}
		return
	}

	if gen > s.savedGen {
		s.savedGen = gen
	}
	now := s.clock.Now()
	s.lastSavedAt = &now
	s.lastErr = nil
	if s.generation == s.savedGen {
		s.state = Idle
		return
	}
	// changed while the write was in flight
	s.state = Dirty
	if s.timer == nil {
		s.scheduleLocked()
	}
}

func resultLabel(err error) string {
	if errors.Is(err, types.ErrEditLimit) {
		return "limit"
	}
	return "failed"
}

// Close abandons the store. A pending autosave is dropped; callers that
// want it written call Flush first.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.generation != s.savedGen {
		s.log.Warn().Uint64("generation", s.generation).Msg("closing with unsaved changes")
	}
}

// AddSection appends a section of type t with its default data.
func (s *Store) AddSection(t document.SectionType) (document.Section, error) {
	var added document.Section
	err := s.mutate(func(doc *document.Document) error {
		sections, sec, err := document.AddSection(doc.Content.Sections, t)
		if err != nil {
			return err
		}
		doc.Content.Sections = sections
		added = sec
		return nil
	})
	return added, err
}

// RemoveSection deletes the section with id. Unknown ids are ignored.
func (s *Store) RemoveSection(id string) error {
	return s.mutate(func(doc *document.Document) error {
		if document.IndexOf(doc.Content.Sections, id) < 0 {
			return errUnchanged
		}
		doc.Content.Sections = document.RemoveSection(doc.Content.Sections, id)
		return nil
	})
}

// UpdateSection merges partial into the data of the section with id.
func (s *Store) UpdateSection(id string, partial map[string]json.RawMessage) error {
	return s.mutate(func(doc *document.Document) error {
		if document.IndexOf(doc.Content.Sections, id) < 0 {
			return errUnchanged
		}
		sections, err := document.UpdateSection(doc.Content.Sections, id, partial)
		if err != nil {
			return err
		}
		doc.Content.Sections = sections
		return nil
	})
}

// ToggleVisibility flips the visible flag of the section with id.
func (s *Store) ToggleVisibility(id string) error {
	return s.mutate(func(doc *document.Document) error {
		if document.IndexOf(doc.Content.Sections, id) < 0 {
			return errUnchanged
		}
		doc.Content.Sections = document.ToggleVisibility(doc.Content.Sections, id)
		return nil
	})
}

// ReorderSections moves activeID to the position of overID.
func (s *Store) ReorderSections(activeID, overID string) error {
	return s.mutate(func(doc *document.Document) error {
		if document.IndexOf(doc.Content.Sections, activeID) < 0 || document.IndexOf(doc.Content.Sections, overID) < 0 {
			return errUnchanged
		}
		doc.Content.Sections = document.ReorderSections(doc.Content.Sections, activeID, overID)
		return nil
	})
}

// SetTitle renames the page.
func (s *Store) SetTitle(title string) error {
	return s.mutate(func(doc *document.Document) error {
		doc.Title = document.NormalizeTitle(title)
		return nil
	})
}

// SetTheme switches the theme preset.
func (s *Store) SetTheme(slug string) error {
	return s.mutate(func(doc *document.Document) error {
		if !theme.Known(slug) {
			return types.ValidationErrorf("unknown theme %q", slug)
		}
		doc.Content.ThemeSlug = slug
		return nil
	})
}
