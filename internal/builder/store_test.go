package builder

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/localnerve/luvnest/internal/clock"
	"github.com/localnerve/luvnest/internal/document"
	"github.com/localnerve/luvnest/internal/quota"
	"github.com/localnerve/luvnest/internal/services"
	"github.com/localnerve/luvnest/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScheduler keeps scheduled calls until the test fires them.
type fakeScheduler struct {
	mu      sync.Mutex
	pending []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	s.pending = append(s.pending, t)
	return t
}

// active returns the timers not stopped yet.
func (s *fakeScheduler) active() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeTimer
	for _, t := range s.pending {
		if !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

// fire runs every live timer.
func (s *fakeScheduler) fire() int {
	timers := s.active()
	for _, t := range timers {
		t.stopped = true
		t.f()
	}
	return len(timers)
}

// fakeGateway records writes.
type fakeGateway struct {
	mu        sync.Mutex
	autosaves []*document.Document
	persists  []*document.Document
	keys      []string
	err       error
	block     chan struct{}
	started   chan struct{}
}

func (g *fakeGateway) Persist(_ context.Context, doc *document.Document, _, key string) (services.PageRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return services.PageRef{}, g.err
	}
	g.persists = append(g.persists, doc)
	g.keys = append(g.keys, key)
	if doc.Persisted() {
		return services.PageRef{ID: doc.ID, Slug: doc.Slug}, nil
	}
	return services.PageRef{ID: "page-1", Slug: "abcdefghij"}, nil
}

func (g *fakeGateway) Autosave(_ context.Context, _ string, doc *document.Document, _ string) error {
	if g.block != nil {
		g.started <- struct{}{}
		<-g.block
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.autosaves = append(g.autosaves, doc)
	return nil
}

func (g *fakeGateway) autosaveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.autosaves)
}

func persistedDoc() *document.Document {
	doc := document.New()
	doc.ID = "page-1"
	doc.Slug = "abcdefghij"
	return doc
}

func newTestStore(doc *document.Document) (*Store, *fakeGateway, *fakeScheduler) {
	gw := &fakeGateway{}
	sched := &fakeScheduler{}
	s := NewStore(doc, "u1", gw, StoreOptions{
		Window:    2 * time.Second,
		Scheduler: sched,
		Clock:     clock.NewMock(),
		Log:       zerolog.Nop(),
	})
	return s, gw, sched
}

func TestDebouncedAutosave(t *testing.T) {
	s, gw, sched := newTestStore(persistedDoc())

	_, err := s.AddSection(document.TypeHero)
	require.NoError(t, err)
	require.NoError(t, s.SetTitle("Ours"))
	_, err = s.AddSection(document.TypeTimeline)
	require.NoError(t, err)

	assert.Equal(t, Dirty, s.Status().State)
	assert.True(t, s.Status().UnsavedChanges)
	timers := sched.active()
	require.Len(t, timers, 1, "each change restarts the window")
	assert.Equal(t, 2*time.Second, timers[0].d)
	assert.Zero(t, gw.autosaveCount())

	assert.Equal(t, 1, sched.fire())
	require.Equal(t, 1, gw.autosaveCount())
	saved := gw.autosaves[0]
	assert.Equal(t, "Ours", saved.Title)
	assert.Len(t, saved.Content.Sections, 2)

	st := s.Status()
	assert.Equal(t, Idle, st.State)
	assert.False(t, st.UnsavedChanges)
	assert.NotNil(t, st.LastSavedAt)

	assert.Zero(t, sched.fire(), "nothing pending once saved")
}

func TestUnsavedDocumentDoesNotAutosave(t *testing.T) {
	s, gw, sched := newTestStore(document.New())

	_, err := s.AddSection(document.TypeHero)
	require.NoError(t, err)
	assert.Empty(t, sched.active())
	assert.Equal(t, Dirty, s.Status().State)

	require.NoError(t, s.Flush(context.Background()))
	assert.Zero(t, gw.autosaveCount())
	assert.True(t, s.Status().UnsavedChanges)
}

func TestSaveAdoptsIdentity(t *testing.T) {
	s, gw, sched := newTestStore(document.New())

	_, err := s.AddSection(document.TypeHero)
	require.NoError(t, err)

	ref, err := s.Save(context.Background(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, "page-1", ref.ID)
	assert.Equal(t, []string{"key-1"}, gw.keys)

	doc := s.Document()
	assert.Equal(t, "page-1", doc.ID)
	assert.Equal(t, "abcdefghij", doc.Slug)
	assert.Equal(t, Idle, s.Status().State)

	// now persisted, so edits autosave
	require.NoError(t, s.SetTheme("cinematic-night"))
	assert.Len(t, sched.active(), 1)
	sched.fire()
	require.Equal(t, 1, gw.autosaveCount())
	assert.Equal(t, "cinematic-night", gw.autosaves[0].Content.ThemeSlug)
}

func TestAutosaveFailureIsSurfaced(t *testing.T) {
	s, gw, sched := newTestStore(persistedDoc())
	gw.err = &types.LimitError{Err: types.ErrEditLimit, EditCount: quota.MaxEdits, MaxEdits: quota.MaxEdits}

	require.NoError(t, s.SetTitle("too late"))
	sched.fire()

	st := s.Status()
	assert.Equal(t, Failed, st.State)
	assert.True(t, st.UnsavedChanges)
	assert.True(t, st.LimitReached)
	assert.NotEmpty(t, st.LastError)

	err := s.Flush(context.Background())
	assert.ErrorIs(t, err, types.ErrEditLimit, "wrapped errors keep their cause")

	gw.mu.Lock()
	gw.err = nil
	gw.mu.Unlock()
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, Idle, s.Status().State)
	assert.True(t, s.Status().LimitReached, "limit flag stays for the session")
}

func TestChangeDuringWriteStaysDirty(t *testing.T) {
	s, gw, sched := newTestStore(persistedDoc())
	gw.block = make(chan struct{})
	gw.started = make(chan struct{})

	require.NoError(t, s.SetTitle("first"))
	timers := sched.active()
	require.Len(t, timers, 1)

	done := make(chan struct{})
	go func() {
		timers[0].stopped = true
		timers[0].f()
		close(done)
	}()
	<-gw.started
	assert.Equal(t, InFlight, s.Status().State)

	require.NoError(t, s.SetTitle("second"))
	assert.Equal(t, InFlight, s.Status().State)

	close(gw.block)
	<-done

	st := s.Status()
	assert.Equal(t, Dirty, st.State)
	assert.True(t, st.UnsavedChanges)
	assert.Equal(t, "first", gw.autosaves[0].Title)

	gw.block = nil
	require.Len(t, sched.active(), 1)
	sched.fire()
	assert.Equal(t, "second", gw.autosaves[1].Title)
	assert.Equal(t, Idle, s.Status().State)
}

func TestCloseAbandonsPendingWrite(t *testing.T) {
	s, gw, sched := newTestStore(persistedDoc())

	require.NoError(t, s.SetTitle("never saved"))
	s.Close()
	assert.Empty(t, sched.active())
	require.NoError(t, s.Flush(context.Background()))
	assert.Zero(t, gw.autosaveCount())

	assert.ErrorIs(t, s.SetTitle("again"), ErrClosed)
	_, err := s.Save(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStoreOperations(t *testing.T) {
	s, _, _ := newTestStore(persistedDoc())

	hero, err := s.AddSection(document.TypeHero)
	require.NoError(t, err)
	_, err = s.AddSection(document.TypeHero)
	assert.ErrorIs(t, err, types.ErrDuplicateHero)

	letter, err := s.AddSection(document.TypeLoveLetter)
	require.NoError(t, err)

	require.NoError(t, s.UpdateSection(hero.ID, map[string]json.RawMessage{"headline": json.RawMessage(`"Always"`)}))
	require.NoError(t, s.ToggleVisibility(letter.ID))
	require.NoError(t, s.ReorderSections(letter.ID, hero.ID))

	doc := s.Document()
	require.Len(t, doc.Content.Sections, 2)
	assert.Equal(t, letter.ID, doc.Content.Sections[0].ID)
	assert.Equal(t, 0, doc.Content.Sections[0].Order)
	assert.False(t, doc.Content.Sections[0].Visible)
	assert.Equal(t, "Always", doc.Content.Sections[1].Data.(*document.HeroData).Headline)

	assert.ErrorIs(t, s.SetTheme("neon"), types.ErrValidation)

	require.NoError(t, s.RemoveSection(letter.ID))
	doc = s.Document()
	require.Len(t, doc.Content.Sections, 1)
	assert.Equal(t, 0, doc.Content.Sections[0].Order)

	// the copy handed out is detached
	doc.Content.Sections[0].Visible = false
	assert.True(t, s.Document().Content.Sections[0].Visible)
}

func TestRejectedMutationLeavesStoreClean(t *testing.T) {
	s, _, sched := newTestStore(persistedDoc())
	_, err := s.AddSection(document.TypeHero)
	require.NoError(t, err)
	sched.fire()

	_, err = s.AddSection(document.TypeHero)
	require.True(t, errors.Is(err, types.ErrDuplicateHero))
	assert.Equal(t, Idle, s.Status().State)
	assert.Empty(t, sched.active())
}

func TestStaleSectionIDsAreIgnored(t *testing.T) {
	s, gw, sched := newTestStore(persistedDoc())
	hero, err := s.AddSection(document.TypeHero)
	require.NoError(t, err)
	sched.fire()
	require.Equal(t, Idle, s.Status().State)
	before := s.Document()
	saves := gw.autosaveCount()

	assert.NoError(t, s.RemoveSection("nope"))
	assert.NoError(t, s.UpdateSection("nope", map[string]json.RawMessage{"headline": json.RawMessage(`"x"`)}))
	assert.NoError(t, s.ToggleVisibility("nope"))
	assert.NoError(t, s.ReorderSections(hero.ID, "nope"))
	assert.NoError(t, s.ReorderSections("nope", hero.ID))

	assert.Equal(t, before, s.Document())
	assert.Equal(t, Idle, s.Status().State)
	assert.Empty(t, sched.active(), "no autosave scheduled")
	assert.Zero(t, sched.fire())
	assert.Equal(t, saves, gw.autosaveCount())
}
