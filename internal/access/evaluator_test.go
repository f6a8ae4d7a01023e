package access

import (
	"testing"
	"time"

	"github.com/localnerve/luvnest/internal/document"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestEvaluatePrecedence(t *testing.T) {
	cases := []struct {
		name string
		in   Input
		want Decision
	}{
		{"absent row", Input{}, Decision{State: NotFound}},
		{"unpublished beats everything", Input{Found: true, PrivacyMode: document.PrivacyPassword, PasswordProtected: true, ExpiresAt: at(-time.Hour)}, Decision{State: Unpublished}},
		{"expired beats time lock", Input{Found: true, IsPublished: true, PrivacyMode: document.PrivacyTimeLocked, UnlockAt: at(time.Hour), ExpiresAt: at(-time.Second)}, Decision{State: Expired}},
		{"expiry applies to public pages", Input{Found: true, IsPublished: true, PrivacyMode: document.PrivacyPublic, ExpiresAt: at(-time.Second)}, Decision{State: Expired}},
		{"future expiry is open", Input{Found: true, IsPublished: true, ExpiresAt: at(time.Hour)}, Decision{State: Visible}},
		{"time locked", Input{Found: true, IsPublished: true, PrivacyMode: document.PrivacyTimeLocked, UnlockAt: at(time.Hour)}, Decision{State: TimeLocked}},
		{"time lock without unlock time", Input{Found: true, IsPublished: true, PrivacyMode: document.PrivacyTimeLocked}, Decision{State: Visible}},
		{"time lock passed", Input{Found: true, IsPublished: true, PrivacyMode: document.PrivacyTimeLocked, UnlockAt: at(-time.Second)}, Decision{State: Visible}},
		{"unlock at only matters in time-locked mode", Input{Found: true, IsPublished: true, PrivacyMode: document.PrivacyPublic, UnlockAt: at(time.Hour)}, Decision{State: Visible}},
		{"password locked", Input{Found: true, IsPublished: true, PrivacyMode: document.PrivacyPassword, PasswordProtected: true}, Decision{State: PasswordLocked}},
		{"password unlocked by session", Input{Found: true, IsPublished: true, PrivacyMode: document.PrivacyPassword, PasswordProtected: true, SessionUnlocked: true}, Decision{State: Visible, Unlocked: true}},
		{"password mode without a password", Input{Found: true, IsPublished: true, PrivacyMode: document.PrivacyPassword}, Decision{State: Visible}},
		{"protected flag outside password mode", Input{Found: true, IsPublished: true, PrivacyMode: document.PrivacyPublic, PasswordProtected: true}, Decision{State: Visible}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Evaluate(tc.in, now))
			assert.Equal(t, tc.want, Evaluate(tc.in, now), "deterministic")
		})
	}
}

func TestUnpublishedRegardlessOfMode(t *testing.T) {
	for _, mode := range []document.PrivacyMode{document.PrivacyPublic, document.PrivacyPassword, document.PrivacyTimeLocked} {
		d := Evaluate(Input{Found: true, PrivacyMode: mode, PasswordProtected: true, UnlockAt: at(time.Hour)}, now)
		assert.Equal(t, Unpublished, d.State, mode)
	}
}

func TestTimeLockTransition(t *testing.T) {
	in := Input{Found: true, IsPublished: true, PrivacyMode: document.PrivacyTimeLocked, UnlockAt: at(time.Hour)}

	before := Evaluate(in, now)
	assert.Equal(t, TimeLocked, before.State)
	assert.False(t, ShouldCountView(before, false))

	after := Evaluate(in, now.Add(time.Hour+time.Second))
	assert.Equal(t, Visible, after.State)
	assert.True(t, ShouldCountView(after, false))
}

func TestShouldCountView(t *testing.T) {
	assert.True(t, ShouldCountView(Decision{State: Visible}, false))
	assert.False(t, ShouldCountView(Decision{State: Visible}, true), "owner")
	assert.False(t, ShouldCountView(Decision{State: Visible, Unlocked: true}, false), "reload on unlock token")
	for _, s := range []State{NotFound, Unpublished, Expired, TimeLocked, PasswordLocked} {
		assert.False(t, ShouldCountView(Decision{State: s}, false), s)
	}
}
