// document.go
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

package document

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/localnerve/luvnest/internal/theme"
	"github.com/localnerve/luvnest/internal/types"
)

// DefaultTitle names a page before the user edits the title.
const DefaultTitle = "My Love Page"

// PrivacyMode selects the access gate applied to a published page.
type PrivacyMode string

const (
	PrivacyPublic     PrivacyMode = "public"
	PrivacyPassword   PrivacyMode = "password"
	PrivacyTimeLocked PrivacyMode = "time-locked"
)

// ParsePrivacyMode accepts the stored and submitted mode names. Rows written
// with the retired "expiry" mode read as public; expiry is its own column.
func ParsePrivacyMode(s string) (PrivacyMode, error) {
	switch PrivacyMode(s) {
	case PrivacyPublic, PrivacyPassword, PrivacyTimeLocked:
		return PrivacyMode(s), nil
	case "", "expiry":
		return PrivacyPublic, nil
	}
	return "", types.ValidationErrorf("privacy mode %q is not one of public, password, time-locked", s)
}

// Content is the unit of persistence for every builder edit.
type Content struct {
	Sections  []Section `json:"sections"`
	ThemeSlug string    `json:"themeSlug"`
}

// MarshalJSON keeps an empty section list as [] in the stored blob.
func (c Content) MarshalJSON() ([]byte, error) {
	type alias Content
	a := alias(c)
	if a.Sections == nil {
		a.Sections = []Section{}
	}
	return json.Marshal(a)
}

// Validate checks the structural invariants of a stored section list. The
// single hero rule is only applied when sections are added.
func (c Content) Validate() error {
	seen := make(map[string]struct{}, len(c.Sections))
	orders := make([]bool, len(c.Sections))
	for _, s := range c.Sections {
		if s.ID == "" {
			return types.ValidationErrorf("section is missing an id")
		}
		if _, dup := seen[s.ID]; dup {
			return types.ValidationErrorf("section id %q is not unique", s.ID)
		}
		seen[s.ID] = struct{}{}
		if !s.Type.Valid() {
			return types.ValidationErrorf("unknown section type %q", s.Type)
		}
		if s.Data == nil || s.Data.Type() != s.Type {
			return types.ValidationErrorf("section %q data does not match type %s", s.ID, s.Type)
		}
		if err := s.Data.Validate(); err != nil {
			return err
		}
		if s.Order < 0 || s.Order >= len(c.Sections) || orders[s.Order] {
			return types.ValidationErrorf("section orders are not a dense 0..%d sequence", len(c.Sections)-1)
		}
		orders[s.Order] = true
	}
	return nil
}

// Document is the in-editing love page.
type Document struct {
	ID          string      `json:"id,omitempty"`
	Slug        string      `json:"slug,omitempty"`
	Title       string      `json:"title"`
	Content     Content     `json:"content"`
	IsPublished bool        `json:"isPublished"`
	PrivacyMode PrivacyMode `json:"privacyMode"`
	UnlockAt    *time.Time  `json:"unlockAt,omitempty"`
	ExpiresAt   *time.Time  `json:"expiresAt,omitempty"`
}

// New returns an unsaved page with the builder defaults.
func New() *Document {
	return &Document{
		Title: DefaultTitle,
		Content: Content{
			Sections:  []Section{},
			ThemeSlug: theme.DefaultSlug,
		},
		PrivacyMode: PrivacyPublic,
	}
}

// Persisted reports whether the page has a backend identity.
func (d *Document) Persisted() bool {
	return d.ID != ""
}

// Clone deep copies the document through its persisted encoding.
func (d *Document) Clone() *Document {
	out := *d
	if d.UnlockAt != nil {
		t := *d.UnlockAt
		out.UnlockAt = &t
	}
	if d.ExpiresAt != nil {
		t := *d.ExpiresAt
		out.ExpiresAt = &t
	}
	b, err := json.Marshal(d.Content)
	if err != nil {
		panic("document: clone: " + err.Error())
	}
	out.Content = Content{}
	if err := json.Unmarshal(b, &out.Content); err != nil {
		panic("document: clone: " + err.Error())
	}
	return &out
}

// NormalizeTitle trims a submitted title and falls back to the default.
func NormalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultTitle
	}
	return title
}
