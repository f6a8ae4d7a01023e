// registry.go
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

// Package document holds the love page aggregate: the closed catalog of
// section types, their per-type data shapes and the pure mutations the
// builder applies to a page's section list.
package document

import (
	"fmt"

	"github.com/localnerve/luvnest/internal/types"
)

// SectionType is the discriminant of a section. The set is closed.
type SectionType string

const (
	TypeHero          SectionType = "hero"
	TypeLoveLetter    SectionType = "love-letter"
	TypeTimeline      SectionType = "timeline"
	TypeGallery       SectionType = "gallery"
	TypeCountdown     SectionType = "countdown"
	TypeSurprise      SectionType = "surprise"
	TypeAIStory       SectionType = "ai-story"
	TypeMagazine      SectionType = "magazine"
	TypeBeMyValentine SectionType = "be-my-valentine"
)

var sectionTypes = []SectionType{
	TypeHero,
	TypeLoveLetter,
	TypeTimeline,
	TypeGallery,
	TypeCountdown,
	TypeSurprise,
	TypeAIStory,
	TypeMagazine,
	TypeBeMyValentine,
}

var sectionLabels = map[SectionType]string{
	TypeHero:          "Hero Banner",
	TypeLoveLetter:    "Love Letter",
	TypeTimeline:      "Our Timeline",
	TypeGallery:       "Photo Gallery",
	TypeCountdown:     "Countdown",
	TypeSurprise:      "Surprise Reveal",
	TypeAIStory:       "AI Love Story",
	TypeMagazine:      "Love Magazine",
	TypeBeMyValentine: "Be My Valentine",
}

// Types returns every section type in catalog order.
func Types() []SectionType {
	out := make([]SectionType, len(sectionTypes))
	copy(out, sectionTypes)
	return out
}

// Valid reports whether t is in the catalog.
func (t SectionType) Valid() bool {
	_, ok := sectionLabels[t]
	return ok
}

// ParseSectionType validates an externally supplied type name.
func ParseSectionType(s string) (SectionType, error) {
	t := SectionType(s)
	if !t.Valid() {
		return "", types.ValidationErrorf("unknown section type %q", s)
	}
	return t, nil
}

// SectionLabel returns the human label shown in the section picker.
func SectionLabel(t SectionType) string {
	if l, ok := sectionLabels[t]; ok {
		return l
	}
	return string(t)
}

// SectionData is the type-specific payload of a section. Every
// implementation lives in this package.
type SectionData interface {
	Type() SectionType
	Validate() error
	sectionData()
}

// newData returns an empty payload for t, or false if t is not in the catalog.
func newData(t SectionType) (SectionData, bool) {
	switch t {
	case TypeHero:
		return &HeroData{}, true
	case TypeLoveLetter:
		return &LoveLetterData{}, true
	case TypeTimeline:
		return &TimelineData{}, true
	case TypeGallery:
		return &GalleryData{}, true
	case TypeCountdown:
		return &CountdownData{}, true
	case TypeSurprise:
		return &SurpriseData{}, true
	case TypeAIStory:
		return &AIStoryData{}, true
	case TypeMagazine:
		return &MagazineData{}, true
	case TypeBeMyValentine:
		return &BeMyValentineData{}, true
	}
	return nil, false
}

// DefaultData returns the payload a freshly added section of type t starts
// with. It panics on a type outside the catalog.
func DefaultData(t SectionType) SectionData {
	switch t {
	case TypeHero:
		return &HeroData{Headline: "Our Love Story"}
	case TypeLoveLetter:
		return &LoveLetterData{Title: "A Letter From My Heart"}
	case TypeTimeline:
		return &TimelineData{Title: "Our Journey Together", Events: []TimelineEvent{}}
	case TypeGallery:
		return &GalleryData{Title: "Precious Moments", Images: []GalleryImage{}, Layout: LayoutGrid}
	case TypeCountdown:
		return &CountdownData{Title: "Counting Down To...", Message: "Something special awaits!"}
	case TypeSurprise:
		return &SurpriseData{Title: "A Little Surprise", RevealAnimation: RevealHearts}
	case TypeAIStory:
		return &AIStoryData{Title: "Our Fairy Tale", StoryStyle: StyleFairyTale}
	case TypeMagazine:
		return &MagazineData{Title: "Our Love Magazine", CoverTitle: "A Journey of Love", Pages: []MagazinePage{}}
	case TypeBeMyValentine:
		return &BeMyValentineData{
			Question:        "Will you be my Valentine?",
			AcceptanceQuote: "Yes! A thousand times yes! You've made my heart complete. Every moment with you is a treasure I'll cherish forever. 💕",
			YesButtonText:   "Yes 💖",
			NoButtonText:    "No 😶",
		}
	}
	panic(fmt.Sprintf("document: no default data for section type %q", t))
}
