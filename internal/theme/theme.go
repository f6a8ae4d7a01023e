// theme.go
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

// Package theme resolves a theme slug into an immutable set of design tokens.
package theme

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultSlug is used for new pages and for unknown slugs.
const DefaultSlug = "romantic-rose"

// Colors are HSL triplets without the hsl() wrapper.
type Colors struct {
	Background        string
	Foreground        string
	Primary           string
	PrimaryForeground string
	Muted             string
	Accent            string
	Border            string
}

// Animations toggles the decorative effects a theme enables.
type Animations struct {
	HeartParticles bool
	Floating       bool
	Reveal         bool
	Speed          string
}

// Theme is a resolved preset. Values are copied out of the preset table so
// callers cannot mutate shared state.
type Theme struct {
	Slug            string
	Name            string
	Description     string
	Colors          Colors
	DisplayFont     string
	BodyFont        string
	GradientPrimary string
	BorderRadius    string
	Animations      Animations
}

var presets = map[string]Theme{
	"romantic-rose": {
		Slug:        "romantic-rose",
		Name:        "Romantic Rose",
		Description: "Soft pinks and elegant script fonts for a classic romantic feel",
		Colors: Colors{
			Background:        "340 100% 99%",
			Foreground:        "340 30% 15%",
			Primary:           "346 77% 49%",
			PrimaryForeground: "0 0% 100%",
			Muted:             "340 40% 96%",
			Accent:            "15 70% 85%",
			Border:            "340 40% 90%",
		},
		DisplayFont:     "Playfair Display",
		BodyFont:        "Quicksand",
		GradientPrimary: "linear-gradient(135deg, hsl(346 77% 49%) 0%, hsl(340 82% 65%) 50%, hsl(15 70% 75%) 100%)",
		BorderRadius:    "0.75rem",
		Animations:      Animations{HeartParticles: true, Floating: true, Reveal: true, Speed: "normal"},
	},
	"minimal-love": {
		Slug:        "minimal-love",
		Name:        "Minimal Love",
		Description: "Clean whites and modern typography for understated elegance",
		Colors: Colors{
			Background:        "0 0% 100%",
			Foreground:        "0 0% 10%",
			Primary:           "0 0% 15%",
			PrimaryForeground: "0 0% 100%",
			Muted:             "0 0% 96%",
			Accent:            "346 77% 95%",
			Border:            "0 0% 90%",
		},
		DisplayFont:     "Inter",
		BodyFont:        "Inter",
		GradientPrimary: "linear-gradient(135deg, hsl(0 0% 15%) 0%, hsl(0 0% 25%) 100%)",
		BorderRadius:    "0.5rem",
		Animations:      Animations{Reveal: true, Speed: "fast"},
	},
	"cinematic-night": {
		Slug:        "cinematic-night",
		Name:        "Cinematic Night",
		Description: "Dark mode with dramatic contrasts and purple accents",
		Colors: Colors{
			Background:        "240 15% 12%",
			Foreground:        "45 30% 92%",
			Primary:           "280 70% 65%",
			PrimaryForeground: "240 15% 10%",
			Muted:             "240 12% 20%",
			Accent:            "320 70% 55%",
			Border:            "240 12% 28%",
		},
		DisplayFont:     "Cormorant Garamond",
		BodyFont:        "Lato",
		GradientPrimary: "linear-gradient(135deg, hsl(280 70% 60%) 0%, hsl(320 70% 50%) 100%)",
		BorderRadius:    "0.25rem",
		Animations:      Animations{HeartParticles: true, Floating: true, Reveal: true, Speed: "slow"},
	},
	"cute-playful": {
		Slug:        "cute-playful",
		Name:        "Cute & Playful",
		Description: "Bright colors and fun animations for a joyful vibe",
		Colors: Colors{
			Background:        "350 80% 97%",
			Foreground:        "330 45% 22%",
			Primary:           "340 85% 62%",
			PrimaryForeground: "0 0% 100%",
			Muted:             "350 50% 95%",
			Accent:            "50 95% 70%",
			Border:            "340 35% 88%",
		},
		DisplayFont:     "Pacifico",
		BodyFont:        "Nunito",
		GradientPrimary: "linear-gradient(135deg, hsl(340 85% 62%) 0%, hsl(280 50% 70%) 50%, hsl(50 95% 70%) 100%)",
		BorderRadius:    "1.25rem",
		Animations:      Animations{HeartParticles: true, Floating: true, Reveal: true, Speed: "fast"},
	},
}

// Known reports whether slug names a preset.
func Known(slug string) bool {
	_, ok := presets[slug]
	return ok
}

// Slugs lists the preset slugs in a stable order.
func Slugs() []string {
	out := make([]string, 0, len(presets))
	for s := range presets {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the theme for slug, falling back to the default preset.
func Resolve(slug string) Theme {
	if t, ok := presets[slug]; ok {
		return t
	}
	return presets[DefaultSlug]
}

// CSSVariables renders the theme as a custom property declaration list
// suitable for a style attribute.
func (t Theme) CSSVariables() string {
	vars := [][2]string{
		{"--background", t.Colors.Background},
		{"--foreground", t.Colors.Foreground},
		{"--primary", t.Colors.Primary},
		{"--primary-foreground", t.Colors.PrimaryForeground},
		{"--muted", t.Colors.Muted},
		{"--accent", t.Colors.Accent},
		{"--border", t.Colors.Border},
		{"--font-display", fmt.Sprintf("'%s', serif", t.DisplayFont)},
		{"--font-body", fmt.Sprintf("'%s', sans-serif", t.BodyFont)},
		{"--gradient-primary", t.GradientPrimary},
		{"--radius", t.BorderRadius},
	}
	var b strings.Builder
	for _, v := range vars {
		b.WriteString(v[0])
		b.WriteString(": ")
		b.WriteString(v[1])
		b.WriteString("; ")
	}
	return strings.TrimSpace(b.String())
}
