// render.go
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

// Package render turns documents into HTML. Section markup is looked up in
// two tables keyed by section type, one for the public viewer and one for
// the builder's editor forms.
package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/localnerve/luvnest/internal/access"
	"github.com/localnerve/luvnest/internal/builder"
	"github.com/localnerve/luvnest/internal/document"
	"github.com/localnerve/luvnest/internal/theme"
	"github.com/localnerve/luvnest/internal/types"
)

//go:embed templates
var templateFS embed.FS

// viewerTemplates and editorTemplates must cover every section type.
var viewerTemplates = map[document.SectionType]string{
	document.TypeHero:          "viewer/hero",
	document.TypeLoveLetter:    "viewer/love-letter",
	document.TypeTimeline:      "viewer/timeline",
	document.TypeGallery:       "viewer/gallery",
	document.TypeCountdown:     "viewer/countdown",
	document.TypeSurprise:      "viewer/surprise",
	document.TypeAIStory:       "viewer/ai-story",
	document.TypeMagazine:      "viewer/magazine",
	document.TypeBeMyValentine: "viewer/be-my-valentine",
}

var editorTemplates = map[document.SectionType]string{
	document.TypeHero:          "editor/hero",
	document.TypeLoveLetter:    "editor/love-letter",
	document.TypeTimeline:      "editor/timeline",
	document.TypeGallery:       "editor/gallery",
	document.TypeCountdown:     "editor/countdown",
	document.TypeSurprise:      "editor/surprise",
	document.TypeAIStory:       "editor/ai-story",
	document.TypeMagazine:      "editor/magazine",
	document.TypeBeMyValentine: "editor/be-my-valentine",
}

func init() {
	if err := checkTables(); err != nil {
		panic(err)
	}
}

func checkTables() error {
	for _, t := range document.Types() {
		if _, ok := viewerTemplates[t]; !ok {
			return fmt.Errorf("render: no viewer template for section type %s", t)
		}
		if _, ok := editorTemplates[t]; !ok {
			return fmt.Errorf("render: no editor template for section type %s", t)
		}
	}
	if len(viewerTemplates) != len(document.Types()) || len(editorTemplates) != len(document.Types()) {
		return fmt.Errorf("render: template tables name unknown section types")
	}
	return nil
}

var funcs = template.FuncMap{
	"css": func(s string) template.CSS { return template.CSS(s) },
	"toJSON": func(v interface{}) (string, error) {
		b, err := json.MarshalIndent(v, "", "  ")
		return string(b), err
	},
	"paragraphs": func(s string) template.HTML {
		var b strings.Builder
		for _, p := range strings.Split(strings.TrimSpace(s), "\n\n") {
			if p = strings.TrimSpace(p); p == "" {
				continue
			}
			b.WriteString("<p>")
			b.WriteString(strings.ReplaceAll(template.HTMLEscapeString(p), "\n", "<br>"))
			b.WriteString("</p>")
		}
		return template.HTML(b.String())
	},
	"rfc3339": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	},
	"longDate": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.UTC().Format("January 2, 2006 at 15:04 UTC")
	},
	"galleryLayouts": func() []document.GalleryLayout {
		return []document.GalleryLayout{document.LayoutGrid, document.LayoutMasonry, document.LayoutCarousel}
	},
	"revealAnimations": func() []document.RevealAnimation {
		return []document.RevealAnimation{document.RevealHearts, document.RevealConfetti, document.RevealSparkle}
	},
	"storyStyles": func() []document.StoryStyle {
		return []document.StoryStyle{document.StyleFairyTale, document.StyleAdventure, document.StyleClassicRomance}
	},
}

// Renderer executes the embedded templates.
type Renderer struct {
	tpl *template.Template
}

// New parses the templates and checks every table entry resolves.
func New() (*Renderer, error) {
	tpl, err := template.New("luvnest").Funcs(funcs).ParseFS(templateFS,
		"templates/*.gohtml", "templates/viewer/*.gohtml", "templates/editor/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	for _, table := range []map[document.SectionType]string{viewerTemplates, editorTemplates} {
		for t, name := range table {
			if tpl.Lookup(name) == nil {
				return nil, fmt.Errorf("render: template %s for %s is not defined", name, t)
			}
		}
	}
	return &Renderer{tpl: tpl}, nil
}

// RenderedSection is one section's markup with the fields the layouts show
// around it.
type RenderedSection struct {
	ID      string
	Type    document.SectionType
	Label   string
	Visible bool
	HTML    template.HTML
}

type layoutData struct {
	Title     string
	Slug      string
	Theme     theme.Theme
	Sections  []RenderedSection
	State     access.State
	UnlockAt  *time.Time
	Error     string
	SessionID string
	Status    builder.Status
	IsEdit    bool
	Limit     *types.LimitError
}

func (r *Renderer) section(table map[document.SectionType]string, s document.Section) (RenderedSection, error) {
	name, ok := table[s.Type]
	if !ok {
		return RenderedSection{}, fmt.Errorf("render: no template for section type %q", s.Type)
	}
	var buf bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&buf, name, s.Data); err != nil {
		return RenderedSection{}, fmt.Errorf("render: section %s: %w", s.ID, err)
	}
	return RenderedSection{
		ID:      s.ID,
		Type:    s.Type,
		Label:   document.SectionLabel(s.Type),
		Visible: s.Visible,
		HTML:    template.HTML(buf.String()),
	}, nil
}

// ViewerSection renders one section as the public viewer shows it.
func (r *Renderer) ViewerSection(s document.Section) (RenderedSection, error) {
	return r.section(viewerTemplates, s)
}

// EditorSection renders the editor form fields of one section.
func (r *Renderer) EditorSection(s document.Section) (RenderedSection, error) {
	return r.section(editorTemplates, s)
}

func (r *Renderer) execute(w io.Writer, name string, data layoutData) error {
	// rendered in full before writing so a failure leaves w untouched
	var buf bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render: %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// ViewerPage is a page as served at its public URL.
type ViewerPage struct {
	Title    string
	Slug     string
	State    access.State
	UnlockAt *time.Time
	Content  *document.Content
	// Error is shown on the password form after a failed unlock.
	Error string
}

// Viewer renders a public page. Pages that are not visible render their
// locked or not found screen.
func (r *Renderer) Viewer(w io.Writer, page ViewerPage) error {
	data := layoutData{
		Title:    page.Title,
		Slug:     page.Slug,
		State:    page.State,
		UnlockAt: page.UnlockAt,
		Error:    page.Error,
		Theme:    theme.Resolve(""),
	}
	if page.Content != nil {
		data.Theme = theme.Resolve(page.Content.ThemeSlug)
	}
	if page.State != access.Visible || page.Content == nil {
		if data.Title == "" {
			data.Title = "LUVNEST"
		}
		return r.execute(w, "locked", data)
	}

	for _, s := range document.VisibleSections(page.Content.Sections) {
		rs, err := r.ViewerSection(s)
		if err != nil {
			return err
		}
		data.Sections = append(data.Sections, rs)
	}
	return r.execute(w, "page", data)
}

// BuilderPage is the server-rendered editor for a builder session.
type BuilderPage struct {
	SessionID string
	Document  *document.Document
	Status    builder.Status
}

// Builder renders the editor. Sections appear in document order, hidden ones
// included and flagged.
func (r *Renderer) Builder(w io.Writer, page BuilderPage) error {
	data := layoutData{
		Title:     page.Document.Title,
		Slug:      page.Document.Slug,
		Theme:     theme.Resolve(page.Document.Content.ThemeSlug),
		SessionID: page.SessionID,
		Status:    page.Status,
	}
	for _, s := range page.Document.Content.Sections {
		rs, err := r.EditorSection(s)
		if err != nil {
			return err
		}
		data.Sections = append(data.Sections, rs)
	}
	return r.execute(w, "builder", data)
}

// Limit renders the blocking screen shown instead of the builder when a
// quota check fails.
func (r *Renderer) Limit(w io.Writer, limit *types.LimitError) error {
	return r.execute(w, "limit", layoutData{
		Title:  "Limit reached",
		Theme:  theme.Resolve(""),
		IsEdit: limit.IsEdit(),
		Limit:  limit,
	})
}

// EditorFormPartial converts a posted editor form into the partial data
// update for the section. Fields listed in _json carry JSON lists; all
// other fields are strings.
func EditorFormPartial(form map[string][]string) (map[string]json.RawMessage, error) {
	raw := make(map[string]bool)
	for _, v := range form["_json"] {
		for _, name := range strings.Split(v, ",") {
			raw[strings.TrimSpace(name)] = true
		}
	}

	names := make([]string, 0, len(form))
	for name := range form {
		if name != "_json" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	partial := make(map[string]json.RawMessage, len(names))
	for _, name := range names {
		values := form[name]
		if len(values) == 0 {
			continue
		}
		value := values[len(values)-1]
		if raw[name] {
			if !json.Valid([]byte(value)) {
				return nil, types.ValidationErrorf("field %s is not valid JSON", name)
			}
			partial[name] = json.RawMessage(value)
			continue
		}
		b, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		partial[name] = b
	}
	return partial, nil
}
