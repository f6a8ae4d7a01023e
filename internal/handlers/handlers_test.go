// handlers_test.go
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

package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/localnerve/luvnest/internal/access"
	"github.com/localnerve/luvnest/internal/builder"
	"github.com/localnerve/luvnest/internal/clock"
	"github.com/localnerve/luvnest/internal/config"
	"github.com/localnerve/luvnest/internal/handlers"
	"github.com/localnerve/luvnest/internal/models"
	"github.com/localnerve/luvnest/internal/quota"
	"github.com/localnerve/luvnest/internal/render"
	"github.com/localnerve/luvnest/internal/services"
	"github.com/localnerve/luvnest/internal/testutil"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testUserHeader = "X-Test-User"

const pageContent = `{"sections":[{"id":"s1","type":"hero","visible":true,"order":0,"data":{"partnerName1":"Ana","partnerName2":"Ben","headline":"Forever"}}],"themeSlug":"romantic-rose"}`

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type blobs struct {
	keys []string
}

func (b *blobs) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	b.keys = append(b.keys, key)
	return "https://cdn.test/" + key, nil
}

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	guard    *quota.Guard
	sessions *builder.Sessions
	blobs    *blobs
}

// testUser stands in for the auth middleware.
func testUser(c *fiber.Ctx) error {
	if id := c.Get(testUserHeader); id != "" {
		c.Locals("user", map[string]interface{}{"id": id})
	}
	return c.Next()
}

func setupApp(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	clk := clock.NewMock()
	log := zerolog.Nop()
	guard := quota.NewGuard(db, clk, log)
	pages := services.NewPageService(db, guard, clk, log)
	sessions := builder.NewSessions(pages, guard, builder.StoreOptions{Window: time.Hour, Clock: clk, Log: log})
	t.Cleanup(func() { _ = sessions.CloseAll(context.Background()) })

	renderer, err := render.New()
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}
	store := &blobs{}
	viewer := &services.ViewerService{
		DB:       db,
		Unlocker: access.NewUnlocker("test-secret", time.Hour, clk),
		Attempts: &services.AttemptLog{DB: db, Clock: clk},
		Clock:    clk,
		Policy:   services.ViewerPolicy{MaxAttempts: 5, Window: 15 * time.Minute},
		Log:      log,
	}

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(log)})
	app.Use(testUser)

	ph := &handlers.PagesHandler{Pages: pages, Guard: guard}
	bh := &handlers.BuilderHandler{Sessions: sessions, Renderer: renderer}
	vh := &handlers.ViewerHandler{Viewer: viewer, Renderer: renderer, CookieTTL: time.Hour}
	mh := &handlers.MediaHandler{Media: &services.MediaService{DB: db, Store: store, MaxBytes: 1 << 20, Log: log}}
	ah := &handlers.AIHandler{Generator: &services.Generator{}}
	adm := &handlers.AdminHandler{Guard: guard}

	api := app.Group("/api")
	api.Get("/limits", ph.GetLimits)
	api.Get("/pages", ph.ListPages)
	api.Get("/pages/:id", ph.GetPage)
	api.Put("/pages/:id/settings", ph.UpdateSettings)
	api.Post("/builder/sessions", bh.OpenSession)
	api.Get("/builder/sessions/:session", bh.GetSession)
	api.Delete("/builder/sessions/:session", bh.CloseSession)
	api.Post("/builder/sessions/:session/sections", bh.AddSection)
	api.Patch("/builder/sessions/:session/sections/:id", bh.UpdateSection)
	api.Delete("/builder/sessions/:session/sections/:id", bh.RemoveSection)
	api.Post("/builder/sessions/:session/sections/:id/visibility", bh.ToggleVisibility)
	api.Post("/builder/sessions/:session/reorder", bh.ReorderSections)
	api.Put("/builder/sessions/:session/title", bh.SetTitle)
	api.Put("/builder/sessions/:session/theme", bh.SetTheme)
	api.Post("/builder/sessions/:session/save", bh.Save)
	api.Post("/builder/sessions/:session/flush", bh.Flush)
	api.Get("/public/pages/:slug", vh.GetPublicPage)
	api.Post("/public/pages/:slug/unlock", vh.UnlockPage)
	api.Post("/media", mh.Upload)
	api.Post("/ai/generate", ah.Generate)
	api.Put("/admin/wallets/:user", adm.ApplyPlan)

	app.Get("/builder", bh.OpenPage)
	app.Get("/builder/:session", bh.BuilderPage)
	app.Post("/builder/:session/sections/:id", bh.SubmitSection)
	app.Get("/love/:slug", vh.ViewPage)
	app.Post("/love/:slug/unlock", vh.SubmitPassword)
	app.Use(handlers.NotFound)

	return &testEnv{app: app, db: db, guard: guard, sessions: sessions, blobs: store}
}

func (e *testEnv) do(t *testing.T, method, target, user string, body interface{}) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(testUserHeader, user)
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	return string(b)
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("Expected status %d, got %d: %s", want, resp.StatusCode, readBody(t, resp))
	}
}

func (e *testEnv) grant(t *testing.T, userID, plan string) {
	t.Helper()
	if _, err := e.guard.ApplyPlan(context.Background(), userID, plan); err != nil {
		t.Fatalf("Failed to apply plan: %v", err)
	}
}

func (e *testEnv) seedPage(t *testing.T, slug string, mutate func(p *models.LovePage)) {
	t.Helper()
	p := &models.LovePage{
		ID:          slug + "-id",
		UserID:      "owner",
		Slug:        slug,
		Title:       "Ana & Ben",
		Content:     models.NewJSON([]byte(pageContent)),
		IsPublished: true,
		PrivacyMode: "public",
		EditCount:   1,
	}
	if mutate != nil {
		mutate(p)
	}
	if err := e.db.Create(p).Error; err != nil {
		t.Fatalf("Failed to seed page: %v", err)
	}
}

func withPassword(t *testing.T, password string) func(p *models.LovePage) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	h := string(hash)
	return func(p *models.LovePage) {
		p.PrivacyMode = "password"
		p.PasswordHash = &h
	}
}

// TestRequiresUser tests that owner routes reject anonymous requests
func TestRequiresUser(t *testing.T) {
	e := setupApp(t)

	for _, target := range []string{"/api/limits", "/api/pages", "/api/builder/sessions/x"} {
		resp := e.do(t, "GET", target, "", nil)
		var out map[string]interface{}
		decode(t, resp, &out)
		if resp.StatusCode != fiber.StatusForbidden {
			t.Errorf("%s: expected 403, got %d", target, resp.StatusCode)
		}
		if out["type"] != "auth.user" {
			t.Errorf("%s: expected type auth.user, got %v", target, out["type"])
		}
	}
}

// TestGetLimits tests the GET /api/limits endpoint
func TestGetLimits(t *testing.T) {
	e := setupApp(t)

	resp := e.do(t, "GET", "/api/limits", "u1", nil)
	expectStatus(t, resp, 200)
	var status quota.Status
	decode(t, resp, &status)
	if status.PlanType != quota.PlanFree || status.CanCreate {
		t.Errorf("Expected free plan without create, got %+v", status)
	}

	e.grant(t, "u1", quota.PlanTrueLove)
	resp = e.do(t, "GET", "/api/limits", "u1", nil)
	decode(t, resp, &status)
	if !status.CanCreate || status.MaxTemplates != 10 || status.Remaining != 10 {
		t.Errorf("Expected true love limits, got %+v", status)
	}
}

// TestOpenSessionLimit tests that a free user gets the limit payload
func TestOpenSessionLimit(t *testing.T) {
	e := setupApp(t)

	resp := e.do(t, "POST", "/api/builder/sessions", "u1", nil)
	var out struct {
		Status       int    `json:"status"`
		Type         string `json:"type"`
		LimitReached bool   `json:"limitReached"`
		Limit        struct {
			PlanType string `json:"planType"`
			Max      int    `json:"max"`
		} `json:"limit"`
	}
	decode(t, resp, &out)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("Expected 403, got %d", resp.StatusCode)
	}
	if !out.LimitReached || out.Type != "builder.limit.create" || out.Limit.PlanType != quota.PlanFree {
		t.Errorf("Unexpected limit response %+v", out)
	}

	html := e.do(t, "GET", "/builder", "u1", nil)
	if html.StatusCode != fiber.StatusForbidden {
		t.Fatalf("Expected 403 limit screen, got %d", html.StatusCode)
	}
	if ct := html.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected html, got %s", ct)
	}
}

// TestBuilderFlow tests a full build and save through the JSON API
func TestBuilderFlow(t *testing.T) {
	e := setupApp(t)
	e.grant(t, "u1", quota.PlanFirstCrush)

	resp := e.do(t, "POST", "/api/builder/sessions", "u1", nil)
	expectStatus(t, resp, fiber.StatusCreated)
	var sess handlers.SessionResponse
	decode(t, resp, &sess)
	if sess.ID == "" || sess.Document.ID != "" {
		t.Fatalf("Expected a new unsaved session, got %+v", sess)
	}
	base := "/api/builder/sessions/" + sess.ID

	resp = e.do(t, "POST", base+"/sections", "u1", map[string]string{"type": "hero"})
	expectStatus(t, resp, fiber.StatusCreated)
	decode(t, resp, &sess)
	if len(sess.Document.Content.Sections) != 1 {
		t.Fatalf("Expected one section, got %d", len(sess.Document.Content.Sections))
	}
	heroID := sess.Document.Content.Sections[0].ID
	if !sess.Status.UnsavedChanges {
		t.Error("Expected unsaved changes after adding a section")
	}

	resp = e.do(t, "POST", base+"/sections", "u1", map[string]string{"type": "hero"})
	expectStatus(t, resp, fiber.StatusConflict)
	resp = e.do(t, "POST", base+"/sections", "u1", map[string]string{"type": "confetti"})
	expectStatus(t, resp, fiber.StatusBadRequest)

	resp = e.do(t, "PATCH", base+"/sections/"+heroID, "u1", map[string]string{"partnerName1": "Ana"})
	expectStatus(t, resp, 200)
	var patched handlers.SessionResponse
	decode(t, resp, &patched)

	// stale section ids from the editor leave the session untouched
	resp = e.do(t, "PATCH", base+"/sections/missing", "u1", map[string]string{"partnerName1": "Bea"})
	expectStatus(t, resp, 200)
	var stale handlers.SessionResponse
	decode(t, resp, &stale)
	if diff := cmp.Diff(patched.Document, stale.Document); diff != "" {
		t.Errorf("Expected unchanged document after a stale patch (-want +got):\n%s", diff)
	}
	resp = e.do(t, "DELETE", base+"/sections/missing", "u1", nil)
	expectStatus(t, resp, 200)
	var removed handlers.SessionResponse
	decode(t, resp, &removed)
	if len(removed.Document.Content.Sections) != 1 || removed.Document.Content.Sections[0].ID != heroID {
		t.Errorf("Expected the hero to survive a stale delete, got %+v", removed.Document.Content.Sections)
	}

	resp = e.do(t, "PUT", base+"/title", "u1", map[string]string{"title": "Our Story"})
	expectStatus(t, resp, 200)
	resp = e.do(t, "PUT", base+"/theme", "u1", map[string]string{"themeSlug": "no-such-theme"})
	expectStatus(t, resp, fiber.StatusBadRequest)

	req := httptest.NewRequest("POST", base+"/save", nil)
	req.Header.Set(testUserHeader, "u1")
	req.Header.Set(handlers.IdempotencyHeader, "save-1")
	resp = e.send(t, req)
	expectStatus(t, resp, 200)
	decode(t, resp, &sess)
	if sess.Document.ID == "" || sess.Document.Slug == "" {
		t.Fatalf("Expected the saved page identity, got %+v", sess.Document)
	}
	if sess.Status.UnsavedChanges {
		t.Error("Expected no unsaved changes after save")
	}

	resp = e.do(t, "GET", "/api/pages", "u1", nil)
	expectStatus(t, resp, 200)
	var list []services.PageSummary
	decode(t, resp, &list)
	if len(list) != 1 || list[0].Title != "Our Story" {
		t.Fatalf("Expected the saved page listed, got %+v", list)
	}

	resp = e.do(t, "GET", "/api/pages/"+sess.Document.ID, "u2", nil)
	expectStatus(t, resp, fiber.StatusNotFound)

	resp = e.do(t, "DELETE", base, "u1", nil)
	expectStatus(t, resp, fiber.StatusNoContent)
	resp = e.do(t, "GET", base, "u1", nil)
	expectStatus(t, resp, fiber.StatusNotFound)
}

// TestSessionOwnership tests that sessions are invisible to other users
func TestSessionOwnership(t *testing.T) {
	e := setupApp(t)
	e.grant(t, "u1", quota.PlanFirstCrush)

	resp := e.do(t, "POST", "/api/builder/sessions", "u1", nil)
	var sess handlers.SessionResponse
	decode(t, resp, &sess)

	resp = e.do(t, "GET", "/api/builder/sessions/"+sess.ID, "u2", nil)
	expectStatus(t, resp, fiber.StatusNotFound)
	resp = e.do(t, "POST", "/api/builder/sessions/"+sess.ID+"/sections", "u2", map[string]string{"type": "hero"})
	expectStatus(t, resp, fiber.StatusNotFound)
}

// TestBuilderHTML tests the server-rendered editor and its form post
func TestBuilderHTML(t *testing.T) {
	e := setupApp(t)
	e.grant(t, "u1", quota.PlanFirstCrush)

	resp := e.do(t, "GET", "/builder", "u1", nil)
	expectStatus(t, resp, fiber.StatusSeeOther)
	location := resp.Header.Get("Location")
	if !strings.HasPrefix(location, "/builder/") {
		t.Fatalf("Expected a redirect to the session, got %q", location)
	}
	sessionID := strings.TrimPrefix(location, "/builder/")

	resp = e.do(t, "POST", "/api/builder/sessions/"+sessionID+"/sections", "u1", map[string]string{"type": "love-letter"})
	var sess handlers.SessionResponse
	decode(t, resp, &sess)
	letterID := sess.Document.Content.Sections[0].ID

	form := url.Values{"title": {"Dear Ben"}, "content": {"<b>always</b>"}}
	req := httptest.NewRequest("POST", "/builder/"+sessionID+"/sections/"+letterID, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(testUserHeader, "u1")
	resp = e.send(t, req)
	expectStatus(t, resp, fiber.StatusSeeOther)

	resp = e.do(t, "GET", "/builder/"+sessionID, "u1", nil)
	expectStatus(t, resp, 200)
	body := readBody(t, resp)
	if !strings.Contains(body, "Dear Ben") {
		t.Error("Expected the updated letter title in the editor")
	}
	if strings.Contains(body, "<b>always</b>") {
		t.Error("Expected letter content to be escaped")
	}
}

// TestGetPublicPage tests the GET /api/public/pages/:slug endpoint
func TestGetPublicPage(t *testing.T) {
	e := setupApp(t)
	e.seedPage(t, "openpage01", nil)
	e.seedPage(t, "draftpage1", func(p *models.LovePage) { p.IsPublished = false })

	resp := e.do(t, "GET", "/api/public/pages/openpage01", "", nil)
	expectStatus(t, resp, 200)
	var page services.PublicPage
	decode(t, resp, &page)
	if page.State != access.Visible || page.Content == nil || page.ViewCount != 1 {
		t.Errorf("Expected a visible counted page, got %+v", page)
	}

	for _, slug := range []string{"draftpage1", "nosuchpage"} {
		resp = e.do(t, "GET", "/api/public/pages/"+slug, "", nil)
		var out map[string]interface{}
		decode(t, resp, &out)
		if resp.StatusCode != fiber.StatusNotFound || out["type"] != "not_found" {
			t.Errorf("%s: expected a generic 404, got %d %v", slug, resp.StatusCode, out)
		}
	}
}

// TestUnlockAPI tests the password unlock endpoint and token reuse
func TestUnlockAPI(t *testing.T) {
	e := setupApp(t)
	e.seedPage(t, "secretpage", withPassword(t, "hunter2"))

	resp := e.do(t, "GET", "/api/public/pages/secretpage", "", nil)
	expectStatus(t, resp, 200)
	var page services.PublicPage
	decode(t, resp, &page)
	if page.State != access.PasswordLocked || page.Content != nil {
		t.Fatalf("Expected a password locked page, got %+v", page)
	}

	resp = e.do(t, "POST", "/api/public/pages/secretpage/unlock", "", map[string]string{"password": "nope"})
	expectStatus(t, resp, fiber.StatusUnauthorized)
	resp = e.do(t, "POST", "/api/public/pages/nosuchpage/unlock", "", map[string]string{"password": "nope"})
	expectStatus(t, resp, fiber.StatusUnauthorized)

	resp = e.do(t, "POST", "/api/public/pages/secretpage/unlock", "", map[string]string{"password": "hunter2"})
	expectStatus(t, resp, 200)
	var res services.UnlockResult
	decode(t, resp, &res)
	if res.Token == "" || res.Page.Content == nil {
		t.Fatalf("Expected a token and content, got %+v", res)
	}

	req := httptest.NewRequest("GET", "/api/public/pages/secretpage", nil)
	req.Header.Set(handlers.UnlockTokenHeader, res.Token)
	resp = e.send(t, req)
	expectStatus(t, resp, 200)
	decode(t, resp, &page)
	if page.State != access.Visible || !page.Unlocked {
		t.Errorf("Expected the token to unlock the page, got %+v", page)
	}
}

// TestUnlockRateLimited tests that repeated failures are throttled
func TestUnlockRateLimited(t *testing.T) {
	e := setupApp(t)
	e.seedPage(t, "secretpage", withPassword(t, "hunter2"))

	for i := 0; i < 5; i++ {
		resp := e.do(t, "POST", "/api/public/pages/secretpage/unlock", "", map[string]string{"password": "nope"})
		expectStatus(t, resp, fiber.StatusUnauthorized)
	}
	resp := e.do(t, "POST", "/api/public/pages/secretpage/unlock", "", map[string]string{"password": "hunter2"})
	expectStatus(t, resp, fiber.StatusTooManyRequests)
}

// TestViewPageHTML tests the HTML viewer and password form
func TestViewPageHTML(t *testing.T) {
	e := setupApp(t)
	e.seedPage(t, "secretpage", withPassword(t, "hunter2"))

	resp := e.do(t, "GET", "/love/secretpage", "", nil)
	expectStatus(t, resp, 200)
	if body := readBody(t, resp); !strings.Contains(body, `action="/love/secretpage/unlock"`) {
		t.Fatal("Expected the password form")
	}

	post := func(password string) *http.Response {
		form := url.Values{"password": {password}}
		req := httptest.NewRequest("POST", "/love/secretpage/unlock", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return e.send(t, req)
	}

	resp = post("nope")
	expectStatus(t, resp, fiber.StatusUnauthorized)
	if body := readBody(t, resp); !strings.Contains(body, "That password is not right.") {
		t.Error("Expected the failure message on the form")
	}

	resp = post("hunter2")
	expectStatus(t, resp, fiber.StatusSeeOther)
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "unlock_secretpage" {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly {
		t.Fatalf("Expected an http-only unlock cookie, got %v", resp.Cookies())
	}

	req := httptest.NewRequest("GET", "/love/secretpage", nil)
	req.AddCookie(cookie)
	resp = e.send(t, req)
	expectStatus(t, resp, 200)
	if body := readBody(t, resp); !strings.Contains(body, "Forever") {
		t.Error("Expected the unlocked page content")
	}

	resp = e.do(t, "GET", "/love/nosuchpage", "", nil)
	expectStatus(t, resp, fiber.StatusNotFound)
}

// TestFormUnlockOnPublicPageDoesNotCount tests that a rejected form post
// re-renders a public page without bumping its view count
func TestFormUnlockOnPublicPageDoesNotCount(t *testing.T) {
	e := setupApp(t)
	e.seedPage(t, "openpage01", nil)

	for i := 0; i < 3; i++ {
		form := url.Values{"password": {"guess"}}
		req := httptest.NewRequest("POST", "/love/openpage01/unlock", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp := e.send(t, req)
		expectStatus(t, resp, fiber.StatusUnauthorized)
		readBody(t, resp)
	}

	var row models.LovePage
	if err := e.db.Where("slug = ?", "openpage01").First(&row).Error; err != nil {
		t.Fatalf("Failed to load page: %v", err)
	}
	if row.ViewCount != 0 {
		t.Errorf("Expected no counted views, got %d", row.ViewCount)
	}
}

// TestMediaUpload tests the POST /api/media endpoint
func TestMediaUpload(t *testing.T) {
	e := setupApp(t)

	upload := func(name string, content []byte) *http.Response {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile("file", name)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		part.Write(content)
		w.Close()
		req := httptest.NewRequest("POST", "/api/media", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set(testUserHeader, "u1")
		return e.send(t, req)
	}

	resp := upload("us.png", pngHeader)
	expectStatus(t, resp, fiber.StatusCreated)
	var file models.MediaFile
	decode(t, resp, &file)
	if file.FileType != "image" || !strings.HasPrefix(file.FileURL, "https://cdn.test/users/u1/") {
		t.Errorf("Unexpected media file %+v", file)
	}

	resp = upload("notes.txt", []byte("just some text"))
	expectStatus(t, resp, fiber.StatusUnsupportedMediaType)
	if len(e.blobs.keys) != 1 {
		t.Errorf("Expected one stored object, got %d", len(e.blobs.keys))
	}
}

// TestGenerateValidation tests that the AI endpoint validates before calling out
func TestGenerateValidation(t *testing.T) {
	e := setupApp(t)

	resp := e.do(t, "POST", "/api/ai/generate", "u1", map[string]interface{}{"kind": "love-story", "params": map[string]string{}})
	expectStatus(t, resp, fiber.StatusBadRequest)

	resp = e.do(t, "POST", "/api/ai/generate", "u1", map[string]interface{}{"kind": "love-story", "params": map[string]string{"promptDetails": "we met at a bus stop"}})
	expectStatus(t, resp, fiber.StatusServiceUnavailable)
}

// TestApplyPlan tests the PUT /api/admin/wallets/:user endpoint
func TestApplyPlan(t *testing.T) {
	e := setupApp(t)

	resp := e.do(t, "PUT", "/api/admin/wallets/u9", "admin", map[string]string{"planType": "platinum"})
	expectStatus(t, resp, fiber.StatusBadRequest)

	resp = e.do(t, "PUT", "/api/admin/wallets/u9", "admin", map[string]string{"planType": quota.PlanForeverValentine})
	expectStatus(t, resp, 200)
	var status quota.Status
	decode(t, resp, &status)
	if !status.Unlimited || !status.CanCreate {
		t.Errorf("Expected unlimited plan, got %+v", status)
	}
}

// TestNotFound tests the catch-all route
func TestNotFound(t *testing.T) {
	e := setupApp(t)
	resp := e.do(t, "GET", "/api/nothing/here", "", nil)
	expectStatus(t, resp, fiber.StatusNotFound)
}

// TestHealth tests the GET /health endpoint
func TestHealth(t *testing.T) {
	db := testutil.NewDB(t)
	authz := httptest.NewServer(http.NotFoundHandler())
	defer authz.Close()

	cases := []struct {
		name     string
		authzURL string
		want     int
	}{
		{"healthy", authz.URL, fiber.StatusOK},
		{"authorizer down", "", fiber.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			h := &handlers.HealthHandler{
				Config: &config.Config{DBType: "sqlite", DBAppDatabase: ":memory:", AuthzURL: tc.authzURL},
				DB:     db,
				Log:    zerolog.Nop(),
			}
			app.Get("/health", h.Health)

			resp, err := app.Test(httptest.NewRequest("GET", "/health", nil), -1)
			if err != nil {
				t.Fatalf("Failed to execute request: %v", err)
			}
			var result services.HealthCheckResult
			decode(t, resp, &result)
			if resp.StatusCode != tc.want {
				t.Errorf("Expected status %d, got %d (%+v)", tc.want, resp.StatusCode, result)
			}
			if result.Database != "ok" {
				t.Errorf("Expected database ok, got %q", result.Database)
			}
		})
	}
}
