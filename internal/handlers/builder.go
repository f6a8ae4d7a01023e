// builder.go
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

package handlers

import (
	"encoding/json"
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/luvnest/internal/builder"
	"github.com/localnerve/luvnest/internal/document"
	"github.com/localnerve/luvnest/internal/render"
	"github.com/localnerve/luvnest/internal/types"
)

// BuilderHandler exposes builder sessions over JSON and server-rendered
// HTML.
type BuilderHandler struct {
	Sessions *builder.Sessions
	Renderer *render.Renderer
}

// SessionResponse is a builder session with its document and save state.
type SessionResponse struct {
	ID       string             `json:"id"`
	Document *document.Document `json:"document"`
	Status   builder.Status     `json:"status"`
}

type openSessionRequest struct {
	PageID string `json:"pageId"`
}

type addSectionRequest struct {
	Type string `json:"type"`
}

type reorderRequest struct {
	ActiveID string `json:"activeId"`
	OverID   string `json:"overId"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type themeRequest struct {
	ThemeSlug string `json:"themeSlug"`
}

func sessionResponse(sess *builder.Session) SessionResponse {
	return SessionResponse{
		ID:       sess.ID,
		Document: sess.Store.Document(),
		Status:   sess.Store.Status(),
	}
}

func (h *BuilderHandler) session(c *fiber.Ctx) (*builder.Session, error) {
	userID, err := requireUser(c)
	if err != nil {
		return nil, err
	}
	return h.Sessions.Get(userID, c.Params("session"))
}

// mutation runs fn on the session store and answers with the new state.
func (h *BuilderHandler) mutation(c *fiber.Ctx, status int, fn func(s *builder.Store) error) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	if err := fn(sess.Store); err != nil {
		return err
	}
	return c.Status(status).JSON(sessionResponse(sess))
}

// OpenSession handles POST /api/builder/sessions
// @Summary Open a builder session
// @Description Starts editing a new page, or an existing one when pageId is given. Quota denials return the limit payload.
// @Tags Builder
// @Accept json
// @Produce json
// @Param request body openSessionRequest false "Page to edit"
// @Success 201 {object} SessionResponse
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /builder/sessions [post]
func (h *BuilderHandler) OpenSession(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var in openSessionRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &in); err != nil {
			return err
		}
	}
	sess, err := h.Sessions.Open(c.UserContext(), userID, in.PageID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(sessionResponse(sess))
}

// GetSession handles GET /api/builder/sessions/:session
// @Summary Get a builder session
// @Tags Builder
// @Produce json
// @Param session path string true "Session ID"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /builder/sessions/{session} [get]
func (h *BuilderHandler) GetSession(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(sessionResponse(sess))
}

// CloseSession handles DELETE /api/builder/sessions/:session
// @Summary Close a builder session
// @Description Pending autosaves are dropped unless flush=true
// @Tags Builder
// @Param session path string true "Session ID"
// @Param flush query bool false "Write pending changes first"
// @Success 204
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /builder/sessions/{session} [delete]
func (h *BuilderHandler) CloseSession(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	if err := h.Sessions.Close(c.UserContext(), userID, c.Params("session"), c.QueryBool("flush", false)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddSection handles POST /api/builder/sessions/:session/sections
// @Summary Add a section
// @Tags Builder
// @Accept json
// @Produce json
// @Param session path string true "Session ID"
// @Param request body addSectionRequest true "Section type"
// @Success 201 {object} SessionResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /builder/sessions/{session}/sections [post]
func (h *BuilderHandler) AddSection(c *fiber.Ctx) error {
	var in addSectionRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	t, err := document.ParseSectionType(in.Type)
	if err != nil {
		return err
	}
	return h.mutation(c, fiber.StatusCreated, func(s *builder.Store) error {
		_, err := s.AddSection(t)
		return err
	})
}

// UpdateSection handles PATCH /api/builder/sessions/:session/sections/:id
// @Summary Update section data
// @Description Shallow merges the body into the section data
// @Tags Builder
// @Accept json
// @Produce json
// @Param session path string true "Session ID"
// @Param id path string true "Section ID"
// @Param data body object true "Partial section data"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /builder/sessions/{session}/sections/{id} [patch]
func (h *BuilderHandler) UpdateSection(c *fiber.Ctx) error {
	var partial map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &partial); err != nil {
		return types.ValidationErrorf("invalid section data: %v", err)
	}
	return h.mutation(c, fiber.StatusOK, func(s *builder.Store) error {
		return s.UpdateSection(c.Params("id"), partial)
	})
}

// RemoveSection handles DELETE /api/builder/sessions/:session/sections/:id
// @Summary Remove a section
// @Tags Builder
// @Produce json
// @Param session path string true "Session ID"
// @Param id path string true "Section ID"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /builder/sessions/{session}/sections/{id} [delete]
func (h *BuilderHandler) RemoveSection(c *fiber.Ctx) error {
	return h.mutation(c, fiber.StatusOK, func(s *builder.Store) error {
		return s.RemoveSection(c.Params("id"))
	})
}

// ToggleVisibility handles POST /api/builder/sessions/:session/sections/:id/visibility
// @Summary Toggle section visibility
// @Tags Builder
// @Produce json
// @Param session path string true "Session ID"
// @Param id path string true "Section ID"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /builder/sessions/{session}/sections/{id}/visibility [post]
func (h *BuilderHandler) ToggleVisibility(c *fiber.Ctx) error {
	return h.mutation(c, fiber.StatusOK, func(s *builder.Store) error {
		return s.ToggleVisibility(c.Params("id"))
	})
}

// ReorderSections handles POST /api/builder/sessions/:session/reorder
// @Summary Move a section
// @Description Moves activeId to the position held by overId
// @Tags Builder
// @Accept json
// @Produce json
// @Param session path string true "Session ID"
// @Param request body reorderRequest true "Move"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /builder/sessions/{session}/reorder [post]
func (h *BuilderHandler) ReorderSections(c *fiber.Ctx) error {
	var in reorderRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	return h.mutation(c, fiber.StatusOK, func(s *builder.Store) error {
		return s.ReorderSections(in.ActiveID, in.OverID)
	})
}

// SetTitle handles PUT /api/builder/sessions/:session/title
// @Summary Rename the page
// @Tags Builder
// @Accept json
// @Produce json
// @Param session path string true "Session ID"
// @Param request body titleRequest true "Title"
// @Success 200 {object} SessionResponse
// @Security CookieAuth
// @Router /builder/sessions/{session}/title [put]
func (h *BuilderHandler) SetTitle(c *fiber.Ctx) error {
	var in titleRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	return h.mutation(c, fiber.StatusOK, func(s *builder.Store) error {
		return s.SetTitle(in.Title)
	})
}

// SetTheme handles PUT /api/builder/sessions/:session/theme
// @Summary Switch the theme
// @Tags Builder
// @Accept json
// @Produce json
// @Param session path string true "Session ID"
// @Param request body themeRequest true "Theme"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /builder/sessions/{session}/theme [put]
func (h *BuilderHandler) SetTheme(c *fiber.Ctx) error {
	var in themeRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	return h.mutation(c, fiber.StatusOK, func(s *builder.Store) error {
		return s.SetTheme(in.ThemeSlug)
	})
}

// Save handles POST /api/builder/sessions/:session/save
// @Summary Save the page
// @Description Creates the page on first save, otherwise consumes an edit. Send an Idempotency-Key to make retries safe.
// @Tags Builder
// @Produce json
// @Param session path string true "Session ID"
// @Param Idempotency-Key header string false "Client request key"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /builder/sessions/{session}/save [post]
func (h *BuilderHandler) Save(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	if _, err := sess.Store.Save(c.UserContext(), c.Get(IdempotencyHeader)); err != nil {
		return err
	}
	return c.JSON(sessionResponse(sess))
}

// Flush handles POST /api/builder/sessions/:session/flush
// @Summary Write pending changes now
// @Tags Builder
// @Produce json
// @Param session path string true "Session ID"
// @Success 200 {object} SessionResponse
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /builder/sessions/{session}/flush [post]
func (h *BuilderHandler) Flush(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	if err := sess.Store.Flush(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(sessionResponse(sess))
}

// BuilderPage handles GET /builder/:session
func (h *BuilderHandler) BuilderPage(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return h.Renderer.Builder(c, render.BuilderPage{
		SessionID: sess.ID,
		Document:  sess.Store.Document(),
		Status:    sess.Store.Status(),
	})
}

// OpenPage handles GET /builder?page=... by opening a session and
// redirecting to it. Quota denials render the limit screen.
func (h *BuilderHandler) OpenPage(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	sess, err := h.Sessions.Open(c.UserContext(), userID, c.Query("page"))
	var limit *types.LimitError
	if errors.As(err, &limit) {
		c.Type("html", "utf-8")
		c.Status(fiber.StatusForbidden)
		return h.Renderer.Limit(c, limit)
	}
	if err != nil {
		return err
	}
	return c.Redirect("/builder/"+url.PathEscape(sess.ID), fiber.StatusSeeOther)
}

// SubmitSection handles POST /builder/:session/sections/:id, the editor
// form post back.
func (h *BuilderHandler) SubmitSection(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	form := make(map[string][]string)
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		form[string(key)] = append(form[string(key)], string(value))
	})
	partial, err := render.EditorFormPartial(form)
	if err != nil {
		return err
	}
	if err := sess.Store.UpdateSection(c.Params("id"), partial); err != nil {
		return err
	}
	return c.Redirect("/builder/"+url.PathEscape(sess.ID)+"#section-"+url.PathEscape(c.Params("id")), fiber.StatusSeeOther)
}
