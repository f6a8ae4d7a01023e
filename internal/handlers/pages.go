// pages.go
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
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/luvnest/internal/quota"
	"github.com/localnerve/luvnest/internal/services"
)

// PagesHandler serves the owner's dashboard, page settings and plan limits.
type PagesHandler struct {
	Pages *services.PageService
	Guard *quota.Guard
}

// GetLimits handles GET /api/limits
// @Summary Get plan limits
// @Description Plan type, template usage and whether a new page can be created
// @Tags Pages
// @Produce json
// @Success 200 {object} quota.Status
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /limits [get]
func (h *PagesHandler) GetLimits(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	status, err := h.Guard.Status(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(status)
}

// ListPages handles GET /api/pages
// @Summary List pages
// @Description The user's love pages, most recently updated first
// @Tags Pages
// @Produce json
// @Success 200 {array} services.PageSummary
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /pages [get]
func (h *PagesHandler) ListPages(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	pages, err := h.Pages.List(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(pages)
}

// GetPage handles GET /api/pages/:id
// @Summary Get a page
// @Description The full document of one of the user's pages
// @Tags Pages
// @Produce json
// @Param id path string true "Page ID"
// @Success 200 {object} document.Document
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /pages/{id} [get]
func (h *PagesHandler) GetPage(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	doc, err := h.Pages.Load(c.UserContext(), c.Params("id"), userID)
	if err != nil {
		return err
	}
	return c.JSON(doc)
}

// UpdateSettings handles PUT /api/pages/:id/settings
// @Summary Update privacy settings
// @Description Publish flag, privacy mode, unlock and expiry times, and password
// @Tags Pages
// @Accept json
// @Produce json
// @Param id path string true "Page ID"
// @Param settings body services.Settings true "Settings"
// @Success 200 {object} document.Document
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /pages/{id}/settings [put]
func (h *PagesHandler) UpdateSettings(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var in services.Settings
	if err := parseBody(c, &in); err != nil {
		return err
	}
	doc, err := h.Pages.UpdateSettings(c.UserContext(), c.Params("id"), userID, in)
	if err != nil {
		return err
	}
	return c.JSON(doc)
}
