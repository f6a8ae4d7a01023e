package handlers

import (
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/luvnest/internal/access"
	"github.com/localnerve/luvnest/internal/render"
	"github.com/localnerve/luvnest/internal/services"
	"github.com/localnerve/luvnest/internal/types"
)

// UnlockTokenHeader carries an unlock token for API clients that do not
// keep cookies.
const UnlockTokenHeader = "X-Unlock-Token"

// ViewerHandler serves published pages to anyone with the link.
type ViewerHandler struct {
	Viewer       *services.ViewerService
	Renderer     *render.Renderer
	CookieTTL    time.Duration
	SecureCookie bool
}

type unlockRequest struct {
	Password string `json:"password" form:"password"`
}

func unlockCookieName(slug string) string {
	return "unlock_" + slug
}

func (h *ViewerHandler) unlockToken(c *fiber.Ctx) string {
	if token := c.Get(UnlockTokenHeader); token != "" {
		return token
	}
	return c.Cookies(unlockCookieName(c.Params("slug")))
}

func (h *ViewerHandler) setUnlockCookie(c *fiber.Ctx, slug, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     unlockCookieName(slug),
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.CookieTTL),
		Secure:   h.SecureCookie,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// hidden reports states that must look like a missing page.
func hidden(state access.State) bool {
	return state == access.NotFound || state == access.Unpublished
}

// GetPublicPage handles GET /api/public/pages/:slug
// @Summary View a love page
// @Description Evaluates the page for the viewer. Locked and expired pages answer with their state and no content.
// @Tags Public
// @Produce json
// @Param slug path string true "Page slug"
// @Param X-Unlock-Token header string false "Token from an earlier unlock"
// @Success 200 {object} services.PublicPage
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /public/pages/{slug} [get]
func (h *ViewerHandler) GetPublicPage(c *fiber.Ctx) error {
	page, err := h.Viewer.View(c.UserContext(), c.Params("slug"), optionalUserID(c), h.unlockToken(c))
	if err != nil {
		return err
	}
	if hidden(page.State) {
		return types.ErrNotFound
	}
	return c.JSON(page)
}

// UnlockPage handles POST /api/public/pages/:slug/unlock
// @Summary Unlock a password protected page
// @Description Returns an unlock token and the page. Failed attempts are rate limited per page and client.
// @Tags Public
// @Accept json
// @Produce json
// @Param slug path string true "Page slug"
// @Param request body unlockRequest true "Password"
// @Success 200 {object} services.UnlockResult
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 429 {object} utils.ErrorResponseStruct
// @Router /public/pages/{slug}/unlock [post]
func (h *ViewerHandler) UnlockPage(c *fiber.Ctx) error {
	var in unlockRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	slug := c.Params("slug")
	res, err := h.Viewer.Unlock(c.UserContext(), slug, in.Password, c.IP(), optionalUserID(c))
	if err != nil {
		return err
	}
	h.setUnlockCookie(c, slug, res.Token)
	return c.JSON(res)
}

func (h *ViewerHandler) renderPage(c *fiber.Ctx, status int, page services.PublicPage, message string) error {
	if hidden(page.State) && status < fiber.StatusBadRequest {
		status = fiber.StatusNotFound
	}
	c.Type("html", "utf-8")
	c.Status(status)
	return h.Renderer.Viewer(c, render.ViewerPage{
		Title:    page.Title,
		Slug:     page.Slug,
		State:    page.State,
		UnlockAt: page.UnlockAt,
		Content:  page.Content,
		Error:    message,
	})
}

// ViewPage handles GET /love/:slug
func (h *ViewerHandler) ViewPage(c *fiber.Ctx) error {
	page, err := h.Viewer.View(c.UserContext(), c.Params("slug"), optionalUserID(c), h.unlockToken(c))
	if err != nil {
		return err
	}
	return h.renderPage(c, fiber.StatusOK, page, "")
}

// SubmitPassword handles POST /love/:slug/unlock, the password form.
func (h *ViewerHandler) SubmitPassword(c *fiber.Ctx) error {
	var in unlockRequest
	if err := c.BodyParser(&in); err != nil {
		return types.ValidationErrorf("invalid form: %v", err)
	}
	slug := c.Params("slug")
	viewerID := optionalUserID(c)

	res, err := h.Viewer.Unlock(c.UserContext(), slug, in.Password, c.IP(), viewerID)
	if err == nil {
		h.setUnlockCookie(c, slug, res.Token)
		return c.Redirect("/love/"+url.PathEscape(slug), fiber.StatusSeeOther)
	}

	var status int
	var message string
	switch {
	case errors.Is(err, types.ErrInvalidPassword):
		status, message = fiber.StatusUnauthorized, "That password is not right."
	case errors.Is(err, types.ErrRateLimited):
		status, message = fiber.StatusTooManyRequests, "Too many attempts. Try again later."
	default:
		return err
	}

	page, verr := h.Viewer.Peek(c.UserContext(), slug, "")
	if verr != nil {
		return verr
	}
	return h.renderPage(c, status, page, message)
}
