package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/luvnest/internal/types"
)

// SessionCookie is the Authorizer session cookie name.
const SessionCookie = "cookie_session"

// SessionAuthorizer validates Authorizer sessions. Init is called on every
// authenticated request and only the first call has any effect.
type SessionAuthorizer interface {
	Init(requestProtocol, requestHost string) error
	ValidateSession(cookie string, roles []string) (map[string]interface{}, error)
}

// AuthAdmin validates that the request has admin role authorization
func AuthAdmin(a SessionAuthorizer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, a, []string{"admin"}, "auth.admin", true)
	}
}

// AuthUser validates that the request has user role authorization
func AuthUser(a SessionAuthorizer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, a, []string{"user"}, "auth.user", true)
	}
}

// OptionalUser sets the user when a valid session is present and lets the
// request through either way. The public viewer uses it to recognize owners.
func OptionalUser(a SessionAuthorizer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, a, []string{"user"}, "auth.user", false)
	}
}

// authorize performs the authorization check
func authorize(c *fiber.Ctx, a SessionAuthorizer, roles []string, errorType string, required bool) error {
	session := c.Cookies(SessionCookie)
	if session == "" {
		if !required {
			return c.Next()
		}
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: fmt.Sprintf("Authorizer cookie %q not found", SessionCookie),
			Type:    errorType,
		}
	}

	if err := a.Init(c.Protocol(), c.Hostname()); err != nil {
		if !required {
			return c.Next()
		}
		return &types.CustomError{
			Code:    fiber.StatusServiceUnavailable,
			Message: fmt.Sprintf("Authorizer unavailable: %v", err),
			Type:    errorType,
		}
	}

	user, err := a.ValidateSession(session, roles)
	if err != nil {
		if !required {
			return c.Next()
		}
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: fmt.Sprintf("Invalid session: %v", err),
			Type:    errorType,
		}
	}

	c.Locals("user", user)
	return c.Next()
}
