// common.go
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
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/luvnest/internal/builder"
	"github.com/localnerve/luvnest/internal/services"
	"github.com/localnerve/luvnest/internal/types"
	"github.com/localnerve/luvnest/internal/utils"
	"github.com/rs/zerolog"
)

// IdempotencyHeader carries the client key that makes quota consuming
// requests safe to retry.
const IdempotencyHeader = "Idempotency-Key"

// getUserID extracts the user ID the auth middleware stored in context
func getUserID(c *fiber.Ctx) (string, error) {
	user := c.Locals("user")
	if user == nil {
		return "", fmt.Errorf("user not found in context")
	}

	userMap, ok := user.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid user data format")
	}

	userID, ok := userMap["id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found")
	}

	return userID, nil
}

// optionalUserID is getUserID for routes open to anonymous viewers.
func optionalUserID(c *fiber.Ctx) string {
	id, _ := getUserID(c)
	return id
}

func requireUser(c *fiber.Ctx) (string, error) {
	userID, err := getUserID(c)
	if err != nil {
		return "", &types.CustomError{Code: fiber.StatusForbidden, Message: err.Error(), Type: "auth.user"}
	}
	return userID, nil
}

// parseBody decodes the JSON body into v.
func parseBody(c *fiber.Ctx, v interface{}) error {
	if err := c.BodyParser(v); err != nil {
		return types.ValidationErrorf("invalid request body: %v", err)
	}
	return nil
}

// classify maps domain errors to a status and error type.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, types.ErrValidation):
		return fiber.StatusBadRequest, "validation"
	case errors.Is(err, types.ErrDuplicateHero):
		return fiber.StatusConflict, "builder.duplicate_hero"
	case errors.Is(err, services.ErrDuplicateRequest):
		return fiber.StatusConflict, "idempotency.in_progress"
	case errors.Is(err, builder.ErrClosed):
		return fiber.StatusGone, "builder.closed"
	case errors.Is(err, types.ErrInvalidPassword):
		return fiber.StatusUnauthorized, "viewer.invalid_password"
	case errors.Is(err, types.ErrRateLimited):
		return fiber.StatusTooManyRequests, "viewer.rate_limited"
	case errors.Is(err, types.ErrFileTooLarge):
		return fiber.StatusRequestEntityTooLarge, "media.too_large"
	case errors.Is(err, types.ErrUnsupportedMedia):
		return fiber.StatusUnsupportedMediaType, "media.unsupported"
	case errors.Is(err, types.ErrUnavailable):
		return fiber.StatusServiceUnavailable, "upstream.unavailable"
	}
	return fiber.StatusInternalServerError, "unknown"
}

// ErrorHandler renders every error returned by a handler or middleware in
// the standard error envelope.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var limit *types.LimitError
		if errors.As(err, &limit) {
			return utils.LimitResponse(c, limit)
		}

		var ce *types.CustomError
		if errors.As(err, &ce) {
			return utils.ErrorResponse(c, ce.Message, ce.Code, ce.Type)
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return utils.ErrorResponse(c, fe.Message, fe.Code, "http")
		}

		status, kind := classify(err)
		message := err.Error()
		if status >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("method", c.Method()).Str("url", c.OriginalURL()).Msg("request failed")
			if status == fiber.StatusInternalServerError {
				message = "Internal Server Error"
			}
		}
		return utils.ErrorResponse(c, message, status, kind)
	}
}

// NotFound is the catch-all for unknown routes.
func NotFound(c *fiber.Ctx) error {
	return utils.NotFoundResponse(c, "[404] Resource Not Found")
}
