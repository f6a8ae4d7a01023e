package utils

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/luvnest/internal/types"
)

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends a standard error response
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": timestamp(),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"status":    fiber.StatusNotFound,
		"message":   message,
		"ok":        false,
		"timestamp": timestamp(),
		"url":       c.OriginalURL(),
	})
}

// LimitResponse sends the quota rejection that drives the blocking limit
// screen (403)
func LimitResponse(c *fiber.Ctx, limit *types.LimitError) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"status":       fiber.StatusForbidden,
		"message":      limit.Error(),
		"ok":           false,
		"limitReached": true,
		"limit":        limit,
		"timestamp":    timestamp(),
		"url":          c.OriginalURL(),
		"type":         limit.Kind(),
	})
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status       int               `json:"status"`
	Message      string            `json:"message"`
	Ok           bool              `json:"ok"`
	Timestamp    string            `json:"timestamp"`
	URL          string            `json:"url"`
	Type         string            `json:"type,omitempty"`
	LimitReached bool              `json:"limitReached,omitempty"`
	Limit        *types.LimitError `json:"limit,omitempty"`
}
