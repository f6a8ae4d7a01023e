package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/luvnest/internal/config"
	"github.com/localnerve/luvnest/internal/services"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// HealthHandler reports the database and Authorizer status.
type HealthHandler struct {
	Config *config.Config
	DB     *gorm.DB
	Log    zerolog.Logger
}

// Health handles GET /health
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	result := services.HealthCheck(c.UserContext(), h.Config, h.DB, h.Log)
	if result.Status != "healthy" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(result)
	}
	return c.JSON(result)
}
