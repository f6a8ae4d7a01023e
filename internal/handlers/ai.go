package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/luvnest/internal/services"
)

// AIHandler proxies text generation for the AI story and love letter
// sections.
type AIHandler struct {
	Generator *services.Generator
}

// GenerateResponse is the generated text.
type GenerateResponse struct {
	Text string `json:"text"`
}

// Generate handles POST /api/ai/generate
// @Summary Generate section text
// @Description Writes a love story or love letter from the given details
// @Tags AI
// @Accept json
// @Produce json
// @Param request body services.GenerateRequest true "Kind and parameters"
// @Success 200 {object} GenerateResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 503 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /ai/generate [post]
func (h *AIHandler) Generate(c *fiber.Ctx) error {
	if _, err := requireUser(c); err != nil {
		return err
	}
	var in services.GenerateRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	text, err := h.Generator.Generate(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.JSON(GenerateResponse{Text: text})
}
