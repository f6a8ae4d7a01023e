package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/luvnest/internal/quota"
)

// AdminHandler applies purchased plans to user wallets.
type AdminHandler struct {
	Guard *quota.Guard
}

type applyPlanRequest struct {
	PlanType string `json:"planType"`
}

// ApplyPlan handles PUT /api/admin/wallets/:user
// @Summary Apply a plan
// @Description Sets the user's plan and resets template usage
// @Tags Admin
// @Accept json
// @Produce json
// @Param user path string true "User ID"
// @Param request body applyPlanRequest true "Plan"
// @Success 200 {object} quota.Status
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /admin/wallets/{user} [put]
func (h *AdminHandler) ApplyPlan(c *fiber.Ctx) error {
	var in applyPlanRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	status, err := h.Guard.ApplyPlan(c.UserContext(), c.Params("user"), in.PlanType)
	if err != nil {
		return err
	}
	return c.JSON(status)
}
