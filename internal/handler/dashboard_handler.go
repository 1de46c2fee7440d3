package handler

import (
	"strconv"

	"pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(s service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// GetSummary returns ledger totals and inventory stats for charts
// Query params: business_id, days (default 7)
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	businessID, err := parseUUID(c.Query("business_id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "business_id query parameter is required"})
	}

	days, err := strconv.Atoi(c.Query("days", "7"))
	if err != nil || days <= 0 {
		days = 7
	}

	summary, err := h.service.GetSummary(c.UserContext(), actor, businessID, days)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"period": days,
		"data":   summary,
	})
}
