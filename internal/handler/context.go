package handler

import (
	"pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// actorFrom reads the caller set by the auth middleware.
func actorFrom(c *fiber.Ctx) (service.Actor, bool) {
	raw, _ := c.Locals("user_id").(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return service.Actor{}, false
	}
	name, _ := c.Locals("user_name").(string)
	return service.Actor{UserID: id, Name: name}, true
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
}

func parseUUID(id string) (uuid.UUID, error) {
	return uuid.Parse(id)
}
