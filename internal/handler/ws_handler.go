package handler

import (
	"pos-ledger/internal/repository"
	"pos-ledger/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type WSHandler struct {
	hub        *ws.Hub
	businesses repository.BusinessRepository
}

func NewWSHandler(hub *ws.Hub, businesses repository.BusinessRepository) *WSHandler {
	return &WSHandler{hub: hub, businesses: businesses}
}

// Upgrade admits members of ?business_id= to that business room.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.SendStatus(fiber.StatusUpgradeRequired)
	}
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	businessID, err := uuid.Parse(c.Query("business_id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "business_id query parameter is required"})
	}

	member, err := h.businesses.IsMember(c.UserContext(), businessID, actor.UserID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	if !member {
		return c.Status(404).JSON(fiber.Map{"error": "business not found"})
	}

	c.Locals("business_id", businessID)
	return c.Next()
}

func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		businessID, _ := conn.Locals("business_id").(uuid.UUID)
		client := ws.NewClient(conn, businessID)
		if err := h.hub.Join(client); err != nil {
			conn.Close()
			return
		}

		for {
			// Keep alive loop
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		// the connection is released when this returns, so wait for the writer
		h.hub.Leave(client)
		<-client.Done()
	})
}
