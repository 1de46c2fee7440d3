package handler

import (
	"pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	service service.ProductService
}

func NewProductHandler(s service.ProductService) *ProductHandler {
	return &ProductHandler{service: s}
}

func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req service.CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	product, err := h.service.CreateProduct(c.UserContext(), actor, &req)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Product created", "data": product})
}

func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	businessID, err := parseUUID(c.Query("business_id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "business_id query parameter is required"})
	}

	products, err := h.service.ListProducts(c.UserContext(), actor, businessID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(products)
}

func (h *ProductHandler) GetLowStock(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	businessID, err := parseUUID(c.Query("business_id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "business_id query parameter is required"})
	}

	products, err := h.service.ListLowStock(c.UserContext(), actor, businessID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(products)
}
