package handler

import (
	"strconv"
	"time"

	"pos-ledger/internal/model"
	"pos-ledger/internal/repository"
	"pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type TransactionHandler struct {
	service service.LedgerService
}

func NewTransactionHandler(s service.LedgerService) *TransactionHandler {
	return &TransactionHandler{service: s}
}

func (h *TransactionHandler) CreateTransaction(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req service.CreateTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	txn, err := h.service.CreateTransaction(c.UserContext(), actor, &req)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Transaction recorded", "data": txn})
}

// GetTransactions lists a business ledger, newest first.
// Query params: business_id, type, status, from, to, limit, offset
func (h *TransactionHandler) GetTransactions(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	filter, err := parseFilter(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	rows, total, err := h.service.ListTransactions(c.UserContext(), actor, filter)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"data":   rows,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (h *TransactionHandler) GetTransaction(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}

	txn, err := h.service.GetTransaction(c.UserContext(), actor, id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(txn)
}

func (h *TransactionHandler) CancelTransaction(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}

	txn, err := h.service.CancelTransaction(c.UserContext(), actor, id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Transaction cancelled", "data": txn})
}

type filterError string

func (e filterError) Error() string { return string(e) }

func parseFilter(c *fiber.Ctx) (repository.TransactionFilter, error) {
	var f repository.TransactionFilter

	businessID, err := uuid.Parse(c.Query("business_id"))
	if err != nil {
		return f, filterError("business_id query parameter is required")
	}
	f.BusinessID = businessID
	f.Type = model.TransactionType(c.Query("type"))
	f.Status = model.TransactionStatus(c.Query("status"))

	if v := c.Query("from"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			return f, filterError("from must be RFC3339 or YYYY-MM-DD")
		}
		f.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			return f, filterError("to must be RFC3339 or YYYY-MM-DD")
		}
		f.To = &t
	}

	f.Limit, _ = strconv.Atoi(c.Query("limit", "50"))
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	f.Offset, _ = strconv.Atoi(c.Query("offset", "0"))
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f, nil
}

func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
