package handler

import (
	"context"
	"errors"

	"pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInsufficientPayment),
		errors.Is(err, service.ErrInvalidTotal):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, service.ErrStockRaceLost),
		errors.Is(err, service.ErrInvalidStateTransition):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrIdentifierCollision):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusRequestTimeout
	}
	return fiber.StatusInternalServerError
}

// writeError renders a service error. Storage details never leave the
// process.
func writeError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	body := fiber.Map{"error": err.Error()}
	if status == fiber.StatusInternalServerError {
		body["error"] = "Internal Server Error"
	}
	if service.IsRetryable(err) {
		body["retryable"] = true
	}

	var (
		stockErr *service.InsufficientStockError
		payErr   *service.InsufficientPaymentError
		stateErr *service.InvalidStateTransitionError
	)
	switch {
	case errors.As(err, &stockErr):
		body["details"] = fiber.Map{
			"product_id": stockErr.ProductID,
			"product":    stockErr.ProductName,
			"available":  stockErr.Available,
			"requested":  stockErr.Requested,
		}
	case errors.As(err, &payErr):
		body["details"] = fiber.Map{
			"required": payErr.Required,
			"paid":     payErr.Paid,
		}
	case errors.As(err, &stateErr):
		body["details"] = fiber.Map{"from": stateErr.From, "to": stateErr.To}
	}
	return c.Status(status).JSON(body)
}
