package handler

import (
	"pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type InvoiceHandler struct {
	service service.LedgerService
}

func NewInvoiceHandler(s service.LedgerService) *InvoiceHandler {
	return &InvoiceHandler{service: s}
}

// VerifyInvoice is the public receipt check behind printed QR codes.
func (h *InvoiceHandler) VerifyInvoice(c *fiber.Ctx) error {
	view, err := h.service.VerifyInvoice(c.UserContext(), c.Params("invoiceId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(view)
}
