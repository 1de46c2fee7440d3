package handler

import (
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Transactions *TransactionHandler
	Invoices     *InvoiceHandler
	Products     *ProductHandler
	Dashboard    *DashboardHandler
	WS           *WSHandler
}

// Register mounts the API under /api/v1 and the event stream on /ws.
// auth guards every route except invoice verification.
func Register(app *fiber.App, h Handlers, auth fiber.Handler) {
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	api.Get("/invoices/:invoiceId", h.Invoices.VerifyInvoice)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", auth)

	protected.Get("/dashboard/summary", h.Dashboard.GetSummary)

	protected.Get("/products", h.Products.GetProducts)
	protected.Get("/products/low-stock", h.Products.GetLowStock)
	protected.Post("/products", h.Products.CreateProduct)

	protected.Get("/transactions", h.Transactions.GetTransactions)
	protected.Get("/transactions/:id", h.Transactions.GetTransaction)
	protected.Post("/transactions", h.Transactions.CreateTransaction)
	protected.Post("/transactions/:id/cancel", h.Transactions.CancelTransaction)

	if h.WS != nil {
		app.Get("/ws", auth, h.WS.Upgrade, h.WS.Serve())
	}
}
