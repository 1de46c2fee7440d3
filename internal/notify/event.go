package notify

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventSaleCompleted        EventType = "sale_completed"
	EventRefundProcessed      EventType = "refund_processed"
	EventLowStock             EventType = "low_stock"
	EventCustomerCreated      EventType = "customer_created"
	EventProductCreated       EventType = "product_created"
	EventTransactionCancelled EventType = "transaction_cancelled"
)

// Event is the envelope handed to every sink.
type Event struct {
	ID         uuid.UUID   `json:"id"`
	Type       EventType   `json:"type"`
	BusinessID uuid.UUID   `json:"business_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

func NewEvent(t EventType, businessID uuid.UUID, payload interface{}) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		BusinessID: businessID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type SaleCompleted struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Reference     string          `json:"reference"`
	InvoiceID     string          `json:"invoice_id"`
	Total         decimal.Decimal `json:"total"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CreatedBy     string          `json:"created_by,omitempty"`
}

type RefundProcessed struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Reference     string          `json:"reference"`
	Total         decimal.Decimal `json:"total"`
}

type LowStock struct {
	ProductID   uuid.UUID `json:"product_id"`
	Name        string    `json:"name"`
	Quantity    int       `json:"quantity"`
	MinQuantity int       `json:"min_quantity"`
}

type CustomerCreated struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Name       string    `json:"name"`
}

type ProductCreated struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku"`
	Quantity  int       `json:"quantity"`
}

type TransactionCancelled struct {
	TransactionID uuid.UUID         `json:"transaction_id"`
	Reference     string            `json:"reference"`
	Type          string            `json:"type"`
	Total         decimal.Decimal   `json:"total"`
	CancelledBy   string            `json:"cancelled_by,omitempty"`
	Restocked     map[uuid.UUID]int `json:"restocked,omitempty"`
}
