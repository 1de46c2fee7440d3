package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxSale    TransactionType = "SALE"
	TxRefund  TransactionType = "REFUND"
	TxExpense TransactionType = "EXPENSE"
	TxIncome  TransactionType = "INCOME"
)

type PaymentMethod string

const (
	PayCash         PaymentMethod = "CASH"
	PayCard         PaymentMethod = "CARD"
	PayBankTransfer PaymentMethod = "BANK_TRANSFER"
	PayMobileMoney  PaymentMethod = "MOBILE_MONEY"
	PayOther        PaymentMethod = "OTHER"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusCancelled TransactionStatus = "CANCELLED"
	StatusRefunded  TransactionStatus = "REFUNDED"
)

// Transaction is one ledger entry. Rows are never hard-deleted; reversal
// flips Status.
type Transaction struct {
	BaseModel
	Reference     string            `gorm:"type:varchar(32);not null;uniqueIndex" json:"reference"`
	InvoiceID     string            `gorm:"type:varchar(8);not null;uniqueIndex" json:"invoice_id"`
	BusinessID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"business_id"`
	CustomerID    *uuid.UUID        `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	Customer      *Customer         `json:"customer,omitempty"`
	CreatedByID   uuid.UUID         `gorm:"type:uuid;not null" json:"created_by_id"`
	Type          TransactionType   `gorm:"type:varchar(16);not null;index" json:"type"`
	PaymentMethod PaymentMethod     `gorm:"type:varchar(20);not null" json:"payment_method"`
	Subtotal      decimal.Decimal   `gorm:"type:numeric(14,2);not null" json:"subtotal"`
	Discount      decimal.Decimal   `gorm:"type:numeric(14,2);not null;default:0" json:"discount"`
	Total         decimal.Decimal   `gorm:"type:numeric(14,2);not null" json:"total"`
	AmountPaid    decimal.Decimal   `gorm:"type:numeric(14,2);not null;default:0" json:"amount_paid"`
	Change        decimal.Decimal   `gorm:"type:numeric(14,2);not null;default:0" json:"change"`
	Notes         string            `gorm:"type:text" json:"notes,omitempty"`
	Status        TransactionStatus `gorm:"type:varchar(16);not null;index" json:"status"`

	Items []TransactionItem `json:"items,omitempty"`
}

// TransactionItem is an immutable line. Name and SKU are snapshots taken
// at sale time so later catalog edits do not rewrite history.
type TransactionItem struct {
	BaseModel
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;index" json:"transaction_id"`
	ProductID     *uuid.UUID      `gorm:"type:uuid;index" json:"product_id,omitempty"`
	ProductName   string          `gorm:"type:varchar(255);not null" json:"product_name"`
	ProductSKU    string          `gorm:"type:varchar(64)" json:"product_sku"`
	Quantity      int             `gorm:"not null;check:chk_item_quantity,quantity > 0" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unit_price"`
	Discount      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"discount"`
	Total         decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total"`
}
