package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Customer struct {
	BaseModel
	BusinessID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"business_id"`
	Name           string          `gorm:"type:varchar(255);not null" json:"name"`
	Email          *string         `gorm:"type:varchar(255);index" json:"email,omitempty"`
	Phone          *string         `gorm:"type:varchar(50);index" json:"phone,omitempty"`
	TotalSpent     decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_spent"`
	VisitCount     int             `gorm:"not null;default:0" json:"visit_count"`
	LastPurchaseAt *time.Time      `json:"last_purchase_at,omitempty"`
}
