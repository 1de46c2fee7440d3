package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	BusinessID  uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_product_business_slug;uniqueIndex:idx_product_business_sku" json:"business_id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Slug        string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_product_business_slug" json:"slug"`
	SKU         string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_product_business_sku" json:"sku"`
	Quantity    int             `gorm:"not null;default:0;check:chk_product_quantity,quantity >= 0" json:"quantity"`
	MinQuantity int             `gorm:"not null;default:0" json:"min_quantity"`
	Price       decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"price"`
	Unit        string          `gorm:"type:varchar(20)" json:"unit"`

	// Set for products materialized from a free-form cart line.
	CreatedFromCart bool `gorm:"not null;default:false" json:"created_from_cart"`
}

// IsLowStock reports whether quantity has reached the reorder threshold.
func (p *Product) IsLowStock() bool {
	return p.Quantity <= p.MinQuantity
}
