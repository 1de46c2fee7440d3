package repository

import (
	"time"

	"pos-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CustomerRepository interface {
	Create(tx *gorm.DB, c *model.Customer) error
	FindByID(tx *gorm.DB, id uuid.UUID) (*model.Customer, error)
	FindByContact(tx *gorm.DB, businessID uuid.UUID, email, phone *string) (*model.Customer, error)
	RecordPurchase(tx *gorm.DB, id uuid.UUID, amount decimal.Decimal, at time.Time) error
	ReversePurchase(tx *gorm.DB, id uuid.UUID, amount decimal.Decimal) error
}

type customerRepo struct {
	db *gorm.DB
}

func NewCustomerRepo(db *gorm.DB) CustomerRepository {
	return &customerRepo{db}
}

func (r *customerRepo) Create(tx *gorm.DB, c *model.Customer) error {
	return translate(tx.Create(c).Error)
}

func (r *customerRepo) FindByID(tx *gorm.DB, id uuid.UUID) (*model.Customer, error) {
	var c model.Customer
	if err := tx.First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// FindByContact matches on email first, then phone. Returns ErrNotFound
// when neither is given or nothing matches.
func (r *customerRepo) FindByContact(tx *gorm.DB, businessID uuid.UUID, email, phone *string) (*model.Customer, error) {
	for _, probe := range []struct {
		column string
		value  *string
	}{{"email", email}, {"phone", phone}} {
		if probe.value == nil || *probe.value == "" {
			continue
		}
		var c model.Customer
		err := tx.Where("business_id = ? AND "+probe.column+" = ?", businessID, *probe.value).
			Order("created_at ASC").
			First(&c).Error
		if err == nil {
			return &c, nil
		}
		if err = translate(err); !isNotFound(err) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

func (r *customerRepo) RecordPurchase(tx *gorm.DB, id uuid.UUID, amount decimal.Decimal, at time.Time) error {
	return translate(tx.Model(&model.Customer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_spent":      gorm.Expr("total_spent + ?", amount),
			"visit_count":      gorm.Expr("visit_count + 1"),
			"last_purchase_at": at,
		}).Error)
}

func (r *customerRepo) ReversePurchase(tx *gorm.DB, id uuid.UUID, amount decimal.Decimal) error {
	return translate(tx.Model(&model.Customer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_spent": gorm.Expr("total_spent - ?", amount),
			"visit_count": gorm.Expr("CASE WHEN visit_count > 0 THEN visit_count - 1 ELSE 0 END"),
		}).Error)
}
