package repository

import (
	"context"
	"time"

	"pos-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(tx *gorm.DB, product *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByIDs(tx *gorm.DB, ids []uuid.UUID) ([]model.Product, error)
	ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]model.Product, error)
	FindLowStock(ctx context.Context, businessID uuid.UUID) ([]model.Product, error)
	SKUExists(tx *gorm.DB, businessID uuid.UUID, sku string) (bool, error)
	DecrementStock(tx *gorm.DB, businessID, id uuid.UUID, qty int, updatedBy string) error
	IncrementStock(tx *gorm.DB, businessID, id uuid.UUID, qty int, updatedBy string) error
	GetInventoryStats(ctx context.Context, businessID uuid.UUID) (*InventoryStats, error)
}

// InventoryStats summarises a business catalog.
type InventoryStats struct {
	TotalProducts  int64           `json:"total_products"`
	LowStockCount  int64           `json:"low_stock_count"`
	TotalValuation decimal.Decimal `json:"total_valuation"`
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(tx *gorm.DB, product *model.Product) error {
	return translate(tx.Create(product).Error)
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// FindByIDs loads products regardless of owning business so callers can
// tell a missing product from a foreign one.
func (r *productRepo) FindByIDs(tx *gorm.DB, ids []uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := tx.Where("id IN ?", ids).Find(&products).Error
	return products, translate(err)
}

func (r *productRepo) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("name ASC").
		Find(&products).Error
	return products, translate(err)
}

func (r *productRepo) FindLowStock(ctx context.Context, businessID uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND quantity <= min_quantity", businessID).
		Order("quantity ASC").
		Find(&products).Error
	return products, translate(err)
}

func (r *productRepo) SKUExists(tx *gorm.DB, businessID uuid.UUID, sku string) (bool, error) {
	var count int64
	err := tx.Model(&model.Product{}).
		Where("business_id = ? AND sku = ?", businessID, sku).
		Count(&count).Error
	return count > 0, translate(err)
}

// DecrementStock subtracts qty only while enough stock remains. The guard
// is evaluated by the database, so concurrent sellers cannot oversell.
// Returns ErrConditionFailed when the guard rejected the update.
func (r *productRepo) DecrementStock(tx *gorm.DB, businessID, id uuid.UUID, qty int, updatedBy string) error {
	res := tx.Model(&model.Product{}).
		Where("id = ? AND business_id = ? AND quantity >= ?", id, businessID, qty).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_by": updatedBy,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConditionFailed
	}
	return nil
}

// IncrementStock also restores stock on soft-deleted products.
func (r *productRepo) IncrementStock(tx *gorm.DB, businessID, id uuid.UUID, qty int, updatedBy string) error {
	res := tx.Unscoped().Model(&model.Product{}).
		Where("id = ? AND business_id = ?", id, businessID).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", qty),
			"updated_by": updatedBy,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepo) GetInventoryStats(ctx context.Context, businessID uuid.UUID) (*InventoryStats, error) {
	var stats InventoryStats
	db := r.db.WithContext(ctx).Model(&model.Product{}).Where("business_id = ?", businessID)

	if err := db.Session(&gorm.Session{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, translate(err)
	}
	if err := db.Session(&gorm.Session{}).Where("quantity <= min_quantity").Count(&stats.LowStockCount).Error; err != nil {
		return nil, translate(err)
	}

	var valuation float64
	if err := db.Session(&gorm.Session{}).Select("COALESCE(SUM(quantity * price), 0)").Scan(&valuation).Error; err != nil {
		return nil, translate(err)
	}
	stats.TotalValuation = decimal.NewFromFloat(valuation).Round(2)
	return &stats, nil
}
