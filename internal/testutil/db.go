// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"fmt"
	"testing"

	"pos-ledger/internal/model"
	"pos-ledger/pkg/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory sqlite database with the ledger schema.
// A single connection serialises concurrent transactions the way row
// locks would on postgres.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Tenant is a business with one member.
type Tenant struct {
	Business model.Business
	UserID   uuid.UUID
}

func SeedTenant(t testing.TB, db *gorm.DB, name string) Tenant {
	t.Helper()

	userID := uuid.New()
	b := model.Business{Name: name, Currency: "USD", OwnerID: userID}
	require.NoError(t, db.Create(&b).Error)
	require.NoError(t, db.Create(&model.BusinessMember{
		BusinessID: b.ID,
		UserID:     userID,
		Role:       model.RoleOwner,
	}).Error)
	return Tenant{Business: b, UserID: userID}
}

func SeedProduct(t testing.TB, db *gorm.DB, businessID uuid.UUID, name string, qty int, price int64) model.Product {
	t.Helper()

	p := model.Product{
		BusinessID:  businessID,
		Name:        name,
		Slug:        fmt.Sprintf("%s-%s", name, uuid.NewString()[:8]),
		SKU:         "SKU-" + uuid.NewString()[:8],
		Quantity:    qty,
		MinQuantity: 1,
		Price:       decimal.NewFromInt(price),
		Unit:        "pcs",
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

// StockOf reads the current quantity of a product.
func StockOf(t testing.TB, db *gorm.DB, id uuid.UUID) int {
	t.Helper()

	var p model.Product
	require.NoError(t, db.Unscoped().First(&p, "id = ?", id).Error)
	return p.Quantity
}

// CountTransactions counts ledger rows for a business.
func CountTransactions(t testing.TB, db *gorm.DB, businessID uuid.UUID) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(&model.Transaction{}).Where("business_id = ?", businessID).Count(&n).Error)
	return n
}
