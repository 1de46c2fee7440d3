package database

import (
	"fmt"

	"pos-ledger/internal/model"

	"gorm.io/gorm"
)

// Migrate creates or updates the ledger schema.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Business{},
		&model.BusinessMember{},
		&model.Customer{},
		&model.Product{},
		&model.Transaction{},
		&model.TransactionItem{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
