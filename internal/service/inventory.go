package service

import (
	"bytes"
	"errors"
	"sort"

	"pos-ledger/internal/model"
	"pos-ledger/internal/notify"
	"pos-ledger/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stockDelta struct {
	product  *model.Product
	quantity int
}

// aggregate folds lines onto products in a stable id order so concurrent
// carts touching the same rows lock them in the same sequence.
func aggregate(items []resolvedItem) ([]stockDelta, error) {
	byID := make(map[uuid.UUID]*stockDelta, len(items))
	for _, it := range items {
		if d, ok := byID[it.Product.ID]; ok {
			sum, err := addQuantity(d.quantity, it.Quantity)
			if err != nil {
				return nil, err
			}
			d.quantity = sum
			continue
		}
		byID[it.Product.ID] = &stockDelta{product: it.Product, quantity: it.Quantity}
	}

	out := make([]stockDelta, 0, len(byID))
	for _, d := range byID {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].product.ID[:], out[j].product.ID[:]) < 0
	})
	return out, nil
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
}

type inventoryMutator struct {
	products repository.ProductRepository
}

// apply moves stock for a freshly written transaction inside the same tx.
// SALE decrements under a quantity guard, REFUND increments, other types
// leave stock alone. Returns the products that fell to their threshold.
func (m *inventoryMutator) apply(tx *gorm.DB, t *model.Transaction, items []resolvedItem, actor Actor) ([]notify.LowStock, error) {
	deltas, err := aggregate(items)
	if err != nil {
		return nil, err
	}

	switch t.Type {
	case model.TxSale:
		for _, d := range deltas {
			err := m.products.DecrementStock(tx, t.BusinessID, d.product.ID, d.quantity, actor.audit())
			if errors.Is(err, repository.ErrConditionFailed) {
				return nil, &StockRaceLostError{ProductID: d.product.ID, ProductName: d.product.Name}
			}
			if err != nil {
				return nil, persistence("decrement stock", err)
			}
		}
		return m.lowStock(tx, deltas, items)

	case model.TxRefund:
		for _, d := range deltas {
			if err := m.products.IncrementStock(tx, t.BusinessID, d.product.ID, d.quantity, actor.audit()); err != nil {
				return nil, persistence("increment stock", err)
			}
		}
	}
	return nil, nil
}

// lowStock re-reads the touched products after the decrement. Products
// created by this cart are skipped; they always land at zero.
func (m *inventoryMutator) lowStock(tx *gorm.DB, deltas []stockDelta, items []resolvedItem) ([]notify.LowStock, error) {
	fresh := make(map[uuid.UUID]bool)
	for _, it := range items {
		if it.Materialized {
			fresh[it.Product.ID] = true
		}
	}

	ids := make([]uuid.UUID, 0, len(deltas))
	for _, d := range deltas {
		if !fresh[d.product.ID] {
			ids = append(ids, d.product.ID)
		}
	}
	return m.collectLowStock(tx, ids)
}

func (m *inventoryMutator) collectLowStock(tx *gorm.DB, ids []uuid.UUID) ([]notify.LowStock, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	current, err := m.products.FindByIDs(tx, ids)
	if err != nil {
		return nil, persistence("reload products", err)
	}

	var out []notify.LowStock
	for i := range current {
		p := &current[i]
		if p.IsLowStock() {
			out = append(out, notify.LowStock{
				ProductID:   p.ID,
				Name:        p.Name,
				Quantity:    p.Quantity,
				MinQuantity: p.MinQuantity,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
