package service

import (
	"math"

	"pos-ledger/internal/model"

	"github.com/google/uuid"
)

// checkStock rejects a SALE whose catalog lines ask for more than is on
// hand. Quantities for the same product across lines are summed. Ad-hoc
// lines are skipped since their stock is seeded from the cart.
func checkStock(txType model.TransactionType, items []CreateItemRequest, catalog map[uuid.UUID]*model.Product) error {
	if txType != model.TxSale {
		return nil
	}

	requested := make(map[uuid.UUID]int, len(items))
	order := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		if it.ProductID == nil {
			continue
		}
		if _, ok := requested[*it.ProductID]; !ok {
			order = append(order, *it.ProductID)
		}
		sum, err := addQuantity(requested[*it.ProductID], it.Quantity)
		if err != nil {
			return err
		}
		requested[*it.ProductID] = sum
	}

	for _, id := range order {
		p := catalog[id]
		if p.Quantity < requested[id] {
			return &InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Available:   p.Quantity,
				Requested:   requested[id],
			}
		}
	}
	return nil
}

// addQuantity sums line quantities for one product and refuses to wrap.
func addQuantity(total, n int) (int, error) {
	if n < 0 || total > math.MaxInt-n {
		return 0, validationf("combined quantity for one product is too large")
	}
	return total + n, nil
}
