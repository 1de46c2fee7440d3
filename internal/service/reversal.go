package service

import (
	"context"
	"errors"

	"pos-ledger/internal/model"
	"pos-ledger/internal/notify"
	"pos-ledger/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type reversalOutcome struct {
	restocked map[uuid.UUID]int
	lowStock  []notify.LowStock
}

// CancelTransaction moves a COMPLETED entry to CANCELLED and undoes its
// stock effect in one atomic unit. The status flip is a conditional update,
// so of two concurrent cancels exactly one restores stock.
func (s *ledgerService) CancelTransaction(ctx context.Context, actor Actor, id uuid.UUID) (*model.Transaction, error) {
	current, err := s.GetTransaction(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if current.Status != model.StatusCompleted {
		return nil, &InvalidStateTransitionError{From: string(current.Status), To: string(model.StatusCancelled)}
	}

	var outcome *reversalOutcome
	err = s.runAtomic(ctx, "cancel transaction", func(tx *gorm.DB) error {
		o, err := s.reverse(tx, actor, current)
		if err != nil {
			return err
		}
		outcome = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	t, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		return nil, persistence("reload transaction", err)
	}
	log := s.logFor(ctx)
	log.Info().
		Str("reference", t.Reference).
		Str("business_id", t.BusinessID.String()).
		Str("type", string(t.Type)).
		Str("cancelled_by", actor.audit()).
		Msg("transaction cancelled")

	events := []notify.Event{notify.NewEvent(notify.EventTransactionCancelled, t.BusinessID, notify.TransactionCancelled{
		TransactionID: t.ID,
		Reference:     t.Reference,
		Type:          string(t.Type),
		Total:         t.Total,
		CancelledBy:   actor.Name,
		Restocked:     outcome.restocked,
	})}
	for _, ls := range outcome.lowStock {
		events = append(events, notify.NewEvent(notify.EventLowStock, t.BusinessID, ls))
	}
	if s.events != nil {
		s.events.Publish(events...)
	}
	return t, nil
}

func (s *ledgerService) reverse(tx *gorm.DB, actor Actor, t *model.Transaction) (*reversalOutcome, error) {
	err := s.transactions.TransitionStatus(tx, t.ID, model.StatusCompleted, model.StatusCancelled, actor.audit())
	if errors.Is(err, repository.ErrConditionFailed) {
		latest, lerr := s.transactions.FindHeader(tx, t.ID)
		if lerr != nil {
			return nil, &NotFoundError{Resource: "transaction", ID: t.ID.String()}
		}
		return nil, &InvalidStateTransitionError{From: string(latest.Status), To: string(model.StatusCancelled)}
	}
	if err != nil {
		return nil, persistence("update status", err)
	}

	o := &reversalOutcome{}
	if t.Type != model.TxSale && t.Type != model.TxRefund {
		return o, nil
	}

	items, err := s.transactions.FindItems(tx, t.ID)
	if err != nil {
		return nil, persistence("load items", err)
	}

	qty := make(map[uuid.UUID]int)
	var order []uuid.UUID
	for _, it := range items {
		if it.ProductID == nil {
			continue
		}
		if _, ok := qty[*it.ProductID]; !ok {
			order = append(order, *it.ProductID)
		}
		qty[*it.ProductID] += it.Quantity
	}
	sortIDs(order)

	switch t.Type {
	case model.TxSale:
		o.restocked = make(map[uuid.UUID]int, len(order))
		for _, pid := range order {
			err := s.inventory.products.IncrementStock(tx, t.BusinessID, pid, qty[pid], actor.audit())
			if errors.Is(err, repository.ErrNotFound) {
				log := s.logFor(tx.Statement.Context)
				log.Warn().Str("product_id", pid.String()).Msg("product gone, stock not restored")
				continue
			}
			if err != nil {
				return nil, persistence("restore stock", err)
			}
			o.restocked[pid] = qty[pid]
		}
		if t.CustomerID != nil {
			if err := s.customers.ReversePurchase(tx, *t.CustomerID, t.Total); err != nil {
				return nil, persistence("reverse customer purchase", err)
			}
		}

	case model.TxRefund:
		// Undoing a refund takes the returned goods back off the shelf.
		o.restocked = make(map[uuid.UUID]int, len(order))
		for _, pid := range order {
			err := s.inventory.products.DecrementStock(tx, t.BusinessID, pid, qty[pid], actor.audit())
			if errors.Is(err, repository.ErrConditionFailed) {
				return nil, s.shortfall(tx, pid, qty[pid])
			}
			if err != nil {
				return nil, persistence("withdraw refunded stock", err)
			}
			o.restocked[pid] = -qty[pid]
		}
		o.lowStock, err = s.inventory.collectLowStock(tx, order)
		if err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (s *ledgerService) shortfall(tx *gorm.DB, productID uuid.UUID, requested int) error {
	products, err := s.inventory.products.FindByIDs(tx, []uuid.UUID{productID})
	if err != nil || len(products) == 0 {
		return &NotFoundError{Resource: "product", ID: productID.String()}
	}
	return &InsufficientStockError{
		ProductID:   productID,
		ProductName: products[0].Name,
		Available:   products[0].Quantity,
		Requested:   requested,
	}
}
