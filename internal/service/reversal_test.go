package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"pos-ledger/internal/model"
	"pos-ledger/internal/notify"
	"pos-ledger/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelTransaction_SaleRestoresStock(t *testing.T) {
	f := newFixture(t, nil, 0)
	a := testutil.SeedProduct(t, f.db, f.tenant.Business.ID, "Widget", 5, 10)
	b := testutil.SeedProduct(t, f.db, f.tenant.Business.ID, "Gadget", 4, 3)
	ctx := context.Background()

	req := f.sale(a.ID, 3, 10, 100)
	priceB := decimal.NewFromInt(3)
	req.Items = append(req.Items, CreateItemRequest{ProductID: &b.ID, Quantity: 2, UnitPrice: &priceB})
	txn, err := f.svc.CreateTransaction(ctx, f.actor, req)
	require.NoError(t, err)
	require.Equal(t, 2, testutil.StockOf(t, f.db, a.ID))
	require.Equal(t, 2, testutil.StockOf(t, f.db, b.ID))

	cancelled, err := f.svc.CancelTransaction(ctx, f.actor, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	assert.Equal(t, 5, testutil.StockOf(t, f.db, a.ID))
	assert.Equal(t, 4, testutil.StockOf(t, f.db, b.ID))

	events := f.events.ofType(notify.EventTransactionCancelled)
	require.Len(t, events, 1)
	payload := events[0].Payload.(notify.TransactionCancelled)
	assert.Equal(t, 3, payload.Restocked[a.ID])
	assert.Equal(t, 2, payload.Restocked[b.ID])

	_, err = f.svc.CancelTransaction(ctx, f.actor, txn.ID)
	var stateErr *InvalidStateTransitionError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "CANCELLED", stateErr.From)
	assert.Equal(t, 5, testutil.StockOf(t, f.db, a.ID))
}

func TestCancelTransaction_ConcurrentCancelRestoresOnce(t *testing.T) {
	f := newFixture(t, nil, 0)
	p := testutil.SeedProduct(t, f.db, f.tenant.Business.ID, "Widget", 5, 10)
	ctx := context.Background()

	txn, err := f.svc.CreateTransaction(ctx, f.actor, f.sale(p.ID, 3, 10, 30))
	require.NoError(t, err)

	const callers = 4
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		ok    int
		state int
		start = make(chan struct{})
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.CancelTransaction(ctx, f.actor, txn.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrInvalidStateTransition):
				state++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, state)
	assert.Equal(t, 5, testutil.StockOf(t, f.db, p.ID))
}

func TestCancelTransaction_Refund(t *testing.T) {
	f := newFixture(t, nil, 0)
	p := testutil.SeedProduct(t, f.db, f.tenant.Business.ID, "Widget", 5, 10)
	ctx := context.Background()

	refund, err := f.svc.CreateTransaction(ctx, f.actor, f.refund(p.ID, 2, 10))
	require.NoError(t, err)
	require.Equal(t, 7, testutil.StockOf(t, f.db, p.ID))

	_, err = f.svc.CancelTransaction(ctx, f.actor, refund.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, testutil.StockOf(t, f.db, p.ID))
}

func TestCancelTransaction_RefundWithoutStockToWithdraw(t *testing.T) {
	f := newFixture(t, nil, 0)
	p := testutil.SeedProduct(t, f.db, f.tenant.Business.ID, "Widget", 5, 10)
	ctx := context.Background()

	refund, err := f.svc.CreateTransaction(ctx, f.actor, f.refund(p.ID, 2, 10))
	require.NoError(t, err)
	_, err = f.svc.CreateTransaction(ctx, f.actor, f.sale(p.ID, 6, 10, 60))
	require.NoError(t, err)
	require.Equal(t, 1, testutil.StockOf(t, f.db, p.ID))

	_, err = f.svc.CancelTransaction(ctx, f.actor, refund.ID)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 2, stockErr.Requested)

	got, err := f.svc.GetTransaction(ctx, f.actor, refund.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, 1, testutil.StockOf(t, f.db, p.ID))
}

func TestCancelTransaction_ExpenseOnlyFlipsStatus(t *testing.T) {
	f := newFixture(t, nil, 0)
	p := testutil.SeedProduct(t, f.db, f.tenant.Business.ID, "Widget", 5, 10)
	ctx := context.Background()

	req := f.sale(p.ID, 2, 10, 0)
	req.Type = model.TxExpense
	expense, err := f.svc.CreateTransaction(ctx, f.actor, req)
	require.NoError(t, err)

	cancelled, err := f.svc.CancelTransaction(ctx, f.actor, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	assert.Equal(t, 5, testutil.StockOf(t, f.db, p.ID))
}

func TestCancelTransaction_ReversesCustomerStats(t *testing.T) {
	f := newFixture(t, nil, 0)
	p := testutil.SeedProduct(t, f.db, f.tenant.Business.ID, "Widget", 5, 10)
	ctx := context.Background()
	phone := "+254700000000"

	req := f.sale(p.ID, 2, 10, 20)
	req.CustomerData = &CustomerData{Name: "Ben", Phone: &phone}
	txn, err := f.svc.CreateTransaction(ctx, f.actor, req)
	require.NoError(t, err)

	_, err = f.svc.CancelTransaction(ctx, f.actor, txn.ID)
	require.NoError(t, err)

	var c model.Customer
	require.NoError(t, f.db.First(&c, "id = ?", *txn.CustomerID).Error)
	assert.Equal(t, 0, c.VisitCount)
	assert.True(t, c.TotalSpent.IsZero(), c.TotalSpent.String())
}

func TestCancelTransaction_NotFound(t *testing.T) {
	f := newFixture(t, nil, 0)
	p := testutil.SeedProduct(t, f.db, f.tenant.Business.ID, "Widget", 5, 10)
	ctx := context.Background()

	_, err := f.svc.CancelTransaction(ctx, f.actor, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	txn, err := f.svc.CreateTransaction(ctx, f.actor, f.sale(p.ID, 1, 10, 10))
	require.NoError(t, err)

	_, err = f.svc.CancelTransaction(ctx, Actor{UserID: uuid.New()}, txn.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 4, testutil.StockOf(t, f.db, p.ID))
}
