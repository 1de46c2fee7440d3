package service

import (
	"context"
	"testing"

	"pos-ledger/internal/model"
	"pos-ledger/internal/notify"
	"pos-ledger/internal/repository"
	"pos-ledger/internal/testutil"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProductFixture(t *testing.T) (ProductService, *fixture) {
	t.Helper()
	f := newFixture(t, nil, 0)
	svc := NewProductService(f.db, repository.NewProductRepo(f.db), repository.NewBusinessRepo(f.db), f.events, zerolog.Nop())
	return svc, f
}

func TestCreateProduct(t *testing.T) {
	svc, f := newProductFixture(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, f.actor, &CreateProductRequest{
		BusinessID:  f.tenant.Business.ID,
		Name:        "Espresso Beans 1kg",
		SKU:         "BEAN-1KG",
		Quantity:    2,
		MinQuantity: 5,
		Price:       decimal.RequireFromString("18.499"),
		Unit:        "bag",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Contains(t, p.Slug, "espresso-beans-1kg-")
	assert.True(t, p.Price.Equal(decimal.RequireFromString("18.5")))
	assert.False(t, p.CreatedFromCart)

	assert.Len(t, f.events.ofType(notify.EventProductCreated), 1)
	assert.Len(t, f.events.ofType(notify.EventLowStock), 1)

	_, err = svc.CreateProduct(ctx, f.actor, &CreateProductRequest{
		BusinessID: f.tenant.Business.ID,
		Name:       "Other",
		SKU:        "BEAN-1KG",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateProduct(ctx, f.actor, &CreateProductRequest{BusinessID: f.tenant.Business.ID})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateProduct(ctx, Actor{UserID: uuid.New()}, &CreateProductRequest{
		BusinessID: f.tenant.Business.ID,
		Name:       "Sneaky",
		SKU:        "SNEAK",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListProductsAndLowStock(t *testing.T) {
	svc, f := newProductFixture(t)
	ctx := context.Background()
	testutil.SeedProduct(t, f.db, f.tenant.Business.ID, "Apple", 10, 1)
	testutil.SeedProduct(t, f.db, f.tenant.Business.ID, "Banana", 1, 1)
	other := testutil.SeedTenant(t, f.db, "Other")
	testutil.SeedProduct(t, f.db, other.Business.ID, "Cherry", 0, 1)

	all, err := svc.ListProducts(ctx, f.actor, f.tenant.Business.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Apple", all[0].Name)

	low, err := svc.ListLowStock(ctx, f.actor, f.tenant.Business.ID)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Banana", low[0].Name)

	_, err = svc.ListProducts(ctx, f.actor, other.Business.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDashboardSummary(t *testing.T) {
	f := newFixture(t, nil, 0)
	db := f.db
	dash := NewDashboardService(repository.NewTransactionRepo(db), repository.NewProductRepo(db), repository.NewBusinessRepo(db))
	p := testutil.SeedProduct(t, db, f.tenant.Business.ID, "Widget", 10, 10)
	ctx := context.Background()

	_, err := f.svc.CreateTransaction(ctx, f.actor, f.sale(p.ID, 3, 10, 30))
	require.NoError(t, err)
	_, err = f.svc.CreateTransaction(ctx, f.actor, f.refund(p.ID, 1, 10))
	require.NoError(t, err)
	cancelled, err := f.svc.CreateTransaction(ctx, f.actor, f.sale(p.ID, 1, 10, 10))
	require.NoError(t, err)
	_, err = f.svc.CancelTransaction(ctx, f.actor, cancelled.ID)
	require.NoError(t, err)

	summary, err := dash.GetSummary(ctx, f.actor, f.tenant.Business.ID, 7)
	require.NoError(t, err)

	byType := map[model.TransactionType]repository.TypeSummary{}
	for _, s := range summary.ByType {
		byType[s.Type] = s
	}
	assert.Equal(t, int64(1), byType[model.TxSale].Count)
	assert.True(t, byType[model.TxSale].Total.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, int64(1), byType[model.TxRefund].Count)
	assert.True(t, summary.NetRevenue.Equal(decimal.NewFromInt(20)), summary.NetRevenue.String())

	assert.Equal(t, int64(1), summary.Inventory.TotalProducts)
	assert.True(t, summary.Inventory.TotalValuation.Equal(decimal.NewFromInt(80)), summary.Inventory.TotalValuation.String())

	_, err = dash.GetSummary(ctx, Actor{UserID: uuid.New()}, f.tenant.Business.ID, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}
