package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pos-ledger/internal/middleware"
	"pos-ledger/internal/repository"
	"pos-ledger/internal/service"
	"pos-ledger/internal/testutil"
	"pos-ledger/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type apiFixture struct {
	app    *fiber.App
	db     *gorm.DB
	tenant testutil.Tenant
	token  string
	tokens *jwt.Manager
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	db := testutil.NewDB(t)

	repos := service.Repositories{
		Products:     repository.NewProductRepo(db),
		Transactions: repository.NewTransactionRepo(db),
		Customers:    repository.NewCustomerRepo(db),
		Businesses:   repository.NewBusinessRepo(db),
	}
	ledger := service.NewLedgerService(db, repos, service.NewIdentifierGenerator("TXN"), nil,
		service.LedgerOptions{MaxCommitAttempts: 3}, zerolog.Nop())
	products := service.NewProductService(db, repos.Products, repos.Businesses, nil, zerolog.Nop())
	dashboard := service.NewDashboardService(repos.Transactions, repos.Products, repos.Businesses)

	tokens := jwt.NewManager("test-secret", time.Hour, "pos-ledger")
	tenant := testutil.SeedTenant(t, db, "Corner Shop")
	token, err := tokens.GenerateToken(tenant.UserID, "owner@example.com", "Owner")
	require.NoError(t, err)

	app := fiber.New()
	Register(app, Handlers{
		Transactions: NewTransactionHandler(ledger),
		Invoices:     NewInvoiceHandler(ledger),
		Products:     NewProductHandler(products),
		Dashboard:    NewDashboardHandler(dashboard),
	}, middleware.RequireAuth(tokens))

	return &apiFixture{app: app, db: db, tenant: tenant, token: token, tokens: tokens}
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}, token string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func money(t *testing.T, v interface{}) decimal.Decimal {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "expected a decimal string, got %T", v)
	return decimal.RequireFromString(s)
}

func (f *apiFixture) saleBody(productID uuid.UUID, qty int, paid string) fiber.Map {
	return fiber.Map{
		"business_id":    f.tenant.Business.ID,
		"type":           "SALE",
		"payment_method": "CASH",
		"amount_paid":    paid,
		"items": []fiber.Map{
			{"product_id": productID, "quantity": qty, "unit_price": "10.00"},
		},
	}
}

func TestAPI_SaleVerifyAndCancel(t *testing.T) {
	f := newAPI(t)
	p := testutil.SeedProduct(t, f.db, f.tenant.Business.ID, "Widget", 5, 10)

	status, body := f.do(t, "POST", "/api/v1/transactions", f.saleBody(p.ID, 2, "25"), f.token)
	require.Equal(t, http.StatusCreated, status, body)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "COMPLETED", data["status"])
	assert.True(t, money(t, data["total"]).Equal(decimal.NewFromInt(20)))
	assert.True(t, money(t, data["change"]).Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 3, testutil.StockOf(t, f.db, p.ID))

	invoiceID := data["invoice_id"].(string)
	status, body = f.do(t, "GET", "/api/v1/invoices/"+invoiceID, nil, "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Corner Shop", body["business_name"])
	assert.Equal(t, invoiceID, body["invoice_id"])

	id := data["id"].(string)
	status, body = f.do(t, "GET", "/api/v1/transactions/"+id, nil, f.token)
	require.Equal(t, http.StatusOK, status, body)
	assert.Len(t, body["items"], 1)

	status, body = f.do(t, "POST", "/api/v1/transactions/"+id+"/cancel", nil, f.token)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "CANCELLED", body["data"].(map[string]interface{})["status"])
	assert.Equal(t, 5, testutil.StockOf(t, f.db, p.ID))

	status, body = f.do(t, "POST", "/api/v1/transactions/"+id+"/cancel", nil, f.token)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CANCELLED", body["details"].(map[string]interface{})["from"])
}

func TestAPI_CreateTransactionErrors(t *testing.T) {
	f := newAPI(t)
	p := testutil.SeedProduct(t, f.db, f.tenant.Business.ID, "Widget", 1, 10)

	t.Run("insufficient stock", func(t *testing.T) {
		status, body := f.do(t, "POST", "/api/v1/transactions", f.saleBody(p.ID, 3, "30"), f.token)
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		details := body["details"].(map[string]interface{})
		assert.EqualValues(t, 1, details["available"])
		assert.EqualValues(t, 3, details["requested"])
	})

	t.Run("insufficient payment", func(t *testing.T) {
		status, body := f.do(t, "POST", "/api/v1/transactions", f.saleBody(p.ID, 1, "5"), f.token)
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Contains(t, body["error"], "insufficient payment")
	})

	t.Run("unknown product", func(t *testing.T) {
		status, _ := f.do(t, "POST", "/api/v1/transactions", f.saleBody(uuid.New(), 1, "10"), f.token)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("invalid json", func(t *testing.T) {
		status, body := f.do(t, "POST", "/api/v1/transactions", "{", f.token)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Invalid JSON", body["error"])
	})

	t.Run("empty cart", func(t *testing.T) {
		req := f.saleBody(p.ID, 1, "10")
		req["items"] = []fiber.Map{}
		status, _ := f.do(t, "POST", "/api/v1/transactions", req, f.token)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("missing token", func(t *testing.T) {
		status, _ := f.do(t, "POST", "/api/v1/transactions", f.saleBody(p.ID, 1, "10"), "")
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	assert.Equal(t, 1, testutil.StockOf(t, f.db, p.ID))
	assert.Zero(t, testutil.CountTransactions(t, f.db, f.tenant.Business.ID))
}

func TestAPI_OtherTenantSeesNotFound(t *testing.T) {
	f := newAPI(t)
	p := testutil.SeedProduct(t, f.db, f.tenant.Business.ID, "Widget", 5, 10)

	status, body := f.do(t, "POST", "/api/v1/transactions", f.saleBody(p.ID, 1, "10"), f.token)
	require.Equal(t, http.StatusCreated, status, body)
	id := body["data"].(map[string]interface{})["id"].(string)

	other := testutil.SeedTenant(t, f.db, "Rival")
	token, err := f.tokens.GenerateToken(other.UserID, "rival@example.com", "Rival")
	require.NoError(t, err)

	status, _ = f.do(t, "GET", "/api/v1/transactions/"+id, nil, token)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = f.do(t, "POST", "/api/v1/transactions/"+id+"/cancel", nil, token)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = f.do(t, "GET", "/api/v1/transactions?business_id="+f.tenant.Business.ID.String(), nil, token)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 4, testutil.StockOf(t, f.db, p.ID))
}

func TestAPI_ListTransactions(t *testing.T) {
	f := newAPI(t)
	p := testutil.SeedProduct(t, f.db, f.tenant.Business.ID, "Widget", 10, 10)

	for i := 0; i < 3; i++ {
		status, body := f.do(t, "POST", "/api/v1/transactions", f.saleBody(p.ID, 1, "10"), f.token)
		require.Equal(t, http.StatusCreated, status, body)
	}

	path := fmt.Sprintf("/api/v1/transactions?business_id=%s&type=SALE&limit=2", f.tenant.Business.ID)
	status, body := f.do(t, "GET", path, nil, f.token)
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 3, body["total"])
	assert.Len(t, body["data"], 2)

	status, _ = f.do(t, "GET", "/api/v1/transactions", nil, f.token)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = f.do(t, "GET", path+"&from=yesterday", nil, f.token)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_ProductsAndDashboard(t *testing.T) {
	f := newAPI(t)
	biz := f.tenant.Business.ID.String()

	status, body := f.do(t, "POST", "/api/v1/products", fiber.Map{
		"business_id":  biz,
		"name":         "Tea",
		"sku":          "TEA-1",
		"quantity":     1,
		"min_quantity": 2,
		"price":        "3.50",
	}, f.token)
	require.Equal(t, http.StatusCreated, status, body)

	status, _ = f.do(t, "POST", "/api/v1/products", fiber.Map{
		"business_id": biz,
		"name":        "Tea again",
		"sku":         "TEA-1",
	}, f.token)
	assert.Equal(t, http.StatusBadRequest, status)

	req := httptest.NewRequest("GET", "/api/v1/products/low-stock?business_id="+biz, nil)
	req.Header.Set("Authorization", "Bearer "+f.token)
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	var low []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&low))
	require.Len(t, low, 1)
	assert.Equal(t, "Tea", low[0]["name"])

	status, body = f.do(t, "GET", "/api/v1/dashboard/summary?business_id="+biz+"&days=30", nil, f.token)
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 30, body["period"])
	inventory := body["data"].(map[string]interface{})["inventory"].(map[string]interface{})
	assert.EqualValues(t, 1, inventory["total_products"])
}

func TestAPI_VerifyInvoiceRejectsMalformedID(t *testing.T) {
	f := newAPI(t)

	status, _ := f.do(t, "GET", "/api/v1/invoices/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = f.do(t, "GET", "/api/v1/invoices/ZZZZZZZZ", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &service.ValidationError{Message: "bad"}, fiber.StatusBadRequest},
		{"not found", &service.NotFoundError{Resource: "product"}, fiber.StatusNotFound},
		{"stock", &service.InsufficientStockError{}, fiber.StatusUnprocessableEntity},
		{"payment", &service.InsufficientPaymentError{Required: decimal.NewFromInt(2)}, fiber.StatusUnprocessableEntity},
		{"total", &service.InvalidTotalError{Reason: "negative"}, fiber.StatusUnprocessableEntity},
		{"race", &service.StockRaceLostError{}, fiber.StatusConflict},
		{"state", &service.InvalidStateTransitionError{From: "CANCELLED", To: "CANCELLED"}, fiber.StatusConflict},
		{"collision", service.ErrIdentifierCollision, fiber.StatusServiceUnavailable},
		{"canceled", &service.PersistenceError{Op: "check", Err: context.Canceled}, fiber.StatusRequestTimeout},
		{"persistence", &service.PersistenceError{Op: "insert", Err: errors.New("disk full")}, fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestWriteError_HidesStorageDetails(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return writeError(c, &service.PersistenceError{Op: "insert", Err: errors.New("pq: secret table")})
	})
	app.Get("/race", func(c *fiber.Ctx) error {
		return writeError(c, &service.StockRaceLostError{ProductName: "Widget"})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, 500, resp.StatusCode)
	assert.NotContains(t, string(raw), "secret")

	resp, err = app.Test(httptest.NewRequest("GET", "/race", nil))
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["retryable"])
}
