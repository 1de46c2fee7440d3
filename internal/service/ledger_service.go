package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"pos-ledger/internal/model"
	"pos-ledger/internal/notify"
	"pos-ledger/internal/repository"
	"pos-ledger/pkg/database"
	"pos-ledger/pkg/logger"
	"pos-ledger/pkg/validator"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID uuid.UUID
	Name   string
}

func (a Actor) audit() string { return a.UserID.String() }

type CreateItemRequest struct {
	ProductID   *uuid.UUID       `json:"product_id"`
	ProductName string           `json:"product_name" validate:"max=255"`
	ProductSKU  string           `json:"product_sku" validate:"max=64"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	Quantity    int              `json:"quantity" validate:"gt=0,max=1000000"`
	Discount    decimal.Decimal  `json:"discount" validate:"gte=0"`
}

type CustomerData struct {
	Name  string  `json:"name" validate:"required,max=255"`
	Email *string `json:"email" validate:"omitempty,email,max=255"`
	Phone *string `json:"phone" validate:"omitempty,max=50"`
}

type CreateTransactionRequest struct {
	BusinessID    uuid.UUID             `json:"business_id" validate:"uuid_required"`
	CustomerID    *uuid.UUID            `json:"customer_id"`
	CustomerData  *CustomerData         `json:"customer_data"`
	Type          model.TransactionType `json:"type" validate:"required,oneof=SALE REFUND EXPENSE INCOME"`
	PaymentMethod model.PaymentMethod   `json:"payment_method" validate:"required,oneof=CASH CARD BANK_TRANSFER MOBILE_MONEY OTHER"`
	Items         []CreateItemRequest   `json:"items" validate:"required,min=1,max=500,dive"`
	Discount      decimal.Decimal       `json:"discount" validate:"gte=0"`
	AmountPaid    decimal.Decimal       `json:"amount_paid" validate:"gte=0"`
	Notes         string                `json:"notes" validate:"max=1000"`
}

// Validate checks the request shape. It runs before any lookup.
func (r *CreateTransactionRequest) Validate() error {
	if errs := validator.ValidateStruct(r); len(errs) > 0 {
		return &ValidationError{Message: validator.Describe(errs)}
	}
	if r.CustomerID != nil && r.CustomerData != nil {
		return validationf("provide either customer_id or customer_data, not both")
	}
	for i, it := range r.Items {
		if it.UnitPrice != nil && it.UnitPrice.IsNegative() {
			return validationf("items[%d]: unit_price must not be negative", i)
		}
		if it.ProductID != nil {
			continue
		}
		if strings.TrimSpace(it.ProductName) == "" {
			return validationf("items[%d]: product_name is required when product_id is absent", i)
		}
		if it.UnitPrice == nil {
			return validationf("items[%d]: unit_price is required when product_id is absent", i)
		}
	}
	return nil
}

// InvoiceView is the public projection returned by invoice verification.
type InvoiceView struct {
	InvoiceID     string                  `json:"invoice_id"`
	Reference     string                  `json:"reference"`
	BusinessName  string                  `json:"business_name"`
	Currency      string                  `json:"currency"`
	Type          model.TransactionType   `json:"type"`
	Status        model.TransactionStatus `json:"status"`
	PaymentMethod model.PaymentMethod     `json:"payment_method"`
	CustomerName  string                  `json:"customer_name,omitempty"`
	IssuedAt      time.Time               `json:"issued_at"`
	Items         []InvoiceLine           `json:"items"`
	Subtotal      decimal.Decimal         `json:"subtotal"`
	Discount      decimal.Decimal         `json:"discount"`
	Total         decimal.Decimal         `json:"total"`
	AmountPaid    decimal.Decimal         `json:"amount_paid"`
	Change        decimal.Decimal         `json:"change"`
}

type InvoiceLine struct {
	Name      string          `json:"name"`
	SKU       string          `json:"sku,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
}

type LedgerService interface {
	CreateTransaction(ctx context.Context, actor Actor, req *CreateTransactionRequest) (*model.Transaction, error)
	CancelTransaction(ctx context.Context, actor Actor, id uuid.UUID) (*model.Transaction, error)
	GetTransaction(ctx context.Context, actor Actor, id uuid.UUID) (*model.Transaction, error)
	ListTransactions(ctx context.Context, actor Actor, filter repository.TransactionFilter) ([]model.Transaction, int64, error)
	VerifyInvoice(ctx context.Context, invoiceID string) (*InvoiceView, error)
}

type Repositories struct {
	Products     repository.ProductRepository
	Transactions repository.TransactionRepository
	Customers    repository.CustomerRepository
	Businesses   repository.BusinessRepository
}

type LedgerOptions struct {
	// MaxCommitAttempts bounds replays of the commit unit after an
	// identifier collision or a serialization failure.
	MaxCommitAttempts int
	Isolation         sql.IsolationLevel
}

type ledgerService struct {
	db           *gorm.DB
	transactions repository.TransactionRepository
	customers    repository.CustomerRepository
	businesses   repository.BusinessRepository
	items        *itemResolver
	buyers       *customerResolver
	inventory    *inventoryMutator
	ids          IdentifierGenerator
	events       notify.Publisher
	opts         LedgerOptions
	log          zerolog.Logger
	now          func() time.Time
}

func NewLedgerService(db *gorm.DB, repos Repositories, ids IdentifierGenerator, events notify.Publisher, opts LedgerOptions, log zerolog.Logger) LedgerService {
	if opts.MaxCommitAttempts < 1 {
		opts.MaxCommitAttempts = 1
	}
	now := time.Now
	return &ledgerService{
		db:           db,
		transactions: repos.Transactions,
		customers:    repos.Customers,
		businesses:   repos.Businesses,
		items:        &itemResolver{products: repos.Products, now: now},
		buyers:       &customerResolver{customers: repos.Customers},
		inventory:    &inventoryMutator{products: repos.Products},
		ids:          ids,
		events:       events,
		opts:         opts,
		log:          log,
		now:          now,
	}
}

// logFor prefers the request-scoped logger carried by ctx.
func (s *ledgerService) logFor(ctx context.Context) zerolog.Logger {
	return logger.FromContext(ctx, s.log).With().Str("component", "ledger").Logger()
}

// ParseIsolation maps a config value onto a sql isolation level.
func ParseIsolation(s string) (sql.IsolationLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return sql.LevelDefault, nil
	case "read_committed":
		return sql.LevelReadCommitted, nil
	case "repeatable_read":
		return sql.LevelRepeatableRead, nil
	case "serializable":
		return sql.LevelSerializable, nil
	}
	return sql.LevelDefault, errors.New("unknown isolation level " + s)
}

// errIdentifierTaken marks a unique violation on reference or invoice id.
var errIdentifierTaken = errors.New("identifier taken")

// runAtomic executes fn in one storage transaction and replays it on
// transient conflicts. The request context is checked before each attempt;
// once an attempt starts it is not cancelled.
func (s *ledgerService) runAtomic(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	var opts []*sql.TxOptions
	if s.opts.Isolation != sql.LevelDefault {
		opts = append(opts, &sql.TxOptions{Isolation: s.opts.Isolation})
	}

	var err error
	for attempt := 1; attempt <= s.opts.MaxCommitAttempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		err = s.db.WithContext(context.WithoutCancel(ctx)).Transaction(fn, opts...)
		if err == nil {
			return nil
		}

		switch {
		case errors.Is(err, errIdentifierTaken):
			l := s.logFor(ctx)
			l.Warn().Str("op", op).Int("attempt", attempt).Msg("identifier collision, regenerating")
		case database.IsSerializationFailure(err):
			l := s.logFor(ctx)
			l.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("serialization conflict, retrying")
		default:
			return classify(op, err)
		}
	}

	if errors.Is(err, errIdentifierTaken) {
		return ErrIdentifierCollision
	}
	return persistence(op, err)
}

// classify leaves domain errors untouched and wraps anything else as a
// persistence failure.
func classify(op string, err error) error {
	var (
		ve  *ValidationError
		nf  *NotFoundError
		pe  *PersistenceError
		ise *InsufficientStockError
		ipe *InsufficientPaymentError
		ite *InvalidTotalError
		sre *StockRaceLostError
		ste *InvalidStateTransitionError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &nf), errors.As(err, &pe),
		errors.As(err, &ise), errors.As(err, &ipe), errors.As(err, &ite),
		errors.As(err, &sre), errors.As(err, &ste):
		return err
	}
	return persistence(op, err)
}

// authorize hides businesses the actor is not a member of behind NotFound.
func authorize(ctx context.Context, businesses repository.BusinessRepository, businessID uuid.UUID, actor Actor) error {
	ok, err := businesses.IsMember(ctx, businessID, actor.UserID)
	if err != nil {
		return persistence("check membership", err)
	}
	if !ok {
		return &NotFoundError{Resource: "business", ID: businessID.String()}
	}
	return nil
}

// commitOutcome carries what the commit unit produced for post-commit
// notification.
type commitOutcome struct {
	transaction     *model.Transaction
	createdCustomer bool
	createdProducts []*model.Product
	lowStock        []notify.LowStock
}

func (s *ledgerService) CreateTransaction(ctx context.Context, actor Actor, req *CreateTransactionRequest) (*model.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.businesses, req.BusinessID, actor); err != nil {
		return nil, err
	}

	var outcome *commitOutcome
	err := s.runAtomic(ctx, "create transaction", func(tx *gorm.DB) error {
		o, err := s.commitCart(tx, actor, req)
		if err != nil {
			return err
		}
		outcome = o
		return nil
	})
	log := s.logFor(ctx)
	if err != nil {
		event := log.Error()
		if IsClientError(err) || IsRetryable(err) {
			event = log.Info()
		}
		event.Err(err).
			Str("business_id", req.BusinessID.String()).
			Str("type", string(req.Type)).
			Msg("transaction rejected")
		return nil, err
	}

	t := outcome.transaction
	log.Info().
		Str("reference", t.Reference).
		Str("invoice_id", t.InvoiceID).
		Str("business_id", t.BusinessID.String()).
		Str("type", string(t.Type)).
		Str("total", t.Total.StringFixed(2)).
		Int("items", len(t.Items)).
		Msg("transaction committed")

	s.publishCreated(actor, outcome)
	return t, nil
}

// commitCart is the body of the atomic unit: resolve, check stock, price, write
// the ledger rows and move stock. Any error rolls everything back.
func (s *ledgerService) commitCart(tx *gorm.DB, actor Actor, req *CreateTransactionRequest) (*commitOutcome, error) {
	catalog, err := s.items.lookup(tx, req.BusinessID, req.Items)
	if err != nil {
		return nil, err
	}

	if err := checkStock(req.Type, req.Items, catalog); err != nil {
		return nil, err
	}

	totals, err := ComputeTotals(req.Type, price(req.Items, catalog), req.Discount, req.AmountPaid)
	if err != nil {
		return nil, err
	}

	customer, createdCustomer, err := s.buyers.resolve(tx, req.BusinessID, req.CustomerID, req.CustomerData, actor)
	if err != nil {
		return nil, err
	}

	resolved, err := s.items.resolve(tx, req.BusinessID, req.Type, req.Items, catalog, totals, actor)
	if err != nil {
		return nil, err
	}

	reference, err := s.ids.Reference()
	if err != nil {
		return nil, persistence("generate reference", err)
	}
	invoiceID, err := s.ids.InvoiceID()
	if err != nil {
		return nil, persistence("generate invoice id", err)
	}

	t := &model.Transaction{
		Reference:     reference,
		InvoiceID:     invoiceID,
		BusinessID:    req.BusinessID,
		CreatedByID:   actor.UserID,
		Type:          req.Type,
		PaymentMethod: req.PaymentMethod,
		Subtotal:      totals.Subtotal,
		Discount:      totals.Discount,
		Total:         totals.Total,
		AmountPaid:    totals.AmountPaid,
		Change:        totals.Change,
		Notes:         strings.TrimSpace(req.Notes),
		Status:        model.StatusCompleted,
		Items:         make([]model.TransactionItem, len(resolved)),
	}
	t.CreatedBy = actor.audit()
	t.UpdatedBy = actor.audit()
	if customer != nil {
		t.CustomerID = &customer.ID
		t.Customer = customer
	}

	o := &commitOutcome{transaction: t, createdCustomer: createdCustomer}
	for i, ri := range resolved {
		pid := ri.Product.ID
		t.Items[i] = model.TransactionItem{
			ProductID:   &pid,
			ProductName: ri.Product.Name,
			ProductSKU:  ri.Product.SKU,
			Quantity:    ri.Quantity,
			UnitPrice:   ri.UnitPrice,
			Discount:    ri.Discount,
			Total:       ri.LineTotal,
		}
		if ri.Materialized {
			o.createdProducts = append(o.createdProducts, ri.Product)
		}
	}

	if err := s.transactions.Create(tx, t); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, errIdentifierTaken
		}
		return nil, persistence("write ledger", err)
	}

	o.lowStock, err = s.inventory.apply(tx, t, resolved, actor)
	if err != nil {
		return nil, err
	}

	if customer != nil && t.Type == model.TxSale {
		if err := s.customers.RecordPurchase(tx, customer.ID, t.Total, s.now()); err != nil {
			return nil, persistence("record customer purchase", err)
		}
	}
	return o, nil
}

// publishCreated hands post-commit events to the notifier. It never fails.
func (s *ledgerService) publishCreated(actor Actor, o *commitOutcome) {
	t := o.transaction
	var events []notify.Event

	switch t.Type {
	case model.TxSale:
		payload := notify.SaleCompleted{
			TransactionID: t.ID,
			Reference:     t.Reference,
			InvoiceID:     t.InvoiceID,
			Total:         t.Total,
			CreatedBy:     actor.Name,
		}
		if t.Customer != nil {
			payload.CustomerName = t.Customer.Name
		}
		events = append(events, notify.NewEvent(notify.EventSaleCompleted, t.BusinessID, payload))
	case model.TxRefund:
		events = append(events, notify.NewEvent(notify.EventRefundProcessed, t.BusinessID, notify.RefundProcessed{
			TransactionID: t.ID,
			Reference:     t.Reference,
			Total:         t.Total,
		}))
	}

	if o.createdCustomer && t.Customer != nil {
		events = append(events, notify.NewEvent(notify.EventCustomerCreated, t.BusinessID, notify.CustomerCreated{
			CustomerID: t.Customer.ID,
			Name:       t.Customer.Name,
		}))
	}
	for _, p := range o.createdProducts {
		events = append(events, notify.NewEvent(notify.EventProductCreated, t.BusinessID, notify.ProductCreated{
			ProductID: p.ID,
			Name:      p.Name,
			SKU:       p.SKU,
			Quantity:  p.Quantity,
		}))
	}
	for _, ls := range o.lowStock {
		events = append(events, notify.NewEvent(notify.EventLowStock, t.BusinessID, ls))
	}

	if len(events) > 0 && s.events != nil {
		s.events.Publish(events...)
	}
}

func (s *ledgerService) GetTransaction(ctx context.Context, actor Actor, id uuid.UUID) (*model.Transaction, error) {
	t, err := s.transactions.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "transaction", ID: id.String()}
	}
	if err != nil {
		return nil, persistence("load transaction", err)
	}
	if err := authorize(ctx, s.businesses, t.BusinessID, actor); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{Resource: "transaction", ID: id.String(), CrossTenant: true}
		}
		return nil, err
	}
	return t, nil
}

func (s *ledgerService) ListTransactions(ctx context.Context, actor Actor, filter repository.TransactionFilter) ([]model.Transaction, int64, error) {
	if filter.BusinessID == uuid.Nil {
		return nil, 0, validationf("business_id is required")
	}
	if err := authorize(ctx, s.businesses, filter.BusinessID, actor); err != nil {
		return nil, 0, err
	}
	rows, total, err := s.transactions.List(ctx, filter)
	if err != nil {
		return nil, 0, persistence("list transactions", err)
	}
	return rows, total, nil
}

// VerifyInvoice is public. It exposes only what a printed receipt shows.
func (s *ledgerService) VerifyInvoice(ctx context.Context, invoiceID string) (*InvoiceView, error) {
	invoiceID = strings.ToUpper(strings.TrimSpace(invoiceID))
	if !IsInvoiceID(invoiceID) {
		return nil, validationf("invoice id must be %d alphanumeric characters", InvoiceIDLength)
	}

	t, err := s.transactions.FindByInvoiceID(ctx, invoiceID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "invoice", ID: invoiceID}
	}
	if err != nil {
		return nil, persistence("load invoice", err)
	}

	view := &InvoiceView{
		InvoiceID:     t.InvoiceID,
		Reference:     t.Reference,
		Type:          t.Type,
		Status:        t.Status,
		PaymentMethod: t.PaymentMethod,
		IssuedAt:      t.CreatedAt,
		Items:         make([]InvoiceLine, len(t.Items)),
		Subtotal:      t.Subtotal,
		Discount:      t.Discount,
		Total:         t.Total,
		AmountPaid:    t.AmountPaid,
		Change:        t.Change,
	}
	if b, err := s.businesses.FindByID(ctx, t.BusinessID); err == nil {
		view.BusinessName = b.Name
		view.Currency = b.Currency
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, persistence("load business", err)
	}
	if t.Customer != nil {
		view.CustomerName = t.Customer.Name
	}
	for i, it := range t.Items {
		view.Items[i] = InvoiceLine{
			Name:      it.ProductName,
			SKU:       it.ProductSKU,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Discount:  it.Discount,
			Total:     it.Total,
		}
	}
	return view, nil
}
