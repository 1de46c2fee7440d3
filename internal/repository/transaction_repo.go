package repository

import (
	"context"
	"time"

	"pos-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionRepository interface {
	Create(tx *gorm.DB, t *model.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	FindHeader(tx *gorm.DB, id uuid.UUID) (*model.Transaction, error)
	FindItems(tx *gorm.DB, transactionID uuid.UUID) ([]model.TransactionItem, error)
	FindByInvoiceID(ctx context.Context, invoiceID string) (*model.Transaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]model.Transaction, int64, error)
	TransitionStatus(tx *gorm.DB, id uuid.UUID, from, to model.TransactionStatus, updatedBy string) error
	GetSummary(ctx context.Context, businessID uuid.UUID, start, end time.Time) ([]TypeSummary, error)
	GetDailyTotals(ctx context.Context, businessID uuid.UUID, start, end time.Time) ([]DailyTotal, error)
}

type TransactionFilter struct {
	BusinessID uuid.UUID
	Type       model.TransactionType
	Status     model.TransactionStatus
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// TypeSummary aggregates completed entries of one type.
type TypeSummary struct {
	Type  model.TransactionType `json:"type"`
	Count int64                 `json:"count"`
	Total decimal.Decimal       `json:"total"`
}

// DailyTotal is one point of the sales chart.
type DailyTotal struct {
	Date    string          `json:"date"`
	Sales   decimal.Decimal `json:"sales"`
	Refunds decimal.Decimal `json:"refunds"`
}

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db}
}

// Create writes the header and then its items on the same tx. A failure
// on any item leaves the caller to roll back the header.
func (r *transactionRepo) Create(tx *gorm.DB, t *model.Transaction) error {
	if err := tx.Omit(clause.Associations).Create(t).Error; err != nil {
		return translate(err)
	}
	if len(t.Items) == 0 {
		return nil
	}
	for i := range t.Items {
		t.Items[i].TransactionID = t.ID
		t.Items[i].CreatedBy = t.CreatedBy
		t.Items[i].UpdatedBy = t.UpdatedBy
	}
	return translate(tx.Create(&t.Items).Error)
}

func (r *transactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var t model.Transaction
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Customer").
		First(&t, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *transactionRepo) FindHeader(tx *gorm.DB, id uuid.UUID) (*model.Transaction, error) {
	var t model.Transaction
	if err := tx.First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *transactionRepo) FindItems(tx *gorm.DB, transactionID uuid.UUID) ([]model.TransactionItem, error) {
	var items []model.TransactionItem
	err := tx.Where("transaction_id = ?", transactionID).Order("created_at ASC").Find(&items).Error
	return items, translate(err)
}

func (r *transactionRepo) FindByInvoiceID(ctx context.Context, invoiceID string) (*model.Transaction, error) {
	var t model.Transaction
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Customer").
		First(&t, "invoice_id = ?", invoiceID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *transactionRepo) List(ctx context.Context, f TransactionFilter) ([]model.Transaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Transaction{}).Where("business_id = ?", f.BusinessID)
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var rows []model.Transaction
	err := q.Preload("Customer").
		Order("created_at DESC").
		Limit(limit).
		Offset(f.Offset).
		Find(&rows).Error
	return rows, total, translate(err)
}

// TransitionStatus moves a transaction between states only if it is still
// in from. Returns ErrConditionFailed when another writer got there first.
func (r *transactionRepo) TransitionStatus(tx *gorm.DB, id uuid.UUID, from, to model.TransactionStatus, updatedBy string) error {
	res := tx.Model(&model.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_by": updatedBy,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConditionFailed
	}
	return nil
}

func (r *transactionRepo) GetSummary(ctx context.Context, businessID uuid.UUID, start, end time.Time) ([]TypeSummary, error) {
	rows, err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Select("type, COUNT(*) AS count, COALESCE(SUM(total), 0) AS total").
		Where("business_id = ? AND status = ? AND created_at BETWEEN ? AND ?",
			businessID, model.StatusCompleted, start, end).
		Group("type").
		Order("type ASC").
		Rows()
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var results []TypeSummary
	for rows.Next() {
		var (
			s     TypeSummary
			total float64
		)
		if err := rows.Scan(&s.Type, &s.Count, &total); err != nil {
			return nil, err
		}
		s.Total = decimal.NewFromFloat(total).Round(2)
		results = append(results, s)
	}
	return results, rows.Err()
}

func (r *transactionRepo) GetDailyTotals(ctx context.Context, businessID uuid.UUID, start, end time.Time) ([]DailyTotal, error) {
	rows, err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Select(`
			DATE(created_at) AS date,
			COALESCE(SUM(CASE WHEN type = 'SALE' THEN total ELSE 0 END), 0) AS sales,
			COALESCE(SUM(CASE WHEN type = 'REFUND' THEN total ELSE 0 END), 0) AS refunds
		`).
		Where("business_id = ? AND status = ? AND created_at BETWEEN ? AND ?",
			businessID, model.StatusCompleted, start, end).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var results []DailyTotal
	for rows.Next() {
		var (
			d              DailyTotal
			sales, refunds float64
		)
		if err := rows.Scan(&d.Date, &sales, &refunds); err != nil {
			return nil, err
		}
		d.Sales = decimal.NewFromFloat(sales).Round(2)
		d.Refunds = decimal.NewFromFloat(refunds).Round(2)
		results = append(results, d)
	}
	return results, rows.Err()
}
