package service

import (
	"context"
	"time"

	"pos-ledger/internal/model"
	"pos-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DashboardSummary struct {
	From       time.Time                  `json:"from"`
	To         time.Time                  `json:"to"`
	ByType     []repository.TypeSummary   `json:"by_type"`
	Daily      []repository.DailyTotal    `json:"daily"`
	Inventory  *repository.InventoryStats `json:"inventory"`
	NetRevenue decimal.Decimal            `json:"net_revenue"`
}

type DashboardService interface {
	GetSummary(ctx context.Context, actor Actor, businessID uuid.UUID, days int) (*DashboardSummary, error)
}

type dashboardService struct {
	txRepo       repository.TransactionRepository
	productRepo  repository.ProductRepository
	businessRepo repository.BusinessRepository
}

func NewDashboardService(txRepo repository.TransactionRepository, productRepo repository.ProductRepository, businessRepo repository.BusinessRepository) DashboardService {
	return &dashboardService{txRepo: txRepo, productRepo: productRepo, businessRepo: businessRepo}
}

// GetSummary covers completed entries of the last days days. Net revenue
// is sales plus income minus refunds and expenses.
func (s *dashboardService) GetSummary(ctx context.Context, actor Actor, businessID uuid.UUID, days int) (*DashboardSummary, error) {
	if err := authorize(ctx, s.businessRepo, businessID, actor); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 7
	}

	end := time.Now()
	start := end.AddDate(0, 0, -days)

	byType, err := s.txRepo.GetSummary(ctx, businessID, start, end)
	if err != nil {
		return nil, persistence("summarise ledger", err)
	}
	daily, err := s.txRepo.GetDailyTotals(ctx, businessID, start, end)
	if err != nil {
		return nil, persistence("daily totals", err)
	}
	inventory, err := s.productRepo.GetInventoryStats(ctx, businessID)
	if err != nil {
		return nil, persistence("inventory stats", err)
	}

	net := decimal.Zero
	for _, ts := range byType {
		switch ts.Type {
		case model.TxSale, model.TxIncome:
			net = net.Add(ts.Total)
		case model.TxRefund, model.TxExpense:
			net = net.Sub(ts.Total)
		}
	}

	return &DashboardSummary{
		From:       start,
		To:         end,
		ByType:     byType,
		Daily:      daily,
		Inventory:  inventory,
		NetRevenue: net,
	}, nil
}
