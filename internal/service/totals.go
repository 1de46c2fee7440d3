package service

import (
	"fmt"

	"pos-ledger/internal/model"

	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

// Line is the priced input of one cart row.
type Line struct {
	Quantity  int
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
}

type Totals struct {
	LineTotals []decimal.Decimal
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	AmountPaid decimal.Decimal
	Change     decimal.Decimal
}

// ComputeTotals prices a cart. It performs no I/O and is called before any
// write so payment and total errors leave nothing behind.
func ComputeTotals(txType model.TransactionType, lines []Line, discount, amountPaid decimal.Decimal) (*Totals, error) {
	if len(lines) == 0 {
		return nil, validationf("at least one item is required")
	}
	if discount.IsNegative() {
		return nil, validationf("discount must not be negative")
	}
	if amountPaid.IsNegative() {
		return nil, validationf("amount_paid must not be negative")
	}

	t := &Totals{
		LineTotals: make([]decimal.Decimal, len(lines)),
		Subtotal:   decimal.Zero,
		Discount:   discount.Round(moneyPlaces),
		AmountPaid: amountPaid.Round(moneyPlaces),
	}

	for i, l := range lines {
		if l.Quantity <= 0 {
			return nil, validationf("items[%d]: quantity must be positive", i)
		}
		if l.UnitPrice.IsNegative() {
			return nil, validationf("items[%d]: unit_price must not be negative", i)
		}
		if l.Discount.IsNegative() {
			return nil, validationf("items[%d]: discount must not be negative", i)
		}

		unit := l.UnitPrice.Round(moneyPlaces)
		lineDiscount := l.Discount.Round(moneyPlaces)
		lt := unit.Mul(decimal.NewFromInt(int64(l.Quantity))).Sub(lineDiscount)
		if lt.IsNegative() {
			return nil, &InvalidTotalError{Reason: fmt.Sprintf("items[%d] total is negative", i)}
		}
		t.LineTotals[i] = lt
		t.Subtotal = t.Subtotal.Add(lt)
	}

	t.Total = t.Subtotal.Sub(t.Discount)
	if t.Total.IsNegative() {
		return nil, &InvalidTotalError{Reason: "discount exceeds subtotal"}
	}

	if txType == model.TxSale && t.AmountPaid.LessThan(t.Total) {
		return nil, &InsufficientPaymentError{Required: t.Total, Paid: t.AmountPaid}
	}

	t.Change = decimal.Max(decimal.Zero, t.AmountPaid.Sub(t.Total))
	return t, nil
}
