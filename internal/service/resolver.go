package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"pos-ledger/internal/model"
	"pos-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// resolvedItem is a cart row bound to a concrete product.
type resolvedItem struct {
	Product      *model.Product
	Quantity     int
	UnitPrice    decimal.Decimal
	Discount     decimal.Decimal
	LineTotal    decimal.Decimal
	Materialized bool
}

type itemResolver struct {
	products repository.ProductRepository
	now      func() time.Time
}

// lookup loads every product referenced by id and checks ownership. It
// does not write.
func (r *itemResolver) lookup(tx *gorm.DB, businessID uuid.UUID, items []CreateItemRequest) (map[uuid.UUID]*model.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]bool, len(items))
	for _, it := range items {
		if it.ProductID != nil && !seen[*it.ProductID] {
			seen[*it.ProductID] = true
			ids = append(ids, *it.ProductID)
		}
	}

	found, err := r.products.FindByIDs(tx, ids)
	if err != nil {
		return nil, persistence("load products", err)
	}

	catalog := make(map[uuid.UUID]*model.Product, len(found))
	for i := range found {
		catalog[found[i].ID] = &found[i]
	}
	for _, id := range ids {
		p, ok := catalog[id]
		if !ok {
			return nil, &NotFoundError{Resource: "product", ID: id.String()}
		}
		if p.BusinessID != businessID {
			return nil, &NotFoundError{Resource: "product", ID: id.String(), CrossTenant: true}
		}
	}
	return catalog, nil
}

// price turns the request into calculator lines. Catalog items without an
// explicit unit price sell at the catalog price. Money is rounded here so
// the stored unit price and discount are the ones the line was priced with.
func price(items []CreateItemRequest, catalog map[uuid.UUID]*model.Product) []Line {
	lines := make([]Line, len(items))
	for i, it := range items {
		unit := decimal.Zero
		switch {
		case it.UnitPrice != nil:
			unit = *it.UnitPrice
		case it.ProductID != nil:
			unit = catalog[*it.ProductID].Price
		}
		lines[i] = Line{
			Quantity:  it.Quantity,
			UnitPrice: unit.Round(moneyPlaces),
			Discount:  it.Discount.Round(moneyPlaces),
		}
	}
	return lines
}

// materialize creates the catalog row for a free-form cart line. A SALE
// seeds stock with the sold quantity so the line cannot oversell itself;
// other types start at zero and let the inventory step apply the delta.
func (r *itemResolver) materialize(tx *gorm.DB, businessID uuid.UUID, txType model.TransactionType, it CreateItemRequest, seq int, actor Actor) (*model.Product, error) {
	name := strings.TrimSpace(it.ProductName)
	stamp := strconv.FormatInt(r.now().UnixNano(), 36)

	sku := strings.TrimSpace(it.ProductSKU)
	if sku != "" {
		exists, err := r.products.SKUExists(tx, businessID, sku)
		if err != nil {
			return nil, persistence("check sku", err)
		}
		if exists {
			return nil, validationf("sku %q already exists, reference the product by product_id", sku)
		}
	} else {
		sku = fmt.Sprintf("MAN-%s-%d", strings.ToUpper(stamp), seq)
	}

	seed := 0
	if txType == model.TxSale {
		seed = it.Quantity
	}

	unit := decimal.Zero
	if it.UnitPrice != nil {
		unit = *it.UnitPrice
	}

	p := &model.Product{
		BusinessID:      businessID,
		Name:            name,
		Slug:            fmt.Sprintf("%s-%s-%d", slugify(name), stamp, seq),
		SKU:             sku,
		Quantity:        seed,
		Price:           unit.Round(moneyPlaces),
		CreatedFromCart: true,
	}
	p.CreatedBy = actor.audit()
	p.UpdatedBy = actor.audit()

	if err := r.products.Create(tx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, validationf("product %q conflicts with an existing product", name)
		}
		return nil, persistence("create product", err)
	}
	return p, nil
}

// resolve binds every cart row to a product, creating ad-hoc products as
// needed. lookup must have succeeded first.
func (r *itemResolver) resolve(tx *gorm.DB, businessID uuid.UUID, txType model.TransactionType, items []CreateItemRequest, catalog map[uuid.UUID]*model.Product, totals *Totals, actor Actor) ([]resolvedItem, error) {
	lines := price(items, catalog)
	out := make([]resolvedItem, len(items))
	for i, it := range items {
		ri := resolvedItem{
			Quantity:  it.Quantity,
			UnitPrice: lines[i].UnitPrice,
			Discount:  lines[i].Discount,
			LineTotal: totals.LineTotals[i],
		}
		if it.ProductID != nil {
			ri.Product = catalog[*it.ProductID]
		} else {
			p, err := r.materialize(tx, businessID, txType, it, i, actor)
			if err != nil {
				return nil, err
			}
			ri.Product = p
			ri.Materialized = true
		}
		out[i] = ri
	}
	return out, nil
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "item"
	}
	if runes := []rune(out); len(runes) > 180 {
		out = strings.TrimSuffix(string(runes[:180]), "-")
	}
	return out
}

type customerResolver struct {
	customers repository.CustomerRepository
}

// resolve returns the customer for the cart, if any, and whether it was
// created by this call.
func (r *customerResolver) resolve(tx *gorm.DB, businessID uuid.UUID, id *uuid.UUID, data *CustomerData, actor Actor) (*model.Customer, bool, error) {
	if id != nil {
		c, err := r.customers.FindByID(tx, *id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, &NotFoundError{Resource: "customer", ID: id.String()}
		}
		if err != nil {
			return nil, false, persistence("load customer", err)
		}
		if c.BusinessID != businessID {
			return nil, false, &NotFoundError{Resource: "customer", ID: id.String(), CrossTenant: true}
		}
		return c, false, nil
	}
	if data == nil {
		return nil, false, nil
	}

	email, phone := trimmed(data.Email), trimmed(data.Phone)
	c, err := r.customers.FindByContact(tx, businessID, email, phone)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, persistence("find customer", err)
	}

	c = &model.Customer{
		BusinessID: businessID,
		Name:       strings.TrimSpace(data.Name),
		Email:      email,
		Phone:      phone,
		TotalSpent: decimal.Zero,
	}
	c.CreatedBy = actor.audit()
	c.UpdatedBy = actor.audit()
	if err := r.customers.Create(tx, c); err != nil {
		return nil, false, persistence("create customer", err)
	}
	return c, true, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
