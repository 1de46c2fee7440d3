package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pos-ledger/internal/model"
	"pos-ledger/internal/notify"
	"pos-ledger/internal/repository"
	"pos-ledger/pkg/logger"
	"pos-ledger/pkg/validator"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateProductRequest struct {
	BusinessID  uuid.UUID       `json:"business_id" validate:"uuid_required"`
	Name        string          `json:"name" validate:"required,max=255"`
	SKU         string          `json:"sku" validate:"required,max=64"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	MinQuantity int             `json:"min_quantity" validate:"gte=0"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Unit        string          `json:"unit" validate:"max=20"`
}

type ProductService interface {
	CreateProduct(ctx context.Context, actor Actor, req *CreateProductRequest) (*model.Product, error)
	ListProducts(ctx context.Context, actor Actor, businessID uuid.UUID) ([]model.Product, error)
	ListLowStock(ctx context.Context, actor Actor, businessID uuid.UUID) ([]model.Product, error)
}

type productService struct {
	db         *gorm.DB
	products   repository.ProductRepository
	businesses repository.BusinessRepository
	events     notify.Publisher
	log        zerolog.Logger
}

func NewProductService(db *gorm.DB, products repository.ProductRepository, businesses repository.BusinessRepository, events notify.Publisher, log zerolog.Logger) ProductService {
	return &productService{
		db:         db,
		products:   products,
		businesses: businesses,
		events:     events,
		log:        log,
	}
}

func (s *productService) CreateProduct(ctx context.Context, actor Actor, req *CreateProductRequest) (*model.Product, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, &ValidationError{Message: validator.Describe(errs)}
	}
	if err := authorize(ctx, s.businesses, req.BusinessID, actor); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	p := &model.Product{
		BusinessID:  req.BusinessID,
		Name:        name,
		Slug:        fmt.Sprintf("%s-%s", slugify(name), strconv.FormatInt(time.Now().UnixNano(), 36)),
		SKU:         strings.TrimSpace(req.SKU),
		Quantity:    req.Quantity,
		MinQuantity: req.MinQuantity,
		Price:       req.Price.Round(moneyPlaces),
		Unit:        req.Unit,
	}
	p.CreatedBy = actor.audit()
	p.UpdatedBy = actor.audit()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.products.SKUExists(tx, p.BusinessID, p.SKU)
		if err != nil {
			return persistence("check sku", err)
		}
		if exists {
			return validationf("sku %q already exists", p.SKU)
		}
		if err := s.products.Create(tx, p); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return validationf("sku %q already exists", p.SKU)
			}
			return persistence("create product", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx, s.log).With().Str("component", "catalog").Logger()
	log.Info().Str("product_id", p.ID.String()).Str("sku", p.SKU).Msg("product created")

	events := []notify.Event{notify.NewEvent(notify.EventProductCreated, p.BusinessID, notify.ProductCreated{
		ProductID: p.ID,
		Name:      p.Name,
		SKU:       p.SKU,
		Quantity:  p.Quantity,
	})}
	if p.IsLowStock() {
		events = append(events, notify.NewEvent(notify.EventLowStock, p.BusinessID, notify.LowStock{
			ProductID:   p.ID,
			Name:        p.Name,
			Quantity:    p.Quantity,
			MinQuantity: p.MinQuantity,
		}))
	}
	if s.events != nil {
		s.events.Publish(events...)
	}
	return p, nil
}

func (s *productService) ListProducts(ctx context.Context, actor Actor, businessID uuid.UUID) ([]model.Product, error) {
	if err := authorize(ctx, s.businesses, businessID, actor); err != nil {
		return nil, err
	}
	products, err := s.products.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, persistence("list products", err)
	}
	return products, nil
}

func (s *productService) ListLowStock(ctx context.Context, actor Actor, businessID uuid.UUID) ([]model.Product, error) {
	if err := authorize(ctx, s.businesses, businessID, actor); err != nil {
		return nil, err
	}
	products, err := s.products.FindLowStock(ctx, businessID)
	if err != nil {
		return nil, persistence("list low stock", err)
	}
	return products, nil
}
