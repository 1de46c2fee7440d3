package main

import (
	"context"
	"flag"
	"fmt"

	"pos-ledger/internal/config"
	"pos-ledger/internal/model"
	"pos-ledger/internal/repository"
	"pos-ledger/pkg/database"
	"pos-ledger/pkg/jwt"
	"pos-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// seed creates a demo business with an owner and a small catalog, then
// prints a bearer token for that owner.
func main() {
	name := flag.String("business", "Demo Shop", "business name")
	email := flag.String("email", "owner@example.com", "owner email embedded in the token")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", true)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	// 2. Setup Database
	db, err := database.Connect(cfg.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	ctx := context.Background()
	businesses := repository.NewBusinessRepo(db)
	products := repository.NewProductRepo(db)

	// 3. Business and owner
	ownerID := uuid.New()
	biz := &model.Business{Name: *name, Currency: "USD", OwnerID: ownerID}
	biz.CreatedBy = "seed"
	if err := businesses.Create(ctx, biz); err != nil {
		log.Fatal().Err(err).Msg("failed to create business")
	}
	if err := businesses.AddMember(ctx, &model.BusinessMember{BusinessID: biz.ID, UserID: ownerID, Role: model.RoleOwner}); err != nil {
		log.Fatal().Err(err).Msg("failed to add owner")
	}

	// 4. Catalog
	catalog := []model.Product{
		{Name: "Espresso Beans 1kg", SKU: "BEAN-1KG", Quantity: 40, MinQuantity: 5, Price: decimal.RequireFromString("18.50"), Unit: "bag"},
		{Name: "Paper Cup 12oz", SKU: "CUP-12", Quantity: 500, MinQuantity: 100, Price: decimal.RequireFromString("0.15"), Unit: "pcs"},
		{Name: "Oat Milk 1L", SKU: "OAT-1L", Quantity: 3, MinQuantity: 6, Price: decimal.RequireFromString("2.90"), Unit: "carton"},
	}
	for i := range catalog {
		p := &catalog[i]
		p.BusinessID = biz.ID
		p.Slug = fmt.Sprintf("%s-%d", p.SKU, i)
		p.CreatedBy = "seed"
		if err := products.Create(db, p); err != nil {
			log.Fatal().Err(err).Str("sku", p.SKU).Msg("failed to create product")
		}
	}

	// 5. Token
	token, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer).GenerateToken(ownerID, *email, "Owner")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to sign token")
	}

	log.Info().
		Str("business_id", biz.ID.String()).
		Str("owner_id", ownerID.String()).
		Int("products", len(catalog)).
		Msg("seed complete")
	fmt.Println(token)
}
