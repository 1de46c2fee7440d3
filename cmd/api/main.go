package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos-ledger/internal/config"
	"pos-ledger/internal/handler"
	"pos-ledger/internal/middleware"
	"pos-ledger/internal/notify"
	"pos-ledger/internal/repository"
	"pos-ledger/internal/service"
	"pos-ledger/internal/ws"
	"pos-ledger/pkg/database"
	"pos-ledger/pkg/jwt"
	"pos-ledger/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
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
	// Auto Migrate (use a dedicated migration tool for production schemas)
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	isolation, err := service.ParseIsolation(cfg.Ledger.Isolation)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid LEDGER_ISOLATION")
	}

	// 3. Setup WebSocket Hub and event dispatcher
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	wsHub := ws.NewHub(log)
	go wsHub.Run(ctx)

	dispatcher := notify.NewDispatcher(notify.Options{
		QueueSize:    cfg.Notify.QueueSize,
		Workers:      cfg.Notify.Workers,
		MaxRetries:   cfg.Notify.MaxRetries,
		RetryBackoff: cfg.Notify.RetryBackoff,
	}, log, wsHub, notify.NewLogSink(log))
	dispatcher.Start()

	// 4. Dependency Injection (Wiring Layers)
	repos := service.Repositories{
		Products:     repository.NewProductRepo(db),
		Transactions: repository.NewTransactionRepo(db),
		Customers:    repository.NewCustomerRepo(db),
		Businesses:   repository.NewBusinessRepo(db),
	}

	ledgerService := service.NewLedgerService(db, repos,
		service.NewIdentifierGenerator(cfg.Ledger.ReferencePrefix),
		dispatcher,
		service.LedgerOptions{MaxCommitAttempts: cfg.Ledger.MaxCommitAttempts, Isolation: isolation},
		log)
	productService := service.NewProductService(db, repos.Products, repos.Businesses, dispatcher, log)
	dashService := service.NewDashboardService(repos.Transactions, repos.Products, repos.Businesses)

	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer)

	// 5. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: cfg.App.Name,
	})

	// Middleware
	app.Use(requestid.New())                // X-Request-ID
	app.Use(middleware.RequestLogger(log)) // Logging request
	app.Use(recover.New())                 // Panic recovery
	app.Use(cors.New())                    // CORS

	// 6. Routes
	handler.Register(app, handler.Handlers{
		Transactions: handler.NewTransactionHandler(ledgerService),
		Invoices:     handler.NewInvoiceHandler(ledgerService),
		Products:     handler.NewProductHandler(productService),
		Dashboard:    handler.NewDashboardHandler(dashService),
		WS:           handler.NewWSHandler(wsHub, repos.Businesses),
	}, middleware.RequireAuth(tokens))

	// 7. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			log.Panic().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dispatcher.Close(drainCtx); err != nil {
		log.Warn().Err(err).Uint64("dropped", dispatcher.Dropped()).Msg("event queue not fully drained")
	}
	stop()

	log.Info().Msg("server exited")
}
