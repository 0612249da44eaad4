package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-pos-inventory/internal/config"
	"go-pos-inventory/internal/event"
	"go-pos-inventory/internal/handler"
	"go-pos-inventory/internal/metrics"
	"go-pos-inventory/internal/middleware"
	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/internal/service"
	"go-pos-inventory/internal/ws"
	"go-pos-inventory/pkg/apperror"
	"go-pos-inventory/pkg/database"
	"go-pos-inventory/pkg/jwt"
	"go-pos-inventory/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 1. Load config and logger
	cfg := config.Load()
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}); err != nil {
		logger.L().Error("init logger", "error", err)
		os.Exit(1)
	}
	log := logger.L()

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.Database)
	if err != nil {
		log.Error("connect database", "error", err)
		os.Exit(1)
	}
	// Migrate schema
	if err := db.AutoMigrate(model.All()...); err != nil {
		log.Error("migrate database", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Metrics, websocket hub and event sinks
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	wsHub := ws.NewHub()
	go wsHub.Run(ctx)

	publishers := []event.Publisher{event.NewHubPublisher(wsHub, m)}
	var kafkaPublisher *event.KafkaPublisher
	if cfg.Kafka.Enabled() {
		kafkaPublisher = event.NewKafkaPublisher(event.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic}, m)
		publishers = append(publishers, kafkaPublisher)
	}
	publisher := event.Multi(publishers...)

	// 4. Dependency Injection (Wiring Layers)
	txm := repository.NewTxManager(db, cfg.Database.TxTimeout)
	productRepo := repository.NewProductRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	movementRepo := repository.NewStockMovementRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	expenseRepo := repository.NewExpenseRepo(db)
	dashboardRepo := repository.NewDashboardRepo(db)
	userRepo := repository.NewUserRepo(db)
	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	ledger := service.NewStockLedger(txm, productRepo, movementRepo, publisher, m)
	saleService := service.NewSaleService(txm, productRepo, saleRepo, ledger, publisher, m)
	productService := service.NewProductService(txm, productRepo, categoryRepo, ledger, publisher)
	categoryService := service.NewCategoryService(categoryRepo)
	expenseService := service.NewExpenseService(expenseRepo)
	dashboardService := service.NewDashboardService(dashboardRepo, movementRepo, expenseRepo)
	authService := service.NewAuthService(userRepo, jwtManager, cfg.Auth.AllowRegistration)
	userService := service.NewUserService(userRepo)

	// 5. Seed defaults
	if err := categoryService.SeedDefaults(ctx); err != nil {
		log.Warn("seed categories", "error", err)
	}
	if created, err := userService.EnsureAdmin(ctx, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword); err != nil {
		log.Warn("seed admin user", "error", err)
	} else if created {
		log.Info("admin user created", "email", cfg.Seed.AdminEmail)
	}

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: cfg.App.Name,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message, "code": apperror.KindInternal})
			}
			appErr := apperror.GetAppError(err)
			return c.Status(appErr.Code).JSON(appErr)
		},
	})

	app.Use(fiberlogger.New(fiberlogger.Config{Output: logger.Writer()}))
	app.Use(recover.New())
	app.Use(cors.New())

	limiter := middleware.NewUserRateLimiter(cfg.Checkout.RatePerSecond, cfg.Checkout.Burst)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Sweep()
			}
		}
	}()

	// 7. Routes
	handler.RegisterRoutes(app, handler.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Product:   handler.NewProductHandler(productService),
		Category:  handler.NewCategoryHandler(categoryService),
		Inventory: handler.NewInventoryHandler(ledger),
		Sale:      handler.NewSaleHandler(saleService),
		Expense:   handler.NewExpenseHandler(expenseService),
		Dashboard: handler.NewDashboardHandler(dashboardService),
		User:      handler.NewUserHandler(userService),
	}, middleware.RequireAuth(jwtManager, userRepo), limiter.Handler())

	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down", "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok", "ws_clients": wsHub.ClientCount()})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// WebSocket Route
	app.Use("/ws", ws.UpgradeOnly)
	app.Get("/ws", wsHub.Handler())

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			log.Error("close kafka publisher", "error", err)
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info("server exited")
}
