// Command seed fills an empty database with categories, the admin account
// and a few demo products whose opening stock goes through the ledger.
package main

import (
	"context"
	"errors"
	"os"

	"go-pos-inventory/internal/config"
	"go-pos-inventory/internal/event"
	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/internal/service"
	"go-pos-inventory/pkg/apperror"
	"go-pos-inventory/pkg/database"
	"go-pos-inventory/pkg/logger"

	"github.com/shopspring/decimal"
)

type demoProduct struct {
	barcode  string
	name     string
	category string
	cost     string
	sell     string
	stock    int
}

var demoProducts = []demoProduct{
	{"8850001000011", "Drinking Water 600ml", "Food & Beverages", "4.50", "7.00", 120},
	{"8850001000028", "Instant Noodles", "Food & Beverages", "5.00", "7.00", 80},
	{"8850001000035", "Potato Chips", "Snacks", "15.00", "20.00", 40},
	{"8850001000042", "Dish Soap", "Household", "22.00", "32.00", 15},
	{"8850001000059", "Ballpoint Pen", "Stationery", "3.00", "6.00", 4},
}

func main() {
	cfg := config.Load()
	log := logger.L()
	ctx := context.Background()

	db, err := database.ConnectDB(cfg.Database)
	if err != nil {
		log.Error("connect database", "error", err)
		os.Exit(1)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		log.Error("migrate database", "error", err)
		os.Exit(1)
	}

	txm := repository.NewTxManager(db, cfg.Database.TxTimeout)
	productRepo := repository.NewProductRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	userRepo := repository.NewUserRepo(db)

	categories := service.NewCategoryService(categoryRepo)
	users := service.NewUserService(userRepo)
	ledger := service.NewStockLedger(txm, productRepo, repository.NewStockMovementRepo(db), event.Nop(), nil)
	products := service.NewProductService(txm, productRepo, categoryRepo, ledger, event.Nop())

	if err := categories.SeedDefaults(ctx); err != nil {
		log.Error("seed categories", "error", err)
		os.Exit(1)
	}
	if _, err := users.EnsureAdmin(ctx, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword); err != nil {
		log.Error("seed admin", "error", err)
		os.Exit(1)
	}
	admin, err := userRepo.FindByEmail(ctx, cfg.Seed.AdminEmail)
	if err != nil {
		log.Error("load admin", "error", err)
		os.Exit(1)
	}
	actor := service.Actor{ID: admin.ID, Name: admin.Name}

	for _, d := range demoProducts {
		req := &service.ProductRequest{
			Barcode:      d.barcode,
			Name:         d.name,
			CostPrice:    decimal.RequireFromString(d.cost),
			SellPrice:    decimal.RequireFromString(d.sell),
			InitialStock: d.stock,
		}
		if category, err := categoryRepo.FindByName(ctx, d.category); err == nil {
			req.CategoryID = &category.ID
		}

		_, err := products.CreateProduct(ctx, req, actor)
		switch {
		case err == nil:
			log.Info("product seeded", "name", d.name, "stock", d.stock)
		case errors.Is(err, apperror.ErrConflict):
			log.Info("product exists, skipped", "barcode", d.barcode)
		default:
			log.Error("seed product", "name", d.name, "error", err)
			os.Exit(1)
		}
	}
}
