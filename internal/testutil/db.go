// Package testutil provides a migrated in-memory database and fixtures for
// repository, service and handler tests.
package testutil

import (
	"fmt"
	"testing"

	"go-pos-inventory/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a private shared-cache in-memory SQLite database with the full
// schema. The pool holds one connection, so transactions run one at a time.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func CreateUser(t testing.TB, db *gorm.DB, email string, role model.Role) *model.User {
	t.Helper()
	user := &model.User{Email: email, Name: email, Role: role, IsActive: true}
	if err := user.SetPassword("secret123"); err != nil {
		t.Fatal(err)
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// CreateProduct inserts a product with the given stock directly, bypassing
// the ledger. Tests that check the movement invariant must start from zero.
func CreateProduct(t testing.TB, db *gorm.DB, name string, stock int, sellPrice string) *model.Product {
	t.Helper()
	product := &model.Product{
		Name:              name,
		CostPrice:         decimal.Zero,
		SellPrice:         decimal.RequireFromString(sellPrice),
		StockQuantity:     stock,
		LowStockThreshold: model.DefaultLowStockThreshold,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func Stock(t testing.TB, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var p model.Product
	if err := db.Unscoped().First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return p.StockQuantity
}

func Count(t testing.TB, db *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(m).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
