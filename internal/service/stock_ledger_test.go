package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go-pos-inventory/internal/event"
	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/testutil"
	"go-pos-inventory/pkg/apperror"

	"github.com/google/uuid"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestApplyMovementReceivesStock(t *testing.T) {
	env := newTestEnv(t)
	p := testutil.CreateProduct(t, env.db, "Rice 5kg", 10, "100")

	res, err := env.ledger.ApplyMovement(context.Background(), &MovementRequest{
		ProductID: p.ID, Type: model.MovementIn, Quantity: 5, Reason: "Supplier delivery",
	}, env.stockUser)
	if err != nil {
		t.Fatalf("ApplyMovement: %v", err)
	}

	if res.Product.StockQuantity != 15 {
		t.Errorf("returned stock = %d, want 15", res.Product.StockQuantity)
	}
	if got := testutil.Stock(t, env.db, p.ID); got != 15 {
		t.Errorf("stored stock = %d, want 15", got)
	}
	if res.Movement.Type != model.MovementIn || res.Movement.Quantity != 5 || res.Movement.StockAfter != 15 {
		t.Errorf("unexpected movement: %+v", res.Movement)
	}
	if res.Movement.UserID != env.stockUser.ID {
		t.Errorf("movement user = %s, want %s", res.Movement.UserID, env.stockUser.ID)
	}
	if n := testutil.Count(t, env.db, &model.StockMovement{}); n != 1 {
		t.Errorf("movements = %d, want 1", n)
	}

	updates := env.events.ofType(event.TypeStockUpdate)
	if len(updates) != 1 || *updates[0].NewStock != 15 {
		t.Errorf("expected one stock_update with new_stock 15, got %+v", updates)
	}
	if low := env.events.ofType(event.TypeLowStock); len(low) != 0 {
		t.Errorf("stock 15 over threshold 5 must not raise low_stock, got %d", len(low))
	}
	if got := promtest.ToFloat64(env.metrics.MovementsTotal.WithLabelValues("IN")); got != 1 {
		t.Errorf("IN movements metric = %v, want 1", got)
	}
}

func TestApplyMovementRejectsOverdraw(t *testing.T) {
	env := newTestEnv(t)
	p := testutil.CreateProduct(t, env.db, "Soap", 3, "25")

	_, err := env.ledger.ApplyMovement(context.Background(), &MovementRequest{
		ProductID: p.ID, Type: model.MovementOut, Quantity: 5,
	}, env.stockUser)
	if !errors.Is(err, apperror.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if !strings.Contains(err.Error(), "Soap") {
		t.Errorf("error should name the product: %v", err)
	}
	if got := testutil.Stock(t, env.db, p.ID); got != 3 {
		t.Errorf("stock = %d, want 3", got)
	}
	if n := testutil.Count(t, env.db, &model.StockMovement{}); n != 0 {
		t.Errorf("movements = %d, want 0", n)
	}
	if len(env.events.events) != 0 {
		t.Errorf("rejected movement must not publish, got %d events", len(env.events.events))
	}
	if got := promtest.ToFloat64(env.metrics.RejectedTotal.WithLabelValues("movement", string(apperror.KindInsufficientStock))); got != 1 {
		t.Errorf("rejection metric = %v, want 1", got)
	}
}

func TestApplyMovementAdjustDecrements(t *testing.T) {
	env := newTestEnv(t)
	p := testutil.CreateProduct(t, env.db, "Eggs", 8, "3")

	res, err := env.ledger.ApplyMovement(context.Background(), &MovementRequest{
		ProductID: p.ID, Type: model.MovementAdjust, Quantity: 4, Reason: "Broken in storage",
	}, env.stockUser)
	if err != nil {
		t.Fatalf("ApplyMovement: %v", err)
	}
	if res.Product.StockQuantity != 4 {
		t.Errorf("stock = %d, want 4", res.Product.StockQuantity)
	}
	if low := env.events.ofType(event.TypeLowStock); len(low) != 1 {
		t.Errorf("stock 4 under threshold 5 should raise one low_stock, got %d", len(low))
	}

	_, err = env.ledger.ApplyMovement(context.Background(), &MovementRequest{
		ProductID: p.ID, Type: model.MovementAdjust, Quantity: 5,
	}, env.stockUser)
	if !errors.Is(err, apperror.ErrInsufficientStock) {
		t.Fatalf("adjusting below zero: expected insufficient stock, got %v", err)
	}
	if got := testutil.Stock(t, env.db, p.ID); got != 4 {
		t.Errorf("stock = %d, want 4", got)
	}
}

func TestApplyMovementValidation(t *testing.T) {
	env := newTestEnv(t)
	p := testutil.CreateProduct(t, env.db, "Tea", 10, "5")

	tests := []struct {
		name string
		req  MovementRequest
		want error
	}{
		{"zero quantity", MovementRequest{ProductID: p.ID, Type: model.MovementIn, Quantity: 0}, apperror.ErrInvalidArgument},
		{"negative quantity", MovementRequest{ProductID: p.ID, Type: model.MovementOut, Quantity: -2}, apperror.ErrInvalidArgument},
		{"unknown type", MovementRequest{ProductID: p.ID, Type: "SET", Quantity: 1}, apperror.ErrInvalidArgument},
		{"missing product", MovementRequest{ProductID: uuid.New(), Type: model.MovementIn, Quantity: 1}, apperror.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ledger.ApplyMovement(context.Background(), &tt.req, env.stockUser)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if got := testutil.Stock(t, env.db, p.ID); got != 10 {
		t.Errorf("stock = %d, want 10", got)
	}
	if n := testutil.Count(t, env.db, &model.StockMovement{}); n != 0 {
		t.Errorf("movements = %d, want 0", n)
	}
}

func TestApplyMovementDeletedProductIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	p := testutil.CreateProduct(t, env.db, "Old stock", 5, "1")
	if err := env.products.DeleteProduct(context.Background(), p.ID, env.stockUser); err != nil {
		t.Fatal(err)
	}

	_, err := env.ledger.ApplyMovement(context.Background(), &MovementRequest{
		ProductID: p.ID, Type: model.MovementIn, Quantity: 1,
	}, env.stockUser)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConcurrentOutMovementsNeverOversell(t *testing.T) {
	env := newTestEnv(t)
	const stock = 5
	p := testutil.CreateProduct(t, env.db, "Last units", stock, "10")

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.ledger.ApplyMovement(context.Background(), &MovementRequest{
				ProductID: p.ID, Type: model.MovementOut, Quantity: stock,
			}, env.stockUser)
		}(i)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperror.ErrInsufficientStock):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || short != 1 {
		t.Fatalf("expected one success and one insufficient stock, got %d and %d", ok, short)
	}
	if got := testutil.Stock(t, env.db, p.ID); got != 0 {
		t.Errorf("final stock = %d, want 0", got)
	}
}

func TestLedgerBalancesAfterMixedOperations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.products.CreateProduct(ctx, &ProductRequest{Name: "Coffee", InitialStock: 20}, env.stockUser)
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	steps := []MovementRequest{
		{ProductID: p.ID, Type: model.MovementIn, Quantity: 7},
		{ProductID: p.ID, Type: model.MovementOut, Quantity: 3},
		{ProductID: p.ID, Type: model.MovementAdjust, Quantity: 2},
		{ProductID: p.ID, Type: model.MovementOut, Quantity: 100}, // rejected
	}
	for i := range steps {
		env.ledger.ApplyMovement(ctx, &steps[i], env.stockUser)
	}
	if _, err := env.sales.Checkout(ctx, &CheckoutRequest{
		Items:         []CheckoutItem{{ProductID: p.ID, Quantity: 4}},
		PaymentMethod: model.PaymentCash,
	}, env.cashier); err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	b, err := env.ledger.Balance(ctx, p.ID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if b.TotalIn != 27 || b.TotalOut != 7 || b.TotalAdjust != 2 {
		t.Errorf("totals in=%d out=%d adjust=%d, want 27/7/2", b.TotalIn, b.TotalOut, b.TotalAdjust)
	}
	if !b.Balanced || b.StockQuantity != 18 {
		t.Errorf("expected balanced ledger at 18, got %+v", b)
	}
}

func TestListMovementsFiltersByProduct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateProduct(t, env.db, "A", 0, "1")
	b := testutil.CreateProduct(t, env.db, "B", 0, "1")

	for _, id := range []uuid.UUID{a.ID, a.ID, b.ID} {
		if _, err := env.ledger.ApplyMovement(ctx, &MovementRequest{ProductID: id, Type: model.MovementIn, Quantity: 1}, env.stockUser); err != nil {
			t.Fatal(err)
		}
	}

	all, err := env.ledger.ListMovements(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("all movements = %d, want 3", len(all))
	}

	onlyA, err := env.ledger.ListMovements(ctx, &a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(onlyA) != 2 {
		t.Fatalf("movements of A = %d, want 2", len(onlyA))
	}
	if onlyA[0].Product == nil || onlyA[0].Product.Name != "A" {
		t.Errorf("expected product preloaded, got %+v", onlyA[0].Product)
	}
	if onlyA[0].User == nil || onlyA[0].User.ID != env.stockUser.ID {
		t.Errorf("expected acting user preloaded, got %+v", onlyA[0].User)
	}
}

func TestApplyMovementWriteFailureIsNotRetried(t *testing.T) {
	env := newTestEnv(t)
	p := testutil.CreateProduct(t, env.db, "Flour", 10, "30")
	attempts := failMovementInserts(t, env.db, func(int) bool { return true })

	_, err := env.ledger.ApplyMovement(context.Background(), &MovementRequest{
		ProductID: p.ID, Type: model.MovementOut, Quantity: 4,
	}, env.stockUser)
	if !errors.Is(err, apperror.ErrTransactionFailed) {
		t.Fatalf("expected transaction failure, got %v", err)
	}
	if *attempts != 1 {
		t.Errorf("movement inserts attempted = %d, want 1", *attempts)
	}
	if got := testutil.Stock(t, env.db, p.ID); got != 10 {
		t.Errorf("stock = %d, want 10 after rollback", got)
	}
	if n := testutil.Count(t, env.db, &model.StockMovement{}); n != 0 {
		t.Errorf("movements = %d, want 0", n)
	}
}
