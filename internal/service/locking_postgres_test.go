package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/testutil"
	"go-pos-inventory/pkg/apperror"
)

// These tests need POS_TEST_POSTGRES_DSN. Unlike the SQLite suite they run
// transactions on separate connections, so only the row locks keep stock
// consistent.

func TestPostgresConcurrentOutMovements(t *testing.T) {
	env := newPostgresTestEnv(t)
	const stock, workers = 5, 10
	p := testutil.CreateProduct(t, env.db, "Contended", stock, "10")

	var (
		wg   sync.WaitGroup
		errs = make([]error, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.ledger.ApplyMovement(context.Background(), &MovementRequest{
				ProductID: p.ID, Type: model.MovementOut, Quantity: 1,
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
	if ok != stock || short != workers-stock {
		t.Errorf("successes = %d, shortages = %d; want %d and %d", ok, short, stock, workers-stock)
	}
	if got := testutil.Stock(t, env.db, p.ID); got != 0 {
		t.Errorf("final stock = %d, want 0", got)
	}
	if n := testutil.Count(t, env.db, &model.StockMovement{}); n != stock {
		t.Errorf("movements = %d, want %d", n, stock)
	}
}

func TestPostgresOverlappingCartsDoNotDeadlock(t *testing.T) {
	env := newPostgresTestEnv(t)
	a := testutil.CreateProduct(t, env.db, "A", 50, "100")
	b := testutil.CreateProduct(t, env.db, "B", 50, "50")

	const buyers = 20
	var (
		wg   sync.WaitGroup
		errs = make([]error, buyers)
	)
	for i := 0; i < buyers; i++ {
		items := []CheckoutItem{{ProductID: a.ID, Quantity: 1}, {ProductID: b.ID, Quantity: 1}}
		if i%2 == 1 {
			items[0], items[1] = items[1], items[0]
		}
		wg.Add(1)
		go func(i int, items []CheckoutItem) {
			defer wg.Done()
			_, errs[i] = env.sales.Checkout(context.Background(), &CheckoutRequest{
				Items:         items,
				PaymentMethod: model.PaymentCash,
			}, env.cashier)
		}(i, items)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("checkout %d: %v", i, err)
		}
	}
	if got := testutil.Stock(t, env.db, a.ID); got != 50-buyers {
		t.Errorf("stock A = %d, want %d", got, 50-buyers)
	}
	if got := testutil.Stock(t, env.db, b.ID); got != 50-buyers {
		t.Errorf("stock B = %d, want %d", got, 50-buyers)
	}
	if n := testutil.Count(t, env.db, &model.Sale{}); n != buyers {
		t.Errorf("sales = %d, want %d", n, buyers)
	}
}
