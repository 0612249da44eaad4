package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-pos-inventory/internal/event"
	"go-pos-inventory/internal/metrics"
	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/internal/testutil"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recordingPublisher) Publish(_ context.Context, evt event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingPublisher) ofType(typ string) []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.Event
	for _, evt := range r.events {
		if evt.Type == typ {
			out = append(out, evt)
		}
	}
	return out
}

type testEnv struct {
	db        *gorm.DB
	events    *recordingPublisher
	metrics   *metrics.Metrics
	ledger    StockLedger
	sales     SaleService
	products  ProductService
	cashier   Actor
	stockUser Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvOn(t, testutil.NewDB(t))
}

// newPostgresTestEnv runs against a real Postgres so row locks are taken
// by concurrent connections.
func newPostgresTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvOn(t, testutil.NewPostgresDB(t))
}

func newTestEnvOn(t *testing.T, db *gorm.DB) *testEnv {
	t.Helper()

	txm := repository.NewTxManager(db, 5*time.Second)
	productRepo := repository.NewProductRepo(db)
	movementRepo := repository.NewStockMovementRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)

	pub := &recordingPublisher{}
	m := metrics.New(prometheus.NewRegistry())
	ledger := NewStockLedger(txm, productRepo, movementRepo, pub, m)

	cashier := testutil.CreateUser(t, db, "cashier@example.com", model.RoleCashier)
	admin := testutil.CreateUser(t, db, "admin@example.com", model.RoleAdmin)

	return &testEnv{
		db:        db,
		events:    pub,
		metrics:   m,
		ledger:    ledger,
		sales:     NewSaleService(txm, productRepo, saleRepo, ledger, pub, m),
		products:  NewProductService(txm, productRepo, categoryRepo, ledger, pub),
		cashier:   Actor{ID: cashier.ID, Name: cashier.Name},
		stockUser: Actor{ID: admin.ID, Name: admin.Name},
	}
}

var errInjected = errors.New("injected write failure")

// failMovementInserts makes the n-th stock movement insert fail when failOn
// returns true for it. It returns the number of inserts attempted so far.
func failMovementInserts(t *testing.T, db *gorm.DB, failOn func(n int) bool) *int {
	t.Helper()
	attempts := 0
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_movement_insert", func(d *gorm.DB) {
		if d.Statement.Table != "stock_movements" {
			return
		}
		attempts++
		if failOn(attempts) {
			d.AddError(errInjected)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	return &attempts
}
