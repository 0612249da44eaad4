package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-pos-inventory/internal/event"
	"go-pos-inventory/internal/middleware"
	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/internal/service"
	"go-pos-inventory/internal/testutil"
	"go-pos-inventory/pkg/apperror"
	"go-pos-inventory/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type testServer struct {
	app          *fiber.App
	db           *gorm.DB
	adminToken   string
	cashierToken string
	cashier      *model.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	manager := jwt.NewManager("test-secret", time.Hour)

	txm := repository.NewTxManager(db, 5*time.Second)
	productRepo := repository.NewProductRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	movementRepo := repository.NewStockMovementRepo(db)
	expenseRepo := repository.NewExpenseRepo(db)
	userRepo := repository.NewUserRepo(db)

	ledger := service.NewStockLedger(txm, productRepo, movementRepo, event.Nop(), nil)
	sales := service.NewSaleService(txm, productRepo, repository.NewSaleRepo(db), ledger, event.Nop(), nil)

	app := fiber.New()
	passthrough := func(c *fiber.Ctx) error { return c.Next() }
	RegisterRoutes(app, Handlers{
		Auth:      NewAuthHandler(service.NewAuthService(userRepo, manager, true)),
		Product:   NewProductHandler(service.NewProductService(txm, productRepo, categoryRepo, ledger, event.Nop())),
		Category:  NewCategoryHandler(service.NewCategoryService(categoryRepo)),
		Inventory: NewInventoryHandler(ledger),
		Sale:      NewSaleHandler(sales),
		Expense:   NewExpenseHandler(service.NewExpenseService(expenseRepo)),
		Dashboard: NewDashboardHandler(service.NewDashboardService(repository.NewDashboardRepo(db), movementRepo, expenseRepo)),
		User:      NewUserHandler(service.NewUserService(userRepo)),
	}, middleware.RequireAuth(manager, userRepo), passthrough)

	admin := testutil.CreateUser(t, db, "admin@example.com", model.RoleAdmin)
	cashier := testutil.CreateUser(t, db, "cashier@example.com", model.RoleCashier)
	adminToken, err := manager.GenerateToken(admin.ID, admin.Email, admin.Name, string(admin.Role), admin.TokenVersion)
	if err != nil {
		t.Fatal(err)
	}
	cashierToken, err := manager.GenerateToken(cashier.ID, cashier.Email, cashier.Name, string(cashier.Role), cashier.TokenVersion)
	if err != nil {
		t.Fatal(err)
	}

	return &testServer{app: app, db: db, adminToken: adminToken, cashierToken: cashierToken, cashier: cashier}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

func TestCheckoutEndpoint(t *testing.T) {
	s := newTestServer(t)
	a := testutil.CreateProduct(t, s.db, "A", 10, "100")
	b := testutil.CreateProduct(t, s.db, "B", 10, "50")

	status, body := s.do(t, http.MethodPost, "/api/v1/sales", s.cashierToken, map[string]any{
		"payment_method": "CASH",
		"items": []map[string]any{
			{"product_id": a.ID, "quantity": 2},
			{"product_id": b.ID, "quantity": 1},
		},
	})
	if status != http.StatusCreated {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	data, _ := body["data"].(map[string]any)
	total, _ := data["total_amount"].(string)
	if !decimal.RequireFromString(total).Equal(decimal.NewFromInt(250)) {
		t.Errorf("total_amount = %v, want 250", data["total_amount"])
	}
	if got := testutil.Stock(t, s.db, a.ID); got != 8 {
		t.Errorf("stock A = %d, want 8", got)
	}
}

func TestCheckoutEndpointErrors(t *testing.T) {
	s := newTestServer(t)
	p := testutil.CreateProduct(t, s.db, "Scarce", 3, "10")

	tests := []struct {
		name     string
		items    []map[string]any
		wantCode int
		wantKind string
	}{
		{"insufficient stock", []map[string]any{{"product_id": p.ID, "quantity": 5}}, http.StatusBadRequest, "INSUFFICIENT_STOCK"},
		{"unknown product", []map[string]any{{"product_id": uuid.New(), "quantity": 1}}, http.StatusNotFound, "NOT_FOUND"},
		{"empty cart", []map[string]any{}, http.StatusBadRequest, "INVALID_ARGUMENT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(t, http.MethodPost, "/api/v1/sales", s.cashierToken, map[string]any{
				"payment_method": "CASH",
				"items":          tt.items,
			})
			if status != tt.wantCode {
				t.Errorf("status = %d, want %d (%v)", status, tt.wantCode, body)
			}
			if body["code"] != tt.wantKind {
				t.Errorf("code = %v, want %s", body["code"], tt.wantKind)
			}
		})
	}

	if got := testutil.Stock(t, s.db, p.ID); got != 3 {
		t.Errorf("stock = %d after rejected checkouts, want 3", got)
	}
	if n := testutil.Count(t, s.db, &model.Sale{}); n != 0 {
		t.Errorf("sales = %d, want 0", n)
	}
}

func TestMovementEndpoint(t *testing.T) {
	s := newTestServer(t)
	p := testutil.CreateProduct(t, s.db, "Widget", 10, "5")
	body := map[string]any{"product_id": p.ID, "type": "IN", "quantity": 5, "reason": "restock"}

	if status, _ := s.do(t, http.MethodPost, "/api/v1/inventory/movements", s.cashierToken, body); status != http.StatusForbidden {
		t.Errorf("cashier status = %d, want 403", status)
	}

	status, resp := s.do(t, http.MethodPost, "/api/v1/inventory/movements", s.adminToken, body)
	if status != http.StatusCreated {
		t.Fatalf("admin status = %d, body = %v", status, resp)
	}
	if got := testutil.Stock(t, s.db, p.ID); got != 15 {
		t.Errorf("stock = %d, want 15", got)
	}

	status, resp = s.do(t, http.MethodPost, "/api/v1/inventory/movements", s.adminToken,
		map[string]any{"product_id": p.ID, "type": "OUT", "quantity": 0})
	if status != http.StatusBadRequest || resp["code"] != "INVALID_ARGUMENT" {
		t.Errorf("zero quantity: status = %d, code = %v", status, resp["code"])
	}
}

func TestSaleVisibility(t *testing.T) {
	s := newTestServer(t)
	p := testutil.CreateProduct(t, s.db, "Tea", 10, "20")

	status, body := s.do(t, http.MethodPost, "/api/v1/sales", s.adminToken, map[string]any{
		"payment_method": "TRANSFER",
		"slip_url":       "https://example.com/slip.png",
		"items":          []map[string]any{{"product_id": p.ID, "quantity": 1}},
	})
	if status != http.StatusCreated {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	saleID := body["data"].(map[string]any)["id"].(string)

	if status, _ := s.do(t, http.MethodGet, "/api/v1/sales/"+saleID, s.cashierToken, nil); status != http.StatusForbidden {
		t.Errorf("cashier reading admin sale: status = %d, want 403", status)
	}
	if status, _ := s.do(t, http.MethodGet, "/api/v1/sales/"+saleID, s.adminToken, nil); status != http.StatusOK {
		t.Errorf("admin reading sale: status = %d, want 200", status)
	}
	if status, _ := s.do(t, http.MethodGet, "/api/v1/sales/not-a-uuid", s.adminToken, nil); status != http.StatusBadRequest {
		t.Errorf("bad id: status = %d, want 400", status)
	}
}

func TestLoginEndpoint(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email": "cashier@example.com", "password": "secret123",
	})
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("no token in %v", body)
	}

	if status, _ := s.do(t, http.MethodGet, "/api/v1/products", token, nil); status != http.StatusOK {
		t.Errorf("products with fresh token: status = %d", status)
	}
	// Logging in again replaces the session.
	if status, _ := s.do(t, http.MethodGet, "/api/v1/products", s.cashierToken, nil); status != http.StatusUnauthorized {
		t.Errorf("old token: status = %d, want 401", status)
	}

	status, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email": "cashier@example.com", "password": "wrong-password",
	})
	if status != http.StatusUnauthorized {
		t.Errorf("wrong password: status = %d, want 401", status)
	}
}

func TestRespondErrorRetryHint(t *testing.T) {
	app := fiber.New()
	app.Get("/deadlock", func(c *fiber.Ctx) error {
		return respondError(c, apperror.NewTransactionFailure(&pgconn.PgError{Code: "40P01"}))
	})
	app.Get("/timeout", func(c *fiber.Ctx) error {
		return respondError(c, apperror.NewTransactionFailure(context.DeadlineExceeded))
	})

	tests := []struct {
		path       string
		retryAfter string
	}{
		{"/deadlock", "1"},
		{"/timeout", ""},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("%s: status = %d, want 500", tt.path, resp.StatusCode)
		}
		if got := resp.Header.Get("Retry-After"); got != tt.retryAfter {
			t.Errorf("%s: Retry-After = %q, want %q", tt.path, got, tt.retryAfter)
		}
	}
}

func TestRegisterEndpointCreatesCashier(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email": "walkin@example.com", "password": "secret123", "name": "Walk In", "role": "ADMIN",
	})
	if status != http.StatusCreated {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	data, _ := body["data"].(map[string]any)
	if data["role"] != string(model.RoleCashier) {
		t.Errorf("role = %v, want CASHIER", data["role"])
	}

	status, body = s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email": "walkin@example.com", "password": "secret123", "name": "Again",
	})
	if status != http.StatusConflict || body["code"] != "CONFLICT" {
		t.Errorf("duplicate: status = %d, code = %v", status, body["code"])
	}
}
