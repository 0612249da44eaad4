package handler

import (
	"go-pos-inventory/internal/middleware"
	"go-pos-inventory/internal/model"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Auth      *AuthHandler
	Product   *ProductHandler
	Category  *CategoryHandler
	Inventory *InventoryHandler
	Sale      *SaleHandler
	Expense   *ExpenseHandler
	Dashboard *DashboardHandler
	User      *UserHandler
}

// RegisterRoutes mounts the /api/v1 routes. requireAuth guards everything
// except login, registration and token validation; checkoutLimit throttles POST /sales.
func RegisterRoutes(app *fiber.App, h Handlers, requireAuth, checkoutLimit fiber.Handler) {
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", h.Auth.Login)
	auth.Post("/register", h.Auth.Register)
	auth.Post("/validate-token", h.Auth.ValidateToken)
	auth.Post("/change-password", requireAuth, h.Auth.ChangePassword)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", requireAuth)
	adminOnly := middleware.RequireRole(model.RoleAdmin)
	anyStaff := middleware.RequireRole(model.RoleAdmin, model.RoleCashier)

	// Catalog: everyone reads, admins write
	protected.Get("/categories", h.Category.GetCategories)
	protected.Get("/categories/:id", h.Category.GetCategory)
	protected.Post("/categories", adminOnly, h.Category.CreateCategory)
	protected.Put("/categories/:id", adminOnly, h.Category.UpdateCategory)
	protected.Delete("/categories/:id", adminOnly, h.Category.DeleteCategory)

	protected.Get("/products", h.Product.GetProducts)
	protected.Get("/products/low-stock", h.Product.GetLowStockProducts)
	protected.Get("/products/barcode/:barcode", h.Product.GetProductByBarcode)
	protected.Get("/products/:id", h.Product.GetProduct)
	protected.Post("/products", adminOnly, h.Product.CreateProduct)
	protected.Put("/products/:id", adminOnly, h.Product.UpdateProduct)
	protected.Delete("/products/:id", adminOnly, h.Product.DeleteProduct)

	// Stock ledger
	protected.Post("/inventory/movements", adminOnly, h.Inventory.CreateMovement)
	protected.Get("/inventory/movements", adminOnly, h.Inventory.GetMovements)
	protected.Get("/inventory/products/:id/balance", adminOnly, h.Inventory.GetBalance)

	// Sales
	protected.Post("/sales", anyStaff, checkoutLimit, h.Sale.Checkout)
	protected.Get("/sales", anyStaff, h.Sale.GetSales)
	protected.Get("/sales/:id", anyStaff, h.Sale.GetSale)

	// Expenses and reporting
	protected.Get("/expenses", adminOnly, h.Expense.GetExpenses)
	protected.Get("/expenses/:id", adminOnly, h.Expense.GetExpense)
	protected.Post("/expenses", adminOnly, h.Expense.CreateExpense)
	protected.Delete("/expenses/:id", adminOnly, h.Expense.DeleteExpense)

	protected.Get("/dashboard/summary", adminOnly, h.Dashboard.GetSummary)
	protected.Get("/dashboard/stock-movement", adminOnly, h.Dashboard.GetStockMovement)

	// User management
	protected.Get("/users", adminOnly, h.User.GetUsers)
	protected.Get("/users/:id", adminOnly, h.User.GetUser)
	protected.Post("/users", adminOnly, h.User.CreateUser)
	protected.Put("/users/:id/role", adminOnly, h.User.UpdateRole)
	protected.Delete("/users/:id", adminOnly, h.User.DeleteUser)
}
