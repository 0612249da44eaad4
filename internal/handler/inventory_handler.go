package handler

import (
	"go-pos-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// InventoryHandler exposes the stock ledger.
type InventoryHandler struct {
	ledger service.StockLedger
}

func NewInventoryHandler(ledger service.StockLedger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

// CreateMovement records a stock receipt, removal or adjustment.
// POST /api/v1/inventory/movements
func (h *InventoryHandler) CreateMovement(c *fiber.Ctx) error {
	var req service.MovementRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	result, err := h.ledger.ApplyMovement(c.UserContext(), &req, currentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Stock movement recorded", "data": result})
}

// GET /api/v1/inventory/movements?product_id=
func (h *InventoryHandler) GetMovements(c *fiber.Ctx) error {
	var productID *uuid.UUID
	if raw := c.Query("product_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "Invalid product ID")
		}
		productID = &id
	}

	movements, err := h.ledger.ListMovements(c.UserContext(), productID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(movements)
}

// GET /api/v1/inventory/products/:id/balance
func (h *InventoryHandler) GetBalance(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid product ID")
	}
	balance, err := h.ledger.Balance(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(balance)
}
