package event

import (
	"fmt"
	"time"

	"go-pos-inventory/internal/model"

	"github.com/google/uuid"
)

// ForProduct builds the stock_update event for a product's new quantity,
// followed by a low_stock event when it is at or under its threshold.
func ForProduct(action string, product *model.Product, userID uuid.UUID, saleID *uuid.UUID, message string) []Event {
	now := time.Now()
	productID := product.ID
	stock := product.StockQuantity
	threshold := product.LowStockThreshold

	events := []Event{{
		Type:        TypeStockUpdate,
		Action:      action,
		ProductID:   &productID,
		ProductName: product.Name,
		NewStock:    &stock,
		SaleID:      saleID,
		UserID:      userID,
		Message:     message,
		OccurredAt:  now,
	}}

	if product.IsLowStock() {
		events = append(events, Event{
			Type:        TypeLowStock,
			Action:      action,
			ProductID:   &productID,
			ProductName: product.Name,
			NewStock:    &stock,
			Threshold:   &threshold,
			SaleID:      saleID,
			UserID:      userID,
			Message:     fmt.Sprintf("Low stock: %s has %d left (threshold %d)", product.Name, stock, threshold),
			OccurredAt:  now,
		})
	}
	return events
}
