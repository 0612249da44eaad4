// Package event publishes stock notifications after a unit of work commits.
// Publishing is best effort: a failed or dropped event never affects the
// committed operation.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeStockUpdate = "stock_update"
	TypeLowStock    = "low_stock"
	TypeSale        = "sale_completed"
)

const (
	ActionMovement       = "movement_applied"
	ActionSale           = "sale"
	ActionProductCreated = "product_created"
)

// Event is the JSON shape pushed to websocket clients and Kafka.
type Event struct {
	Type        string     `json:"type"`
	Action      string     `json:"action,omitempty"`
	ProductID   *uuid.UUID `json:"product_id,omitempty"`
	ProductName string     `json:"product_name,omitempty"`
	NewStock    *int       `json:"new_stock,omitempty"`
	Threshold   *int       `json:"threshold,omitempty"`
	SaleID      *uuid.UUID `json:"sale_id,omitempty"`
	UserID      uuid.UUID  `json:"user_id"`
	Message     string     `json:"message"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// Key groups events of one product (or sale) onto one Kafka partition.
func (e Event) Key() string {
	switch {
	case e.ProductID != nil:
		return e.ProductID.String()
	case e.SaleID != nil:
		return e.SaleID.String()
	}
	return ""
}

type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

// Nop discards every event.
func Nop() Publisher {
	return nopPublisher{}
}

type multiPublisher []Publisher

func (m multiPublisher) Publish(ctx context.Context, evt Event) {
	for _, p := range m {
		p.Publish(ctx, evt)
	}
}

// Multi fans each event out to all publishers in order.
func Multi(publishers ...Publisher) Publisher {
	return multiPublisher(publishers)
}
