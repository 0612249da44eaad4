package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MovementType string

const (
	MovementIn     MovementType = "IN"
	MovementOut    MovementType = "OUT"
	MovementAdjust MovementType = "ADJUST"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjust:
		return true
	}
	return false
}

// Delta returns the signed change a movement of this type applies.
// ADJUST removes stock, like OUT (shrinkage, damage, count corrections).
func (t MovementType) Delta(quantity int) int {
	if t == MovementIn {
		return quantity
	}
	return -quantity
}

// StockMovement is an append-only audit entry. It has no UpdatedAt or
// DeletedAt on purpose: rows are never edited or removed.
type StockMovement struct {
	ID         uuid.UUID    `gorm:"type:uuid;primary_key;" json:"id"`
	ProductID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"product_id"`
	Product    *Product     `json:"product,omitempty"`
	Type       MovementType `gorm:"type:varchar(10);not null" json:"type"`
	Quantity   int          `gorm:"not null;check:chk_stock_movements_quantity_positive,quantity > 0" json:"quantity"`
	StockAfter int          `gorm:"not null" json:"stock_after"`
	Reason     string       `gorm:"type:varchar(255)" json:"reason,omitempty"`
	SaleID     *uuid.UUID   `gorm:"type:uuid;index" json:"sale_id,omitempty"`
	UserID     uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	User       *User        `json:"user,omitempty"`
	CreatedAt  time.Time    `gorm:"index" json:"created_at"`
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// SignedQuantity is the movement's contribution to the product's stock.
func (m *StockMovement) SignedQuantity() int {
	return m.Type.Delta(m.Quantity)
}
